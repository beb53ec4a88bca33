package storage

import (
	"context"
	"io"
	"time"
)

// Package storage contains file storage abstractions for uploaded images and
// generated QR codes. Keys are slash-separated relative paths such as
// "uploads/imgs/img-123.jpg"; the same key is what gets persisted in the
// database and handed to clients.

// PutObjectOptions define optional parameters for storing files.
// Size should be the exact number of bytes if known; if unknown, set to -1 and
// the implementation will buffer/chunk as supported by the backend.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored file.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the file storage backend interface. The local-disk implementation
// backs the statically served uploads/ tree; the S3-compatible implementation
// offloads files to object storage.
type Storage interface {
	// Put stores a file under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves a file's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes a file by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a URL that can be used to download the file without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
