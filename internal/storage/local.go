package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// uploadDirs are created on startup so multipart saves and QR generation never
// race directory creation at request time.
var uploadDirs = []string{"uploads", "uploads/imgs", "uploads/qrs"}

// localStorage implements Storage on the local filesystem rooted at dir.
// Files written here are served statically by the HTTP server under /uploads.
type localStorage struct {
	dir     string
	baseURL string
}

// NewLocal creates a filesystem-backed storage rooted at dir and ensures the
// uploads directory tree exists. baseURL is used to build public download URLs.
func NewLocal(dir, baseURL string) (Storage, error) {
	if dir == "" {
		dir = "."
	}
	for _, d := range uploadDirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir %s: %w", d, err)
		}
	}
	return &localStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *localStorage) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return filepath.Join(l.dir, clean), nil
}

// Put writes the file atomically: content lands in a temp file first, then is
// renamed into place, so a half-written file is never observable at its key.
func (l *localStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	p, err := l.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return ObjectInfo{}, fmt.Errorf("create parent dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return ObjectInfo{}, fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return ObjectInfo{}, fmt.Errorf("rename file: %w", err)
	}

	return ObjectInfo{
		Key:          key,
		Size:         n,
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}, nil
}

// Get opens the file at key for streaming reads.
func (l *localStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	p, err := l.path(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, err
	}
	info := ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		ContentType:  mime.TypeByExtension(filepath.Ext(p)),
		LastModified: st.ModTime(),
	}
	return f, info, nil
}

// Delete removes the file at key. Deleting a missing file is not an error.
func (l *localStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// PresignGet returns the public URL for the key; local files are world-readable
// through the static /uploads route, so no signing is involved.
func (l *localStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if _, err := l.path(key); err != nil {
		return "", err
	}
	return l.baseURL + "/" + strings.TrimLeft(key, "/"), nil
}
