package repository

import (
	"context"

	"fichasapi/internal/model"
)

// QRFunc generates and persists the QR image for a freshly inserted ficha and
// returns its storage path. It runs inside the creation transaction, between
// the ficha insert and the image-row inserts; an error aborts the whole create.
type QRFunc func(fichaID int64) (string, error)

// FichaRepository defines data access for fichas using SQL queries only.
// No business logic here — strictly persistence operations.
type FichaRepository interface {
	// CreateWithImages atomically inserts the ficha row, resolves its QR path
	// via genQR, and inserts one ficha_imagenes row per path. Any failure
	// rolls the transaction back; no partial ficha is ever visible.
	// Returns the stored ficha with DB-assigned id, timestamps, and QR path.
	CreateWithImages(ctx context.Context, f *model.Ficha, imagePaths []string, genQR QRFunc) (*model.Ficha, error)

	// FindByID returns a ficha by its ID with Imagenes populated in insertion
	// order. Missing rows surface as sql.ErrNoRows.
	FindByID(ctx context.Context, id int64) (*model.Ficha, error)

	// List returns a page of ficha summaries ordered by creation time
	// descending, plus the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.FichaSummary], error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
