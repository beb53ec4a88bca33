package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fichasapi/internal/model"
	"fichasapi/internal/repository"
)

// FichaPostgres is a PostgreSQL implementation of repository.FichaRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type FichaPostgres struct {
	db *sql.DB
}

// NewFichaPostgres creates a new FichaPostgres repository.
func NewFichaPostgres(db *sql.DB) *FichaPostgres {
	return &FichaPostgres{db: db}
}

var _ repository.FichaRepository = (*FichaPostgres)(nil)

const fichaColumns = `id, pedimento, clave_pedimento, fecha_pago, factura, fecha_facturacion,
		valor_usd, valor_aduana, pais_origen, marca, modelo, serie,
		descripcion, ubicacion_planta, identificador_af, qr_code_path, created_at, updated_at`

func scanFicha(row interface{ Scan(...any) error }, f *model.Ficha) error {
	return row.Scan(
		&f.ID,
		&f.Pedimento,
		&f.ClavePedimento,
		&f.FechaPago,
		&f.Factura,
		&f.FechaFacturacion,
		&f.ValorUSD,
		&f.ValorAduana,
		&f.PaisOrigen,
		&f.Marca,
		&f.Modelo,
		&f.Serie,
		&f.Descripcion,
		&f.UbicacionPlanta,
		&f.IdentificadorAF,
		&f.QRCodePath,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
}

// CreateWithImages inserts the ficha, its QR path, and its image rows in one
// transaction. genQR writes the QR file to storage mid-transaction; if anything
// after it fails the DB rolls back and the caller is responsible for removing
// the file. The pooled connection backing the transaction is released on every
// exit path via Commit or Rollback.
func (r *FichaPostgres) CreateWithImages(ctx context.Context, f *model.Ficha, imagePaths []string, genQR repository.QRFunc) (out *model.Ficha, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const qInsert = `
		INSERT INTO fichas_tecnicas (
			pedimento, clave_pedimento, fecha_pago, factura, fecha_facturacion,
			valor_usd, valor_aduana, pais_origen, marca, modelo, serie,
			descripcion, ubicacion_planta, identificador_af
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`
	stored := *f
	if err = tx.QueryRowContext(ctx, qInsert,
		f.Pedimento,
		f.ClavePedimento,
		f.FechaPago,
		f.Factura,
		f.FechaFacturacion,
		f.ValorUSD,
		f.ValorAduana,
		f.PaisOrigen,
		f.Marca,
		f.Modelo,
		f.Serie,
		f.Descripcion,
		f.UbicacionPlanta,
		f.IdentificadorAF,
	).Scan(&stored.ID, &stored.CreatedAt, &stored.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert ficha: %w", err)
	}

	qrPath, err := genQR(stored.ID)
	if err != nil {
		return nil, fmt.Errorf("generate qr: %w", err)
	}
	const qUpdateQR = `UPDATE fichas_tecnicas SET qr_code_path = $1 WHERE id = $2`
	if _, err = tx.ExecContext(ctx, qUpdateQR, qrPath, stored.ID); err != nil {
		return nil, fmt.Errorf("update qr path: %w", err)
	}
	stored.QRCodePath = &qrPath

	const qInsertImage = `INSERT INTO ficha_imagenes (ficha_id, imagen_path) VALUES ($1, $2)`
	for _, p := range imagePaths {
		if _, err = tx.ExecContext(ctx, qInsertImage, stored.ID, p); err != nil {
			return nil, fmt.Errorf("insert image: %w", err)
		}
	}
	stored.Imagenes = append([]string(nil), imagePaths...)

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &stored, nil
}

// FindByID fetches a single ficha with its image paths in insertion order.
func (r *FichaPostgres) FindByID(ctx context.Context, id int64) (*model.Ficha, error) {
	q := `SELECT ` + fichaColumns + ` FROM fichas_tecnicas WHERE id = $1`
	var f model.Ficha
	if err := scanFicha(r.db.QueryRowContext(ctx, q, id), &f); err != nil {
		return nil, err
	}

	const qImages = `SELECT imagen_path FROM ficha_imagenes WHERE ficha_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, qImages, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	f.Imagenes = make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		f.Imagenes = append(f.Imagenes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &f, nil
}

// List returns ficha summaries using LIMIT/OFFSET pagination and a total count.
func (r *FichaPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.FichaSummary], error) {
	// Count total rows
	const qCount = `SELECT COUNT(*) FROM fichas_tecnicas`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	const qList = `
		SELECT id, pedimento, clave_pedimento, marca, modelo, serie,
		       descripcion, created_at, qr_code_path
		FROM fichas_tecnicas
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.FichaSummary, 0)
	for rows.Next() {
		var s model.FichaSummary
		if err := rows.Scan(
			&s.ID,
			&s.Pedimento,
			&s.ClavePedimento,
			&s.Marca,
			&s.Modelo,
			&s.Serie,
			&s.Descripcion,
			&s.CreatedAt,
			&s.QRCodePath,
		); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.FichaSummary]{
		Items: items,
		Total: total,
	}, nil
}
