package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fichasapi/internal/model"
	"fichasapi/internal/repository"
	"fichasapi/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("ficha not found")
)

// ValidationError reports the request fields that were missing or invalid.
// It is the only error surfaced to clients with field-level detail.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid or missing fields: " + strings.Join(e.Fields, ", ")
}

// ImageUpload is one image payload submitted with a creation request.
type ImageUpload struct {
	Content     io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// CreateFichaInput carries the raw form values of a creation request.
// All fields are required; dates use YYYY-MM-DD and money values are decimals.
type CreateFichaInput struct {
	Pedimento        string
	ClavePedimento   string
	FechaPago        string
	Factura          string
	FechaFacturacion string
	ValorUSD         string
	ValorAduana      string
	PaisOrigen       string
	Marca            string
	Modelo           string
	Serie            string
	Descripcion      string
	UbicacionPlanta  string
	IdentificadorAF  string
}

// FichaListResult is the service-level DTO for paginated fichas.
type FichaListResult struct {
	Items []model.FichaSummary
	Page  int
	Limit int
	Total int
	Pages int
}

// QRGenerator produces and persists the QR image for a ficha id, returning its
// storage path.
type QRGenerator interface {
	Generate(ctx context.Context, fichaID int64) (string, error)
}

// FichaService defines the use cases for handling fichas técnicas.
type FichaService interface {
	// Create validates the request, stores the image files, and commits the
	// ficha + QR path + image rows in one transaction. On any failure after
	// files hit storage they are deleted best-effort; no partial ficha is
	// ever visible to readers.
	Create(ctx context.Context, in *CreateFichaInput, images []ImageUpload) (*model.Ficha, error)

	// Get returns a single ficha by its ID, image paths included.
	Get(ctx context.Context, id int64) (*model.Ficha, error)

	// List returns a page of ficha summaries ordered by creation time
	// descending. Out-of-range pages yield an empty page, not an error.
	List(ctx context.Context, page, limit int) (*FichaListResult, error)
}

// fichaService is a concrete implementation of FichaService.
type fichaService struct {
	store       storage.Storage
	repo        repository.FichaRepository
	qr          QRGenerator
	maxFileSize int64
	maxImages   int
	now         func() time.Time
}

// NewFichaService constructs a new FichaService. maxFileSize bounds each image
// payload in bytes; maxImages caps how many images one request may carry.
func NewFichaService(store storage.Storage, repo repository.FichaRepository, qr QRGenerator, maxFileSize int64, maxImages int) FichaService {
	return &fichaService{
		store:       store,
		repo:        repo,
		qr:          qr,
		maxFileSize: maxFileSize,
		maxImages:   maxImages,
		now:         time.Now,
	}
}

// Create implements the all-or-nothing creation contract. The store
// transaction is the source of truth; files written to storage before the
// failure are compensable side effects removed by cleanup. A crash between a
// file write and cleanup can leak that file — accepted limitation, cleanup
// failures are logged and never escalated.
func (s *fichaService) Create(ctx context.Context, in *CreateFichaInput, images []ImageUpload) (*model.Ficha, error) {
	ficha, verr := s.validate(in, images)
	if verr != nil {
		return nil, verr
	}

	// Save image payloads first; keys are unique via upload time + random part.
	saved := make([]string, 0, len(images)+1)
	for _, img := range images {
		ext := strings.ToLower(filepath.Ext(img.Filename))
		key := fmt.Sprintf("uploads/imgs/img-%d-%s%s", s.now().UnixMilli(), uuid.NewString(), ext)
		if _, err := s.store.Put(ctx, key, img.Content, storage.PutObjectOptions{
			Size:        img.Size,
			ContentType: img.ContentType,
			Metadata:    map[string]string{"original-filename": img.Filename},
		}); err != nil {
			s.cleanup(ctx, saved)
			return nil, fmt.Errorf("save image: %w", err)
		}
		saved = append(saved, key)
	}

	// The QR file is written mid-transaction; track it so a later failure
	// removes it along with the images.
	imagePaths := append([]string(nil), saved...)
	stored, err := s.repo.CreateWithImages(ctx, ficha, imagePaths, func(fichaID int64) (string, error) {
		qrPath, qerr := s.qr.Generate(ctx, fichaID)
		if qerr == nil {
			saved = append(saved, qrPath)
		}
		return qrPath, qerr
	})
	if err != nil {
		s.cleanup(ctx, saved)
		return nil, fmt.Errorf("create ficha: %w", err)
	}
	return stored, nil
}

// validate checks every precondition before any persistent mutation and
// returns the parsed ficha when the request is well formed.
func (s *fichaService) validate(in *CreateFichaInput, images []ImageUpload) (*model.Ficha, *ValidationError) {
	var bad []string
	field := func(name, v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			bad = append(bad, name)
		}
		return v
	}

	f := &model.Ficha{
		Pedimento:       field("pedimento", in.Pedimento),
		ClavePedimento:  field("clave_pedimento", in.ClavePedimento),
		Factura:         field("factura", in.Factura),
		PaisOrigen:      field("pais_origen", in.PaisOrigen),
		Marca:           field("marca", in.Marca),
		Modelo:          field("modelo", in.Modelo),
		Serie:           field("serie", in.Serie),
		Descripcion:     field("descripcion", in.Descripcion),
		UbicacionPlanta: field("ubicacion_planta", in.UbicacionPlanta),
		IdentificadorAF: field("identificador_af", in.IdentificadorAF),
	}

	parseDate := func(name, v string) model.Date {
		if v = strings.TrimSpace(v); v == "" {
			bad = append(bad, name)
			return model.Date{}
		}
		d, err := model.ParseDate(v)
		if err != nil {
			bad = append(bad, name)
		}
		return d
	}
	f.FechaPago = parseDate("fecha_pago", in.FechaPago)
	f.FechaFacturacion = parseDate("fecha_facturacion", in.FechaFacturacion)

	parseMoney := func(name, v string) decimal.Decimal {
		if v = strings.TrimSpace(v); v == "" {
			bad = append(bad, name)
			return decimal.Zero
		}
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			bad = append(bad, name)
		}
		return d
	}
	f.ValorUSD = parseMoney("valor_usd", in.ValorUSD)
	f.ValorAduana = parseMoney("valor_aduana", in.ValorAduana)

	if len(images) == 0 {
		bad = append(bad, "imagenes")
	}
	if s.maxImages > 0 && len(images) > s.maxImages {
		bad = append(bad, "imagenes")
	}
	for i, img := range images {
		switch {
		case img.Content == nil,
			!strings.HasPrefix(img.ContentType, "image/"),
			s.maxFileSize > 0 && img.Size > s.maxFileSize:
			bad = append(bad, fmt.Sprintf("imagenes[%d]", i))
		}
	}

	if len(bad) > 0 {
		return nil, &ValidationError{Fields: bad}
	}
	return f, nil
}

// cleanup removes files written for a failed request. Best-effort: a deletion
// error is logged and swallowed so the original failure is what the caller sees.
// Runs detached from the request context: when the failure is the client
// disconnecting, the deletions must still go through.
func (s *fichaService) cleanup(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			b, _ := json.Marshal(map[string]any{
				"ts":        s.now().UTC().Format(time.RFC3339Nano),
				"level":     "error",
				"component": "ficha_service",
				"event":     "cleanup_failed",
				"key":       key,
				"error":     err.Error(),
			})
			log.SetFlags(0)
			log.Println(string(b))
		}
	}
}

// Get returns a ficha by ID with its image paths.
func (s *fichaService) Get(ctx context.Context, id int64) (*model.Ficha, error) {
	if id <= 0 {
		return nil, ErrIDRequired
	}
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// List returns paginated ficha summaries without exposing repository types.
func (s *fichaService) List(ctx context.Context, page, limit int) (*FichaListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, err
	}

	pages := (res.Total + limit - 1) / limit
	return &FichaListResult{
		Items: res.Items,
		Page:  page,
		Limit: limit,
		Total: res.Total,
		Pages: pages,
	}, nil
}
