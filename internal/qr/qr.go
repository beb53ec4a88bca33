package qr

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"fichasapi/internal/storage"
)

// imageSize is the rendered QR side length in pixels.
const imageSize = 300

// Synthesizer renders QR codes encoding the public lookup URL of a ficha and
// persists them through the storage backend.
type Synthesizer struct {
	store   storage.Storage
	baseURL string
	now     func() time.Time
}

// NewSynthesizer creates a Synthesizer. baseURL is the public origin used in
// encoded links, e.g. "http://localhost:3000".
func NewSynthesizer(store storage.Storage, baseURL string) *Synthesizer {
	return &Synthesizer{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// TargetURL returns the canonical public lookup URL encoded for a ficha.
func (s *Synthesizer) TargetURL(fichaID int64) string {
	return fmt.Sprintf("%s/fichas/%d", s.baseURL, fichaID)
}

// Generate renders the QR PNG for fichaID and writes it under
// uploads/qrs/qr-<id>-<unix-ms>.png. The id+timestamp composition keeps keys
// collision-free. Returns the storage key, which is also the public path.
func (s *Synthesizer) Generate(ctx context.Context, fichaID int64) (string, error) {
	png, err := qrcode.Encode(s.TargetURL(fichaID), qrcode.Medium, imageSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}

	key := fmt.Sprintf("uploads/qrs/qr-%d-%d.png", fichaID, s.now().UnixMilli())
	if _, err := s.store.Put(ctx, key, bytes.NewReader(png), storage.PutObjectOptions{
		Size:        int64(len(png)),
		ContentType: "image/png",
	}); err != nil {
		return "", fmt.Errorf("store qr: %w", err)
	}
	return key, nil
}
