package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ficha is a technical data sheet for one imported machine.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
type Ficha struct {
	ID               int64           `json:"id"`
	Pedimento        string          `json:"pedimento"`
	ClavePedimento   string          `json:"clave_pedimento"`
	FechaPago        Date            `json:"fecha_pago"`
	Factura          string          `json:"factura"`
	FechaFacturacion Date            `json:"fecha_facturacion"`
	ValorUSD         decimal.Decimal `json:"valor_usd"`
	ValorAduana      decimal.Decimal `json:"valor_aduana"`
	PaisOrigen       string          `json:"pais_origen"`
	Marca            string          `json:"marca"`
	Modelo           string          `json:"modelo"`
	Serie            string          `json:"serie"`
	Descripcion      string          `json:"descripcion"`
	UbicacionPlanta  string          `json:"ubicacion_planta"`
	IdentificadorAF  string          `json:"identificador_af"`
	QRCodePath       *string         `json:"qr_code_path"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Imagenes holds the stored paths of attached images, in insertion order.
	// Populated on detail reads only.
	Imagenes []string `json:"imagenes,omitempty"`
}

// FichaSummary is the projection returned by paginated listings.
type FichaSummary struct {
	ID             int64     `json:"id"`
	Pedimento      string    `json:"pedimento"`
	ClavePedimento string    `json:"clave_pedimento"`
	Marca          string    `json:"marca"`
	Modelo         string    `json:"modelo"`
	Serie          string    `json:"serie"`
	Descripcion    string    `json:"descripcion"`
	CreatedAt      time.Time `json:"created_at"`
	QRCodePath     *string   `json:"qr_code_path"`
}

// FichaImage is one stored image attached to a ficha. Rows are created only
// inside the ficha creation transaction and removed via cascade delete.
type FichaImage struct {
	ID         int64     `json:"id"`
	FichaID    int64     `json:"ficha_id"`
	ImagenPath string    `json:"imagen_path"`
	CreatedAt  time.Time `json:"created_at"`
}
