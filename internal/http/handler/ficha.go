package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"fichasapi/internal/service"
)

// pagination mirrors the wire shape of list responses.
type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// CreateFicha handles POST /fichas: multipart form fields plus 1..N files
// under the "imagenes" field. Responds 201 with the new id and QR path.
func CreateFicha(svc service.FichaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FORM", "multipart form data is required")
		}

		in := &service.CreateFichaInput{
			Pedimento:        c.FormValue("pedimento"),
			ClavePedimento:   c.FormValue("clave_pedimento"),
			FechaPago:        c.FormValue("fecha_pago"),
			Factura:          c.FormValue("factura"),
			FechaFacturacion: c.FormValue("fecha_facturacion"),
			ValorUSD:         c.FormValue("valor_usd"),
			ValorAduana:      c.FormValue("valor_aduana"),
			PaisOrigen:       c.FormValue("pais_origen"),
			Marca:            c.FormValue("marca"),
			Modelo:           c.FormValue("modelo"),
			Serie:            c.FormValue("serie"),
			Descripcion:      c.FormValue("descripcion"),
			UbicacionPlanta:  c.FormValue("ubicacion_planta"),
			IdentificadorAF:  c.FormValue("identificador_af"),
		}

		var images []service.ImageUpload
		var closers []interface{ Close() error }
		defer func() {
			for _, f := range closers {
				_ = f.Close()
			}
		}()
		for _, fh := range form.File["imagenes"] {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			closers = append(closers, f)

			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			images = append(images, service.ImageUpload{
				Content:     f,
				Filename:    fh.Filename,
				ContentType: ct,
				Size:        fh.Size,
			})
		}

		ficha, err := svc.Create(c.UserContext(), in, images)
		if err != nil {
			var verr *service.ValidationError
			if errors.As(err, &verr) {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "ficha técnica creada exitosamente",
			"fichaId": ficha.ID,
			"qrPath":  ficha.QRCodePath,
		})
	}
}

// GetFicha handles GET /fichas/:id and returns the full record with its
// ordered image paths.
func GetFicha(svc service.FichaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || id <= 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		ficha, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "ficha técnica no encontrada")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data":    ficha,
		})
	}
}

// ListFichas handles GET /fichas with page/limit query parameters
// (defaults page=1, limit=10). Out-of-range pages return an empty data array.
func ListFichas(svc service.FichaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := strconv.Atoi(c.Query("page", "1"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGE", "invalid page")
		}
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}

		res, err := svc.List(c.UserContext(), page, limit)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data":    res.Items,
			"pagination": pagination{
				Page:  res.Page,
				Limit: res.Limit,
				Total: res.Total,
				Pages: res.Pages,
			},
		})
	}
}
