package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"fichasapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal and free of business logic.
func RegisterRoutes(app *fiber.App, db *sql.DB, fichaSvc service.FichaService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/fichas", CreateFicha(fichaSvc))
	app.Get("/fichas", ListFichas(fichaSvc))
	app.Get("/fichas/:id", GetFicha(fichaSvc))
}

// RegisterNotFound attaches the catch-all 404 route. Must be registered after
// every other route, static mounts included.
func RegisterNotFound(app *fiber.App) {
	app.Use(func(c *fiber.Ctx) error {
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "ruta no encontrada")
	})
}
