package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_fichas_tecnicas",
		SQL: `CREATE TABLE IF NOT EXISTS fichas_tecnicas (
  id                BIGSERIAL     PRIMARY KEY,
  pedimento         VARCHAR(255)  NOT NULL,
  clave_pedimento   VARCHAR(10)   NOT NULL,
  fecha_pago        DATE          NOT NULL,
  factura           VARCHAR(255)  NOT NULL,
  fecha_facturacion DATE          NOT NULL,
  valor_usd         NUMERIC(15,2) NOT NULL CHECK (valor_usd >= 0),
  valor_aduana      NUMERIC(15,2) NOT NULL CHECK (valor_aduana >= 0),
  pais_origen       VARCHAR(100)  NOT NULL,
  marca             VARCHAR(100)  NOT NULL,
  modelo            VARCHAR(100)  NOT NULL,
  serie             VARCHAR(100)  NOT NULL,
  descripcion       TEXT          NOT NULL,
  ubicacion_planta  VARCHAR(255)  NOT NULL,
  identificador_af  VARCHAR(255)  NOT NULL,
  qr_code_path      VARCHAR(255),
  created_at        TIMESTAMPTZ   NOT NULL DEFAULT now(),
  updated_at        TIMESTAMPTZ   NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_updated_at_trigger",
		SQL: `CREATE OR REPLACE FUNCTION set_fichas_updated_at() RETURNS trigger AS $$
BEGIN
  NEW.updated_at = now();
  RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_fichas_updated_at ON fichas_tecnicas;
CREATE TRIGGER trg_fichas_updated_at
  BEFORE UPDATE ON fichas_tecnicas
  FOR EACH ROW EXECUTE FUNCTION set_fichas_updated_at();`,
	},
	{
		Name: "create_table_ficha_imagenes",
		SQL: `CREATE TABLE IF NOT EXISTS ficha_imagenes (
  id          BIGSERIAL    PRIMARY KEY,
  ficha_id    BIGINT       NOT NULL REFERENCES fichas_tecnicas(id) ON DELETE CASCADE,
  imagen_path VARCHAR(255) NOT NULL,
  created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_fichas_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_fichas_tecnicas_created_at ON fichas_tecnicas (created_at DESC);`,
	},
	{
		Name: "create_index_ficha_imagenes_ficha_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_ficha_imagenes_ficha_id ON ficha_imagenes (ficha_id);`,
	},
}

// EnsureMigrated checks if the 'fichas_tecnicas' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.fichas_tecnicas') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
