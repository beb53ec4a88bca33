package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// StorageConfig selects and configures the file storage backend.
// Backend "local" writes the uploads/ tree under Dir and lets the server
// serve it statically; "s3" offloads files to an S3-compatible store.
type StorageConfig struct {
	Backend string
	Dir     string
	MinIO   MinIOConfig
}

// MinIOConfig holds object storage settings for the S3-compatible backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// UploadConfig bounds incoming image payloads.
type UploadConfig struct {
	MaxFileSize int64
	MaxImages   int
}

// bodyLimitSlack leaves room for the text form fields and multipart framing
// on top of the image payloads themselves.
const bodyLimitSlack = 1 << 20

// BodyLimit returns the maximum request body size the HTTP server must accept
// so that a create request carrying MaxImages files of MaxFileSize each still
// reaches the handler.
func (u UploadConfig) BodyLimit() int {
	return int(u.MaxFileSize)*u.MaxImages + bodyLimitSlack
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables and constructed once at startup;
// components receive the pieces they need instead of reading the environment.
type AppConfig struct {
	Port       string
	BaseURL    string
	CORSOrigin string
	Database   DatabaseConfig
	Storage    StorageConfig
	Upload     UploadConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// All defaults are suitable for local development.
func Load() *AppConfig {
	return &AppConfig{
		Port:       getEnv("PORT", "5000"),
		BaseURL:    getEnv("BASE_URL", "http://localhost:3000"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", "postgres"),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", "maquinarias_db"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", "local"),
			Dir:     getEnv("STORAGE_DIR", "."),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
		},
		Upload: UploadConfig{
			MaxFileSize: getEnvInt64("UPLOAD_MAX_FILE_SIZE", 5*1024*1024),
			MaxImages:   getEnvInt("UPLOAD_MAX_IMAGES", 10),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
