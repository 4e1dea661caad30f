package config

import (
	"os"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with environment variables, loading a local .env
// file first if one exists. A missing .env file is not an error.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("KITAFEED_ADDR"); v != "" {
		cfg.EndpointAddr = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("S3_ROOT_USER"); v != "" {
		cfg.S3RootUser = v
	}
	if v := os.Getenv("S3_ROOT_PASSWORD"); v != "" {
		cfg.S3RootPassword = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.S3Bucket = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.S3Region = v
	}
	if v := os.Getenv("S3_BASE_ENDPOINT"); v != "" {
		cfg.S3BaseEndpoint = v
	}
	if v := os.Getenv("MEDIA_BASE_URL"); v != "" {
		cfg.MediaBaseURL = v
	}
}
