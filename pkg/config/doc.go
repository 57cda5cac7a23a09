// Package config loads recipebox configuration from RECIPEBOX_ environment variables.
//
// An optional .env file (path from RECIPEBOX_ENV_FILE, default ".env") is read first with
// godotenv; variables already present in the environment take precedence.
//
// Server settings:
//
//	RECIPEBOX_HOST="0.0.0.0"
//	RECIPEBOX_PORT="8000"
//	RECIPEBOX_HEALTH_PORT="9090"
//	RECIPEBOX_READ_TIMEOUT="15s"
//	RECIPEBOX_MAX_BODY_BYTES="1048576"
//
// Database settings:
//
//	RECIPEBOX_DB_DRIVER="postgres"   # postgres or sqlite3
//	RECIPEBOX_DATABASE_URL="postgres://recipes@localhost/recipes?sslmode=disable"
//	RECIPEBOX_DB_MAX_OPEN_CONNS="25"
//	RECIPEBOX_DB_MIGRATE="true"
//
// Rate limiting and CORS:
//
//	RECIPEBOX_RATE_LIMIT_ENABLED="true"
//	RECIPEBOX_RATE_LIMIT_REQUESTS="100"
//	RECIPEBOX_RATE_LIMIT_WINDOW="1m"
//	RECIPEBOX_REDIS_URL="redis://localhost:6379/0"
//	RECIPEBOX_CORS_ALLOWED_ORIGINS="https://app.example.com"
//
// Observability:
//
//	RECIPEBOX_LOG_LEVEL="info"
//	RECIPEBOX_OTEL_ENABLED="true"
//	RECIPEBOX_OTEL_ENDPOINT="otel-collector:4317"
//
// Usage:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
