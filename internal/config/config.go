package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string

		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
		ConnMaxIdleTime time.Duration
		ConnectRetries  int
		SlowQuery       time.Duration
	}

	Server struct {
		Port    string
		GinMode string
		BaseURL string
	}

	Log struct {
		Level string
	}

	Upload struct {
		Dir         string
		MaxFileSize int64
	}

	CORS struct {
		AllowOrigins string
		AllowMethods string
		AllowHeaders string
	}

	// Storage selects where documents, QR images and certificates are kept.
	Storage struct {
		Driver    string // "local" or "minio"
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
	}

	Mail struct {
		Driver   string // "smtp" or "log"
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}

	Token struct {
		Secret          string
		ConfirmWindow   time.Duration
		RetentionWindow time.Duration
		SessionTTL      time.Duration
	}

	Cleanup struct {
		Enabled  bool
		Interval time.Duration
		MaxAge   time.Duration
	}

	App struct {
		Locale string
	}
}

// Load loads configuration from environment variables
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{}

	config.DB.Host = getEnv("DB_HOST", "localhost")
	config.DB.Port = getEnv("DB_PORT", "5432")
	config.DB.User = getEnv("DB_USER", "eventsoft")
	config.DB.Password = getEnv("DB_PASSWORD", "eventsoft_password")
	config.DB.Name = getEnv("DB_NAME", "eventsoft_db")
	config.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	config.DB.MaxOpenConns = int(getEnvAsInt64("DB_MAX_OPEN_CONNS", 25))
	config.DB.MaxIdleConns = int(getEnvAsInt64("DB_MAX_IDLE_CONNS", 10))
	config.DB.ConnMaxLifetime = getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour)
	config.DB.ConnMaxIdleTime = getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute)
	config.DB.ConnectRetries = int(getEnvAsInt64("DB_CONNECT_RETRIES", 3))
	config.DB.SlowQuery = getEnvAsDuration("DB_SLOW_QUERY", 500*time.Millisecond)

	config.Server.Port = getEnv("PORT", "8080")
	config.Server.GinMode = getEnv("GIN_MODE", "debug")
	config.Server.BaseURL = getEnv("PUBLIC_BASE_URL", "http://localhost:8080")

	config.Log.Level = getEnv("LOG_LEVEL", "info")

	config.Upload.Dir = getEnv("UPLOADS_DIR", "./uploads")
	config.Upload.MaxFileSize = getEnvAsInt64("MAX_FILE_SIZE", 10485760)

	config.CORS.AllowOrigins = getEnv("CORS_ALLOW_ORIGINS", "*")
	config.CORS.AllowMethods = getEnv("CORS_ALLOW_METHODS", "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS")
	config.CORS.AllowHeaders = getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Length,Content-Type,Authorization")

	config.Storage.Driver = getEnv("STORAGE_DRIVER", "local")
	config.Storage.Endpoint = getEnv("MINIO_ENDPOINT", "localhost:9000")
	config.Storage.AccessKey = getEnv("MINIO_ACCESS_KEY", "")
	config.Storage.SecretKey = getEnv("MINIO_SECRET_KEY", "")
	config.Storage.Bucket = getEnv("MINIO_BUCKET", "eventsoft")
	config.Storage.UseSSL = getEnvAsBool("MINIO_USE_SSL", false)

	config.Mail.Driver = getEnv("MAIL_DRIVER", "log")
	config.Mail.Host = getEnv("SMTP_HOST", "localhost")
	config.Mail.Port = int(getEnvAsInt64("SMTP_PORT", 587))
	config.Mail.Username = getEnv("SMTP_USERNAME", "")
	config.Mail.Password = getEnv("SMTP_PASSWORD", "")
	config.Mail.From = getEnv("MAIL_FROM", "Eventsoft <no-reply@eventsoft.local>")

	config.Token.Secret = getEnv("TOKEN_SECRET", "change-me")
	config.Token.ConfirmWindow = getEnvAsDuration("TOKEN_CONFIRM_WINDOW", time.Minute)
	config.Token.RetentionWindow = getEnvAsDuration("TOKEN_RETENTION_WINDOW", 24*time.Hour)
	config.Token.SessionTTL = getEnvAsDuration("SESSION_TTL", 12*time.Hour)

	config.Cleanup.Enabled = getEnvAsBool("CLEANUP_ENABLED", true)
	config.Cleanup.Interval = getEnvAsDuration("CLEANUP_INTERVAL", 10*time.Minute)
	config.Cleanup.MaxAge = getEnvAsDuration("CLEANUP_MAX_AGE", 24*time.Hour)

	config.App.Locale = getEnv("APP_LOCALE", "es")

	return config
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return "postgres://" + c.DB.User + ":" + c.DB.Password + "@" + c.DB.Host + ":" + c.DB.Port + "/" + c.DB.Name + "?sslmode=" + c.DB.SSLMode
}

// IsDebug reports whether gin runs in debug mode
func (c *Config) IsDebug() bool {
	return c.Server.GinMode == "debug"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 gets an environment variable as int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("90s", "24h")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
