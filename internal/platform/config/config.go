package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendMemory    = "memory"
)

// Blob backends.
const (
	BlobGCS   = "gcs"
	BlobLocal = "local"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port     string
	GinMode  string
	LogLevel string
	AppID    string

	StoreBackend        string
	FirebaseProjectID   string
	FirebaseCredsBase64 string
	FirebaseCredsFile   string
	FirestoreEmulator   string
	MongoURI            string
	MongoDB             string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	BlobBackend   string
	GCSBucket     string
	UploadDir     string
	PublicBaseURL string

	JWTSecret     string
	AdminPassword string
	TokenTTL      time.Duration

	AllowedOrigins   string
	ReconcileWorkers int
}

// Load reads environment variables into a Config with sensible defaults.
func Load() (Config, error) {
	cfg, err := load()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadStore is Load for tools that only talk to the store.
func LoadStore() (Config, error) {
	cfg, err := load()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ValidateStore(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func load() (Config, error) {
	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		GinMode:             getEnv("GIN_MODE", "release"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		AppID:               getEnv("APP_ID", "default-app-id"),
		StoreBackend:        strings.ToLower(getEnv("STORE_BACKEND", BackendFirestore)),
		FirebaseProjectID:   strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
		FirebaseCredsBase64: strings.TrimSpace(os.Getenv("FIREBASE_CREDS_BASE64")),
		FirebaseCredsFile:   strings.TrimSpace(os.Getenv("FIREBASE_CREDS_FILE")),
		FirestoreEmulator:   strings.TrimSpace(os.Getenv("FIRESTORE_EMULATOR_HOST")),
		MongoURI:            strings.TrimSpace(os.Getenv("MONGO_URI")),
		MongoDB:             getEnv("MONGO_DB", "myroom"),
		RedisAddr:           strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		BlobBackend:         strings.ToLower(getEnv("BLOB_BACKEND", BlobLocal)),
		GCSBucket:           strings.TrimSpace(os.Getenv("GCS_BUCKET")),
		UploadDir:           getEnv("UPLOAD_DIR", "uploads"),
		JWTSecret:           strings.TrimSpace(os.Getenv("JWT_SECRET")),
		AdminPassword:       os.Getenv("ADMIN_PASSWORD"),
		AllowedOrigins:      strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")),
	}
	cfg.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+cfg.Port), "/")

	var err error
	if cfg.CacheTTL, err = parseDurationEnv("CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cfg.TokenTTL, err = parseDurationEnv("TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, fmt.Errorf("parse TOKEN_TTL: %w", err)
	}
	if cfg.ReconcileWorkers, err = parseIntEnv("RECONCILE_WORKERS", 5); err != nil {
		return Config{}, fmt.Errorf("parse RECONCILE_WORKERS: %w", err)
	}
	return cfg, nil
}

// Validate ensures required fields are present for the selected backends.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.AppID == "" {
		return errors.New("APP_ID is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.ReconcileWorkers <= 0 {
		return errors.New("RECONCILE_WORKERS must be positive")
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	switch c.BlobBackend {
	case BlobLocal:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR is required for local blobs")
		}
	case BlobGCS:
		if c.GCSBucket == "" {
			return errors.New("GCS_BUCKET is required when BLOB_BACKEND=gcs")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	return nil
}

// ValidateStore checks only the store settings, for tools that never serve HTTP.
func (c Config) ValidateStore() error {
	if c.AppID == "" {
		return errors.New("APP_ID is required")
	}
	return c.validateStore()
}

func (c Config) validateStore() error {
	switch c.StoreBackend {
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required")
		}
		if c.FirestoreEmulator == "" && c.FirebaseCredsBase64 == "" && c.FirebaseCredsFile == "" {
			return errors.New("provide FIREBASE_CREDS_BASE64 or FIREBASE_CREDS_FILE for Firestore auth")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required when STORE_BACKEND=mongo")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

// FirebaseCredentialsJSON returns the service account JSON bytes and the source used.
func (c Config) FirebaseCredentialsJSON() ([]byte, string, error) {
	if c.FirebaseCredsBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(c.FirebaseCredsBase64)
		if err != nil {
			return nil, "base64", fmt.Errorf("decode FIREBASE_CREDS_BASE64: %w", err)
		}
		return decoded, "base64", nil
	}
	if c.FirebaseCredsFile != "" {
		data, err := os.ReadFile(c.FirebaseCredsFile)
		if err != nil {
			return nil, "file", fmt.Errorf("read FIREBASE_CREDS_FILE: %w", err)
		}
		return data, "file", nil
	}
	return nil, "", errors.New("no firebase credentials found")
}

// Origins splits ALLOWED_ORIGINS into a list.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(val)
}

func parseDurationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(val)
}
