// Package config loads process configuration from STAYTRACK_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const prefix = "STAYTRACK_"

// Storage drivers understood by core.OpenPersistentStore.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is the full process configuration.
type Config struct {
	ServiceName string
	HTTPAddr    string
	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration

	Storage struct {
		Driver      string
		SQLitePath  string
		PostgresDSN string
	}

	Blob struct {
		Driver        string
		FSRoot        string
		PublicBaseURL string
		S3            struct {
			Bucket          string
			Region          string
			Endpoint        string
			AccessKeyID     string
			SecretAccessKey string
			PathStyle       bool
		}
	}

	// Redis is optional; an empty Addr disables cross-process live updates
	// and keeps preferences in memory.
	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Auth struct {
		JWTSecret string
		TokenTTL  time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads an optional .env file (missing files are ignored) and then the
// process environment. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return LoadFrom(os.LookupEnv)
}

// LoadFrom builds a Config from lookup, which receives the full variable name.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	r := reader{lookup: lookup}
	cfg := &Config{}

	cfg.ServiceName = r.str("SERVICE_NAME", "staytrack")
	cfg.HTTPAddr = r.str("HTTP_ADDR", ":8080")
	cfg.ShutdownTimeout = r.duration("SHUTDOWN_TIMEOUT", 10*time.Second)

	cfg.Storage.Driver = strings.ToLower(r.str("STORAGE_DRIVER", StorageSQLite))
	cfg.Storage.SQLitePath = r.str("SQLITE_PATH", "./staytrack.db")
	cfg.Storage.PostgresDSN = r.str("POSTGRES_DSN", "")

	cfg.Blob.Driver = strings.ToLower(r.str("BLOB_DRIVER", "fs"))
	cfg.Blob.FSRoot = r.str("BLOB_FS_ROOT", "./blobdata")
	cfg.Blob.PublicBaseURL = r.str("BLOB_PUBLIC_BASE_URL", "")
	cfg.Blob.S3.Bucket = r.str("BLOB_S3_BUCKET", "")
	cfg.Blob.S3.Region = r.str("BLOB_S3_REGION", "us-east-1")
	cfg.Blob.S3.Endpoint = r.str("BLOB_S3_ENDPOINT", "")
	cfg.Blob.S3.AccessKeyID = r.str("BLOB_S3_ACCESS_KEY_ID", "")
	cfg.Blob.S3.SecretAccessKey = r.str("BLOB_S3_SECRET_ACCESS_KEY", "")
	cfg.Blob.S3.PathStyle = r.boolean("BLOB_S3_PATH_STYLE", false)

	cfg.Redis.Addr = r.str("REDIS_ADDR", "")
	cfg.Redis.Password = r.str("REDIS_PASSWORD", "")
	cfg.Redis.DB = r.integer("REDIS_DB", 0)

	cfg.Auth.JWTSecret = r.str("JWT_SECRET", "")
	cfg.Auth.TokenTTL = r.duration("TOKEN_TTL", 24*time.Hour)

	cfg.Log.Level = r.str("LOG_LEVEL", "info")
	cfg.Log.Format = r.str("LOG_FORMAT", "json")

	if len(r.errs) > 0 {
		return nil, errors.Join(r.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New(prefix+"POSTGRES_DSN required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		errs = append(errs, errors.New(prefix+"BLOB_S3_BUCKET required for s3 blob driver"))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New(prefix+"JWT_SECRET must be at least 16 bytes"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New(prefix+"TOKEN_TTL must be positive"))
	}
	return errors.Join(errs...)
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(prefix + key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", prefix, key, err))
		return def
	}
	return v
}

func (r *reader) boolean(key string, def bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", prefix, key, err))
		return def
	}
	return v
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", prefix, key, err))
		return def
	}
	return v
}
