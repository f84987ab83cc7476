package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

const secret = "0123456789abcdef-secret"

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(mapLookup(map[string]string{"STAYTRACK_JWT_SECRET": secret}))
	require.NoError(t, err)

	assert.Equal(t, "staytrack", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
	assert.Equal(t, "./staytrack.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "fs", cfg.Blob.Driver)
	assert.Equal(t, "./blobdata", cfg.Blob.FSRoot)
	assert.Equal(t, "us-east-1", cfg.Blob.S3.Region)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(mapLookup(map[string]string{
		"STAYTRACK_JWT_SECRET":         secret,
		"STAYTRACK_STORAGE_DRIVER":     "Postgres",
		"STAYTRACK_POSTGRES_DSN":       "postgres://db/staytrack",
		"STAYTRACK_BLOB_DRIVER":        "s3",
		"STAYTRACK_BLOB_S3_BUCKET":     "docs",
		"STAYTRACK_BLOB_S3_PATH_STYLE": "true",
		"STAYTRACK_REDIS_ADDR":         "redis:6379",
		"STAYTRACK_REDIS_DB":           "2",
		"STAYTRACK_TOKEN_TTL":          "90m",
		"STAYTRACK_LOG_FORMAT":         "console",
	}))
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://db/staytrack", cfg.Storage.PostgresDSN)
	assert.Equal(t, "docs", cfg.Blob.S3.Bucket)
	assert.True(t, cfg.Blob.S3.PathStyle)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	_, err := LoadFrom(mapLookup(map[string]string{
		"STAYTRACK_REDIS_DB":       "two",
		"STAYTRACK_STORAGE_DRIVER": "mongo",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STAYTRACK_REDIS_DB")
}

func TestValidate(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":       {},
		"unknown storage":      {"STAYTRACK_JWT_SECRET": secret, "STAYTRACK_STORAGE_DRIVER": "mongo"},
		"postgres without dsn": {"STAYTRACK_JWT_SECRET": secret, "STAYTRACK_STORAGE_DRIVER": "postgres"},
		"s3 without bucket":    {"STAYTRACK_JWT_SECRET": secret, "STAYTRACK_BLOB_DRIVER": "s3"},
		"bad ttl":              {"STAYTRACK_JWT_SECRET": secret, "STAYTRACK_TOKEN_TTL": "-1h"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(mapLookup(env))
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("STAYTRACK_JWT_SECRET="+secret+"\nSTAYTRACK_HTTP_ADDR=:9000\n"), 0o600))
	t.Setenv("STAYTRACK_HTTP_ADDR", ":7000")
	t.Cleanup(func() { _ = os.Unsetenv("STAYTRACK_JWT_SECRET") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, secret, cfg.Auth.JWTSecret)

	_, err = Load(filepath.Join(dir, "missing.env"))
	assert.NoError(t, err, "missing .env files are ignored")
}
