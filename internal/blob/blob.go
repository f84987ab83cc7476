// Package blob re-exports the blob abstractions and selects a backend from
// configuration. Callers depend on blob.Store, never on infra packages.
package blob

import (
	"context"
	"fmt"

	"staytrack/internal/blob/core"
	"staytrack/internal/infra/blob/fs"
	memorystore "staytrack/internal/infra/blob/memory"
	infraS3 "staytrack/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config configures the S3 driver.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	// ErrUnsupported indicates an operation isn't supported by a driver.
	ErrUnsupported = core.ErrUnsupported
	// ErrNotFound is returned for missing keys.
	ErrNotFound = core.ErrNotFound
)

// Config selects and configures a backend.
type Config struct {
	Driver        Driver
	FSRoot        string
	PublicBaseURL string
	S3            S3Config
}

// Open builds the configured blob store. An empty driver selects the filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fs.New(cfg.FSRoot, cfg.PublicBaseURL)
	case DriverS3:
		return infraS3.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }

// NewMockS3 returns an S3 store backed by an in-process fake bucket.
func NewMockS3() Store { return infraS3.NewMock() }
