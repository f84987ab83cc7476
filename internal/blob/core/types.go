// Package core defines the blob storage contract shared by the facade and
// the infra backends that hold student photos and ID scans.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs"
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3"
	// DriverMemory represents an in-memory implementation used in tests.
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions holds options for generating a download URL.
type SignedURLOptions struct {
	Method string        // only GET is supported
	Expiry time.Duration // default DefaultURLExpiry
}

// DefaultURLExpiry bounds presigned download links.
const DefaultURLExpiry = 15 * time.Minute

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is a small S3-like object store. Put replaces any existing object at
// key so re-uploading a document keeps a single current copy.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete reports false with a nil error when nothing was stored at key.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

var (
	// ErrUnsupported is returned when an optional capability is not available.
	ErrUnsupported = errors.New("blobstore: unsupported operation")
	// ErrNotFound is returned by Get and Head for missing keys.
	ErrNotFound = errors.New("blobstore: not found")
)

// ValidateKey rejects keys that are empty, absolute or escape their prefix.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("blobstore: empty key")
	}
	if strings.HasPrefix(key, "/") {
		return errors.New("blobstore: absolute key")
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." || seg == "" {
			return fmt.Errorf("blobstore: invalid key %q", key)
		}
	}
	return nil
}
