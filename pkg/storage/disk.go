// Package storage is the filesystem abstraction used for uploaded book covers.
//
// Two drivers are available:
//   - "local" : local filesystem served under STORAGE_URL (default)
//   - "s3"    : S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
//	disk, err := storage.New(ctx, storage.ConfigFromEnv())
//	err = disk.Put(ctx, "covers/7.jpg", file, "image/jpeg")
//	url := disk.URL("covers/7.jpg")
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/shashiranjanraj/bookstore/config"
)

// Disk is the driver interface.
type Disk interface {
	// Put writes r to path, replacing any previous content.
	Put(ctx context.Context, path string, r io.Reader, contentType string) error

	// Exists reports whether a file exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes a file. Returns nil if the file did not exist.
	Delete(ctx context.Context, path string) error

	// URL returns the public URL for path.
	URL(path string) string
}

// Config selects and configures a driver.
type Config struct {
	Driver string // "local" | "s3"

	LocalRoot string
	LocalURL  string

	S3Bucket   string
	S3Region   string
	S3Key      string
	S3Secret   string
	S3Endpoint string // leave empty for real AWS
	S3URL      string
}

// ConfigFromEnv reads the STORAGE_* and S3_* keys.
func ConfigFromEnv() Config {
	return Config{
		Driver:     config.StorageDefault(),
		LocalRoot:  config.StorageLocalRoot(),
		LocalURL:   config.StorageURL(),
		S3Bucket:   config.StorageS3Bucket(),
		S3Region:   config.StorageS3Region(),
		S3Key:      config.StorageS3Key(),
		S3Secret:   config.StorageS3Secret(),
		S3Endpoint: config.StorageS3Endpoint(),
		S3URL:      config.StorageS3URL(),
	}
}

// New builds the configured disk.
func New(ctx context.Context, cfg Config) (Disk, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.LocalRoot, cfg.LocalURL)
	case "s3":
		return newS3Disk(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q (supported: local, s3)", cfg.Driver)
	}
}
