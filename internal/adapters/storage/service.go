// Package storage provides a small interface over S3-compatible object storage.
package storage

import (
	"context"
	"io"
	"time"
)

// Object describes one stored object.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// StorageService defines the object storage operations used by the Podio app export.
type StorageService interface {
	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error

	// PutObject stores reader under key, replacing any previous object.
	PutObject(ctx context.Context, bucket, key, contentType string, reader io.Reader, size int64) error

	// GetObject opens an object. The caller closes the reader.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// ListObjects returns the objects under prefix.
	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	IsMinIOEnabled() bool
}
