// Package storage defines the common interfaces for the object storage adapters
// (local file system, GCS, S3) that back the data lake.
package storage

import (
	"context"
	"io"

	coreAdapter "github.com/tigerroll/dimtime/pkg/batch/core/adapter"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload uploads data to the specified bucket and object name.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download downloads data from the specified bucket and object name.
	// The returned ReadCloser must be closed by the caller.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object in bucket whose name starts with prefix.
	// A prefix ending in "/" only matches objects below that directory.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the specified object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named connection to one storage backend.
type StorageConnection interface {
	coreAdapter.ResourceConnection // Close(), Type(), Name()
	StorageExecutor                // Upload(), Download(), ListObjects(), DeleteObject()
}

// StorageProvider manages the connections of one storage type.
type StorageProvider interface {
	// GetConnection retrieves the connection with the specified name, opening it on first use.
	GetConnection(name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the storage type handled by this provider (e.g., "local", "gcs", "s3").
	Type() string
	// ForceReconnect closes and re-opens the named connection.
	ForceReconnect(name string) (StorageConnection, error)
}

// StorageConnectionResolver resolves storage connections by name or by table location.
type StorageConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveStorageConnection resolves a StorageConnection by its configured name.
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)

	// ResolveLocation picks the configured connection serving the scheme (and, when possible,
	// the bucket) of loc.
	ResolveLocation(ctx context.Context, loc Location) (StorageConnection, error)
}
