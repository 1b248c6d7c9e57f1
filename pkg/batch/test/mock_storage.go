// Package test provides testify mocks of the adapter interfaces for use in package tests.
package test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/storage"
	coreAdapter "github.com/tigerroll/dimtime/pkg/batch/core/adapter"
)

// MockStorageConnection is a mock implementation of the storage.StorageConnection interface.
// Upload drains the reader so callers observe a complete transfer.
type MockStorageConnection struct {
	mock.Mock
}

// Close mocks storage.StorageConnection.Close.
func (m *MockStorageConnection) Close() error {
	return m.Called().Error(0)
}

// Type returns "mock".
func (m *MockStorageConnection) Type() string { return "mock" }

// Name returns "mock_storage".
func (m *MockStorageConnection) Name() string { return "mock_storage" }

// Upload mocks storage.StorageExecutor.Upload.
func (m *MockStorageConnection) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	if data != nil {
		io.Copy(io.Discard, data)
	}
	return m.Called(ctx, bucket, objectName, contentType).Error(0)
}

// Download mocks storage.StorageExecutor.Download.
func (m *MockStorageConnection) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, objectName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// ListObjects mocks storage.StorageExecutor.ListObjects.
// The first return value, when non-nil, is the []string of object names passed to fn.
func (m *MockStorageConnection) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	args := m.Called(ctx, bucket, prefix)
	if names, ok := args.Get(0).([]string); ok {
		for _, name := range names {
			if err := fn(name); err != nil {
				return err
			}
		}
	}
	return args.Error(1)
}

// DeleteObject mocks storage.StorageExecutor.DeleteObject.
func (m *MockStorageConnection) DeleteObject(ctx context.Context, bucket, objectName string) error {
	return m.Called(ctx, bucket, objectName).Error(0)
}

var _ storage.StorageConnection = (*MockStorageConnection)(nil)

// StaticStorageResolver resolves every request to one connection.
type StaticStorageResolver struct {
	Conn storage.StorageConnection
	Err  error
}

// ResolveConnection implements coreAdapter.ResourceConnectionResolver.
func (r *StaticStorageResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveStorageConnection(ctx, name)
}

// ResolveStorageConnection returns the configured connection.
func (r *StaticStorageResolver) ResolveStorageConnection(ctx context.Context, name string) (storage.StorageConnection, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Conn, nil
}

// ResolveLocation returns the configured connection.
func (r *StaticStorageResolver) ResolveLocation(ctx context.Context, loc storage.Location) (storage.StorageConnection, error) {
	return r.ResolveStorageConnection(ctx, loc.Bucket)
}

var _ storage.StorageConnectionResolver = (*StaticStorageResolver)(nil)
