package storage_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/dimtime/pkg/batch/adapter/storage/config"
)

type stubConn struct {
	name, typ string
	closeErr  error
	closed    bool
}

func (c *stubConn) Close() error  { c.closed = true; return c.closeErr }
func (c *stubConn) Type() string  { return c.typ }
func (c *stubConn) Name() string  { return c.name }
func (c *stubConn) Upload(context.Context, string, string, io.Reader, string) error { return nil }
func (c *stubConn) Download(context.Context, string, string) (io.ReadCloser, error) { return nil, nil }
func (c *stubConn) ListObjects(context.Context, string, string, func(string) error) error {
	return nil
}
func (c *stubConn) DeleteObject(context.Context, string, string) error { return nil }

func stubOpen(typ string, opened *[]*stubConn) storage.OpenFunc {
	return func(cfg storageConfig.StorageConfig, name string) (storage.StorageConnection, error) {
		c := &stubConn{name: name, typ: typ}
		*opened = append(*opened, c)
		return c, nil
	}
}

var testConfigs = map[string]interface{}{
	"archive": map[string]interface{}{"type": "s3", "bucket_name": "archive"},
	"lake":    map[string]interface{}{"type": "s3", "bucket_name": "lake"},
	"scratch": map[string]interface{}{"type": "local", "base_dir": "/tmp"},
}

func TestPooledProviderCachesConnections(t *testing.T) {
	var opened []*stubConn
	p := storage.NewPooledProvider("s3", testConfigs, stubOpen("s3", &opened))

	c1, err := p.GetConnection("lake")
	require.NoError(t, err)
	c2, err := p.GetConnection("lake")
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Len(t, opened, 1)

	_, err = p.GetConnection("scratch")
	assert.ErrorContains(t, err, "type mismatch")
	_, err = p.GetConnection("missing")
	assert.ErrorContains(t, err, "not found")

	c3, err := p.ForceReconnect("lake")
	require.NoError(t, err)
	assert.NotSame(t, c1, c3)
	assert.True(t, opened[0].closed)

	opened[1].closeErr = errors.New("close failed")
	assert.ErrorContains(t, p.CloseAll(), "close failed")
}

func TestResolveLocationPrefersMatchingBucket(t *testing.T) {
	var opened []*stubConn
	r := storage.NewConnectionResolver([]storage.StorageProvider{
		storage.NewPooledProvider("s3", testConfigs, stubOpen("s3", &opened)),
		storage.NewPooledProvider("local", testConfigs, stubOpen("local", &opened)),
	}, testConfigs)
	ctx := context.Background()

	conn, err := r.ResolveLocation(ctx, storage.Location{Scheme: "s3", Bucket: "lake", Prefix: "dim"})
	require.NoError(t, err)
	assert.Equal(t, "lake", conn.Name())

	// no bucket match: first s3 connection by name
	conn, err = r.ResolveLocation(ctx, storage.Location{Scheme: "s3", Bucket: "other"})
	require.NoError(t, err)
	assert.Equal(t, "archive", conn.Name())

	conn, err = r.ResolveLocation(ctx, storage.Location{Scheme: "file", Bucket: "lake"})
	require.NoError(t, err)
	assert.Equal(t, "scratch", conn.Name())

	_, err = r.ResolveLocation(ctx, storage.Location{Scheme: "gs", Bucket: "lake"})
	assert.ErrorContains(t, err, "no 'gcs' storage connection")
}

func TestResolveStorageConnectionUnknownProvider(t *testing.T) {
	r := storage.NewConnectionResolver(nil, testConfigs)
	_, err := r.ResolveConnection(context.Background(), "lake")
	assert.ErrorContains(t, err, "no storage provider found for type 's3'")
}
