package storage

import (
	"context"
	"fmt"
	"sort"

	storageConfig "github.com/tigerroll/dimtime/pkg/batch/adapter/storage/config"
	coreAdapter "github.com/tigerroll/dimtime/pkg/batch/core/adapter"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

// ConnectionResolver implements StorageConnectionResolver over the registered providers.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	configs   map[string]interface{}
}

// Verify that ConnectionResolver implements the StorageConnectionResolver interface.
var _ StorageConnectionResolver = (*ConnectionResolver)(nil)

// NewConnectionResolver creates a resolver over providers keyed by their Type().
func NewConnectionResolver(providers []StorageProvider, configs map[string]interface{}) *ConnectionResolver {
	byType := make(map[string]StorageProvider, len(providers))
	for _, p := range providers {
		byType[p.Type()] = p
	}
	return &ConnectionResolver{providers: byType, configs: configs}
}

// ResolveConnection resolves a generic resource connection by name.
func (r *ConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveStorageConnection(ctx, name)
}

// ResolveStorageConnection resolves a StorageConnection by its configured name.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	raw, ok := r.configs[name]
	if !ok {
		return nil, fmt.Errorf("storage connection '%s' not found in configuration", name)
	}
	cfg, err := storageConfig.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("storage connection '%s': %w", name, err)
	}
	provider, ok := r.providers[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", cfg.Type, name)
	}
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage connection '%s' from provider '%s': %w", name, cfg.Type, err)
	}
	return conn, nil
}

// ResolveLocation picks the connection whose type serves loc's scheme.
// A connection whose bucket_name equals loc.Bucket wins; otherwise the first matching
// connection by name is used.
func (r *ConnectionResolver) ResolveLocation(ctx context.Context, loc Location) (StorageConnection, error) {
	wantType := loc.StorageType()
	all, err := storageConfig.DecodeAll(r.configs)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(all))
	for name, cfg := range all {
		if cfg.Type == wantType {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no '%s' storage connection configured for location '%s'", wantType, loc)
	}
	sort.Strings(names)

	chosen := names[0]
	for _, name := range names {
		if all[name].BucketName == loc.Bucket {
			chosen = name
			break
		}
	}
	logger.Debugf("Location '%s' resolved to storage connection '%s'.", loc, chosen)
	return r.ResolveStorageConnection(ctx, chosen)
}
