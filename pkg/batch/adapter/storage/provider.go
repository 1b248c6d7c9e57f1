package storage

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/dimtime/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

// OpenFunc opens a connection of one storage type from its decoded configuration.
type OpenFunc func(cfg storageConfig.StorageConfig, name string) (StorageConnection, error)

// PooledProvider is a StorageProvider that lazily opens and caches named connections of one type.
// The local, GCS and S3 adapters only differ in their OpenFunc.
type PooledProvider struct {
	providerType string
	configs      map[string]interface{}
	open         OpenFunc
	connections  map[string]StorageConnection
	mu           sync.RWMutex
}

// Verify that PooledProvider implements the StorageProvider interface.
var _ StorageProvider = (*PooledProvider)(nil)

// NewPooledProvider creates a provider for providerType over the raw "storage" configuration section.
func NewPooledProvider(providerType string, configs map[string]interface{}, open OpenFunc) *PooledProvider {
	return &PooledProvider{
		providerType: providerType,
		configs:      configs,
		open:         open,
		connections:  make(map[string]StorageConnection),
	}
}

// GetConnection retrieves a StorageConnection by the given name.
// It creates a new connection if one does not already exist for the given name.
func (p *PooledProvider) GetConnection(name string) (StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring lock
	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}

	raw, ok := p.configs[name]
	if !ok {
		return nil, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	cfg, err := storageConfig.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("storage '%s': %w", name, err)
	}
	if cfg.Type != p.providerType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, p.providerType, cfg.Type)
	}

	newConn, err := p.open(cfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s adapter for '%s': %w", p.providerType, name, err)
	}
	p.connections[name] = newConn
	logger.Debugf("Created new %s storage connection '%s'.", p.providerType, name)
	return newConn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *PooledProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close %s storage connection '%s': %w", p.providerType, name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}

// Type returns the storage type handled by this provider.
func (p *PooledProvider) Type() string {
	return p.providerType
}

// ForceReconnect forces the closure and re-establishment of the named connection.
func (p *PooledProvider) ForceReconnect(name string) (StorageConnection, error) {
	p.mu.Lock()
	if conn, ok := p.connections[name]; ok {
		if err := conn.Close(); err != nil {
			logger.Warnf("Failed to gracefully close %s storage connection '%s' during force reconnect: %v", p.providerType, name, err)
		}
		delete(p.connections, name)
	}
	p.mu.Unlock()

	logger.Debugf("Forcing reconnect for %s storage connection '%s'.", p.providerType, name)
	return p.GetConnection(name)
}
