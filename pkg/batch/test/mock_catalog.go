package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
)

// MockCatalog is a mock implementation of catalog.Catalog and catalog.PartitionRegistrar.
type MockCatalog struct {
	mock.Mock
}

// GetTable mocks catalog.Catalog.GetTable.
func (m *MockCatalog) GetTable(ctx context.Context, database, table string) (*catalog.Table, error) {
	args := m.Called(ctx, database, table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Table), args.Error(1)
}

// RegisterPartitions mocks catalog.PartitionRegistrar.RegisterPartitions.
func (m *MockCatalog) RegisterPartitions(ctx context.Context, table *catalog.Table, partitions []catalog.PartitionSpec) error {
	return m.Called(ctx, table, partitions).Error(0)
}

var (
	_ catalog.Catalog            = (*MockCatalog)(nil)
	_ catalog.PartitionRegistrar = (*MockCatalog)(nil)
)
