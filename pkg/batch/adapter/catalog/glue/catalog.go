// Package glue provides a catalog backed by the AWS Glue Data Catalog.
package glue

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/glue"
	"github.com/aws/aws-sdk-go/service/glue/glueiface"
	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

// batchCreateLimit is the maximum number of partitions accepted by one BatchCreatePartition call.
const batchCreateLimit = 100

// Catalog implements catalog.Catalog and catalog.PartitionRegistrar over the Glue API.
type Catalog struct {
	client glueiface.GlueAPI
}

var (
	_ catalog.Catalog            = (*Catalog)(nil)
	_ catalog.PartitionRegistrar = (*Catalog)(nil)
)

// NewCatalog opens a Glue client from the default credential chain.
func NewCatalog(region, endpoint string) (*Catalog, error) {
	cfg := &aws.Config{}
	if region != "" {
		cfg.Region = aws.String(region)
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session for glue: %w", err)
	}
	return NewCatalogWithClient(glue.New(sess)), nil
}

// NewCatalogWithClient wraps an existing Glue client.
func NewCatalogWithClient(client glueiface.GlueAPI) *Catalog {
	return &Catalog{client: client}
}

// GetTable reads the table's storage descriptor and partition keys.
func (c *Catalog) GetTable(ctx context.Context, database, table string) (*catalog.Table, error) {
	out, err := c.client.GetTableWithContext(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(database),
		Name:         aws.String(table),
	})
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == glue.ErrCodeEntityNotFoundException {
		return nil, fmt.Errorf("%s.%s: %w", database, table, catalog.ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get glue table %s.%s: %w", database, table, err)
	}

	t := out.Table
	result := &catalog.Table{
		Database:      database,
		Name:          table,
		PartitionKeys: toColumns(t.PartitionKeys),
	}
	if t.StorageDescriptor != nil {
		result.Location = aws.StringValue(t.StorageDescriptor.Location)
		result.Columns = toColumns(t.StorageDescriptor.Columns)
	}
	if result.Location == "" {
		return nil, fmt.Errorf("glue table %s.%s has no storage location", database, table)
	}
	return result, nil
}

func toColumns(cols []*glue.Column) []catalog.Column {
	out := make([]catalog.Column, 0, len(cols))
	for _, col := range cols {
		out = append(out, catalog.Column{Name: aws.StringValue(col.Name), Type: aws.StringValue(col.Type)})
	}
	return out
}

// RegisterPartitions creates the partitions with BatchCreatePartition, reusing the table's storage
// descriptor with each partition's location. Partitions that already exist are left as they are.
func (c *Catalog) RegisterPartitions(ctx context.Context, table *catalog.Table, partitions []catalog.PartitionSpec) error {
	if len(partitions) == 0 {
		return nil
	}
	out, err := c.client.GetTableWithContext(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(table.Database),
		Name:         aws.String(table.Name),
	})
	if err != nil {
		return fmt.Errorf("failed to get glue table %s: %w", table.QualifiedName(), err)
	}
	sd := out.Table.StorageDescriptor
	if sd == nil {
		sd = &glue.StorageDescriptor{}
	}

	inputs := make([]*glue.PartitionInput, 0, len(partitions))
	for _, p := range partitions {
		psd := *sd
		psd.Location = aws.String(p.Location)
		inputs = append(inputs, &glue.PartitionInput{
			Values:            aws.StringSlice(p.Values),
			StorageDescriptor: &psd,
		})
	}

	var result *multierror.Error
	for start := 0; start < len(inputs); start += batchCreateLimit {
		end := start + batchCreateLimit
		if end > len(inputs) {
			end = len(inputs)
		}
		resp, err := c.client.BatchCreatePartitionWithContext(ctx, &glue.BatchCreatePartitionInput{
			DatabaseName:       aws.String(table.Database),
			TableName:          aws.String(table.Name),
			PartitionInputList: inputs[start:end],
		})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("batch create partitions of %s: %w", table.QualifiedName(), err))
			continue
		}
		for _, pe := range resp.Errors {
			if pe.ErrorDetail != nil && aws.StringValue(pe.ErrorDetail.ErrorCode) == glue.ErrCodeAlreadyExistsException {
				continue
			}
			result = multierror.Append(result, fmt.Errorf("partition %v of %s: %s", aws.StringValueSlice(pe.PartitionValues), table.QualifiedName(), errorMessage(pe.ErrorDetail)))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	logger.Debugf("Registered %d partitions of %s in glue.", len(inputs), table.QualifiedName())
	return nil
}

func errorMessage(d *glue.ErrorDetail) string {
	if d == nil {
		return "unknown error"
	}
	return fmt.Sprintf("%s: %s", aws.StringValue(d.ErrorCode), aws.StringValue(d.ErrorMessage))
}
