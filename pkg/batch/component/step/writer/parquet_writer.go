// Package writer provides the partitioned Parquet table writer.
package writer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/storage"
	"github.com/tigerroll/dimtime/pkg/batch/core/config"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/exception"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

const module = "writer"

// parquetContentType is the content type of uploaded Parquet objects.
const parquetContentType = "application/octet-stream"

// PartitionedRecord is one row together with its partition values, in partition-column order.
type PartitionedRecord[T any] struct {
	Values []string
	Record T
}

// WriteRequest describes the target of one write.
type WriteRequest struct {
	Database string
	Table    string
	// Location is the table root URI, e.g. "s3://lake/warehouse/dim_tempo".
	Location string
	// PartitionColumns name the partition directories, outermost first.
	PartitionColumns []string
	// Mode is config.WriteModeOverwritePartitions (default when empty) or config.WriteModeAppend.
	Mode string
	// TableColumns and TablePartitionKeys are the schema reported by the catalog.
	// Empty slices skip the corresponding schema check.
	TableColumns       []catalog.Column
	TablePartitionKeys []catalog.Column
}

func (r WriteRequest) qualifiedName() string {
	return r.Database + "." + r.Table
}

// PartitionResult reports one committed partition.
type PartitionResult struct {
	Values   []string
	Location string
	// Object is the key of the uploaded file.
	Object string
	Rows   int
	// Replaced lists the keys of the objects deleted from the partition.
	Replaced []string
}

// WriteResult reports a committed write.
type WriteResult struct {
	Rows       int
	Partitions []PartitionResult
}

// Option configures a PartitionedParquetWriter.
type Option func(*options)

type options struct {
	compression string
	log         logger.Logger
	registrar   catalog.PartitionRegistrar
}

// WithCompression sets the Parquet codec ("SNAPPY", "GZIP" or "NONE"). Defaults to SNAPPY.
func WithCompression(codec string) Option {
	return func(o *options) { o.compression = codec }
}

// WithLogger sets the logger. Defaults to logger.NewStdLogger().
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithPartitionRegistrar registers committed partitions with r.
func WithPartitionRegistrar(r catalog.PartitionRegistrar) Option {
	return func(o *options) { o.registrar = r }
}

// PartitionedParquetWriter writes records as Hive-partitioned Parquet files, replacing the
// contents of every partition present in a batch and leaving all other partitions untouched.
type PartitionedParquetWriter[T any] struct {
	resolver storage.StorageConnectionResolver
	schema   []catalog.Column
	opts     options
}

// NewPartitionedParquetWriter creates a writer for records of type T.
// T must carry parquet struct tags; schema lists the same columns in catalog terms and is compared
// with the table's catalog schema before anything is written.
//
// Parameters:
//
//	resolver: Resolver picking the storage connection for the table location.
//	schema: The data columns of T, in order, as the catalog reports them.
//	opts: Optional settings (WithCompression, WithLogger, WithPartitionRegistrar).
//
// Returns:
//
//	A PartitionedParquetWriter ready for Write.
func NewPartitionedParquetWriter[T any](resolver storage.StorageConnectionResolver, schema []catalog.Column, opts ...Option) *PartitionedParquetWriter[T] {
	o := options{compression: "SNAPPY", log: logger.NewStdLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return &PartitionedParquetWriter[T]{resolver: resolver, schema: schema, opts: o}
}

type partitionBatch[T any] struct {
	values  []string
	records []T
	data    *bytes.Buffer
}

// Write commits records to the table described by req.
//
// All partitions are encoded before storage is touched. For each partition the new file is uploaded
// first and then every object that existed under the partition directory before the upload is deleted,
// unless req.Mode is append. Any failure is returned as a WriteFailure; a schema difference with the
// catalog is additionally a SchemaMismatch.
//
// Parameters:
//
//	ctx: Context for the storage and catalog calls.
//	req: The target table, its location, partition columns, write mode and catalog schema.
//	records: The rows with their partition values. An empty slice is a no-op.
//
// Returns:
//
//	A WriteResult listing every committed partition, and an error if any partition failed.
func (w *PartitionedParquetWriter[T]) Write(ctx context.Context, req WriteRequest, records []PartitionedRecord[T]) (*WriteResult, error) {
	target := req.qualifiedName()
	if len(records) == 0 {
		w.opts.log.Warnf("No rows to write to %s, skipping.", target)
		return &WriteResult{}, nil
	}

	result, err := w.write(ctx, req, records)
	if err != nil {
		w.opts.log.Errorf("Failed to write %d rows to %s: %v", len(records), target, err)
		if errors.Is(err, exception.ErrWriteFailure) {
			return nil, err
		}
		return nil, exception.NewWriteFailure(module, fmt.Sprintf("failed to write %d rows to %s", len(records), target), err)
	}
	return result, nil
}

func (w *PartitionedParquetWriter[T]) write(ctx context.Context, req WriteRequest, records []PartitionedRecord[T]) (*WriteResult, error) {
	target := req.qualifiedName()

	mode := req.Mode
	if mode == "" {
		mode = config.WriteModeOverwritePartitions
	}
	if mode != config.WriteModeOverwritePartitions && mode != config.WriteModeAppend {
		return nil, fmt.Errorf("unsupported write mode '%s'", req.Mode)
	}
	codec, err := getCompressionCodec(w.opts.compression)
	if err != nil {
		return nil, err
	}
	if err := w.checkSchema(req); err != nil {
		return nil, err
	}
	if len(req.PartitionColumns) == 0 {
		return nil, fmt.Errorf("no partition columns configured for %s", target)
	}
	for i, r := range records {
		if len(r.Values) != len(req.PartitionColumns) {
			return nil, fmt.Errorf("record %d has %d partition values, expected %d", i, len(r.Values), len(req.PartitionColumns))
		}
	}
	root, err := storage.ParseLocation(req.Location)
	if err != nil {
		return nil, err
	}

	batches := groupByPartition(records)
	for _, b := range batches {
		data, err := encode(b.records, codec)
		if err != nil {
			return nil, fmt.Errorf("failed to encode partition %v: %w", b.values, err)
		}
		b.data = data
	}
	w.opts.log.Infof("Writing %d rows in %d partitions to %s (%s, mode %s).", len(records), len(batches), target, root, mode)

	conn, err := w.resolver.ResolveLocation(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage for %s: %w", root, err)
	}

	fileName := fmt.Sprintf("part-%s%s.parquet", uuid.NewString(), codecExtension(codec))
	result := &WriteResult{Rows: len(records)}
	for _, b := range batches {
		dir := root.Child(partitionPath(req.PartitionColumns, b.values))
		pr, err := w.commitPartition(ctx, conn, dir, fileName, b, mode)
		if err != nil {
			return nil, err
		}
		result.Partitions = append(result.Partitions, *pr)
	}

	if w.opts.registrar != nil {
		specs := make([]catalog.PartitionSpec, 0, len(result.Partitions))
		for _, p := range result.Partitions {
			specs = append(specs, catalog.PartitionSpec{Values: p.Values, Location: p.Location})
		}
		table := &catalog.Table{Database: req.Database, Name: req.Table, Location: req.Location}
		if err := w.opts.registrar.RegisterPartitions(ctx, table, specs); err != nil {
			return nil, fmt.Errorf("failed to register partitions of %s: %w", target, err)
		}
	}
	w.opts.log.Infof("Wrote %d rows in %d partitions to %s.", result.Rows, len(result.Partitions), target)
	return result, nil
}

func (w *PartitionedParquetWriter[T]) commitPartition(ctx context.Context, conn storage.StorageConnection, dir storage.Location, fileName string, b *partitionBatch[T], mode string) (*PartitionResult, error) {
	var existing []string
	if mode == config.WriteModeOverwritePartitions {
		err := conn.ListObjects(ctx, dir.Bucket, dir.DirPrefix(), func(objectName string) error {
			existing = append(existing, objectName)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
	}

	object := dir.Key(fileName)
	w.opts.log.Debugf("Uploading %d bytes to %s/%s.", b.data.Len(), dir.Bucket, object)
	if err := conn.Upload(ctx, dir.Bucket, object, b.data, parquetContentType); err != nil {
		return nil, fmt.Errorf("failed to upload %s/%s: %w", dir.Bucket, object, err)
	}

	var errs *multierror.Error
	var replaced []string
	for _, name := range existing {
		if name == object {
			continue
		}
		if err := conn.DeleteObject(ctx, dir.Bucket, name); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to delete %s/%s: %w", dir.Bucket, name, err))
			continue
		}
		replaced = append(replaced, name)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	if len(replaced) > 0 {
		w.opts.log.Debugf("Replaced %d objects in %s.", len(replaced), dir)
	}
	return &PartitionResult{
		Values:   b.values,
		Location: dir.String(),
		Object:   object,
		Rows:     len(b.records),
		Replaced: replaced,
	}, nil
}

func (w *PartitionedParquetWriter[T]) checkSchema(req WriteRequest) error {
	if len(req.TableColumns) > 0 && !catalog.SameColumns(req.TableColumns, w.schema) {
		return exception.NewSchemaMismatch(module, fmt.Sprintf("columns of %s are %s, expected %s",
			req.qualifiedName(), formatColumns(req.TableColumns), formatColumns(w.schema)))
	}
	if len(req.TablePartitionKeys) == 0 {
		return nil
	}
	match := len(req.TablePartitionKeys) == len(req.PartitionColumns)
	for i := 0; match && i < len(req.PartitionColumns); i++ {
		match = strings.EqualFold(req.TablePartitionKeys[i].Name, req.PartitionColumns[i])
	}
	if !match {
		return exception.NewSchemaMismatch(module, fmt.Sprintf("partition keys of %s are %s, expected %v",
			req.qualifiedName(), formatColumns(req.TablePartitionKeys), req.PartitionColumns))
	}
	return nil
}

func formatColumns(cols []catalog.Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.Name + " " + c.Type
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// groupByPartition groups records by partition values, keeping the order of first appearance.
func groupByPartition[T any](records []PartitionedRecord[T]) []*partitionBatch[T] {
	var batches []*partitionBatch[T]
	index := make(map[string]*partitionBatch[T])
	for _, r := range records {
		key := strings.Join(r.Values, "\x00")
		b, ok := index[key]
		if !ok {
			b = &partitionBatch[T]{values: r.Values}
			index[key] = b
			batches = append(batches, b)
		}
		b.records = append(b.records, r.Record)
	}
	return batches
}

// partitionPath renders "col1=v1/col2=v2/...".
func partitionPath(columns, values []string) string {
	parts := make([]string, len(columns))
	for i := range columns {
		parts[i] = columns[i] + "=" + values[i]
	}
	return strings.Join(parts, "/")
}

// encode writes records into one in-memory Parquet file.
func encode[T any](records []T, codec parquet.CompressionCodec) (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(T), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = codec
	for _, r := range records {
		if err := pw.Write(r); err != nil {
			return nil, fmt.Errorf("failed to write parquet row: %w", err)
		}
	}

	// The parquet library panics on some malformed schemas during WriteStop.
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("parquet writer panicked during WriteStop: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return buf, nil
}

// getCompressionCodec returns the Parquet compression codec from a string.
func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "": // NONE or empty string means uncompressed
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

func codecExtension(codec parquet.CompressionCodec) string {
	switch codec {
	case parquet.CompressionCodec_SNAPPY:
		return ".snappy"
	case parquet.CompressionCodec_GZIP:
		return ".gz"
	}
	return ""
}
