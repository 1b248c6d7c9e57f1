package writer_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	localsource "github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
	storageConfig "github.com/tigerroll/dimtime/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/dimtime/pkg/batch/component/step/writer"
	"github.com/tigerroll/dimtime/pkg/batch/core/config"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/exception"
	"github.com/tigerroll/dimtime/pkg/batch/test"
)

type event struct {
	ID   int64  `parquet:"name=id, type=INT64"`
	Name string `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
}

var eventSchema = []catalog.Column{{Name: "id", Type: "bigint"}, {Name: "name", Type: "string"}}

var partitionColumns = []string{"p_year", "p_month", "p_day"}

// recordingLogger collects warnings and errors.
type recordingLogger struct {
	warnings []string
	errors   []string
}

func (l *recordingLogger) Debugf(string, ...interface{}) {}
func (l *recordingLogger) Infof(string, ...interface{})  {}
func (l *recordingLogger) Warnf(format string, v ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, v...))
}
func (l *recordingLogger) Errorf(format string, v ...interface{}) {
	l.errors = append(l.errors, fmt.Sprintf(format, v...))
}

func newLake(t *testing.T) (*test.StaticStorageResolver, string) {
	t.Helper()
	base := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: local.ProviderType, BaseDir: base}, "lake")
	require.NoError(t, err)
	return &test.StaticStorageResolver{Conn: conn}, filepath.Join(base, "lake", "warehouse", "events")
}

func request() writer.WriteRequest {
	return writer.WriteRequest{
		Database:         "db",
		Table:            "events",
		Location:         "file://lake/warehouse/events",
		PartitionColumns: partitionColumns,
	}
}

func records(day string, n int) []writer.PartitionedRecord[event] {
	out := make([]writer.PartitionedRecord[event], n)
	for i := range out {
		out[i] = writer.PartitionedRecord[event]{
			Values: []string{"2023", "4", day},
			Record: event{ID: int64(i + 1), Name: "day " + day},
		}
	}
	return out
}

// parquetFiles returns the parquet files below root, relative to it.
func parquetFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".parquet") {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func readEvents(t *testing.T, path string) []event {
	t.Helper()
	fr, err := localsource.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(event), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	rows := make([]event, int(pr.GetNumRows()))
	require.NoError(t, pr.Read(&rows))
	return rows
}

func TestWriteCreatesHivePartitions(t *testing.T) {
	resolver, root := newLake(t)
	w := writer.NewPartitionedParquetWriter[event](resolver, eventSchema)

	batch := append(records("1", 3), records("2", 2)...)
	result, err := w.Write(context.Background(), request(), batch)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Rows)
	require.Len(t, result.Partitions, 2)
	assert.Equal(t, []string{"2023", "4", "1"}, result.Partitions[0].Values)
	assert.Equal(t, "file://lake/warehouse/events/p_year=2023/p_month=4/p_day=1", result.Partitions[0].Location)
	assert.Equal(t, 3, result.Partitions[0].Rows)
	assert.True(t, strings.HasSuffix(result.Partitions[0].Object, ".snappy.parquet"))

	files := parquetFiles(t, root)
	require.Len(t, files, 2)
	assert.True(t, strings.HasPrefix(files[0], "p_year=2023/p_month=4/p_day=1/part-"))
	assert.True(t, strings.HasPrefix(files[1], "p_year=2023/p_month=4/p_day=2/part-"))

	rows := readEvents(t, filepath.Join(root, filepath.FromSlash(files[0])))
	assert.Equal(t, []event{{1, "day 1"}, {2, "day 1"}, {3, "day 1"}}, rows)
}

func TestWriteTwiceReplacesPartitionContents(t *testing.T) {
	resolver, root := newLake(t)
	w := writer.NewPartitionedParquetWriter[event](resolver, eventSchema)

	_, err := w.Write(context.Background(), request(), records("1", 4))
	require.NoError(t, err)
	result, err := w.Write(context.Background(), request(), records("1", 4))
	require.NoError(t, err)

	files := parquetFiles(t, root)
	require.Len(t, files, 1)
	assert.Len(t, result.Partitions[0].Replaced, 1)
	assert.Len(t, readEvents(t, filepath.Join(root, filepath.FromSlash(files[0]))), 4)
}

func TestWriteLeavesOtherPartitionsUntouched(t *testing.T) {
	resolver, root := newLake(t)
	w := writer.NewPartitionedParquetWriter[event](resolver, eventSchema)

	_, err := w.Write(context.Background(), request(), append(records("1", 1), records("10", 1)...))
	require.NoError(t, err)
	before := parquetFiles(t, root)
	require.Len(t, before, 2)

	_, err = w.Write(context.Background(), request(), records("1", 2))
	require.NoError(t, err)
	after := parquetFiles(t, root)
	require.Len(t, after, 2)
	// day=10 shares the "p_day=1" string prefix and must survive a rewrite of day=1
	assert.Contains(t, after, before[1])
	assert.NotContains(t, after, before[0])
}

func TestAppendModeKeepsExistingFiles(t *testing.T) {
	resolver, root := newLake(t)
	w := writer.NewPartitionedParquetWriter[event](resolver, eventSchema, writer.WithCompression("GZIP"))
	req := request()
	req.Mode = config.WriteModeAppend

	_, err := w.Write(context.Background(), req, records("1", 1))
	require.NoError(t, err)
	result, err := w.Write(context.Background(), req, records("1", 1))
	require.NoError(t, err)

	assert.Len(t, parquetFiles(t, root), 2)
	assert.Empty(t, result.Partitions[0].Replaced)
	assert.True(t, strings.HasSuffix(result.Partitions[0].Object, ".gz.parquet"))
}

func TestEmptyBatchIsANoop(t *testing.T) {
	conn := new(test.MockStorageConnection)
	log := &recordingLogger{}
	w := writer.NewPartitionedParquetWriter[event](&test.StaticStorageResolver{Conn: conn}, eventSchema, writer.WithLogger(log))

	result, err := w.Write(context.Background(), request(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Rows)
	assert.Empty(t, result.Partitions)
	assert.Len(t, log.warnings, 1)
	conn.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
}

func TestSchemaMismatch(t *testing.T) {
	conn := new(test.MockStorageConnection)
	w := writer.NewPartitionedParquetWriter[event](&test.StaticStorageResolver{Conn: conn}, eventSchema)

	req := request()
	req.TableColumns = []catalog.Column{{Name: "id", Type: "bigint"}, {Name: "label", Type: "string"}}
	_, err := w.Write(context.Background(), req, records("1", 1))
	assert.ErrorIs(t, err, exception.ErrSchemaMismatch)
	assert.ErrorIs(t, err, exception.ErrWriteFailure)

	req = request()
	req.TableColumns = []catalog.Column{{Name: "ID", Type: "long"}, {Name: "Name", Type: "varchar"}}
	req.TablePartitionKeys = []catalog.Column{{Name: "p_year", Type: "int"}, {Name: "p_month", Type: "int"}}
	_, err = w.Write(context.Background(), req, records("1", 1))
	assert.ErrorIs(t, err, exception.ErrSchemaMismatch)
	conn.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMatchingCatalogSchemaIsAccepted(t *testing.T) {
	resolver, _ := newLake(t)
	w := writer.NewPartitionedParquetWriter[event](resolver, eventSchema)

	req := request()
	req.TableColumns = []catalog.Column{{Name: "ID", Type: "long"}, {Name: "Name", Type: "varchar"}}
	req.TablePartitionKeys = []catalog.Column{{Name: "P_YEAR", Type: "int"}, {Name: "p_month", Type: "int"}, {Name: "p_day", Type: "int"}}
	_, err := w.Write(context.Background(), req, records("1", 1))
	assert.NoError(t, err)
}

func TestUploadFailureIsAWriteFailure(t *testing.T) {
	conn := new(test.MockStorageConnection)
	conn.On("ListObjects", mock.Anything, "lake", "warehouse/events/p_year=2023/p_month=4/p_day=1/").Return([]string{"warehouse/events/p_year=2023/p_month=4/p_day=1/old.parquet"}, nil)
	conn.On("Upload", mock.Anything, "lake", mock.AnythingOfType("string"), "application/octet-stream").Return(errors.New("access denied"))
	log := &recordingLogger{}
	w := writer.NewPartitionedParquetWriter[event](&test.StaticStorageResolver{Conn: conn}, eventSchema, writer.WithLogger(log))

	_, err := w.Write(context.Background(), request(), records("1", 3))
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrWriteFailure)
	assert.ErrorContains(t, err, "access denied")
	require.Len(t, log.errors, 1)
	assert.Contains(t, log.errors[0], "3 rows")
	assert.Contains(t, log.errors[0], "db.events")
	// the old file is kept when the new one could not be stored
	conn.AssertNotCalled(t, "DeleteObject", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteFailureIsAWriteFailure(t *testing.T) {
	conn := new(test.MockStorageConnection)
	conn.On("ListObjects", mock.Anything, "lake", mock.Anything).Return([]string{"warehouse/events/p_year=2023/p_month=4/p_day=1/old.parquet"}, nil)
	conn.On("Upload", mock.Anything, "lake", mock.Anything, mock.Anything).Return(nil)
	conn.On("DeleteObject", mock.Anything, "lake", "warehouse/events/p_year=2023/p_month=4/p_day=1/old.parquet").Return(errors.New("throttled"))
	w := writer.NewPartitionedParquetWriter[event](&test.StaticStorageResolver{Conn: conn}, eventSchema)

	_, err := w.Write(context.Background(), request(), records("1", 1))
	assert.ErrorIs(t, err, exception.ErrWriteFailure)
	assert.ErrorContains(t, err, "throttled")
	conn.AssertExpectations(t)
}

func TestInvalidRequests(t *testing.T) {
	conn := new(test.MockStorageConnection)
	resolver := &test.StaticStorageResolver{Conn: conn}

	tests := []struct {
		name   string
		writer *writer.PartitionedParquetWriter[event]
		mutate func(*writer.WriteRequest)
		batch  []writer.PartitionedRecord[event]
	}{
		{"mode", writer.NewPartitionedParquetWriter[event](resolver, eventSchema), func(r *writer.WriteRequest) { r.Mode = "merge" }, records("1", 1)},
		{"codec", writer.NewPartitionedParquetWriter[event](resolver, eventSchema, writer.WithCompression("LZ4")), func(*writer.WriteRequest) {}, records("1", 1)},
		{"location", writer.NewPartitionedParquetWriter[event](resolver, eventSchema), func(r *writer.WriteRequest) { r.Location = "hdfs://nn/events" }, records("1", 1)},
		{"values", writer.NewPartitionedParquetWriter[event](resolver, eventSchema), func(*writer.WriteRequest) {}, []writer.PartitionedRecord[event]{{Values: []string{"2023"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request()
			tt.mutate(&req)
			_, err := tt.writer.Write(context.Background(), req, tt.batch)
			assert.ErrorIs(t, err, exception.ErrWriteFailure)
		})
	}
	conn.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolverFailure(t *testing.T) {
	w := writer.NewPartitionedParquetWriter[event](&test.StaticStorageResolver{Err: errors.New("no storage for scheme")}, eventSchema)
	_, err := w.Write(context.Background(), request(), records("1", 1))
	assert.ErrorIs(t, err, exception.ErrWriteFailure)
	assert.ErrorContains(t, err, "no storage for scheme")
}

func TestPartitionsAreRegistered(t *testing.T) {
	resolver, _ := newLake(t)
	registrar := new(test.MockCatalog)
	registrar.On("RegisterPartitions", mock.Anything, mock.MatchedBy(func(tbl *catalog.Table) bool {
		return tbl.QualifiedName() == "db.events"
	}), []catalog.PartitionSpec{
		{Values: []string{"2023", "4", "1"}, Location: "file://lake/warehouse/events/p_year=2023/p_month=4/p_day=1"},
		{Values: []string{"2023", "4", "2"}, Location: "file://lake/warehouse/events/p_year=2023/p_month=4/p_day=2"},
	}).Return(nil).Once()
	w := writer.NewPartitionedParquetWriter[event](resolver, eventSchema, writer.WithPartitionRegistrar(registrar))

	_, err := w.Write(context.Background(), request(), append(records("1", 1), records("2", 1)...))
	require.NoError(t, err)
	registrar.AssertExpectations(t)
}

func TestRegistrationFailureIsAWriteFailure(t *testing.T) {
	resolver, _ := newLake(t)
	registrar := new(test.MockCatalog)
	registrar.On("RegisterPartitions", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("glue unavailable"))
	w := writer.NewPartitionedParquetWriter[event](resolver, eventSchema, writer.WithPartitionRegistrar(registrar))

	_, err := w.Write(context.Background(), request(), records("1", 1))
	assert.ErrorIs(t, err, exception.ErrWriteFailure)
	assert.ErrorContains(t, err, "glue unavailable")
}
