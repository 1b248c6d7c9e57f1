package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/storage"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		uri      string
		want     storage.Location
		wantType string
	}{
		{"s3://lake/warehouse/dim_tempo/", storage.Location{Scheme: "s3", Bucket: "lake", Prefix: "warehouse/dim_tempo"}, "s3"},
		{"s3a://lake/dim_tempo", storage.Location{Scheme: "s3", Bucket: "lake", Prefix: "dim_tempo"}, "s3"},
		{"gs://lake/dim_tempo", storage.Location{Scheme: "gs", Bucket: "lake", Prefix: "dim_tempo"}, "gcs"},
		{"file://lake", storage.Location{Scheme: "file", Bucket: "lake"}, "local"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := storage.ParseLocation(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantType, got.StorageType())
		})
	}
}

func TestParseLocationErrors(t *testing.T) {
	for _, uri := range []string{"hdfs://lake/x", "s3:///no-bucket", "not a uri %zz", "warehouse/dim_tempo"} {
		_, err := storage.ParseLocation(uri)
		assert.Error(t, err, uri)
	}
}

func TestLocationPaths(t *testing.T) {
	loc := storage.Location{Scheme: "s3", Bucket: "lake", Prefix: "warehouse/dim_tempo"}

	child := loc.Child("partition_year=2023", "partition_month=4", "partition_day=1")
	assert.Equal(t, "warehouse/dim_tempo/partition_year=2023/partition_month=4/partition_day=1", child.Prefix)
	assert.Equal(t, child.Prefix+"/", child.DirPrefix())
	assert.Equal(t, "warehouse/dim_tempo/a.parquet", loc.Key("a.parquet"))
	assert.Equal(t, "s3://lake/warehouse/dim_tempo", loc.String())

	root := storage.Location{Scheme: "file", Bucket: "lake"}
	assert.Equal(t, "", root.DirPrefix())
	assert.Equal(t, "x=1", root.Child("x=1").Prefix)
	assert.Equal(t, "file://lake", root.String())
}
