// Package config provides the configuration structures of the dimtime job and their loader.
package config

import (
	"fmt"
	"strings"
	"time"
)

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// Writer modes.
const (
	WriteModeOverwritePartitions = "overwrite_partitions"
	WriteModeAppend              = "append"
)

// Catalog types.
const (
	CatalogTypeGlue   = "glue"
	CatalogTypeSQL    = "sql"
	CatalogTypeStatic = "static"
)

// OTLP exporter protocols.
const (
	OTLPProtocolGRPC = "grpc"
	OTLPProtocolHTTP = "http"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the location used for the wall clock when no period is given.
	// "Local" keeps the process timezone; "UTC" is safer for multi-region deployments.
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// Location resolves Timezone to a *time.Location.
func (s SystemConfig) Location() (*time.Location, error) {
	switch s.Timezone {
	case "", "Local", "local":
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// TargetConfig identifies the dimension table in the catalog.
type TargetConfig struct {
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// QualifiedName returns "database.table".
func (t TargetConfig) QualifiedName() string {
	return t.Database + "." + t.Table
}

// WriterConfig holds settings of the partitioned parquet writer.
type WriterConfig struct {
	// CompressionType is the parquet codec ("SNAPPY", "GZIP", "NONE").
	CompressionType string `yaml:"compression_type"`
	// PartitionColumns are the Hive partition column names, outermost first.
	PartitionColumns []string `yaml:"partition_columns"`
	// Mode is "overwrite_partitions" or "append".
	Mode string `yaml:"mode"`
	// RegisterPartitions registers written partitions in catalogs that support it.
	RegisterPartitions bool `yaml:"register_partitions"`
}

// TableLocationConfig is a statically configured table location.
type TableLocationConfig struct {
	Location string `yaml:"location"`
}

// CatalogConfig selects and configures the table catalog.
type CatalogConfig struct {
	// Type is "glue", "sql" or "static".
	Type string `yaml:"type"`
	// Region is the AWS region for the Glue catalog.
	Region string `yaml:"region"`
	// Endpoint optionally overrides the Glue endpoint.
	Endpoint string `yaml:"endpoint"`
	// DBRef names the entry under `database` used by the SQL catalog.
	DBRef string `yaml:"db_ref"`
	// AutoMigrate applies the SQL catalog migrations at startup.
	AutoMigrate bool `yaml:"auto_migrate"`
	// Tables maps "database.table" to a location for the static catalog.
	Tables map[string]TableLocationConfig `yaml:"tables"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// PushGatewayURL enables pushing metrics at the end of a run when set.
	PushGatewayURL string `yaml:"push_gateway_url"`
	// JobName is the push gateway job label.
	JobName string `yaml:"job_name"`
	// OTLPEndpoint additionally exports metrics over OTLP when set.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// OTLPProtocol is "grpc" or "http".
	OTLPProtocol string `yaml:"otlp_protocol"`
	// Insecure disables TLS for the OTLP metric exporter.
	Insecure bool `yaml:"insecure"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	// OTLPEndpoint enables the OTLP span exporter when set (e.g., "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// Protocol is "grpc" or "http".
	Protocol string `yaml:"protocol"`
	// Insecure disables TLS for the exporter.
	Insecure bool `yaml:"insecure"`
	// ServiceName is reported as the tracer name.
	ServiceName string `yaml:"service_name"`
}

// DimTimeConfig holds all configuration under the "dimtime" top-level key.
type DimTimeConfig struct {
	System  SystemConfig  `yaml:"system"`
	Target  TargetConfig  `yaml:"target"`
	Writer  WriterConfig  `yaml:"writer"`
	Catalog CatalogConfig `yaml:"catalog"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	// StorageConfigs holds named storage connections, decoded by the storage providers.
	StorageConfigs map[string]interface{} `yaml:"storage"`
	// DatabaseConfigs holds named database connections, decoded by the gorm adapter.
	DatabaseConfigs map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	DimTime DimTimeConfig `yaml:"dimtime"`
	// EmbeddedConfig keeps the raw embedded YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		DimTime: DimTimeConfig{
			System: SystemConfig{
				Timezone: "Local",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Target: TargetConfig{
				Database: "db_dimensao",
				Table:    "dim_tempo",
			},
			Writer: WriterConfig{
				CompressionType:    "SNAPPY",
				PartitionColumns:   []string{"partition_year", "partition_month", "partition_day"},
				Mode:               WriteModeOverwritePartitions,
				RegisterPartitions: true,
			},
			Catalog: CatalogConfig{
				Type:  CatalogTypeGlue,
				DBRef: "catalog",
			},
			Metrics: MetricsConfig{
				JobName:      "dim_time",
				OTLPProtocol: OTLPProtocolGRPC,
			},
			Tracing: TracingConfig{
				Protocol:    OTLPProtocolGRPC,
				ServiceName: "dimtime",
			},
			StorageConfigs:  map[string]interface{}{},
			DatabaseConfigs: map[string]interface{}{},
		},
	}
}

// Validate checks the settings the job cannot run without.
func (c *Config) Validate() error {
	d := c.DimTime
	if _, err := d.System.Location(); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", d.System.Timezone, err)
	}
	if d.Target.Database == "" || d.Target.Table == "" {
		return fmt.Errorf("target database and table must both be set (got '%s')", d.Target.QualifiedName())
	}
	if len(d.Writer.PartitionColumns) != 3 {
		return fmt.Errorf("writer.partition_columns must name the year, month and day columns, got %v", d.Writer.PartitionColumns)
	}
	switch d.Writer.Mode {
	case WriteModeOverwritePartitions, WriteModeAppend:
	default:
		return fmt.Errorf("unsupported writer mode '%s'", d.Writer.Mode)
	}
	switch strings.ToUpper(d.Writer.CompressionType) {
	case "SNAPPY", "GZIP", "NONE", "":
	default:
		return fmt.Errorf("unsupported compression type '%s'", d.Writer.CompressionType)
	}
	switch d.Catalog.Type {
	case CatalogTypeGlue, CatalogTypeSQL, CatalogTypeStatic:
	default:
		return fmt.Errorf("unsupported catalog type '%s'", d.Catalog.Type)
	}
	for _, protocol := range []string{d.Metrics.OTLPProtocol, d.Tracing.Protocol} {
		switch protocol {
		case OTLPProtocolGRPC, OTLPProtocolHTTP:
		default:
			return fmt.Errorf("unsupported OTLP protocol '%s'", protocol)
		}
	}
	return nil
}
