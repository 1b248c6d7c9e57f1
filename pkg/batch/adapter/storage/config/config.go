package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // Type of storage ("local", "gcs", "s3").
	BucketName      string `yaml:"bucket_name"`      // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file"` // Path to credentials file (e.g., service account key for GCS).
	BaseDir         string `yaml:"base_dir"`         // Base directory for local file system operations.
	Region          string `yaml:"region"`           // AWS region for S3.
	Endpoint        string `yaml:"endpoint"`         // Endpoint override (S3-compatible stores, emulators).
	ForcePathStyle  bool   `yaml:"force_path_style"` // Path-style S3 addressing.
}

// DatasourcesConfig holds a map of named storage configurations.
type DatasourcesConfig map[string]StorageConfig

// Decode decodes one raw storage entry, as read from YAML, into a StorageConfig.
func Decode(raw interface{}) (StorageConfig, error) {
	var cfg StorageConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to create decoder for storage config: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("failed to decode storage config: %w", err)
	}
	return cfg, nil
}

// DecodeAll decodes every named entry of the raw "storage" configuration section.
func DecodeAll(raw map[string]interface{}) (DatasourcesConfig, error) {
	out := make(DatasourcesConfig, len(raw))
	for name, entry := range raw {
		cfg, err := Decode(entry)
		if err != nil {
			return nil, fmt.Errorf("storage '%s': %w", name, err)
		}
		out[name] = cfg
	}
	return out, nil
}
