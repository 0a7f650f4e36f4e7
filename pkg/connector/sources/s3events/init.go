package s3events

import (
	"github.com/ajitpratap0/nimbus/pkg/connector/registry"
)

func init() {
	// Register the S3 events source connector
	_ = registry.RegisterSource("s3events", NewS3EventsSource)

	// Register connector information
	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        "s3events",
		Type:        "source",
		Description: "Incremental source over a change-log table of object-store notification events",
		Version:     "1.0.0",
		Capabilities: []string{
			"incremental",
			"checkpointing",
			"existence_check",
			"partition_inference",
		},
		ConfigSchema: map[string]interface{}{
			"source_base_path": map[string]interface{}{
				"type":        "string",
				"required":    true,
				"description": "Root of the change-log table",
			},
			"max_versions_per_fetch": map[string]interface{}{
				"type":        "int",
				"required":    false,
				"default":     DefaultMaxVersionsPerFetch,
				"description": "Bounds the incremental range width",
			},
			"missing_checkpoint_strategy": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "READ_LATEST or READ_UPTO_LATEST_COMMIT",
			},
			"read_latest_on_missing_checkpoint": map[string]interface{}{
				"type":        "bool",
				"required":    false,
				"default":     false,
				"description": "Legacy flag; forces READ_LATEST when true",
			},
			"source_file_format": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"default":     DefaultSourceFileFormat,
				"description": "Load format and default extension filter (json, csv)",
			},
			"key_prefix": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "Only load objects whose key starts with this prefix",
			},
			"ignore_key_prefix": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "Skip objects whose key starts with this prefix",
			},
			"ignore_key_substring": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "Skip objects whose key contains this substring",
			},
			"file_extensions": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "Overrides the extension filter derived from the file format",
			},
			"check_file_exists": map[string]interface{}{
				"type":        "bool",
				"required":    false,
				"default":     false,
				"description": "Probe object existence before loading",
			},
			"attach_source_partition_column": map[string]interface{}{
				"type":        "bool",
				"required":    false,
				"default":     true,
				"description": "Derive a partition column from path structure",
			},
			"partition_path_field": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "Partition field name used for path inference",
			},
			"reader_options": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "JSON map of options passed to the format reader",
			},
			"fs_prefix": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"default":     DefaultFsPrefix,
				"description": "Object-store scheme used when building paths",
			},
			"storage_backend": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"default":     "local",
				"description": "Object storage backend (local, s3)",
			},
			"storage_root": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "Root directory for the local storage backend",
			},
			"region": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "AWS region for the s3 backend",
			},
			"s3_endpoint": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "S3/MinIO endpoint URL",
			},
			"access_key": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "S3 access key",
			},
			"secret_key": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "S3 secret key",
			},
		},
	})
}
