// Package nimbus provides incremental, checkpointed ingestion of
// object-store files driven by a versioned change-log table of
// notification events.
//
// Each committed change-log version records a batch of object-store
// notifications (bucket, key, size). A fetch resolves the next unread
// version range from an opaque checkpoint token, filters and deduplicates
// the referenced objects, optionally verifies their existence, and loads
// the surviving files as one dataset. The returned checkpoint marks the
// last fully consumed version, so repeated invocations yield strictly new
// content.
//
// # Architecture
//
// The system is organized around a small connector framework:
//
//   - pkg/connector/core defines the IncrementalSource capability
//     interface and FetchResult contract.
//   - pkg/connector/registry manages source registration; connectors
//     self-register in their init functions.
//   - pkg/connector/sources/s3events implements the object-store events
//     source: checkpoint resolution, change-log reading, event filtering
//     and deduplication, path materialization, partition inference, and
//     batch loading.
//   - pkg/changelog provides the versioned change-log table abstraction
//     and a commit-file-backed implementation.
//   - pkg/storage abstracts object access over S3-compatible services and
//     local directory trees.
//   - pkg/dataset holds loaded rows and the JSON/CSV format readers.
//
// # Quick Start
//
// Fetch one batch from a configured source:
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/nimbus/pkg/config"
//	    "github.com/ajitpratap0/nimbus/pkg/connector/registry"
//	    _ "github.com/ajitpratap0/nimbus/pkg/connector/sources/s3events"
//	)
//
//	cfg := config.NewBaseConfig("events-ingest", "s3events")
//	cfg.Security.Credentials["source_base_path"] = "/data/changelog"
//	cfg.Security.Credentials["storage_root"] = "/data/objects"
//
//	source, err := registry.CreateSource("s3events", cfg)
//	if err != nil {
//	    // handle error
//	}
//	if err := source.Initialize(context.Background(), cfg); err != nil {
//	    // handle error
//	}
//	result, err := source.FetchNextBatch(context.Background(), "", 0)
//	// persist result.Checkpoint for the next invocation
package nimbus
