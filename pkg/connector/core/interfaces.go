package core

import (
	"context"

	"github.com/ajitpratap0/nimbus/pkg/config"
	"github.com/ajitpratap0/nimbus/pkg/dataset"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource ConnectorType = "source"
)

// State represents connector state
type State map[string]interface{}

// FetchResult is the outcome of one fetch invocation.
// Dataset is nil when the batch produced no loadable files (caught up,
// empty read, or all events filtered). Checkpoint is always set and must
// be persisted by the caller before the next invocation.
type FetchResult struct {
	Dataset    *dataset.Dataset
	Checkpoint string
}

// IsEmpty reports whether the fetch produced no dataset
func (r *FetchResult) IsEmpty() bool {
	return r.Dataset == nil
}

// IncrementalSource is the capability interface for sources that consume a
// change stream in resumable batches. Repeated invocations with the
// previously returned checkpoint yield strictly new content.
type IncrementalSource interface {
	// Core functionality
	Initialize(ctx context.Context, config *config.BaseConfig) error

	// FetchNextBatch reads the next bounded batch after lastCheckpoint.
	// An empty lastCheckpoint means no checkpoint exists yet. sourceLimit
	// is an advisory size hint; implementations may ignore it.
	FetchNextBatch(ctx context.Context, lastCheckpoint string, sourceLimit int64) (*FetchResult, error)

	Close(ctx context.Context) error

	// State management
	GetState() State
	SetState(state State) error

	// Health and metrics
	Health(ctx context.Context) error
	Metrics() map[string]interface{}
}

// Connector is the base interface for all connectors
type Connector interface {
	// Metadata
	Name() string
	Type() ConnectorType
	Version() string

	// Lifecycle
	Initialize(ctx context.Context, config *config.BaseConfig) error
	Close(ctx context.Context) error

	// Health and monitoring
	Health(ctx context.Context) error
	Metrics() map[string]interface{}
}
