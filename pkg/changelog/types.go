// Package changelog provides access to a versioned, append-only change-log
// table of object-store notification events. Each committed version holds a
// batch of events; consumers read bounded version ranges and track progress
// with an opaque checkpoint token.
package changelog

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ajitpratap0/nimbus/pkg/errors"
)

// ReadMode selects how a version range is read from the table
type ReadMode string

const (
	// ReadModeIncremental reads only the delta between two versions
	ReadModeIncremental ReadMode = "incremental"
	// ReadModeSnapshotWithFilter reads the full current state and filters
	// rows by commit version afterwards
	ReadModeSnapshotWithFilter ReadMode = "snapshot_with_filter"
)

// MissingCheckpointStrategy selects the fallback when no checkpoint exists
type MissingCheckpointStrategy string

const (
	// StrategyNone means no fallback is configured
	StrategyNone MissingCheckpointStrategy = ""
	// StrategyReadLatest seeds the checkpoint at the latest committed
	// version without consuming historical events
	StrategyReadLatest MissingCheckpointStrategy = "READ_LATEST"
	// StrategyReadUptoLatestCommit reads everything from the table minimum
	// through the latest committed version
	StrategyReadUptoLatestCommit MissingCheckpointStrategy = "READ_UPTO_LATEST_COMMIT"
)

// ParseStrategy parses a configured strategy name
func ParseStrategy(s string) (MissingCheckpointStrategy, error) {
	switch MissingCheckpointStrategy(s) {
	case StrategyNone, StrategyReadLatest, StrategyReadUptoLatestCommit:
		return MissingCheckpointStrategy(s), nil
	default:
		return StrategyNone, errors.Newf(errors.ErrorTypeConfig,
			"unknown missing checkpoint strategy: %s", s)
	}
}

// Event is one object-store notification recorded in the change log
type Event struct {
	// Bucket is the object-store bucket name
	Bucket string `json:"bucket"`
	// Key is the object key within the bucket
	Key string `json:"key"`
	// Size is the object size in bytes
	Size int64 `json:"size"`
	// Name is the notification type (e.g. "ObjectCreated:Put")
	Name string `json:"name,omitempty"`
	// Time is when the notification was emitted
	Time time.Time `json:"time,omitempty"`
}

// Row is one change-log record: an event plus its commit version
type Row struct {
	CommitVersion int64 `json:"commit_version"`
	Event         Event `json:"event"`
}

// VersionRange delimits change-log content to read. Begin is exclusive,
// End inclusive. Begin == End means the consumer is caught up.
type VersionRange struct {
	Begin int64
	End   int64
}

// IsCaughtUp reports whether the range contains no versions to read
func (r VersionRange) IsCaughtUp() bool {
	return r.Begin == r.End
}

// String returns a compact representation for logging
func (r VersionRange) String() string {
	return fmt.Sprintf("(%d, %d]", r.Begin, r.End)
}

// FormatCheckpoint renders a version as an opaque checkpoint token
func FormatCheckpoint(version int64) string {
	return strconv.FormatInt(version, 10)
}

// ParseCheckpoint parses a checkpoint token back into a version
func ParseCheckpoint(token string) (int64, error) {
	v, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeResolution,
			fmt.Sprintf("malformed checkpoint token: %q", token))
	}
	return v, nil
}
