package changelog

import "context"

// Table is the query interface over a versioned change-log table.
// Implementations are bound to a base path at construction.
type Table interface {
	// ResolveRange computes the read mode and version range for the next
	// fetch. lastCheckpoint is empty when no checkpoint exists. maxVersions
	// bounds the width of an incremental range.
	ResolveRange(ctx context.Context, lastCheckpoint string, maxVersions int,
		strategy MissingCheckpointStrategy) (ReadMode, VersionRange, error)

	// ReadIncremental returns the rows committed in (begin, end].
	ReadIncremental(ctx context.Context, rng VersionRange) ([]Row, error)

	// ReadSnapshotFiltered returns all rows in the current table state whose
	// commit version is greater than beginExclusive.
	ReadSnapshotFiltered(ctx context.Context, beginExclusive int64) ([]Row, error)

	// LatestVersion returns the most recent committed version, or false if
	// the table has no commits.
	LatestVersion(ctx context.Context) (int64, bool, error)
}
