package changelog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ajitpratap0/nimbus/pkg/errors"
	"github.com/ajitpratap0/nimbus/pkg/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCommit(t *testing.T, basePath string, version int64, events ...Event) {
	t.Helper()

	dir := filepath.Join(basePath, CommitDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	data, err := json.Marshal(Commit{
		Version:    version,
		CommitTime: time.Now().UTC().Format(time.RFC3339),
		Events:     events,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, CommitFileName(version)), data, 0o644))
}

func event(bucket, key string, size int64) Event {
	return Event{Bucket: bucket, Key: key, Size: size, Name: "ObjectCreated:Put"}
}

func TestOpen(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		log, err := Open(t.TempDir())
		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("empty base path", func(t *testing.T) {
		log, err := Open("")
		assert.Error(t, err)
		assert.Nil(t, log)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("missing directory", func(t *testing.T) {
		log, err := Open(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
		assert.Nil(t, log)
	})
}

func TestCommitLog_ResolveRange(t *testing.T) {
	ctx := context.Background()

	t.Run("checkpoint present caps to max versions", func(t *testing.T) {
		base := t.TempDir()
		for v := int64(1); v <= 6; v++ {
			writeCommit(t, base, v, event("b", "k", 1))
		}
		log, err := Open(base)
		require.NoError(t, err)

		mode, rng, err := log.ResolveRange(ctx, "1", 3, StrategyNone)
		require.NoError(t, err)
		assert.Equal(t, ReadModeIncremental, mode)
		assert.Equal(t, VersionRange{Begin: 1, End: 4}, rng)
	})

	t.Run("checkpoint at latest is caught up", func(t *testing.T) {
		base := t.TempDir()
		writeCommit(t, base, 5, event("b", "k", 1))
		log, err := Open(base)
		require.NoError(t, err)

		_, rng, err := log.ResolveRange(ctx, "5", 10, StrategyNone)
		require.NoError(t, err)
		assert.True(t, rng.IsCaughtUp())
		assert.Equal(t, int64(5), rng.Begin)
	})

	t.Run("read latest seeds checkpoint without history", func(t *testing.T) {
		base := t.TempDir()
		writeCommit(t, base, 3, event("b", "k", 1))
		writeCommit(t, base, 7, event("b", "k2", 1))
		log, err := Open(base)
		require.NoError(t, err)

		mode, rng, err := log.ResolveRange(ctx, "", 10, StrategyReadLatest)
		require.NoError(t, err)
		assert.Equal(t, ReadModeIncremental, mode)
		assert.True(t, rng.IsCaughtUp())
		assert.Equal(t, int64(7), rng.End)
	})

	t.Run("read upto latest commit uses snapshot mode", func(t *testing.T) {
		base := t.TempDir()
		writeCommit(t, base, 2, event("b", "k", 1))
		writeCommit(t, base, 4, event("b", "k2", 1))
		log, err := Open(base)
		require.NoError(t, err)

		mode, rng, err := log.ResolveRange(ctx, "", 10, StrategyReadUptoLatestCommit)
		require.NoError(t, err)
		assert.Equal(t, ReadModeSnapshotWithFilter, mode)
		assert.Equal(t, VersionRange{Begin: 0, End: 4}, rng)
	})

	t.Run("no checkpoint and no strategy fails", func(t *testing.T) {
		base := t.TempDir()
		writeCommit(t, base, 1, event("b", "k", 1))
		log, err := Open(base)
		require.NoError(t, err)

		_, _, err = log.ResolveRange(ctx, "", 10, StrategyNone)
		assert.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeResolution))
	})

	t.Run("empty table with strategy fails", func(t *testing.T) {
		log, err := Open(t.TempDir())
		require.NoError(t, err)

		_, _, err = log.ResolveRange(ctx, "", 10, StrategyReadLatest)
		assert.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeResolution))
	})

	t.Run("empty table with checkpoint is caught up", func(t *testing.T) {
		log, err := Open(t.TempDir())
		require.NoError(t, err)

		_, rng, err := log.ResolveRange(ctx, "9", 10, StrategyNone)
		require.NoError(t, err)
		assert.True(t, rng.IsCaughtUp())
	})

	t.Run("malformed checkpoint fails", func(t *testing.T) {
		base := t.TempDir()
		writeCommit(t, base, 1, event("b", "k", 1))
		log, err := Open(base)
		require.NoError(t, err)

		_, _, err = log.ResolveRange(ctx, "not-a-version", 10, StrategyNone)
		assert.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeResolution))
		assert.Contains(t, err.Error(), "not-a-version")
	})
}

func TestCommitLog_ReadIncremental(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	writeCommit(t, base, 1, event("b", "one.json", 10))
	writeCommit(t, base, 2, event("b", "two.json", 20), event("b", "three.json", 30))
	writeCommit(t, base, 3, event("b", "four.json", 40))

	log, err := Open(base)
	require.NoError(t, err)

	t.Run("begin exclusive end inclusive", func(t *testing.T) {
		rows, err := log.ReadIncremental(ctx, VersionRange{Begin: 1, End: 3})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "two.json", rows[0].Event.Key)
		assert.Equal(t, int64(2), rows[0].CommitVersion)
		assert.Equal(t, "four.json", rows[2].Event.Key)
	})

	t.Run("empty range yields no rows", func(t *testing.T) {
		rows, err := log.ReadIncremental(ctx, VersionRange{Begin: 3, End: 3})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestCommitLog_ReadSnapshotFiltered(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	writeCommit(t, base, 1, event("b", "one.json", 10))
	writeCommit(t, base, 2, event("b", "two.json", 20))

	log, err := Open(base)
	require.NoError(t, err)

	rows, err := log.ReadSnapshotFiltered(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "two.json", rows[0].Event.Key)

	rows, err = log.ReadSnapshotFiltered(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestCommitLog_LatestVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("empty table", func(t *testing.T) {
		log, err := Open(t.TempDir())
		require.NoError(t, err)

		_, ok, err := log.LatestVersion(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("latest of several", func(t *testing.T) {
		base := t.TempDir()
		writeCommit(t, base, 2, event("b", "k", 1))
		writeCommit(t, base, 10, event("b", "k2", 1))
		log, err := Open(base)
		require.NoError(t, err)

		latest, ok, err := log.LatestVersion(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(10), latest)
	})
}

func TestCheckpointTokens(t *testing.T) {
	token := FormatCheckpoint(42)
	assert.Equal(t, "42", token)

	v, err := ParseCheckpoint(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = ParseCheckpoint("bogus")
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      MissingCheckpointStrategy
		wantError bool
	}{
		{name: "read latest", input: "READ_LATEST", want: StrategyReadLatest},
		{name: "read upto latest commit", input: "READ_UPTO_LATEST_COMMIT", want: StrategyReadUptoLatestCommit},
		{name: "empty", input: "", want: StrategyNone},
		{name: "unknown", input: "READ_EVERYTHING", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
