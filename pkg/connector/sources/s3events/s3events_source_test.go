package s3events

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ajitpratap0/nimbus/pkg/changelog"
	"github.com/ajitpratap0/nimbus/pkg/config"
	"github.com/ajitpratap0/nimbus/pkg/errors"
	"github.com/ajitpratap0/nimbus/pkg/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture is an on-disk change-log table plus a local object tree
type fixture struct {
	basePath string
	objRoot  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		basePath: t.TempDir(),
		objRoot:  t.TempDir(),
	}
}

// commit writes one change-log commit file
func (f *fixture) commit(t *testing.T, version int64, events ...changelog.Event) {
	t.Helper()

	dir := filepath.Join(f.basePath, changelog.CommitDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	data, err := json.Marshal(changelog.Commit{
		Version:    version,
		CommitTime: time.Now().UTC().Format(time.RFC3339),
		Events:     events,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, changelog.CommitFileName(version)), data, 0o644))
}

// object places file content where the local store resolves bucket/key
func (f *fixture) object(t *testing.T, bucket, key, content string) {
	t.Helper()

	path := filepath.Join(f.objRoot, bucket, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// source builds and initializes a connector over the fixture
func (f *fixture) source(t *testing.T, overrides map[string]string) *S3EventsSource {
	t.Helper()

	cfg := config.NewBaseConfig("events-test", "s3events")
	cfg.Security.Credentials["source_base_path"] = f.basePath
	cfg.Security.Credentials["storage_backend"] = "local"
	cfg.Security.Credentials["storage_root"] = f.objRoot
	for k, v := range overrides {
		cfg.Security.Credentials[k] = v
	}

	src, err := NewS3EventsSource(cfg)
	require.NoError(t, err)
	require.NoError(t, src.Initialize(context.Background(), cfg))
	return src.(*S3EventsSource)
}

func created(bucket, key string, size int64) changelog.Event {
	return changelog.Event{Bucket: bucket, Key: key, Size: size, Name: "ObjectCreated:Put"}
}

func TestNewS3EventsSource(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewS3EventsSource(nil)
		assert.Error(t, err)
	})

	t.Run("fetch before initialize fails", func(t *testing.T) {
		src, err := NewS3EventsSource(config.NewBaseConfig("x", "s3events"))
		require.NoError(t, err)

		_, err = src.FetchNextBatch(context.Background(), "", 0)
		assert.Error(t, err)
	})
}

func TestInitialize_ConfigValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		credentials map[string]string
		wantInError string
	}{
		{
			name:        "missing base path",
			credentials: map[string]string{},
			wantInError: "source_base_path",
		},
		{
			name: "non positive max versions",
			credentials: map[string]string{
				"source_base_path":       t.TempDir(),
				"max_versions_per_fetch": "0",
			},
			wantInError: "max_versions_per_fetch",
		},
		{
			name: "non numeric max versions",
			credentials: map[string]string{
				"source_base_path":       t.TempDir(),
				"max_versions_per_fetch": "five",
			},
			wantInError: "max_versions_per_fetch",
		},
		{
			name: "unknown strategy",
			credentials: map[string]string{
				"source_base_path":            t.TempDir(),
				"missing_checkpoint_strategy": "READ_EVERYTHING",
			},
			wantInError: "strategy",
		},
		{
			name: "local backend without storage root",
			credentials: map[string]string{
				"source_base_path": t.TempDir(),
				"storage_backend":  "local",
			},
			wantInError: "storage_root",
		},
		{
			name: "unknown storage backend",
			credentials: map[string]string{
				"source_base_path": t.TempDir(),
				"storage_backend":  "ftp",
			},
			wantInError: "storage backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewBaseConfig("x", "s3events")
			cfg.Security.Credentials = tt.credentials

			src, err := NewS3EventsSource(cfg)
			require.NoError(t, err)

			err = src.Initialize(ctx, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantInError)
		})
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	f := newFixture(t)
	s := f.source(t, nil)

	assert.Equal(t, DefaultMaxVersionsPerFetch, s.opts.maxVersionsPerFetch)
	assert.Equal(t, DefaultSourceFileFormat, s.opts.fileFormat)
	assert.Equal(t, DefaultFsPrefix, s.opts.fsPrefix)
	assert.Equal(t, "json", s.opts.extensionFilter)
	assert.True(t, s.opts.attachPartition)
	assert.False(t, s.opts.checkExists)
	assert.Equal(t, changelog.StrategyNone, s.opts.strategy)
}

func TestParseConfig_Overrides(t *testing.T) {
	f := newFixture(t)
	s := f.source(t, map[string]string{
		"source_file_format":             "csv",
		"file_extensions":                ".csv.gz",
		"fs_prefix":                      "GS",
		"partition_path_field":           "date:SIMPLE",
		"attach_source_partition_column": "false",
		"missing_checkpoint_strategy":    "READ_LATEST",
	})

	assert.Equal(t, "csv", s.opts.fileFormat)
	assert.Equal(t, ".csv.gz", s.opts.extensionFilter)
	assert.Equal(t, "gs", s.opts.fsPrefix)
	assert.Equal(t, "date", s.opts.partitionField, "generator hints after the colon are ignored")
	assert.False(t, s.opts.attachPartition)
	assert.Equal(t, changelog.StrategyReadLatest, s.opts.strategy)
}

func TestFetchNextBatch_FullRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Three events across two commits, two distinct keys
	f.commit(t, 1,
		created("warehouse", "data/a.json", 10),
		created("warehouse", "data/b.json", 20))
	f.commit(t, 2,
		created("warehouse", "data/a.json", 15))
	f.object(t, "warehouse", "data/a.json", "{\"id\":1}\n")
	f.object(t, "warehouse", "data/b.json", "{\"id\":2}\n")

	s := f.source(t, map[string]string{
		"missing_checkpoint_strategy": "READ_UPTO_LATEST_COMMIT",
	})

	result, err := s.FetchNextBatch(ctx, "", 0)
	require.NoError(t, err)
	require.NotNil(t, result.Dataset)

	// Duplicate key collapses: two files, one row each
	assert.Equal(t, 2, result.Dataset.Len())
	assert.Equal(t, "2", result.Checkpoint)
	assert.ElementsMatch(t, []interface{}{float64(1), float64(2)}, result.Dataset.Column("id"))
}

func TestFetchNextBatch_NoDuplicationAcrossInvocations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.commit(t, 1, created("warehouse", "data/a.json", 10))
	f.object(t, "warehouse", "data/a.json", "{\"id\":1}\n")

	s := f.source(t, map[string]string{
		"missing_checkpoint_strategy": "READ_UPTO_LATEST_COMMIT",
	})

	first, err := s.FetchNextBatch(ctx, "", 0)
	require.NoError(t, err)
	require.NotNil(t, first.Dataset)
	assert.Equal(t, 1, first.Dataset.Len())
	assert.Equal(t, "1", first.Checkpoint)

	// Nothing new: caught up, checkpoint unchanged, no dataset
	second, err := s.FetchNextBatch(ctx, first.Checkpoint, 0)
	require.NoError(t, err)
	assert.True(t, second.IsEmpty())
	assert.Equal(t, first.Checkpoint, second.Checkpoint)

	// New commit: only its file is loaded
	f.commit(t, 2, created("warehouse", "data/c.json", 5))
	f.object(t, "warehouse", "data/c.json", "{\"id\":3}\n")

	third, err := s.FetchNextBatch(ctx, second.Checkpoint, 0)
	require.NoError(t, err)
	require.NotNil(t, third.Dataset)
	assert.Equal(t, 1, third.Dataset.Len())
	assert.Equal(t, float64(3), third.Dataset.Row(0)["id"])
	assert.Equal(t, "2", third.Checkpoint)
}

func TestFetchNextBatch_CaughtUpIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.commit(t, 7, created("warehouse", "data/a.json", 10))

	s := f.source(t, nil)

	for i := 0; i < 3; i++ {
		result, err := s.FetchNextBatch(ctx, "7", 0)
		require.NoError(t, err)
		assert.True(t, result.IsEmpty())
		assert.Equal(t, "7", result.Checkpoint)
	}
}

func TestFetchNextBatch_ReadLatestSeedsCheckpoint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.commit(t, 3, created("warehouse", "old/x.json", 10))
	f.commit(t, 9, created("warehouse", "old/y.json", 10))

	s := f.source(t, map[string]string{
		"missing_checkpoint_strategy": "READ_LATEST",
	})

	// First run loads nothing, just seeds the checkpoint at the latest commit
	result, err := s.FetchNextBatch(ctx, "", 0)
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	assert.Equal(t, "9", result.Checkpoint)
}

func TestFetchNextBatch_LegacyFlagForcesReadLatest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.commit(t, 4, created("warehouse", "data/a.json", 10))

	s := f.source(t, map[string]string{
		"missing_checkpoint_strategy":       "READ_UPTO_LATEST_COMMIT",
		"read_latest_on_missing_checkpoint": "true",
	})

	result, err := s.FetchNextBatch(ctx, "", 0)
	require.NoError(t, err)
	assert.True(t, result.IsEmpty(), "legacy flag overrides the configured snapshot strategy")
	assert.Equal(t, "4", result.Checkpoint)
}

func TestFetchNextBatch_MissingCheckpointWithoutStrategy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.commit(t, 1, created("warehouse", "data/a.json", 10))

	s := f.source(t, nil)

	_, err := s.FetchNextBatch(ctx, "", 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeResolution))
}

func TestFetchNextBatch_MaxVersionsBoundsTheRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for v := int64(1); v <= 4; v++ {
		key := "data/v" + changelog.FormatCheckpoint(v) + ".json"
		f.commit(t, v, created("warehouse", key, 10))
		f.object(t, "warehouse", key, "{\"v\":"+changelog.FormatCheckpoint(v)+"}\n")
	}

	s := f.source(t, map[string]string{
		"max_versions_per_fetch": "2",
	})

	first, err := s.FetchNextBatch(ctx, "0", 0)
	require.NoError(t, err)
	require.NotNil(t, first.Dataset)
	assert.Equal(t, 2, first.Dataset.Len())
	assert.Equal(t, "2", first.Checkpoint)

	second, err := s.FetchNextBatch(ctx, first.Checkpoint, 0)
	require.NoError(t, err)
	require.NotNil(t, second.Dataset)
	assert.Equal(t, 2, second.Dataset.Len())
	assert.Equal(t, "4", second.Checkpoint)
}

func TestFetchNextBatch_FiltersAdvanceCheckpoint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.commit(t, 1,
		created("warehouse", "tmp/scratch.json", 10),
		created("warehouse", "data/empty.json", 0))

	s := f.source(t, map[string]string{
		"key_prefix": "data/",
	})

	// Every event filtered out: no dataset, but the range is consumed
	result, err := s.FetchNextBatch(ctx, "0", 0)
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	assert.Equal(t, "1", result.Checkpoint)
}

func TestFetchNextBatch_ExistenceGating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.commit(t, 1,
		created("warehouse", "data/present.json", 10),
		created("warehouse", "data/ghost.json", 10))
	f.object(t, "warehouse", "data/present.json", "{\"id\":1}\n")

	s := f.source(t, map[string]string{
		"check_file_exists": "true",
	})

	result, err := s.FetchNextBatch(ctx, "0", 0)
	require.NoError(t, err)
	require.NotNil(t, result.Dataset)
	assert.Equal(t, 1, result.Dataset.Len())
	assert.Equal(t, "s3://warehouse/data/present.json", result.Dataset.SourcePath(0))
}

func TestFetchNextBatch_PartitionInference(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches the inferred column", func(t *testing.T) {
		f := newFixture(t)
		f.commit(t, 1,
			created("warehouse", "tbl/date=2026-08-01/a.json", 10),
			created("warehouse", "tbl/date=2026-08-02/b.json", 10))
		f.object(t, "warehouse", "tbl/date=2026-08-01/a.json", "{\"id\":1}\n")
		f.object(t, "warehouse", "tbl/date=2026-08-02/b.json", "{\"id\":2}\n")

		s := f.source(t, map[string]string{
			"partition_path_field": "date",
		})

		result, err := s.FetchNextBatch(ctx, "0", 0)
		require.NoError(t, err)
		require.NotNil(t, result.Dataset)
		assert.Equal(t, []interface{}{"2026-08-01", "2026-08-02"}, result.Dataset.Column("date"))
	})

	t.Run("nested partitioning aborts the fetch", func(t *testing.T) {
		f := newFixture(t)
		f.commit(t, 1, created("warehouse", "date=2026/date=08/a.json", 10))
		f.object(t, "warehouse", "date=2026/date=08/a.json", "{\"id\":1}\n")

		s := f.source(t, map[string]string{
			"partition_path_field": "date",
		})

		_, err := s.FetchNextBatch(ctx, "0", 0)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})
}

func TestFetchNextBatch_CSVWithReaderOptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.commit(t, 1, created("warehouse", "data/d.csv", 10))
	f.object(t, "warehouse", "data/d.csv", "1|x\n2|y\n")

	s := f.source(t, map[string]string{
		"source_file_format": "csv",
		"reader_options":     `{"header":"false","delimiter":"|"}`,
	})

	result, err := s.FetchNextBatch(ctx, "0", 0)
	require.NoError(t, err)
	require.NotNil(t, result.Dataset)
	assert.Equal(t, 2, result.Dataset.Len())
	assert.Equal(t, "x", result.Dataset.Row(0)["c1"])
}

func TestSourceStateAndHealth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.commit(t, 1, created("warehouse", "data/a.json", 10))
	f.object(t, "warehouse", "data/a.json", "{\"id\":1}\n")

	s := f.source(t, nil)
	require.NoError(t, s.Health(ctx))

	_, err := s.FetchNextBatch(ctx, "0", 0)
	require.NoError(t, err)

	state := s.GetState()
	assert.Equal(t, "1", state["last_checkpoint"])
	assert.Equal(t, int64(1), state["batches_fetched"])
	assert.Equal(t, int64(1), state["rows_loaded"])

	fresh := f.source(t, nil)
	require.NoError(t, fresh.SetState(state))
	assert.Equal(t, "1", fresh.GetState()["last_checkpoint"])

	require.NoError(t, s.Close(ctx))
	assert.Error(t, s.Health(ctx))
}
