package changelog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ajitpratap0/nimbus/pkg/errors"
	"github.com/ajitpratap0/nimbus/pkg/json"
	"github.com/ajitpratap0/nimbus/pkg/logger"
	"go.uber.org/zap"
)

const (
	// CommitDir is the directory under the base path holding commit files
	CommitDir = "_changelog"
	// commitExt is the commit file extension
	commitExt = ".json"
)

// Commit is the on-disk layout of one committed change-log version
type Commit struct {
	Version    int64   `json:"version"`
	CommitTime string  `json:"commit_time"`
	Events     []Event `json:"events"`
}

// CommitFileName returns the file name for a commit version. Versions are
// zero-padded so lexical ordering matches numeric ordering.
func CommitFileName(version int64) string {
	return fmt.Sprintf("%012d%s", version, commitExt)
}

// CommitLog is a Table implementation backed by ordered commit files under
// <basePath>/_changelog. Each file holds one version's events as JSON.
type CommitLog struct {
	basePath string
	logger   *zap.Logger
}

// Open opens the change-log table rooted at basePath
func Open(basePath string) (*CommitLog, error) {
	if basePath == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "change log base path is required")
	}

	info, err := os.Stat(basePath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection,
			fmt.Sprintf("cannot access change log base path %s", basePath))
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"change log base path %s is not a directory", basePath)
	}

	return &CommitLog{
		basePath: basePath,
		logger: logger.Get().With(
			zap.String("component", "commit-log"),
			zap.String("base_path", basePath),
		),
	}, nil
}

// ResolveRange implements Table
func (l *CommitLog) ResolveRange(ctx context.Context, lastCheckpoint string, maxVersions int,
	strategy MissingCheckpointStrategy) (ReadMode, VersionRange, error) {

	versions, err := l.listVersions()
	if err != nil {
		return ReadModeIncremental, VersionRange{}, err
	}

	if lastCheckpoint != "" {
		begin, err := ParseCheckpoint(lastCheckpoint)
		if err != nil {
			return ReadModeIncremental, VersionRange{}, err
		}

		end := begin
		taken := 0
		for _, v := range versions {
			if v <= begin {
				continue
			}
			end = v
			taken++
			if maxVersions > 0 && taken >= maxVersions {
				break
			}
		}
		return ReadModeIncremental, VersionRange{Begin: begin, End: end}, nil
	}

	if strategy == StrategyNone {
		return ReadModeIncremental, VersionRange{}, errors.New(errors.ErrorTypeResolution,
			"missing begin checkpoint and no missing-checkpoint strategy configured")
	}

	if len(versions) == 0 {
		return ReadModeIncremental, VersionRange{}, errors.Newf(errors.ErrorTypeResolution,
			"change log at %s has no committed versions", l.basePath)
	}

	latest := versions[len(versions)-1]

	switch strategy {
	case StrategyReadLatest:
		// Seeds the checkpoint at the latest commit. Degenerate on the
		// first run: the caller observes a caught-up range and persists
		// the returned version without consuming historical events.
		return ReadModeIncremental, VersionRange{Begin: latest, End: latest}, nil
	case StrategyReadUptoLatestCommit:
		// The table cannot resolve an incremental plan without a begin
		// version, so the caller reads the full state and filters rows
		// by commit version afterwards.
		return ReadModeSnapshotWithFilter, VersionRange{Begin: 0, End: latest}, nil
	default:
		return ReadModeIncremental, VersionRange{}, errors.Newf(errors.ErrorTypeResolution,
			"unsupported missing checkpoint strategy: %s", strategy)
	}
}

// ReadIncremental implements Table
func (l *CommitLog) ReadIncremental(ctx context.Context, rng VersionRange) ([]Row, error) {
	versions, err := l.listVersions()
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, v := range versions {
		if v <= rng.Begin || v > rng.End {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "incremental read cancelled")
		}
		commit, err := l.readCommit(v)
		if err != nil {
			return nil, err
		}
		for _, ev := range commit.Events {
			rows = append(rows, Row{CommitVersion: v, Event: ev})
		}
	}

	l.logger.Debug("incremental read complete",
		zap.String("range", rng.String()),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// ReadSnapshotFiltered implements Table
func (l *CommitLog) ReadSnapshotFiltered(ctx context.Context, beginExclusive int64) ([]Row, error) {
	versions, err := l.listVersions()
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, v := range versions {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "snapshot read cancelled")
		}
		commit, err := l.readCommit(v)
		if err != nil {
			return nil, err
		}
		// Post-hoc commit version filter approximates incremental semantics
		if v <= beginExclusive {
			continue
		}
		for _, ev := range commit.Events {
			rows = append(rows, Row{CommitVersion: v, Event: ev})
		}
	}

	l.logger.Debug("snapshot read complete",
		zap.Int64("begin_exclusive", beginExclusive),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// LatestVersion implements Table
func (l *CommitLog) LatestVersion(ctx context.Context) (int64, bool, error) {
	versions, err := l.listVersions()
	if err != nil {
		return 0, false, err
	}
	if len(versions) == 0 {
		return 0, false, nil
	}
	return versions[len(versions)-1], true, nil
}

// listVersions returns all committed versions in ascending order
func (l *CommitLog) listVersions() ([]int64, error) {
	dir := filepath.Join(l.basePath, CommitDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile,
			fmt.Sprintf("failed to list commit dir %s", dir))
	}

	versions := make([]int64, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, commitExt) {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSuffix(name, commitExt), 10, 64)
		if err != nil {
			l.logger.Warn("skipping unparseable commit file", zap.String("file", name))
			continue
		}
		versions = append(versions, v)
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

// readCommit loads and decodes one commit file
func (l *CommitLog) readCommit(version int64) (*Commit, error) {
	path := filepath.Join(l.basePath, CommitDir, CommitFileName(version))
	data, err := os.ReadFile(path) //nolint:gosec // G304: path derived from validated base path
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile,
			fmt.Sprintf("failed to read commit %d", version))
	}

	var commit Commit
	if err := json.Unmarshal(data, &commit); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData,
			fmt.Sprintf("failed to decode commit %d", version))
	}
	return &commit, nil
}
