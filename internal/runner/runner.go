// Package runner drives repeated fetch invocations of an incremental
// source, persisting the returned checkpoint between invocations.
package runner

import (
	"context"
	"os"
	"time"

	"github.com/ajitpratap0/nimbus/pkg/config"
	"github.com/ajitpratap0/nimbus/pkg/connector/core"
	"github.com/ajitpratap0/nimbus/pkg/connector/registry"
	"github.com/ajitpratap0/nimbus/pkg/errors"
	"github.com/ajitpratap0/nimbus/pkg/json"
	"github.com/ajitpratap0/nimbus/pkg/logger"
	"go.uber.org/zap"
)

// persistedState is the on-disk checkpoint layout
type persistedState struct {
	Checkpoint string    `json:"checkpoint"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Runner owns one source and its checkpoint file
type Runner struct {
	source    core.IncrementalSource
	cfg       *config.BaseConfig
	statePath string
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a runner for the configured source. The connector type in the
// config selects the registered source factory.
func New(cfg *config.BaseConfig, statePath string, interval time.Duration) (*Runner, error) {
	if statePath == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "state file path is required")
	}

	source, err := registry.CreateSource(cfg.Type, cfg)
	if err != nil {
		return nil, err
	}

	if interval <= 0 {
		interval = cfg.Performance.PollInterval
	}
	if interval <= 0 {
		interval = time.Minute
	}

	return &Runner{
		source:    source,
		cfg:       cfg,
		statePath: statePath,
		interval:  interval,
		logger: logger.Get().With(
			zap.String("component", "runner"),
			zap.String("connector", cfg.Name)),
	}, nil
}

// FetchOnce performs a single fetch and persists the returned checkpoint.
// Returns the number of rows loaded.
func (r *Runner) FetchOnce(ctx context.Context) (int, error) {
	checkpoint, err := r.loadCheckpoint()
	if err != nil {
		return 0, err
	}

	result, err := r.source.FetchNextBatch(ctx, checkpoint, 0)
	if err != nil {
		return 0, err
	}

	if err := r.saveCheckpoint(result.Checkpoint); err != nil {
		return 0, err
	}

	rows := 0
	if result.Dataset != nil {
		rows = result.Dataset.Len()
	}
	r.logger.Info("fetch complete",
		zap.Int("rows", rows),
		zap.String("checkpoint", result.Checkpoint),
		zap.Bool("empty", result.IsEmpty()))

	return rows, nil
}

// Run initializes the source and fetches on the configured interval until
// the context is cancelled
func (r *Runner) Run(ctx context.Context) error {
	if err := r.source.Initialize(ctx, r.cfg); err != nil {
		return err
	}
	defer func() {
		if err := r.source.Close(context.Background()); err != nil {
			r.logger.Error("failed to close source", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.FetchOnce(ctx); err != nil {
			if r.cfg.Reliability.FailFast {
				return err
			}
			// Retry on the next tick; the checkpoint was not advanced
			r.logger.Error("fetch failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce initializes the source, performs one fetch, and closes it
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	if err := r.source.Initialize(ctx, r.cfg); err != nil {
		return 0, err
	}
	defer func() {
		if err := r.source.Close(context.Background()); err != nil {
			r.logger.Error("failed to close source", zap.Error(err))
		}
	}()

	return r.FetchOnce(ctx)
}

// loadCheckpoint reads the persisted checkpoint, if any
func (r *Runner) loadCheckpoint() (string, error) {
	data, err := os.ReadFile(r.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to read state file")
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to decode state file")
	}
	return state.Checkpoint, nil
}

// saveCheckpoint persists the checkpoint for the next invocation
func (r *Runner) saveCheckpoint(checkpoint string) error {
	data, err := json.Marshal(persistedState{
		Checkpoint: checkpoint,
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode state")
	}

	if err := os.WriteFile(r.statePath, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write state file")
	}
	return nil
}
