package s3events

import (
	"context"

	"github.com/ajitpratap0/nimbus/pkg/changelog"
	"go.uber.org/zap"
)

// resolveReadRange computes the read mode and version range for the next
// fetch. A present-but-empty checkpoint is treated the same as an absent
// one: resolution restarts from the configured missing-checkpoint strategy.
//
// The legacy read_latest_on_missing_checkpoint flag takes precedence over
// an explicitly configured strategy. This precedence is preserved for
// compatibility with existing deployments.
func (s *S3EventsSource) resolveReadRange(ctx context.Context, lastCheckpoint string) (changelog.ReadMode, changelog.VersionRange, error) {
	strategy := s.opts.strategy
	if s.opts.readLatestOnMissing {
		strategy = changelog.StrategyReadLatest
	}

	mode, rng, err := s.table.ResolveRange(ctx, lastCheckpoint, s.opts.maxVersionsPerFetch, strategy)
	if err != nil {
		return mode, rng, err
	}

	s.logger.Debug("resolved read range",
		zap.String("mode", string(mode)),
		zap.String("range", rng.String()),
		zap.String("strategy", string(strategy)),
		zap.Bool("has_checkpoint", lastCheckpoint != ""))

	return mode, rng, nil
}
