package s3events

import (
	"context"
	"net/url"
	"sync"

	"github.com/ajitpratap0/nimbus/pkg/metrics"
	"go.uber.org/zap"
)

// materializePaths converts distinct file references into fully-qualified,
// URL-decoded object paths, optionally verifying existence. Per-reference
// failures drop the reference without aborting the batch.
//
// Existence probes are independent blocking I/O calls, so references are
// fanned out across a bounded worker pool. Each worker accumulates into its
// own slice; chunks are concatenated in order at the fan-in so the output
// is deterministic.
func (s *S3EventsSource) materializePaths(ctx context.Context, refs []FileReference) []string {
	workers := s.config.Performance.GetWorkers()
	if workers > len(refs) {
		workers = len(refs)
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (len(refs) + workers - 1) / workers
	chunks := make([][]string, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > len(refs) {
			end = len(refs)
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(w int, refs []FileReference) {
			defer wg.Done()
			chunks[w] = s.materializeChunk(ctx, refs)
		}(w, refs[start:end])
	}
	wg.Wait()

	var paths []string
	for _, chunk := range chunks {
		paths = append(paths, chunk...)
	}
	return paths
}

// materializeChunk processes one worker's share of references
func (s *S3EventsSource) materializeChunk(ctx context.Context, refs []FileReference) []string {
	connectorName := s.config.Name
	kept := make([]string, 0, len(refs))

	for _, ref := range refs {
		raw := s.opts.fsPrefix + "://" + ref.Bucket + "/" + ref.Key

		decoded, err := url.QueryUnescape(raw)
		if err != nil {
			s.logger.Warn("failed to decode object path, dropping reference",
				zap.String("path", raw),
				zap.Error(err))
			metrics.FilesDropped.WithLabelValues(connectorName, "decode").Inc()
			continue
		}

		if !s.opts.checkExists {
			kept = append(kept, decoded)
			continue
		}

		exists, err := s.store.Exists(ctx, decoded)
		if err != nil {
			s.logger.Error("existence check failed, dropping reference",
				zap.String("path", decoded),
				zap.Error(err))
			metrics.FilesDropped.WithLabelValues(connectorName, "probe_error").Inc()
			continue
		}
		if !exists {
			metrics.FilesDropped.WithLabelValues(connectorName, "missing").Inc()
			continue
		}
		kept = append(kept, decoded)
	}

	return kept
}
