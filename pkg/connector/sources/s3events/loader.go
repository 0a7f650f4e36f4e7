package s3events

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/nimbus/pkg/dataset"
	"github.com/ajitpratap0/nimbus/pkg/errors"
	"github.com/ajitpratap0/nimbus/pkg/json"
	"go.uber.org/zap"
)

// loadBatch loads the final file list as one dataset through the configured
// format reader and applies partition inference
func (s *S3EventsSource) loadBatch(ctx context.Context, paths []string) (*dataset.Dataset, error) {
	options, err := parseReaderOptions(s.opts.readerOptionsJSON)
	if err != nil {
		return nil, err
	}
	if len(options) > 0 {
		s.logger.Info("reader options loaded", zap.Any("options", options))
	}

	reader, err := dataset.NewReader(s.opts.fileFormat, options, s.store)
	if err != nil {
		return nil, err
	}

	ds, err := reader.Load(ctx, paths)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to load batch files")
	}

	return s.attachPartitionColumn(ds, paths)
}

// parseReaderOptions decodes the configured JSON options map.
// Malformed JSON is a configuration error reporting the raw string.
func parseReaderOptions(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}

	var options map[string]string
	if err := json.UnmarshalString(raw, &options); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig,
			fmt.Sprintf("failed to parse reader options: %s", raw))
	}
	return options, nil
}
