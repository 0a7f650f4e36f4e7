package s3events

import (
	"strings"

	"github.com/ajitpratap0/nimbus/pkg/dataset"
	"github.com/ajitpratap0/nimbus/pkg/errors"
	"go.uber.org/zap"
)

// attachPartitionColumn inspects the first loaded path for a
// "<partitionField>=" segment and, if exactly one exists, adds a column
// named after the partition field whose value is extracted from each row's
// own source path.
//
// The first path is used as a structural sample; the batch is assumed to
// share a uniform directory layout. More than one matching segment means
// ambiguous nested partitioning, which is a fatal configuration error.
func (s *S3EventsSource) attachPartitionColumn(ds *dataset.Dataset, paths []string) (*dataset.Dataset, error) {
	if !s.opts.attachPartition || s.opts.partitionField == "" {
		return ds, nil
	}

	marker := s.opts.partitionField + "="
	samplePath := paths[0]

	matches := 0
	for _, segment := range strings.Split(samplePath, "/") {
		if strings.Contains(segment, marker) {
			matches++
		}
	}

	if matches > 1 {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"more than one level of partitioning exists in path %s for partition field %s",
			samplePath, s.opts.partitionField)
	}
	if matches == 0 {
		return ds, nil
	}

	s.logger.Info("adding partition column to dataset",
		zap.String("column", s.opts.partitionField))

	return ds.WithDerivedColumn(s.opts.partitionField, func(sourcePath string) string {
		return extractPartitionValue(sourcePath, marker)
	}), nil
}

// extractPartitionValue returns the path segment immediately following the
// partition marker, or "" when the marker is absent
func extractPartitionValue(path, marker string) string {
	_, after, found := strings.Cut(path, marker)
	if !found {
		return ""
	}
	value, _, _ := strings.Cut(after, "/")
	return value
}
