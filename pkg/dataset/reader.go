package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ajitpratap0/nimbus/pkg/errors"
	"github.com/ajitpratap0/nimbus/pkg/json"
	"github.com/ajitpratap0/nimbus/pkg/logger"
	"github.com/ajitpratap0/nimbus/pkg/storage"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// Supported load formats
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Reader loads object-store files of one format into a Dataset.
// Options are format-specific string settings:
//
//	csv:  "header" ("true"/"false", default "true"), "delimiter" (single
//	      rune, default ","), "comment" (single rune, default none)
//	json: none (newline-delimited objects)
//
// Files ending in ".gz" are decompressed transparently.
type Reader struct {
	format  string
	options map[string]string
	store   storage.ObjectStore
	logger  *zap.Logger
}

// NewReader creates a reader for the given format and options
func NewReader(format string, options map[string]string, store storage.ObjectStore) (*Reader, error) {
	switch format {
	case FormatJSON, FormatCSV:
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported file format: %s", format)
	}
	if store == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "object store is required")
	}
	if options == nil {
		options = map[string]string{}
	}
	return &Reader{
		format:  format,
		options: options,
		store:   store,
		logger: logger.Get().With(
			zap.String("component", "dataset-reader"),
			zap.String("format", format),
		),
	}, nil
}

// Load reads all paths into one dataset, preserving path order
func (r *Reader) Load(ctx context.Context, paths []string) (*Dataset, error) {
	ds := NewDataset()
	for _, path := range paths {
		if err := r.loadOne(ctx, path, ds); err != nil {
			return nil, err
		}
	}
	r.logger.Debug("load complete",
		zap.Int("files", len(paths)),
		zap.Int("rows", ds.Len()))
	return ds, nil
}

func (r *Reader) loadOne(ctx context.Context, path string, ds *Dataset) error {
	body, err := r.store.Open(ctx, path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to open %s", path))
	}
	defer body.Close()

	var reader io.Reader = body
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData,
				fmt.Sprintf("failed to open gzip stream %s", path))
		}
		defer gz.Close()
		reader = gz
	}

	switch r.format {
	case FormatJSON:
		return r.loadJSON(reader, path, ds)
	case FormatCSV:
		return r.loadCSV(reader, path, ds)
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported file format: %s", r.format)
	}
}

// loadJSON decodes newline-delimited JSON objects
func (r *Reader) loadJSON(reader io.Reader, path string, ds *Dataset) error {
	dec := json.NewDecoder(reader)
	for {
		var row Row
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, errors.ErrorTypeData,
				fmt.Sprintf("failed to decode JSON row in %s", path))
		}
		ds.Append(row, path)
	}
}

// loadCSV decodes delimited records, using the header row for column names
// unless header=false, in which case columns are named c0, c1, ...
func (r *Reader) loadCSV(reader io.Reader, path string, ds *Dataset) error {
	cr := csv.NewReader(reader)
	cr.ReuseRecord = false
	cr.FieldsPerRecord = -1

	if d := r.options["delimiter"]; d != "" {
		runes := []rune(d)
		if len(runes) != 1 {
			return errors.Newf(errors.ErrorTypeConfig,
				"csv delimiter must be a single character, got %q", d)
		}
		cr.Comma = runes[0]
	}
	if c := r.options["comment"]; c != "" {
		runes := []rune(c)
		if len(runes) != 1 {
			return errors.Newf(errors.ErrorTypeConfig,
				"csv comment must be a single character, got %q", c)
		}
		cr.Comment = runes[0]
	}

	hasHeader := r.options["header"] != "false"

	var columns []string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData,
				fmt.Sprintf("failed to read CSV record in %s", path))
		}

		if columns == nil {
			if hasHeader {
				columns = append(columns, record...)
				continue
			}
			columns = make([]string, len(record))
			for i := range record {
				columns[i] = fmt.Sprintf("c%d", i)
			}
		}

		row := make(Row, len(record))
		for i, value := range record {
			name := fmt.Sprintf("c%d", i)
			if i < len(columns) {
				name = columns[i]
			}
			row[name] = value
		}
		ds.Append(row, path)
	}
}
