// Package dataset provides the in-memory dataset produced by batch loads
// and the file-format readers that populate it.
package dataset

// Row is one loaded record
type Row map[string]interface{}

// Dataset holds loaded rows in load order. Each row remembers the object
// path it was loaded from so derived columns can be computed from path
// structure.
type Dataset struct {
	rows    []Row
	sources []string
}

// NewDataset creates an empty dataset
func NewDataset() *Dataset {
	return &Dataset{}
}

// Append adds a row loaded from sourcePath
func (d *Dataset) Append(row Row, sourcePath string) {
	d.rows = append(d.rows, row)
	d.sources = append(d.sources, sourcePath)
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Rows returns the loaded rows in order
func (d *Dataset) Rows() []Row {
	return d.rows
}

// Row returns the i-th row
func (d *Dataset) Row(i int) Row {
	return d.rows[i]
}

// SourcePath returns the object path the i-th row was loaded from
func (d *Dataset) SourcePath(i int) string {
	return d.sources[i]
}

// WithDerivedColumn sets a column on every row, deriving the value from the
// row's source file path. Returns the dataset for chaining.
func (d *Dataset) WithDerivedColumn(name string, derive func(sourcePath string) string) *Dataset {
	for i, row := range d.rows {
		row[name] = derive(d.sources[i])
	}
	return d
}

// Column collects the named column across all rows; missing values are nil
func (d *Dataset) Column(name string) []interface{} {
	values := make([]interface{}, len(d.rows))
	for i, row := range d.rows {
		values[i] = row[name]
	}
	return values
}
