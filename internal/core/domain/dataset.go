package domain

import "strings"

// Dataset is a tabular snapshot handed over by the training or inference
// pipeline: ordered column names and string-encoded cell values. Values are
// kept as strings until baseline build time, where the declared feature type
// decides how they are parsed.
type Dataset struct {
	columns []string
	values  map[string][]string
	rows    int
}

func NewDataset(columns []string, values map[string][]string) *Dataset {
	rows := 0
	for _, col := range columns {
		if n := len(values[col]); n > rows {
			rows = n
		}
	}
	return &Dataset{columns: columns, values: values, rows: rows}
}

func (d *Dataset) Columns() []string { return d.columns }

func (d *Dataset) Rows() int { return d.rows }

// Column returns the raw values of a column and whether it exists.
func (d *Dataset) Column(name string) ([]string, bool) {
	vals, ok := d.values[name]
	return vals, ok
}

// IsMissingValue reports whether a raw cell value counts as missing.
func IsMissingValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "null", "nan", "none":
		return true
	}
	return false
}
