package export

import "errors"

var errNoColumns = errors.New("export requires at least one column")

// Column describes one table column. Width is a relative weight used by
// layout-aware formats; zero means an even share.
type Column struct {
	Header string
	Width  float64
	Align  string
}

// Dataset defines tabular export content. Rows hold one value per column.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    [][]string
}

// Headers returns the column headers in order.
func (d Dataset) Headers() []string {
	headers := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		headers[i] = col.Header
	}
	return headers
}

// Exporter renders a Dataset into a downloadable document.
type Exporter interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
