package aggregate

import (
	"fmt"
	"strings"
)

// keySep joins group values into a single map key. Unit separator keeps
// composite keys unambiguous for any printable group value.
const keySep = "\x1f"

// Row is one aggregate row: ordered group-key values plus summed metrics,
// both aligned with the parent Table's column slices.
type Row struct {
	Groups []string
	Sums   []float64
}

// Key returns the composite group key for the row.
func (r Row) Key() string {
	return strings.Join(r.Groups, keySep)
}

// Table holds one aggregate row per distinct group key.
type Table struct {
	GroupColumns []string
	SumColumns   []string
	Rows         []Row
}

// SumIndex returns the position of a sum column, or -1 when absent.
func (t *Table) SumIndex(name string) int {
	for i, c := range t.SumColumns {
		if c == name {
			return i
		}
	}
	return -1
}

// Total sums a metric column across all rows.
func (t *Table) Total(sumColumn string) (float64, error) {
	i := t.SumIndex(sumColumn)
	if i < 0 {
		return 0, fmt.Errorf("unknown sum column %q", sumColumn)
	}
	var total float64
	for _, r := range t.Rows {
		total += r.Sums[i]
	}
	return total, nil
}

// RenameSums renames metric columns in place. Columns without an entry in
// renames keep their name.
func (t *Table) RenameSums(renames map[string]string) {
	for i, c := range t.SumColumns {
		if to, ok := renames[c]; ok {
			t.SumColumns[i] = to
		}
	}
}
