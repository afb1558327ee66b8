package aggregate

import (
	"fmt"
	"slices"
	"strings"
)

// Combiner is the reduce phase of the two-phase aggregation: it folds
// per-chunk partial aggregates into a running total keyed by group key.
// Folding incrementally instead of accumulating the full partial list
// bounds memory by group-key cardinality rather than by input size.
// Summation is associative and commutative, so the result is independent
// of chunk boundaries and the order partials arrive in.
type Combiner struct {
	groupColumns []string
	sumColumns   []string
	acc          map[string]*Row
}

// NewCombiner builds a Combiner for the given column configuration.
func NewCombiner(groupColumns, sumColumns []string) *Combiner {
	return &Combiner{
		groupColumns: slices.Clone(groupColumns),
		sumColumns:   slices.Clone(sumColumns),
		acc:          make(map[string]*Row),
	}
}

// Add folds a partial aggregate into the running total. The partial must
// carry the same column configuration the Combiner was built with.
func (c *Combiner) Add(partial *Table) error {
	if !slices.Equal(partial.GroupColumns, c.groupColumns) {
		return fmt.Errorf("group columns mismatch: got %v, want %v", partial.GroupColumns, c.groupColumns)
	}
	if !slices.Equal(partial.SumColumns, c.sumColumns) {
		return fmt.Errorf("sum columns mismatch: got %v, want %v", partial.SumColumns, c.sumColumns)
	}
	for _, row := range partial.Rows {
		c.addRow(row.Groups, row.Sums)
	}
	return nil
}

func (c *Combiner) addRow(groups []string, sums []float64) {
	key := strings.Join(groups, keySep)
	row, ok := c.acc[key]
	if !ok {
		row = &Row{
			Groups: slices.Clone(groups),
			Sums:   make([]float64, len(c.sumColumns)),
		}
		c.acc[key] = row
	}
	for i, v := range sums {
		row.Sums[i] += v
	}
}

// Len reports the number of distinct group keys accumulated so far.
func (c *Combiner) Len() int {
	return len(c.acc)
}

// Result materializes the combined aggregate with exactly one row per
// distinct group key, ordered by key for deterministic output.
func (c *Combiner) Result() *Table {
	t := &Table{
		GroupColumns: slices.Clone(c.groupColumns),
		SumColumns:   slices.Clone(c.sumColumns),
		Rows:         make([]Row, 0, len(c.acc)),
	}
	keys := make([]string, 0, len(c.acc))
	for k := range c.acc {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		t.Rows = append(t.Rows, *c.acc[k])
	}
	return t
}
