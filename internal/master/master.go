// Package master merges the three per-dataset aggregates into the single
// analytics-ready master table and derives the policy metrics from it.
// Enrolment is the authoritative side of the join: update rows without a
// matching enrolment key are counted for audit and dropped.
package master

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/civicstack/uidai-lake/internal/aggregate"
	"github.com/civicstack/uidai-lake/internal/dataset"
	"github.com/civicstack/uidai-lake/internal/metrics"
)

// Row is one master-table row: the group key, the metrics from all three
// datasets (zero-filled where a dataset has no matching key), and the
// derived policy fields.
type Row struct {
	Date     string
	State    string
	District string

	Age0to5   float64
	Age5to17  float64
	Age18Plus float64

	// TotalEnrolments is floored at 1 so ChildRatio and the alert
	// threshold never divide by zero. True-zero districts therefore
	// read as 1; documented bias, not corrected.
	TotalEnrolments float64

	Demo5to17  float64
	Demo18Plus float64
	Bio5to17   float64
	Bio18Plus  float64

	UpdateBurden float64
	ChildRatio   float64
	PolicyAlert  bool
}

// Table is the merged master table, ordered by (date, state, district).
type Table struct {
	Rows []Row
}

// Merger joins the per-dataset aggregates.
type Merger struct {
	log *slog.Logger
}

// NewMerger builds a Merger; a nil logger gets a default.
func NewMerger(log *slog.Logger) *Merger {
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Merger{log: log}
}

// Merge left-joins the demographic and biometric aggregates onto the
// enrolment aggregate on (date, state, district) and computes the derived
// fields. The full table materializes at once; there is no partial
// emission.
func (m *Merger) Merge(enrolment, demographic, biometric *aggregate.Table) (*Table, error) {
	if err := checkColumns(enrolment, dataset.Enrolment().SumColumns); err != nil {
		return nil, fmt.Errorf("enrolment aggregate: %w", err)
	}
	if err := checkColumns(demographic, []string{"demo_5_17", "demo_18_plus"}); err != nil {
		return nil, fmt.Errorf("demographic aggregate: %w", err)
	}
	if err := checkColumns(biometric, []string{"bio_5_17", "bio_18_plus"}); err != nil {
		return nil, fmt.Errorf("biometric aggregate: %w", err)
	}

	demoByKey := indexByKey(demographic)
	bioByKey := indexByKey(biometric)

	t := &Table{Rows: make([]Row, 0, len(enrolment.Rows))}
	matchedDemo := 0
	matchedBio := 0
	for _, er := range enrolment.Rows {
		key := er.Key()
		row := Row{
			Date:      er.Groups[0],
			State:     er.Groups[1],
			District:  er.Groups[2],
			Age0to5:   er.Sums[0],
			Age5to17:  er.Sums[1],
			Age18Plus: er.Sums[2],
		}
		if dr, ok := demoByKey[key]; ok {
			row.Demo5to17, row.Demo18Plus = dr.Sums[0], dr.Sums[1]
			matchedDemo++
		}
		if br, ok := bioByKey[key]; ok {
			row.Bio5to17, row.Bio18Plus = br.Sums[0], br.Sums[1]
			matchedBio++
		}

		row.TotalEnrolments = row.Age0to5 + row.Age5to17 + row.Age18Plus
		if row.TotalEnrolments == 0 {
			row.TotalEnrolments = 1
		}
		row.UpdateBurden = row.Demo5to17 + row.Demo18Plus + row.Bio5to17 + row.Bio18Plus
		row.ChildRatio = row.Age0to5 / row.TotalEnrolments
		row.PolicyAlert = row.UpdateBurden > 0.5*row.TotalEnrolments

		t.Rows = append(t.Rows, row)
	}

	// Update keys with no enrolment row cannot be represented in the
	// master table; count them so the loss stays visible.
	if orphans := len(demographic.Rows) - matchedDemo; orphans > 0 {
		metrics.OrphanUpdateKeys.WithLabelValues("demographic").Add(float64(orphans))
		m.log.Warn("dropping update keys with no matching enrolment key", "dataset", "demographic", "keys", orphans)
	}
	if orphans := len(biometric.Rows) - matchedBio; orphans > 0 {
		metrics.OrphanUpdateKeys.WithLabelValues("biometric").Add(float64(orphans))
		m.log.Warn("dropping update keys with no matching enrolment key", "dataset", "biometric", "keys", orphans)
	}

	slices.SortFunc(t.Rows, func(a, b Row) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		if c := strings.Compare(a.State, b.State); c != 0 {
			return c
		}
		return strings.Compare(a.District, b.District)
	})
	return t, nil
}

// States reports the number of distinct states in the table.
func (t *Table) States() int {
	seen := make(map[string]struct{})
	for _, r := range t.Rows {
		seen[r.State] = struct{}{}
	}
	return len(seen)
}

// DateRange returns the earliest and latest dates present.
func (t *Table) DateRange() (min, max string) {
	for _, r := range t.Rows {
		if min == "" || r.Date < min {
			min = r.Date
		}
		if r.Date > max {
			max = r.Date
		}
	}
	return min, max
}

func checkColumns(t *aggregate.Table, sumColumns []string) error {
	if !slices.Equal(t.GroupColumns, dataset.GroupColumns()) {
		return fmt.Errorf("unexpected group columns %v", t.GroupColumns)
	}
	if !slices.Equal(t.SumColumns, sumColumns) {
		return fmt.Errorf("unexpected sum columns %v, want %v", t.SumColumns, sumColumns)
	}
	return nil
}

func indexByKey(t *aggregate.Table) map[string]aggregate.Row {
	byKey := make(map[string]aggregate.Row, len(t.Rows))
	for _, r := range t.Rows {
		byKey[r.Key()] = r
	}
	return byKey
}
