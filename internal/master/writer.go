package master

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Header is the exact column set downstream consumers rely on.
var Header = []string{
	"date", "state", "district",
	"age_0_5", "age_5_17", "age_18_greater", "total_enrolments",
	"demo_5_17", "demo_18_plus", "bio_5_17", "bio_18_plus",
	"update_burden", "child_ratio", "policy_alert",
}

// WriteCSV persists the master table. The file is written to a temporary
// name and renamed into place, so a failed run never leaves a partial
// table for downstream consumers to misread.
func (t *Table) WriteCSV(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range t.Rows {
		record := []string{
			r.Date, r.State, r.District,
			formatFloat(r.Age0to5), formatFloat(r.Age5to17), formatFloat(r.Age18Plus),
			formatFloat(r.TotalEnrolments),
			formatFloat(r.Demo5to17), formatFloat(r.Demo18Plus),
			formatFloat(r.Bio5to17), formatFloat(r.Bio18Plus),
			formatFloat(r.UpdateBurden), formatFloat(r.ChildRatio),
			strconv.FormatBool(r.PolicyAlert),
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move table into place: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
