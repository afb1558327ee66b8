// Package dataset fixes the column schemas of the three UIDAI export
// datasets. The schemas are fixed by the publisher; there is no schema
// discovery.
package dataset

// Spec describes one dataset: the raw numeric columns its shards carry
// and the names they take in the master table.
type Spec struct {
	Name       string
	SumColumns []string
	Renames    map[string]string
}

// GroupColumns is the aggregation key shared by all three datasets.
func GroupColumns() []string {
	return []string{"date", "state", "district"}
}

// Enrolment holds new-enrollment counts per age band.
func Enrolment() Spec {
	return Spec{
		Name:       "enrolment",
		SumColumns: []string{"age_0_5", "age_5_17", "age_18_greater"},
	}
}

// Demographic holds demographic-update counts. The raw export's trailing
// underscore column is renamed for the master table.
func Demographic() Spec {
	return Spec{
		Name:       "demographic",
		SumColumns: []string{"demo_age_5_17", "demo_age_17_"},
		Renames: map[string]string{
			"demo_age_5_17": "demo_5_17",
			"demo_age_17_":  "demo_18_plus",
		},
	}
}

// Biometric holds biometric-update counts.
func Biometric() Spec {
	return Spec{
		Name:       "biometric",
		SumColumns: []string{"bio_age_5_17", "bio_age_17_"},
		Renames: map[string]string{
			"bio_age_5_17": "bio_5_17",
			"bio_age_17_":  "bio_18_plus",
		},
	}
}
