// Package states resolves normalized state text against the official list
// of Indian states and union territories. Resolution is exact-match only:
// no fuzzy matching and no abbreviation expansion. Anything that does not
// resolve is a data-quality drop, not an error.
package states

// Vocabulary maps normalized state-name variants to the canonical
// official display name.
type Vocabulary map[string]string

// Master returns the canonical vocabulary covering every Indian state and
// union territory. Keys are in normalized form (see internal/normalize).
func Master() Vocabulary {
	return Vocabulary{
		// States
		"andhra pradesh":    "Andhra Pradesh",
		"arunachal pradesh": "Arunachal Pradesh",
		"assam":             "Assam",
		"bihar":             "Bihar",
		"chhattisgarh":      "Chhattisgarh",
		"goa":               "Goa",
		"gujarat":           "Gujarat",
		"haryana":           "Haryana",
		"himachal pradesh":  "Himachal Pradesh",
		"jharkhand":         "Jharkhand",
		"karnataka":         "Karnataka",
		"kerala":            "Kerala",
		"madhya pradesh":    "Madhya Pradesh",
		"maharashtra":       "Maharashtra",
		"manipur":           "Manipur",
		"meghalaya":         "Meghalaya",
		"mizoram":           "Mizoram",
		"nagaland":          "Nagaland",
		"odisha":            "Odisha",
		"punjab":            "Punjab",
		"rajasthan":         "Rajasthan",
		"sikkim":            "Sikkim",
		"tamil nadu":        "Tamil Nadu",
		"telangana":         "Telangana",
		"tripura":           "Tripura",
		"uttar pradesh":     "Uttar Pradesh",
		"uttarakhand":       "Uttarakhand",
		"west bengal":       "West Bengal",

		// Union territories
		"andaman and nicobar islands":              "Andaman and Nicobar Islands",
		"chandigarh":                               "Chandigarh",
		"dadra and nagar haveli and daman and diu": "Dadra and Nagar Haveli and Daman and Diu",
		"delhi":                                    "Delhi",
		"jammu and kashmir":                        "Jammu and Kashmir",
		"ladakh":                                   "Ladakh",
		"lakshadweep":                              "Lakshadweep",
		"puducherry":                               "Puducherry",
	}
}

// Resolver maps normalized state text to its canonical name. The
// vocabulary is copied at construction so callers cannot mutate it
// afterwards, and tests can inject alternate vocabularies.
type Resolver struct {
	vocab Vocabulary
}

// NewResolver builds a Resolver over the given vocabulary.
func NewResolver(vocab Vocabulary) *Resolver {
	copied := make(Vocabulary, len(vocab))
	for k, v := range vocab {
		copied[k] = v
	}
	return &Resolver{vocab: copied}
}

// Resolve returns the canonical display name for normalized state text,
// or ok=false when the value has no entry.
func (r *Resolver) Resolve(normalized string) (string, bool) {
	canonical, ok := r.vocab[normalized]
	return canonical, ok
}

// Len reports the number of variants in the vocabulary.
func (r *Resolver) Len() int {
	return len(r.vocab)
}
