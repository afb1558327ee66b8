package aggregate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CoercionMode names the policy applied to corrupt numeric cells.
type CoercionMode int

const (
	// CoerceLenient treats any cell that does not parse to a
	// non-negative finite number as absent: it becomes zero. This is
	// the documented policy for government exports, where corrupt
	// metric cells are routine and must not abort a run.
	CoerceLenient CoercionMode = iota
	// CoerceStrict rejects corrupt cells with an error, for callers
	// that want validation instead of the absent-value policy.
	CoerceStrict
)

// Coerce parses one numeric metric cell. The boolean reports whether the
// lenient policy replaced a corrupt value with zero.
func Coerce(raw string, mode CoercionMode) (float64, bool, error) {
	s := strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		if mode == CoerceStrict {
			return 0, false, fmt.Errorf("invalid numeric value %q", raw)
		}
		return 0, true, nil
	}
	return v, false, nil
}
