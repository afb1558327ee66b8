package aggregate

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the canonical serialization for parsed dates.
const DateFormat = "2006-01-02"

// Day-first layouts come before ISO so that "03-04-2011" reads as 3 April
// 2011, never 4 March. The export tooling upstream mixes all of these.
// Zero-padded layouts are fixed-width to time.Parse, so each numeric form
// also needs its unpadded variant or single-digit days and months fail.
var dayFirstLayouts = []string{
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
	"2006-01-02",
	"2006/01/02",
	"02-Jan-2006",
	"02 Jan 2006",
	"2 January 2006",
}

// ParseDayFirst parses a raw date cell with day-first interpretation and
// rejects anything that is not a valid calendar date.
func ParseDayFirst(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}
