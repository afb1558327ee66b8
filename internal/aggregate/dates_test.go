package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLake_Aggregate_ParseDayFirst(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "day first dashes", input: "03-04-2011", want: time.Date(2011, time.April, 3, 0, 0, 0, 0, time.UTC)},
		{name: "day first slashes", input: "25/12/2023", want: time.Date(2023, time.December, 25, 0, 0, 0, 0, time.UTC)},
		{name: "day first dots", input: "01.02.2020", want: time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{name: "iso", input: "2021-07-15", want: time.Date(2021, time.July, 15, 0, 0, 0, 0, time.UTC)},
		{name: "month name", input: "05-Mar-2019", want: time.Date(2019, time.March, 5, 0, 0, 0, 0, time.UTC)},
		{name: "unpadded slashes", input: "7/8/2022", want: time.Date(2022, time.August, 7, 0, 0, 0, 0, time.UTC)},
		{name: "unpadded dashes", input: "3-4-2011", want: time.Date(2011, time.April, 3, 0, 0, 0, 0, time.UTC)},
		{name: "unpadded dots", input: "1.2.2020", want: time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{name: "surrounding whitespace", input: " 03-04-2011 ", want: time.Date(2011, time.April, 3, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDayFirst(tt.input)
			require.NoError(t, err)
			require.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestLake_Aggregate_ParseDayFirst_Rejects(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "not a date", "31-02-2020", "2020-13-01", "99/99/9999", "12"} {
		_, err := ParseDayFirst(input)
		require.Error(t, err, "input %q must not parse", input)
	}
}
