package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatParse(t *testing.T) {
	pst, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skip("tzdata not available")
	}

	cases := []struct {
		in     time.Time
		expect string
	}{
		{
			in:     time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			expect: "2024-01-01T00:00:00Z",
		},
		{
			in:     time.Date(2024, time.January, 1, 0, 0, 0, 123456789, time.UTC),
			expect: "2024-01-01T00:00:00.123456789Z",
		},
		{
			in:     time.Date(2023, time.December, 31, 16, 0, 0, 0, pst),
			expect: "2024-01-01T00:00:00Z",
		},
	}

	for _, test := range cases {
		formatted := Format(test.in)
		require.Equal(t, test.expect, formatted)

		parsed, err := Parse(formatted)
		require.NoError(t, err)
		require.True(t, parsed.Equal(test.in))
		require.Equal(t, time.UTC, parsed.Location())
	}
}

func TestParseOffset(t *testing.T) {
	parsed, err := Parse("2024-01-01T02:00:00+02:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), parsed)
}

func TestParseInvalid(t *testing.T) {
	for _, value := range []string{"", "yesterday", "2024-01-01", "2024-01-01 00:00:00"} {
		_, err := Parse(value)
		require.Error(t, err, value)
	}
}
