package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfWeek_SaturdayStart(t *testing.T) {
	loc := time.UTC
	// 2024-06-15 is a Saturday.
	cases := []struct {
		day  int
		want int
	}{
		{15, 15}, // Saturday
		{16, 15}, // Sunday
		{17, 15}, // Monday
		{21, 15}, // Friday
		{22, 22}, // next Saturday
	}

	for _, tc := range cases {
		ts := time.Date(2024, 6, tc.day, 13, 30, 0, 0, loc)
		assert.Equal(t, Date(2024, 6, tc.want), StartOfWeek(ts, loc), "day %d", tc.day)
		assert.Equal(t, Date(2024, 6, tc.want).AddDate(0, 0, 6), EndOfWeek(ts, loc), "day %d", tc.day)
	}
}

func TestStartOfWeek_UsesLocalCalendarDate(t *testing.T) {
	tehran := time.FixedZone("IRST", 3*3600+1800)
	// Friday 22:00 UTC is already Saturday 01:30 in Tehran.
	ts := time.Date(2024, 6, 21, 22, 0, 0, 0, time.UTC)

	assert.Equal(t, Date(2024, 6, 15), StartOfWeek(ts, time.UTC))
	assert.Equal(t, Date(2024, 6, 22), StartOfWeek(ts, tehran))
}

func TestDaysSinceSaturday(t *testing.T) {
	assert.Equal(t, 0, DaysSinceSaturday(time.Saturday))
	assert.Equal(t, 1, DaysSinceSaturday(time.Sunday))
	assert.Equal(t, 2, DaysSinceSaturday(time.Monday))
	assert.Equal(t, 6, DaysSinceSaturday(time.Friday))
}

func TestFullDays(t *testing.T) {
	assert.Equal(t, 0, FullDays(0))
	assert.Equal(t, 0, FullDays(time.Second))
	assert.Equal(t, 1, FullDays(24*time.Hour))
	assert.Equal(t, 1, FullDays(47*time.Hour))
	assert.Equal(t, -1, FullDays(-time.Second))
}

func TestWallClockSub_IgnoresOffsetChanges(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// Spring forward on 2024-03-10: only 23 real hours between the two midnights.
	from := time.Date(2024, 3, 10, 0, 0, 0, 0, ny)
	to := time.Date(2024, 3, 11, 0, 0, 0, 0, ny)

	assert.Equal(t, 23*time.Hour, to.Sub(from))
	assert.Equal(t, 24*time.Hour, WallClockSub(to, from, ny))
}

func TestCivilDateRoundTrip(t *testing.T) {
	d, err := ParseCivil("2024-02-29")
	assert.NoError(t, err)
	assert.Equal(t, Date(2024, 2, 29), d)
	assert.Equal(t, "2024-02-29", FormatCivil(d))
	assert.Equal(t, 3, DaysBetween(Date(2024, 2, 27), Date(2024, 3, 1)))
}

func TestLoadLocation_FallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation(""))
	assert.Equal(t, time.UTC, LoadLocation("Nowhere/Atlantis"))
}
