package businessday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("10/01/2024")
	require.ErrorIs(t, err, ErrInvalidDate)

	d, err := ParseDate(" 2024-01-10 ")
	require.NoError(t, err)
	require.Equal(t, Date("2024-01-10"), d)
}

func TestTodayUsesConfiguredTimezone(t *testing.T) {
	// 22:30 UTC is already the next day in Dubai (UTC+4).
	fixed := time.Date(2024, 1, 10, 22, 30, 0, 0, time.UTC)
	clock, err := NewClock("Asia/Dubai", WithNow(func() time.Time { return fixed }))
	require.NoError(t, err)

	require.Equal(t, Date("2024-01-11"), clock.Today())
}

func TestBoundsCoverWholeDay(t *testing.T) {
	clock, err := NewClock("Asia/Dubai")
	require.NoError(t, err)

	start, end := Date("2024-01-10").Bounds(clock.Location())
	require.Equal(t, 0, start.Hour())
	require.Equal(t, 10, start.Day())
	require.Equal(t, 23, end.Hour())
	require.Equal(t, 59, end.Minute())
	require.Equal(t, 10, end.Day())
	require.Equal(t, "+04", start.Format("-07"))
}

func TestParseTimeOfDayFormats(t *testing.T) {
	clock, err := NewClock("Asia/Dubai")
	require.NoError(t, err)
	day := Date("2024-01-10")

	cases := map[string][2]int{
		"09:00":    {9, 0},
		"21:15":    {21, 15},
		"9:00 am":  {9, 0},
		"9:30 PM":  {21, 30},
		"12:05 AM": {0, 5},
		"7pm":      {19, 0},
	}
	for raw, want := range cases {
		got, err := clock.ParseTimeOfDay(day, raw)
		require.NoError(t, err, raw)
		require.Equal(t, want[0], got.Hour(), raw)
		require.Equal(t, want[1], got.Minute(), raw)
		require.Equal(t, day, clock.DateOf(got), raw)
	}

	_, err = clock.ParseTimeOfDay(day, "25:00")
	require.ErrorIs(t, err, ErrInvalidTime)
}

func TestParseTimeOfDayAcceptsRFC3339(t *testing.T) {
	clock, err := NewClock("Asia/Dubai")
	require.NoError(t, err)

	got, err := clock.ParseTimeOfDay("2024-01-10", "2024-01-10T05:00:00Z")
	require.NoError(t, err)
	require.Equal(t, 9, got.Hour())
}
