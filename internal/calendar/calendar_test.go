package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRange(t *testing.T, start, end time.Time) TimeRange {
	t.Helper()
	r, err := NewTimeRange(start, end)
	require.NoError(t, err)
	return r
}

func at(hour, minute int) time.Time {
	return time.Date(2025, time.March, 3, hour, minute, 0, 0, time.UTC)
}

func TestNewTimeRangeRejectsInvertedAndEmptyRanges(t *testing.T) {
	t.Parallel()

	_, err := NewTimeRange(at(10, 0), at(10, 0))
	require.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = NewTimeRange(at(11, 0), at(10, 0))
	require.ErrorIs(t, err, ErrInvalidTimeRange)

	r := mustRange(t, at(10, 0), at(11, 30))
	assert.Equal(t, 90*time.Minute, r.Duration())
	assert.False(t, r.IsZero())
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	t.Parallel()

	base := mustRange(t, at(10, 0), at(11, 0))
	cases := []struct {
		name  string
		other TimeRange
		want  bool
	}{
		{name: "identical", other: base, want: true},
		{name: "touching after", other: mustRange(t, at(11, 0), at(12, 0)), want: false},
		{name: "touching before", other: mustRange(t, at(9, 0), at(10, 0)), want: false},
		{name: "straddles start", other: mustRange(t, at(9, 30), at(10, 30)), want: true},
		{name: "inside", other: mustRange(t, at(10, 15), at(10, 45)), want: true},
		{name: "contains", other: mustRange(t, at(9, 0), at(12, 0)), want: true},
		{name: "zero", other: TimeRange{}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Overlaps(base, tc.other))
			assert.Equal(t, tc.want, Overlaps(tc.other, base), "overlap must be symmetric")
		})
	}
}

func TestAddUnitsClampsDayOfMonth(t *testing.T) {
	t.Parallel()

	jan31 := time.Date(2025, time.January, 31, 9, 15, 0, 0, time.UTC)
	cases := []struct {
		name string
		from time.Time
		n    int
		unit Unit
		want time.Time
	}{
		{name: "month into february", from: jan31, n: 1, unit: UnitMonths, want: time.Date(2025, time.February, 28, 9, 15, 0, 0, time.UTC)},
		{name: "leap february", from: jan31.AddDate(-1, 0, 0), n: 1, unit: UnitMonths, want: time.Date(2024, time.February, 29, 9, 15, 0, 0, time.UTC)},
		{name: "two months keeps day", from: jan31, n: 2, unit: UnitMonths, want: time.Date(2025, time.March, 31, 9, 15, 0, 0, time.UTC)},
		{name: "backwards", from: time.Date(2025, time.March, 31, 9, 15, 0, 0, time.UTC), n: -1, unit: UnitMonths, want: time.Date(2025, time.February, 28, 9, 15, 0, 0, time.UTC)},
		{name: "leap day plus year", from: time.Date(2024, time.February, 29, 8, 0, 0, 0, time.UTC), n: 1, unit: UnitYears, want: time.Date(2025, time.February, 28, 8, 0, 0, 0, time.UTC)},
		{name: "weeks", from: jan31, n: 2, unit: UnitWeeks, want: time.Date(2025, time.February, 14, 9, 15, 0, 0, time.UTC)},
		{name: "days across year", from: time.Date(2024, time.December, 31, 7, 0, 0, 0, time.UTC), n: 1, unit: UnitDays, want: time.Date(2025, time.January, 1, 7, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tc.want.Equal(AddUnits(tc.from, tc.n, tc.unit)), "got %s", AddUnits(tc.from, tc.n, tc.unit))
		})
	}
}

func TestNthWeekdayOfMonth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		year    int
		month   time.Month
		ordinal int
		weekday time.Weekday
		want    Date
		wantErr error
	}{
		{name: "second tuesday", year: 2025, month: time.March, ordinal: 2, weekday: time.Tuesday, want: Date{2025, time.March, 11}},
		{name: "last friday", year: 2025, month: time.March, ordinal: -1, weekday: time.Friday, want: Date{2025, time.March, 28}},
		{name: "fifth saturday", year: 2025, month: time.March, ordinal: 5, weekday: time.Saturday, want: Date{2025, time.March, 29}},
		{name: "missing fifth friday", year: 2025, month: time.February, ordinal: 5, weekday: time.Friday, wantErr: ErrWeekdayNotInMonth},
		{name: "ordinal zero", year: 2025, month: time.March, ordinal: 0, weekday: time.Monday, wantErr: ErrInvalidDate},
		{name: "ordinal six", year: 2025, month: time.March, ordinal: 6, weekday: time.Monday, wantErr: ErrInvalidDate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NthWeekdayOfMonth(tc.year, tc.month, tc.ordinal, tc.weekday)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.weekday, got.Weekday())
		})
	}
}

func TestWeekdayNotInMonthIsAnInvalidDate(t *testing.T) {
	t.Parallel()
	assert.True(t, errors.Is(ErrWeekdayNotInMonth, ErrInvalidDate))
}

func TestDateHelpers(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", d.String())
	assert.Equal(t, time.Friday, d.Weekday())
	assert.Equal(t, Date{2025, time.April, 1}, d.AddDays(18))
	assert.True(t, d.Before(Date{2025, time.March, 15}))
	assert.True(t, d.After(Date{2024, time.December, 31}))

	_, err = ParseDate("2025-02-30")
	require.ErrorIs(t, err, ErrInvalidDate)
	_, err = NewDate(2025, time.February, 29)
	require.ErrorIs(t, err, ErrInvalidDate)

	loc := time.FixedZone("BRT", -3*60*60)
	clock := time.Date(2025, time.January, 1, 13, 45, 0, 0, loc)
	got := d.At(clock, loc)
	assert.Equal(t, time.Date(2025, time.March, 14, 13, 45, 0, 0, loc), got)

	// 01:00 UTC on the 15th is still the 14th in a UTC-3 zone.
	assert.Equal(t, d, DateOf(time.Date(2025, time.March, 15, 1, 0, 0, 0, time.UTC), loc))
	assert.Equal(t, 29, DaysIn(2024, time.February))
}
