package calendar

import (
	"fmt"
	"time"
)

// Unit is the step size of a calendar-aware addition.
type Unit int

const (
	UnitUnspecified Unit = iota
	UnitDays
	UnitWeeks
	UnitMonths
	UnitYears
)

var unitNames = map[Unit]string{
	UnitDays:   "days",
	UnitWeeks:  "weeks",
	UnitMonths: "months",
	UnitYears:  "years",
}

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	_, ok := unitNames[u]
	return ok
}

func (u Unit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return "unspecified"
}

// ParseUnit resolves the textual name produced by Unit.String.
func ParseUnit(value string) (Unit, error) {
	for unit, name := range unitNames {
		if name == value {
			return unit, nil
		}
	}
	return UnitUnspecified, fmt.Errorf("calendar: unknown unit %q", value)
}

// AddUnits adds n units to t. Months and years keep the wall-clock time of
// day and clamp the day of month to the last day of the target month, so
// Jan 31 + 1 month is Feb 28 (or 29). An unsupported unit returns t unchanged.
func AddUnits(t time.Time, n int, unit Unit) time.Time {
	switch unit {
	case UnitDays:
		return t.AddDate(0, 0, n)
	case UnitWeeks:
		return t.AddDate(0, 0, 7*n)
	case UnitMonths:
		return addMonths(t, n)
	case UnitYears:
		return addMonths(t, 12*n)
	default:
		return t
	}
}

func addMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	ty, tm := ShiftMonth(year, month, n)
	if last := DaysIn(ty, tm); day > last {
		day = last
	}
	return time.Date(ty, tm, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// NthWeekdayOfMonth returns the ordinal-th occurrence of weekday in the given
// month. Ordinal -1 selects the last occurrence; 1..5 count from the start.
func NthWeekdayOfMonth(year int, month time.Month, ordinal int, weekday time.Weekday) (Date, error) {
	if month < time.January || month > time.December {
		return Date{}, fmt.Errorf("%w: month %d", ErrInvalidDate, int(month))
	}
	if weekday < time.Sunday || weekday > time.Saturday {
		return Date{}, fmt.Errorf("%w: weekday %d", ErrInvalidDate, int(weekday))
	}
	last := DaysIn(year, month)
	switch {
	case ordinal == -1:
		lastWeekday := Date{Year: year, Month: month, Day: last}.Weekday()
		back := (int(lastWeekday) - int(weekday) + 7) % 7
		return Date{Year: year, Month: month, Day: last - back}, nil
	case ordinal >= 1 && ordinal <= 5:
		firstWeekday := Date{Year: year, Month: month, Day: 1}.Weekday()
		day := 1 + (int(weekday)-int(firstWeekday)+7)%7 + 7*(ordinal-1)
		if day > last {
			return Date{}, fmt.Errorf("%w: %d %s of %04d-%02d", ErrWeekdayNotInMonth, ordinal, weekday, year, int(month))
		}
		return Date{Year: year, Month: month, Day: day}, nil
	default:
		return Date{}, fmt.Errorf("%w: ordinal %d", ErrInvalidDate, ordinal)
	}
}
