package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/example/room-scheduler/internal/calendar"
)

var (
	// ErrInvalidRecurrenceSpec indicates a structurally invalid recurrence rule.
	ErrInvalidRecurrenceSpec = errors.New("recurrence: invalid recurrence rule")
	// ErrUnboundedRecurrence indicates a series that would exceed the occurrence limit.
	ErrUnboundedRecurrence = errors.New("recurrence: series exceeds the occurrence limit")
)

// Frequency represents supported recurrence variants.
type Frequency int

const (
	// FrequencyNone produces only the anchor occurrence.
	FrequencyNone Frequency = iota
	// FrequencyDaily repeats every Interval days.
	FrequencyDaily
	// FrequencyWeekly repeats every Interval weeks on the selected weekdays.
	FrequencyWeekly
	// FrequencyMonthly repeats every Interval months following a MonthlyMode.
	FrequencyMonthly
	// FrequencyYearly repeats every Interval years on the anchor's month and day.
	FrequencyYearly
	// FrequencyCustom repeats every Interval of an explicit Unit.
	FrequencyCustom
)

var frequencyNames = map[Frequency]string{
	FrequencyNone:    "none",
	FrequencyDaily:   "daily",
	FrequencyWeekly:  "weekly",
	FrequencyMonthly: "monthly",
	FrequencyYearly:  "yearly",
	FrequencyCustom:  "custom",
}

func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("frequency(%d)", int(f))
}

// ParseFrequency resolves the name produced by Frequency.String.
func ParseFrequency(value string) (Frequency, error) {
	for freq, name := range frequencyNames {
		if name == value {
			return freq, nil
		}
	}
	return FrequencyNone, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRecurrenceSpec, value)
}

// MonthlyKind selects how a monthly rule picks its day.
type MonthlyKind int

const (
	MonthlyUnspecified MonthlyKind = iota
	// MonthlyOnDayOfMonth repeats on a fixed day, clamped to short months.
	MonthlyOnDayOfMonth
	// MonthlyOnOrdinalWeekday repeats on e.g. the 2nd Tuesday or the last Friday.
	MonthlyOnOrdinalWeekday
)

// MonthlyMode configures FrequencyMonthly rules.
type MonthlyMode struct {
	Kind    MonthlyKind
	Day     int
	Ordinal int
	Weekday time.Weekday
}

// OnDayOfMonth builds a day-of-month monthly mode.
func OnDayOfMonth(day int) *MonthlyMode {
	return &MonthlyMode{Kind: MonthlyOnDayOfMonth, Day: day}
}

// OnOrdinalWeekday builds an ordinal-weekday monthly mode; ordinal -1 means last.
func OnOrdinalWeekday(ordinal int, weekday time.Weekday) *MonthlyMode {
	return &MonthlyMode{Kind: MonthlyOnOrdinalWeekday, Ordinal: ordinal, Weekday: weekday}
}

// EndKind selects how a series terminates.
type EndKind int

const (
	EndNever EndKind = iota
	EndAfterOccurrences
	EndOnDate
)

// End describes the termination condition of a series.
type End struct {
	Kind  EndKind
	Count int
	Date  calendar.Date
}

// Never returns an open-ended termination bounded only by the expander limit.
func Never() End { return End{Kind: EndNever} }

// AfterOccurrences stops the series after n occurrences, anchor included.
func AfterOccurrences(n int) End { return End{Kind: EndAfterOccurrences, Count: n} }

// OnDate stops the series after the last occurrence starting on or before d.
func OnDate(d calendar.Date) End { return End{Kind: EndOnDate, Date: d} }

// Rule describes how a reservation repeats after its anchor.
type Rule struct {
	Frequency Frequency
	Interval  int
	// Unit is only meaningful for FrequencyCustom.
	Unit     calendar.Unit
	Weekdays []time.Weekday
	Monthly  *MonthlyMode
	End      End
}

// None returns a rule that yields the anchor only.
func None() Rule { return Rule{Frequency: FrequencyNone} }

// Daily repeats every interval days.
func Daily(interval int) Rule {
	return Rule{Frequency: FrequencyDaily, Interval: interval}
}

// Weekly repeats every interval weeks on days, or on the anchor's weekday when days is empty.
func Weekly(interval int, days ...time.Weekday) Rule {
	return Rule{Frequency: FrequencyWeekly, Interval: interval, Weekdays: days}
}

// MonthlyOnDay repeats every interval months on the given day of month.
func MonthlyOnDay(interval, day int) Rule {
	return Rule{Frequency: FrequencyMonthly, Interval: interval, Monthly: OnDayOfMonth(day)}
}

// MonthlyOnWeekday repeats every interval months on the ordinal weekday.
func MonthlyOnWeekday(interval, ordinal int, weekday time.Weekday) Rule {
	return Rule{Frequency: FrequencyMonthly, Interval: interval, Monthly: OnOrdinalWeekday(ordinal, weekday)}
}

// Yearly repeats every interval years.
func Yearly(interval int) Rule {
	return Rule{Frequency: FrequencyYearly, Interval: interval}
}

// Custom repeats every interval units; days only apply to UnitWeeks.
func Custom(interval int, unit calendar.Unit, days ...time.Weekday) Rule {
	return Rule{Frequency: FrequencyCustom, Interval: interval, Unit: unit, Weekdays: days}
}

// Until returns a copy of r with the given termination.
func (r Rule) Until(end End) Rule {
	r.End = end
	return r
}

// IsWeekly reports whether the rule steps in week windows and accepts weekdays.
func (r Rule) IsWeekly() bool {
	return r.Frequency == FrequencyWeekly || (r.Frequency == FrequencyCustom && r.Unit == calendar.UnitWeeks)
}

// Validate performs the structural checks on r for a series anchored on the given date.
//
// Checks run in a fixed order and stop at the first failure: interval, custom
// unit, monthly mode, termination, then weekday selection.
func (r Rule) Validate(anchor calendar.Date) error {
	if _, ok := frequencyNames[r.Frequency]; !ok {
		return fmt.Errorf("%w: unknown frequency %d", ErrInvalidRecurrenceSpec, int(r.Frequency))
	}
	if r.Frequency == FrequencyNone {
		if r.Monthly != nil {
			return fmt.Errorf("%w: monthly mode requires a monthly rule", ErrInvalidRecurrenceSpec)
		}
		if len(r.Weekdays) > 0 {
			return fmt.Errorf("%w: weekdays require a weekly rule", ErrInvalidRecurrenceSpec)
		}
		return nil
	}

	if r.Interval < 1 {
		return fmt.Errorf("%w: interval must be at least 1, got %d", ErrInvalidRecurrenceSpec, r.Interval)
	}
	if r.Frequency == FrequencyCustom && !r.Unit.Valid() {
		return fmt.Errorf("%w: custom rules require a unit", ErrInvalidRecurrenceSpec)
	}
	if err := r.validateMonthly(); err != nil {
		return err
	}
	if err := r.validateEnd(anchor); err != nil {
		return err
	}
	return r.validateWeekdays()
}

func (r Rule) validateMonthly() error {
	if r.Frequency != FrequencyMonthly {
		if r.Monthly != nil {
			return fmt.Errorf("%w: monthly mode requires a monthly rule", ErrInvalidRecurrenceSpec)
		}
		return nil
	}
	if r.Monthly == nil {
		return fmt.Errorf("%w: monthly rules require a monthly mode", ErrInvalidRecurrenceSpec)
	}
	switch r.Monthly.Kind {
	case MonthlyOnDayOfMonth:
		if r.Monthly.Day < 1 || r.Monthly.Day > 31 {
			return fmt.Errorf("%w: day of month must be within 1..31, got %d", ErrInvalidRecurrenceSpec, r.Monthly.Day)
		}
	case MonthlyOnOrdinalWeekday:
		if r.Monthly.Ordinal != -1 && (r.Monthly.Ordinal < 1 || r.Monthly.Ordinal > 5) {
			return fmt.Errorf("%w: ordinal must be -1 or within 1..5, got %d", ErrInvalidRecurrenceSpec, r.Monthly.Ordinal)
		}
		if !validWeekday(r.Monthly.Weekday) {
			return fmt.Errorf("%w: weekday %d", ErrInvalidRecurrenceSpec, int(r.Monthly.Weekday))
		}
	default:
		return fmt.Errorf("%w: unknown monthly mode", ErrInvalidRecurrenceSpec)
	}
	return nil
}

func (r Rule) validateEnd(anchor calendar.Date) error {
	switch r.End.Kind {
	case EndNever:
		return nil
	case EndAfterOccurrences:
		if r.End.Count < 1 {
			return fmt.Errorf("%w: occurrence count must be at least 1, got %d", ErrInvalidRecurrenceSpec, r.End.Count)
		}
		return nil
	case EndOnDate:
		if !r.End.Date.Valid() {
			return fmt.Errorf("%w: end date %s", calendar.ErrInvalidDate, r.End.Date)
		}
		if r.End.Date.Before(anchor) {
			return fmt.Errorf("%w: end date %s is before the anchor date %s", ErrInvalidRecurrenceSpec, r.End.Date, anchor)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown end condition", ErrInvalidRecurrenceSpec)
	}
}

func (r Rule) validateWeekdays() error {
	if len(r.Weekdays) == 0 {
		return nil
	}
	if !r.IsWeekly() {
		return fmt.Errorf("%w: weekdays require a weekly rule", ErrInvalidRecurrenceSpec)
	}
	seen := make(map[time.Weekday]struct{}, len(r.Weekdays))
	for _, day := range r.Weekdays {
		if !validWeekday(day) {
			return fmt.Errorf("%w: weekday %d", ErrInvalidRecurrenceSpec, int(day))
		}
		if _, dup := seen[day]; dup {
			return fmt.Errorf("%w: duplicate weekday %s", ErrInvalidRecurrenceSpec, day)
		}
		seen[day] = struct{}{}
	}
	return nil
}

// stepUnit returns the calendar unit a rule advances by.
func (r Rule) stepUnit() calendar.Unit {
	switch r.Frequency {
	case FrequencyDaily:
		return calendar.UnitDays
	case FrequencyWeekly:
		return calendar.UnitWeeks
	case FrequencyMonthly:
		return calendar.UnitMonths
	case FrequencyYearly:
		return calendar.UnitYears
	case FrequencyCustom:
		return r.Unit
	default:
		return calendar.UnitUnspecified
	}
}

// sortedWeekdays returns the selected weekdays ascending, falling back to the anchor's.
func (r Rule) sortedWeekdays(anchor calendar.Date) []time.Weekday {
	if len(r.Weekdays) == 0 {
		return []time.Weekday{anchor.Weekday()}
	}
	days := slices.Clone(r.Weekdays)
	slices.Sort(days)
	return days
}

// Canonical renders r deterministically; equal rules render equally.
func (r Rule) Canonical() string {
	if r.Frequency == FrequencyNone {
		return "none"
	}
	var monthly string
	if r.Monthly != nil {
		monthly = fmt.Sprintf("%d/%d/%d/%d", r.Monthly.Kind, r.Monthly.Day, r.Monthly.Ordinal, r.Monthly.Weekday)
	}
	days := slices.Clone(r.Weekdays)
	slices.Sort(days)
	return fmt.Sprintf("%s;i=%d;u=%s;wd=%v;m=%s;end=%d/%d/%s",
		r.Frequency, r.Interval, r.Unit, days, monthly, r.End.Kind, r.End.Count, r.End.Date)
}

func validWeekday(day time.Weekday) bool {
	return day >= time.Sunday && day <= time.Saturday
}
