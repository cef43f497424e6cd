package recurrence

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/example/room-scheduler/internal/calendar"
)

// DefaultMaxOccurrences bounds series that would otherwise never end.
const DefaultMaxOccurrences = 500

// maxSkippedSteps bounds consecutive monthly steps that produce no date
// (e.g. a 5th weekday missing from many months in a row).
const maxSkippedSteps = 400

// Expander turns an anchor occurrence and a Rule into a series of occurrences.
//
// An Expander holds no state between calls and is safe for concurrent use.
type Expander struct {
	location       *time.Location
	maxOccurrences int
}

// NewExpander constructs an Expander that performs calendar arithmetic in loc
// and never yields more than maxOccurrences items. If loc is nil, UTC is used.
// A maxOccurrences below 1 makes every recurring expansion fail with
// ErrUnboundedRecurrence.
func NewExpander(loc *time.Location, maxOccurrences int) *Expander {
	if loc == nil {
		loc = time.UTC
	}
	return &Expander{location: loc, maxOccurrences: maxOccurrences}
}

// Location returns the location used for calendar arithmetic.
func (e *Expander) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// MaxOccurrences returns the configured occurrence limit.
func (e *Expander) MaxOccurrences() int {
	return e.maxOccurrences
}

// Expand lazily yields the occurrences of rule anchored at anchor.
//
// The semantics are:
//   - The anchor is always the first occurrence.
//   - Later starts are computed from the anchor as k*Interval units so that
//     clamped months do not drift (Jan 31, Feb 28, Mar 31).
//   - Weekly rules visit week windows starting on Sunday and emit each selected
//     weekday ascending, skipping days before the anchor.
//   - Each occurrence keeps the anchor's wall-clock start and duration.
//   - Starts are strictly increasing and never repeat.
//
// On failure a single zero TimeRange is yielded alongside the error and the
// sequence stops. The sequence may be ranged over any number of times.
func (e *Expander) Expand(anchor calendar.TimeRange, rule Rule) iter.Seq2[calendar.TimeRange, error] {
	return func(yield func(calendar.TimeRange, error) bool) {
		fail := func(err error) { yield(calendar.TimeRange{}, err) }

		if anchor.IsZero() {
			fail(fmt.Errorf("%w: empty anchor", calendar.ErrInvalidTimeRange))
			return
		}
		loc := e.Location()
		anchor = anchor.In(loc)
		anchorDate := calendar.DateOf(anchor.Start(), loc)
		if err := rule.Validate(anchorDate); err != nil {
			fail(err)
			return
		}

		limit, err := e.limit(rule)
		if err != nil {
			fail(err)
			return
		}

		if !yield(anchor, nil) {
			return
		}
		if rule.Frequency == FrequencyNone {
			return
		}

		emitted := 1
		last := anchor.Start()
		duration := anchor.Duration()
		for start, err := range e.candidates(anchor.Start(), anchorDate, rule) {
			if err != nil {
				fail(err)
				return
			}
			if rule.End.Kind != EndOnDate && emitted >= limit {
				return
			}
			if !start.After(last) {
				continue
			}
			if rule.End.Kind == EndOnDate && calendar.DateOf(start, loc).After(rule.End.Date) {
				return
			}
			if emitted >= limit {
				fail(fmt.Errorf("%w: series ending %s has more than %d occurrences", ErrUnboundedRecurrence, rule.End.Date, limit))
				return
			}

			occurrence, err := calendar.NewTimeRange(start, start.Add(duration))
			if err != nil {
				fail(err)
				return
			}
			if !yield(occurrence, nil) {
				return
			}
			emitted++
			last = start
		}
	}
}

// Collect materializes Expand, returning the first error encountered.
func (e *Expander) Collect(anchor calendar.TimeRange, rule Rule) ([]calendar.TimeRange, error) {
	var occurrences []calendar.TimeRange
	for occurrence, err := range e.Expand(anchor, rule) {
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, occurrence)
	}
	return occurrences, nil
}

func (e *Expander) limit(rule Rule) (int, error) {
	if rule.Frequency == FrequencyNone {
		return 1, nil
	}
	if e.maxOccurrences < 1 {
		return 0, fmt.Errorf("%w: occurrence limit must be at least 1, got %d", ErrUnboundedRecurrence, e.maxOccurrences)
	}
	if rule.End.Kind == EndAfterOccurrences {
		if rule.End.Count > e.maxOccurrences {
			return 0, fmt.Errorf("%w: %d occurrences requested, limit is %d", ErrUnboundedRecurrence, rule.End.Count, e.maxOccurrences)
		}
		return rule.End.Count, nil
	}
	return e.maxOccurrences, nil
}

// candidates yields an infinite, non-decreasing stream of candidate starts.
// Candidates at or before the anchor are filtered by the caller.
func (e *Expander) candidates(anchorStart time.Time, anchorDate calendar.Date, rule Rule) iter.Seq2[time.Time, error] {
	loc := e.Location()
	unit := rule.stepUnit()

	switch {
	case rule.IsWeekly():
		return weeklyCandidates(anchorStart, anchorDate, rule, loc)
	case rule.Frequency == FrequencyMonthly:
		return monthlyCandidates(anchorStart, anchorDate, rule, loc)
	default:
		return func(yield func(time.Time, error) bool) {
			for k := 1; ; k++ {
				if !yield(calendar.AddUnits(anchorStart, k*rule.Interval, unit), nil) {
					return
				}
			}
		}
	}
}

func weeklyCandidates(anchorStart time.Time, anchorDate calendar.Date, rule Rule, loc *time.Location) iter.Seq2[time.Time, error] {
	days := rule.sortedWeekdays(anchorDate)
	windowStart := anchorDate.AddDays(-int(anchorDate.Weekday()))
	return func(yield func(time.Time, error) bool) {
		for k := 0; ; k++ {
			window := windowStart.AddDays(7 * k * rule.Interval)
			for _, day := range days {
				if !yield(window.AddDays(int(day)).At(anchorStart, loc), nil) {
					return
				}
			}
		}
	}
}

func monthlyCandidates(anchorStart time.Time, anchorDate calendar.Date, rule Rule, loc *time.Location) iter.Seq2[time.Time, error] {
	mode := *rule.Monthly
	return func(yield func(time.Time, error) bool) {
		skipped := 0
		for k := 0; ; k++ {
			year, month := calendar.ShiftMonth(anchorDate.Year, anchorDate.Month, k*rule.Interval)

			var date calendar.Date
			switch mode.Kind {
			case MonthlyOnDayOfMonth:
				day := min(mode.Day, calendar.DaysIn(year, month))
				date = calendar.Date{Year: year, Month: month, Day: day}
			case MonthlyOnOrdinalWeekday:
				d, err := calendar.NthWeekdayOfMonth(year, month, mode.Ordinal, mode.Weekday)
				if errors.Is(err, calendar.ErrWeekdayNotInMonth) {
					skipped++
					if skipped > maxSkippedSteps {
						yield(time.Time{}, fmt.Errorf("%w: no month matches ordinal %d %s", ErrInvalidRecurrenceSpec, mode.Ordinal, mode.Weekday))
						return
					}
					continue
				}
				if err != nil {
					yield(time.Time{}, err)
					return
				}
				date = d
			}
			skipped = 0
			if !yield(date.At(anchorStart, loc), nil) {
				return
			}
		}
	}
}
