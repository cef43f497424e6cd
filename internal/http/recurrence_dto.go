package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/recurrence"
)

type recurrenceDTO struct {
	Frequency string `json:"frequency" validate:"required,oneof=none daily weekly monthly yearly custom"`
	// Interval defaults to one when omitted.
	Interval *int     `json:"interval"`
	Unit     string   `json:"unit" validate:"omitempty,oneof=days weeks months years"`
	Weekdays []string `json:"weekdays"`
	// MonthlyDay selects a day of month; zero falls back to the anchor's day.
	MonthlyDay int `json:"monthly_day" validate:"min=0,max=31"`
	// Ordinal selects the nth weekday of the month; -1 means the last one.
	Ordinal int    `json:"ordinal" validate:"min=-1,max=5"`
	Weekday string `json:"weekday"`
	Count   int    `json:"count" validate:"min=0"`
	Until   string `json:"until"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "su": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "mo": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tu": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "we": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "th": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "fr": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "sa": time.Saturday,
}

func parseWeekday(value string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown weekday %q", recurrence.ErrInvalidRecurrenceSpec, value)
	}
	return day, nil
}

// toRule builds the recurrence rule for an anchor on anchorDate.
func (d recurrenceDTO) toRule(anchorDate calendar.Date) (recurrence.Rule, error) {
	frequency, err := recurrence.ParseFrequency(strings.ToLower(d.Frequency))
	if err != nil {
		return recurrence.Rule{}, err
	}
	if frequency == recurrence.FrequencyNone {
		return recurrence.None(), nil
	}

	interval := 1
	if d.Interval != nil {
		interval = *d.Interval
	}
	if interval < 1 {
		return recurrence.Rule{}, fmt.Errorf("%w: interval must be at least 1, got %d", recurrence.ErrInvalidRecurrenceSpec, interval)
	}

	days := make([]time.Weekday, 0, len(d.Weekdays))
	for _, name := range d.Weekdays {
		day, err := parseWeekday(name)
		if err != nil {
			return recurrence.Rule{}, err
		}
		days = append(days, day)
	}

	var rule recurrence.Rule
	switch frequency {
	case recurrence.FrequencyDaily:
		rule = recurrence.Daily(interval)
	case recurrence.FrequencyWeekly:
		rule = recurrence.Weekly(interval, days...)
	case recurrence.FrequencyMonthly:
		if d.Ordinal != 0 {
			weekday, err := parseWeekday(d.Weekday)
			if err != nil {
				return recurrence.Rule{}, err
			}
			rule = recurrence.MonthlyOnWeekday(interval, d.Ordinal, weekday)
		} else {
			day := d.MonthlyDay
			if day == 0 {
				day = anchorDate.Day
			}
			rule = recurrence.MonthlyOnDay(interval, day)
		}
	case recurrence.FrequencyYearly:
		rule = recurrence.Yearly(interval)
	case recurrence.FrequencyCustom:
		unit, err := calendar.ParseUnit(d.Unit)
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("%w: %v", recurrence.ErrInvalidRecurrenceSpec, err)
		}
		rule = recurrence.Custom(interval, unit, days...)
	}
	if len(days) > 0 && !rule.IsWeekly() {
		return recurrence.Rule{}, fmt.Errorf("%w: weekdays require a weekly rule", recurrence.ErrInvalidRecurrenceSpec)
	}

	switch {
	case d.Count > 0 && strings.TrimSpace(d.Until) != "":
		return recurrence.Rule{}, fmt.Errorf("%w: count and until are mutually exclusive", recurrence.ErrInvalidRecurrenceSpec)
	case d.Count > 0:
		return rule.Until(recurrence.AfterOccurrences(d.Count)), nil
	case strings.TrimSpace(d.Until) != "":
		until, err := calendar.ParseDate(strings.TrimSpace(d.Until))
		if err != nil {
			return recurrence.Rule{}, err
		}
		return rule.Until(recurrence.OnDate(until)), nil
	default:
		return rule.Until(recurrence.Never()), nil
	}
}
