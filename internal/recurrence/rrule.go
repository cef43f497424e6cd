package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/room-scheduler/internal/calendar"
)

var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ParseRRule converts an RFC 5545 RRULE value (with or without the "RRULE:"
// prefix) into a Rule. An empty value yields None. Monthly rules without a
// BYMONTHDAY or BYDAY part repeat on the anchor's day of month. A floating
// UNTIL is read in loc and the last date is taken in loc.
//
// Only the parts Rule can express are accepted: FREQ, INTERVAL, COUNT, UNTIL,
// BYDAY (weekly, or a single weekday on monthly rules), BYMONTHDAY (monthly),
// a single BYSETPOS (monthly) and WKST=SU. Anything else is rejected with
// ErrInvalidRecurrenceSpec rather than ignored.
func ParseRRule(value string, anchor calendar.Date, loc *time.Location) (Rule, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "RRULE:")
	if value == "" {
		return None(), nil
	}
	if loc == nil {
		loc = time.UTC
	}

	parts, err := rrulePartNames(value)
	if err != nil {
		return Rule{}, err
	}
	opt, err := rrule.StrToROptionInLocation(value, loc)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidRecurrenceSpec, err)
	}

	rule := Rule{Interval: 1}
	if parts["INTERVAL"] {
		if opt.Interval < 1 {
			return Rule{}, fmt.Errorf("%w: INTERVAL must be at least 1, got %d", ErrInvalidRecurrenceSpec, opt.Interval)
		}
		rule.Interval = opt.Interval
	}

	switch opt.Freq {
	case rrule.DAILY:
		rule.Frequency = FrequencyDaily
	case rrule.WEEKLY:
		rule.Frequency = FrequencyWeekly
		for _, wd := range opt.Byweekday {
			if wd.N() != 0 {
				return Rule{}, fmt.Errorf("%w: weekly BYDAY takes no ordinal", ErrInvalidRecurrenceSpec)
			}
			rule.Weekdays = append(rule.Weekdays, fromRRuleWeekday(wd))
		}
	case rrule.MONTHLY:
		rule.Frequency = FrequencyMonthly
		mode, err := monthlyFromOption(opt, anchor)
		if err != nil {
			return Rule{}, err
		}
		rule.Monthly = mode
	case rrule.YEARLY:
		rule.Frequency = FrequencyYearly
	default:
		return Rule{}, fmt.Errorf("%w: unsupported frequency %s", ErrInvalidRecurrenceSpec, opt.Freq)
	}
	if err := checkRRuleParts(parts, opt, rule); err != nil {
		return Rule{}, err
	}

	switch {
	case parts["COUNT"] && parts["UNTIL"]:
		return Rule{}, fmt.Errorf("%w: COUNT and UNTIL are mutually exclusive", ErrInvalidRecurrenceSpec)
	case parts["COUNT"]:
		if opt.Count < 1 {
			return Rule{}, fmt.Errorf("%w: COUNT must be at least 1, got %d", ErrInvalidRecurrenceSpec, opt.Count)
		}
		rule.End = AfterOccurrences(opt.Count)
	case parts["UNTIL"]:
		rule.End = OnDate(calendar.DateOf(opt.Until, loc))
	default:
		rule.End = Never()
	}
	return rule, nil
}

// rrulePartNames returns the part names present in value. Repeated parts are
// rejected.
func rrulePartNames(value string) (map[string]bool, error) {
	parts := make(map[string]bool)
	for _, attr := range strings.Split(value, ";") {
		name, _, _ := strings.Cut(attr, "=")
		name = strings.ToUpper(strings.TrimSpace(name))
		if parts[name] {
			return nil, fmt.Errorf("%w: %s given twice", ErrInvalidRecurrenceSpec, name)
		}
		parts[name] = true
	}
	return parts, nil
}

func checkRRuleParts(parts map[string]bool, opt *rrule.ROption, rule Rule) error {
	for name := range parts {
		switch name {
		case "FREQ", "INTERVAL", "COUNT", "UNTIL":
		case "BYDAY":
			if rule.Frequency != FrequencyWeekly && rule.Frequency != FrequencyMonthly {
				return fmt.Errorf("%w: BYDAY requires a weekly or monthly rule", ErrInvalidRecurrenceSpec)
			}
		case "BYMONTHDAY", "BYSETPOS":
			if rule.Frequency != FrequencyMonthly {
				return fmt.Errorf("%w: %s requires a monthly rule", ErrInvalidRecurrenceSpec, name)
			}
		case "WKST":
			// Week windows start on Sunday; other starts only matter for
			// multi-week steps over several weekdays.
			if opt.Wkst != rrule.SU && rule.Interval > 1 && len(rule.Weekdays) > 1 {
				return fmt.Errorf("%w: WKST=%s is not supported", ErrInvalidRecurrenceSpec, opt.Wkst)
			}
		default:
			return fmt.Errorf("%w: %s is not supported", ErrInvalidRecurrenceSpec, name)
		}
	}
	return nil
}

func monthlyFromOption(opt *rrule.ROption, anchor calendar.Date) (*MonthlyMode, error) {
	if len(opt.Bysetpos) > 1 {
		return nil, fmt.Errorf("%w: BYSETPOS must name a single position", ErrInvalidRecurrenceSpec)
	}
	if len(opt.Bysetpos) == 1 && len(opt.Byweekday) == 0 {
		return nil, fmt.Errorf("%w: BYSETPOS requires BYDAY", ErrInvalidRecurrenceSpec)
	}
	switch {
	case len(opt.Bymonthday) > 0 && len(opt.Byweekday) > 0:
		return nil, fmt.Errorf("%w: BYMONTHDAY and BYDAY cannot be combined", ErrInvalidRecurrenceSpec)
	case len(opt.Bymonthday) == 1 && opt.Bymonthday[0] > 0:
		return OnDayOfMonth(opt.Bymonthday[0]), nil
	case len(opt.Bymonthday) > 0:
		return nil, fmt.Errorf("%w: BYMONTHDAY must name a single positive day", ErrInvalidRecurrenceSpec)
	case len(opt.Byweekday) == 1:
		wd := opt.Byweekday[0]
		ordinal := wd.N()
		if len(opt.Bysetpos) == 1 {
			if ordinal != 0 {
				return nil, fmt.Errorf("%w: BYSETPOS cannot follow an ordinal BYDAY", ErrInvalidRecurrenceSpec)
			}
			ordinal = opt.Bysetpos[0]
		}
		if ordinal == 0 {
			return nil, fmt.Errorf("%w: monthly BYDAY requires an ordinal", ErrInvalidRecurrenceSpec)
		}
		return OnOrdinalWeekday(ordinal, fromRRuleWeekday(wd)), nil
	case len(opt.Byweekday) > 1:
		return nil, fmt.Errorf("%w: monthly BYDAY must name a single weekday", ErrInvalidRecurrenceSpec)
	default:
		return OnDayOfMonth(anchor.Day), nil
	}
}

// RRule renders r as an RRULE value without the "RRULE:" prefix. None renders
// as the empty string.
func (r Rule) RRule() (string, error) {
	if r.Frequency == FrequencyNone {
		return "", nil
	}

	opt := rrule.ROption{Interval: r.Interval}
	switch r.stepUnit() {
	case calendar.UnitDays:
		opt.Freq = rrule.DAILY
	case calendar.UnitWeeks:
		opt.Freq = rrule.WEEKLY
		for _, day := range r.Weekdays {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[day])
		}
	case calendar.UnitMonths:
		opt.Freq = rrule.MONTHLY
		if r.Monthly != nil {
			switch r.Monthly.Kind {
			case MonthlyOnDayOfMonth:
				opt.Bymonthday = []int{r.Monthly.Day}
			case MonthlyOnOrdinalWeekday:
				opt.Byweekday = []rrule.Weekday{rruleWeekdays[r.Monthly.Weekday].Nth(r.Monthly.Ordinal)}
			}
		}
	case calendar.UnitYears:
		opt.Freq = rrule.YEARLY
	default:
		return "", fmt.Errorf("%w: %s rule has no RRULE form", ErrInvalidRecurrenceSpec, r.Frequency)
	}

	switch r.End.Kind {
	case EndAfterOccurrences:
		opt.Count = r.End.Count
	case EndOnDate:
		opt.Until = time.Date(r.End.Date.Year, r.End.Date.Month, r.End.Date.Day, 23, 59, 59, 0, time.UTC)
	}
	return opt.RRuleString(), nil
}

func fromRRuleWeekday(wd rrule.Weekday) time.Weekday {
	// rrule numbers weekdays from Monday = 0.
	return time.Weekday((wd.Day() + 1) % 7)
}
