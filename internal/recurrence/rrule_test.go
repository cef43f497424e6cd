package recurrence

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/calendar"
)

func TestParseRRule(t *testing.T) {
	t.Parallel()

	anchor := calendar.Date{Year: 2025, Month: time.January, Day: 31}
	cases := []struct {
		name  string
		value string
		want  Rule
	}{
		{name: "empty", value: "", want: None()},
		{name: "legacy weekly", value: "FREQ=WEEKLY;INTERVAL=1", want: Weekly(1).Until(Never())},
		{name: "prefixed weekly with days", value: "RRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE", want: Weekly(2, time.Monday, time.Wednesday).Until(Never())},
		{name: "daily with count", value: "FREQ=DAILY;COUNT=5", want: Daily(1).Until(AfterOccurrences(5))},
		{name: "monthly defaults to anchor day", value: "FREQ=MONTHLY;INTERVAL=1", want: MonthlyOnDay(1, 31).Until(Never())},
		{name: "monthly by day", value: "FREQ=MONTHLY;BYMONTHDAY=15", want: MonthlyOnDay(1, 15).Until(Never())},
		{name: "last friday", value: "FREQ=MONTHLY;BYDAY=-1FR", want: MonthlyOnWeekday(1, -1, time.Friday).Until(Never())},
		{name: "setpos ordinal", value: "FREQ=MONTHLY;BYDAY=TU;BYSETPOS=2", want: MonthlyOnWeekday(1, 2, time.Tuesday).Until(Never())},
		{name: "yearly until", value: "FREQ=YEARLY;UNTIL=20280131T235959Z", want: Yearly(1).Until(OnDate(calendar.Date{Year: 2028, Month: time.January, Day: 31}))},
		{name: "sunday week start", value: "FREQ=WEEKLY;WKST=SU;BYDAY=TU", want: Weekly(1, time.Tuesday).Until(Never())},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRRule(tc.value, anchor, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tc.want.Canonical(), got.Canonical())
		})
	}
}

func TestParseRRuleRejectsUnsupportedRules(t *testing.T) {
	t.Parallel()

	anchor := calendar.Date{Year: 2025, Month: time.January, Day: 31}
	for _, value := range []string{
		"FREQ=HOURLY",
		"INTERVAL=2",
		"FREQ=MONTHLY;BYDAY=MO,TU",
		"FREQ=MONTHLY;BYDAY=MO",
		"FREQ=MONTHLY;BYMONTHDAY=-1",
		"not a rule",
		"FREQ=DAILY;INTERVAL=0",
		"FREQ=WEEKLY;INTERVAL=-4",
		"FREQ=DAILY;INTERVAL=2;INTERVAL=3",
		"FREQ=DAILY;COUNT=0",
		"FREQ=DAILY;COUNT=3;UNTIL=20250301T000000Z",
		"FREQ=YEARLY;BYMONTH=3",
		"FREQ=WEEKLY;BYWEEKNO=20",
		"FREQ=YEARLY;BYYEARDAY=100",
		"FREQ=DAILY;BYHOUR=9",
		"FREQ=DAILY;BYMINUTE=30",
		"FREQ=DAILY;BYSECOND=0",
		"FREQ=YEARLY;BYEASTER=0",
		"FREQ=DAILY;BYDAY=MO",
		"FREQ=YEARLY;BYDAY=MO",
		"FREQ=WEEKLY;BYDAY=2MO",
		"FREQ=WEEKLY;BYMONTHDAY=3",
		"FREQ=WEEKLY;BYDAY=MO;BYSETPOS=1",
		"FREQ=MONTHLY;BYDAY=MO;BYSETPOS=1,2",
		"FREQ=MONTHLY;BYMONTHDAY=3;BYSETPOS=1",
		"FREQ=MONTHLY;BYMONTHDAY=3;BYDAY=1MO",
		"FREQ=WEEKLY;INTERVAL=2;WKST=MO;BYDAY=MO,SU",
	} {
		_, err := ParseRRule(value, anchor, time.UTC)
		assert.ErrorIs(t, err, ErrInvalidRecurrenceSpec, value)
	}
}

func TestParseRRuleUntilInLocation(t *testing.T) {
	t.Parallel()

	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	anchor := calendar.Date{Year: 2024, Month: time.June, Day: 3}
	june30 := calendar.Date{Year: 2024, Month: time.June, Day: 30}
	july1 := calendar.Date{Year: 2024, Month: time.July, Day: 1}

	tests := []struct {
		name  string
		value string
		loc   *time.Location
		want  calendar.Date
	}{
		{name: "utc instant read in sao paulo", value: "FREQ=DAILY;UNTIL=20240701T020000Z", loc: saoPaulo, want: june30},
		{name: "utc instant read in utc", value: "FREQ=DAILY;UNTIL=20240701T020000Z", loc: time.UTC, want: july1},
		{name: "floating time stays local", value: "FREQ=DAILY;UNTIL=20240630T230000", loc: saoPaulo, want: june30},
		{name: "date only", value: "FREQ=DAILY;UNTIL=20240630", loc: saoPaulo, want: june30},
		{name: "nil location means utc", value: "FREQ=DAILY;UNTIL=20240701T020000Z", want: july1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rule, err := ParseRRule(tt.value, anchor, tt.loc)
			require.NoError(t, err)
			assert.Equal(t, OnDate(tt.want), rule.End)
		})
	}
}

func TestParseRRuleInterval(t *testing.T) {
	t.Parallel()

	anchor := calendar.Date{Year: 2025, Month: time.January, Day: 31}

	omitted, err := ParseRRule("FREQ=DAILY;COUNT=2", anchor, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, omitted.Interval)

	explicit, err := ParseRRule("FREQ=DAILY;INTERVAL=3;COUNT=2", anchor, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 3, explicit.Interval)

	for _, value := range []string{"FREQ=DAILY;INTERVAL=0", "FREQ=DAILY;INTERVAL=-4"} {
		_, err := ParseRRule(value, anchor, time.UTC)
		require.ErrorIs(t, err, ErrInvalidRecurrenceSpec, value)
		assert.Contains(t, err.Error(), "INTERVAL must be at least 1", value)
	}
}

func TestRuleRRuleRoundTrip(t *testing.T) {
	t.Parallel()

	anchor := calendar.Date{Year: 2025, Month: time.March, Day: 3}
	for _, rule := range []Rule{
		Weekly(1, time.Monday, time.Wednesday).Until(OnDate(calendar.Date{Year: 2025, Month: time.March, Day: 14})),
		MonthlyOnWeekday(1, -1, time.Friday).Until(AfterOccurrences(4)),
		MonthlyOnDay(3, 3),
		Custom(2, calendar.UnitWeeks, time.Thursday),
	} {
		value, err := rule.RRule()
		require.NoError(t, err)
		parsed, err := ParseRRule(value, anchor, time.UTC)
		require.NoError(t, err, value)
		assert.Equal(t, rule.Frequency == FrequencyCustom, parsed.Frequency != rule.Frequency, value)
		assert.Equal(t, rule.Interval, parsed.Interval, value)
		assert.Equal(t, rule.End, parsed.End, value)
	}

	value, err := None().RRule()
	require.NoError(t, err)
	assert.Empty(t, value)
}
