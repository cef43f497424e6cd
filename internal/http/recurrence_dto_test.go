package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/recurrence"
)

func TestRecurrenceDTOInterval(t *testing.T) {
	t.Parallel()

	anchor := calendar.Date{Year: 2024, Month: time.May, Day: 6}
	intervalOf := func(n int) *int { return &n }

	tests := []struct {
		name     string
		dto      recurrenceDTO
		want     int
		wantFail bool
	}{
		{name: "omitted defaults to one", dto: recurrenceDTO{Frequency: "daily", Count: 2}, want: 1},
		{name: "explicit value is kept", dto: recurrenceDTO{Frequency: "custom", Unit: "days", Interval: intervalOf(3), Count: 2}, want: 3},
		{name: "zero is rejected", dto: recurrenceDTO{Frequency: "custom", Unit: "days", Interval: intervalOf(0), Count: 2}, wantFail: true},
		{name: "negative is rejected", dto: recurrenceDTO{Frequency: "weekly", Interval: intervalOf(-4), Count: 2}, wantFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rule, err := tt.dto.toRule(anchor)
			if tt.wantFail {
				require.ErrorIs(t, err, recurrence.ErrInvalidRecurrenceSpec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rule.Interval)
		})
	}
}
