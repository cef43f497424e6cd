package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/calendar"
)

// ValidateRequest performs the structural checks on req, stopping at the
// first failure: the anchor range, the room, then the recurrence rule (whose
// weekday selection is checked last). loc determines the anchor's calendar date.
func ValidateRequest(req ReservationRequest, loc *time.Location) error {
	if req.Anchor.IsZero() || !req.Anchor.Start().Before(req.Anchor.End()) {
		return fmt.Errorf("%w: anchor is empty", ErrInvalidTimeRange)
	}
	if strings.TrimSpace(req.RoomID) == "" {
		return fmt.Errorf("%w: room id is required", ErrInvalidRequest)
	}
	return req.Recurrence.Validate(calendar.DateOf(req.Anchor.Start(), loc))
}
