package scheduler

import (
	"cmp"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/example/room-scheduler/internal/recurrence"
)

// requestNamespace scopes the name-based UUIDs derived from reservation requests.
var requestNamespace = uuid.MustParse("6f1c7a52-3b8e-4d7a-9a53-2d1f0c4b8e11")

// Options tune a single Schedule call.
type Options struct {
	// NotBefore marks occurrences starting before it as invalid. Zero disables the check.
	NotBefore time.Time
}

// Engine validates, expands and classifies reservation requests.
//
// Engine performs no I/O and keeps no state between calls; identical inputs
// produce identical results.
type Engine struct {
	expander *recurrence.Expander
}

// NewEngine constructs an Engine around expander. If expander is nil, a UTC
// expander with recurrence.DefaultMaxOccurrences is used.
func NewEngine(expander *recurrence.Expander) *Engine {
	if expander == nil {
		expander = recurrence.NewExpander(nil, recurrence.DefaultMaxOccurrences)
	}
	return &Engine{expander: expander}
}

// Location returns the location used for calendar arithmetic.
func (e *Engine) Location() *time.Location {
	return e.expander.Location()
}

// Validate runs the request validator in the engine's location.
func (e *Engine) Validate(req ReservationRequest) error {
	return ValidateRequest(req, e.expander.Location())
}

// Plan validates req and expands it into pending occurrences.
func (e *Engine) Plan(req ReservationRequest) ([]Occurrence, error) {
	if err := e.Validate(req); err != nil {
		return nil, err
	}

	var occurrences []Occurrence
	for r, err := range e.expander.Expand(req.Anchor, req.Recurrence) {
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, Occurrence{
			Index:  len(occurrences),
			Range:  r,
			Status: StatusPending,
		})
	}
	return occurrences, nil
}

// Schedule classifies every occurrence of req against snapshot.
func (e *Engine) Schedule(req ReservationRequest, snapshot []ExistingBooking) (SchedulingResult, error) {
	return e.ScheduleWithOptions(req, snapshot, Options{})
}

// ScheduleWithOptions is Schedule with per-call options.
//
// Validation and expansion failures are returned as errors together with a
// result whose Outcome is OutcomeInvalid. Conflicts are never errors.
func (e *Engine) ScheduleWithOptions(req ReservationRequest, snapshot []ExistingBooking, opts Options) (SchedulingResult, error) {
	result := SchedulingResult{RequestID: RequestID(req)}

	occurrences, err := e.Plan(req)
	if err != nil {
		result.Outcome = OutcomeInvalid
		return result, err
	}

	bookings := bookingsForRoom(snapshot, req.RoomID)
	result.SnapshotDigest = digest(bookings)

	for i := range occurrences {
		occurrence := &occurrences[i]
		if !opts.NotBefore.IsZero() && occurrence.Range.Start().Before(opts.NotBefore) {
			occurrence.Status = StatusInvalid
			continue
		}
		classification := Classify(occurrence.Range, req.RoomID, bookings)
		if classification.Free() {
			occurrence.Status = StatusAccepted
			continue
		}
		occurrence.Status = StatusConflicting
		occurrence.ConflictsWith = classification.Conflict
	}

	result.Occurrences = occurrences
	result.Outcome = aggregate(occurrences)
	return result, nil
}

// RequestID derives a deterministic identifier from the request contents.
func RequestID(req ReservationRequest) string {
	canonical := strings.Join([]string{
		req.RoomID,
		req.Anchor.Start().UTC().Format(time.RFC3339Nano),
		req.Anchor.End().UTC().Format(time.RFC3339Nano),
		req.Recurrence.Canonical(),
		req.RequesterID,
	}, "|")
	return uuid.NewSHA1(requestNamespace, []byte(canonical)).String()
}

// SnapshotDigest fingerprints the bookings of roomID within snapshot. The
// digest ignores snapshot order and bookings of other rooms.
func SnapshotDigest(roomID string, snapshot []ExistingBooking) string {
	return digest(bookingsForRoom(snapshot, roomID))
}

// bookingsForRoom copies the bookings of roomID, preserving snapshot order.
func bookingsForRoom(snapshot []ExistingBooking, roomID string) []ExistingBooking {
	out := make([]ExistingBooking, 0, len(snapshot))
	for _, booking := range snapshot {
		if booking.RoomID == roomID {
			out = append(out, booking)
		}
	}
	return out
}

func digest(bookings []ExistingBooking) string {
	sorted := slices.Clone(bookings)
	slices.SortFunc(sorted, func(a, b ExistingBooking) int {
		return cmp.Or(
			a.Range.Start().Compare(b.Range.Start()),
			a.Range.End().Compare(b.Range.End()),
			cmp.Compare(a.ID, b.ID),
		)
	})

	var b strings.Builder
	for _, booking := range sorted {
		fmt.Fprintf(&b, "%s|%s|%d|%d\n", booking.ID, booking.RoomID,
			booking.Range.Start().UnixNano(), booking.Range.End().UnixNano())
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
