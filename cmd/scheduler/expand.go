package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/recurrence"
	"github.com/example/room-scheduler/internal/scheduler"
)

// expandRequest is the request document read by the expand command.
type expandRequest struct {
	RoomID      string    `json:"room_id"`
	RequesterID string    `json:"requester_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	RRule       string    `json:"rrule"`
}

type expandBooking struct {
	ID     string    `json:"id"`
	RoomID string    `json:"room_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

type expandOccurrence struct {
	Index         int       `json:"index"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Status        string    `json:"status"`
	ConflictsWith string    `json:"conflicts_with,omitempty"`
}

type expandResult struct {
	RequestID      string             `json:"request_id"`
	Outcome        string             `json:"outcome"`
	SnapshotDigest string             `json:"snapshot_digest"`
	Occurrences    []expandOccurrence `json:"occurrences"`
}

func newExpandCommand(state *app) *cobra.Command {
	var (
		input    string
		bookings string
		now      string
	)

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Schedule a request document offline and print the result",
		Long: `expand reads a request document such as

  {"room_id":"sala-1","requester_id":"ana","start":"2024-05-06T09:00:00-03:00",
   "end":"2024-05-06T10:00:00-03:00","rrule":"FREQ=WEEKLY;BYDAY=MO,WE;COUNT=6"}

from --input (or stdin) and prints its scheduling result as JSON. Conflicts
are detected against the bookings listed in --bookings, if given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var notBefore time.Time
			if now != "" {
				t, err := time.Parse(time.RFC3339, now)
				if err != nil {
					return fmt.Errorf("invalid --now: %w", err)
				}
				notBefore = t
			}

			in := cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var snapshot []scheduler.ExistingBooking
			if bookings != "" {
				loaded, err := readBookings(bookings)
				if err != nil {
					return err
				}
				snapshot = loaded
			}

			engine := scheduler.NewEngine(recurrence.NewExpander(state.cfg.Location, state.cfg.MaxOccurrences))
			result, err := expand(engine, in, snapshot, notBefore)
			if err != nil {
				state.logger.Warn("expansion failed", "error", err, "error_kind", scheduler.ErrorKind(err))
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "request document, - for stdin")
	cmd.Flags().StringVar(&bookings, "bookings", "", "JSON array of existing bookings")
	cmd.Flags().StringVar(&now, "now", "", "mark occurrences starting before this RFC 3339 instant invalid")
	return cmd
}

func expand(engine *scheduler.Engine, r io.Reader, snapshot []scheduler.ExistingBooking, notBefore time.Time) (expandResult, error) {
	var req expandRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return expandResult{}, fmt.Errorf("decode request: %w", err)
	}

	anchor, err := calendar.NewTimeRange(req.Start, req.End)
	if err != nil {
		return expandResult{}, err
	}
	rule, err := recurrence.ParseRRule(req.RRule, calendar.DateOf(req.Start, engine.Location()), engine.Location())
	if err != nil {
		return expandResult{}, err
	}

	result, err := engine.ScheduleWithOptions(scheduler.ReservationRequest{
		RoomID:      req.RoomID,
		Anchor:      anchor,
		Recurrence:  rule,
		RequesterID: req.RequesterID,
	}, snapshot, scheduler.Options{NotBefore: notBefore})
	if err != nil {
		return expandResult{}, err
	}

	out := expandResult{
		RequestID:      result.RequestID,
		Outcome:        string(result.Outcome),
		SnapshotDigest: result.SnapshotDigest,
		Occurrences:    make([]expandOccurrence, 0, len(result.Occurrences)),
	}
	for _, occurrence := range result.Occurrences {
		item := expandOccurrence{
			Index:  occurrence.Index,
			Start:  occurrence.Range.Start(),
			End:    occurrence.Range.End(),
			Status: string(occurrence.Status),
		}
		if occurrence.ConflictsWith != nil {
			item.ConflictsWith = occurrence.ConflictsWith.ID
		}
		out.Occurrences = append(out.Occurrences, item)
	}
	return out, nil
}

func readBookings(path string) ([]scheduler.ExistingBooking, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []expandBooking
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	snapshot := make([]scheduler.ExistingBooking, 0, len(raw))
	for _, b := range raw {
		booking, err := scheduler.NewExistingBooking(b.ID, b.RoomID, b.Start, b.End)
		if err != nil {
			return nil, err
		}
		snapshot = append(snapshot, booking)
	}
	return snapshot, nil
}
