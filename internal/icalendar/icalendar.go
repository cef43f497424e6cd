// Package icalendar renders reservations as RFC 5545 calendars so
// requesters can import their occurrences into a calendar client.
package icalendar

import (
	"fmt"
	"io"

	"github.com/emersion/go-ical"

	"github.com/example/room-scheduler/internal/application"
)

const productID = "-//room-scheduler//Reservations//PT"

// ContentType is the media type of Encode's output.
const ContentType = "text/calendar; charset=utf-8"

// Calendar builds a VCALENDAR holding one VEVENT per reservation item.
// DTSTAMP is the reservation's last update.
func Calendar(reservation application.Reservation) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	stamp := reservation.UpdatedAt
	if stamp.IsZero() {
		stamp = reservation.CreatedAt
	}

	for _, item := range reservation.Items {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, fmt.Sprintf("%s@room-scheduler", item.ID))
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, item.Start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, item.End.UTC())
		event.Props.SetText(ical.PropSummary, summary(reservation))
		event.Props.SetText(ical.PropStatus, eventStatus(item.Status))
		event.Props.SetText(ical.PropLocation, reservation.RoomID)
		if reservation.Purpose != "" {
			event.Props.SetText(ical.PropDescription, reservation.Purpose)
		}
		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}

// Encode writes reservation to w as an iCalendar stream. A reservation
// without items has nothing to export and is rejected.
func Encode(w io.Writer, reservation application.Reservation) error {
	if len(reservation.Items) == 0 {
		return fmt.Errorf("icalendar: reservation %s has no items", reservation.ID)
	}
	if err := ical.NewEncoder(w).Encode(Calendar(reservation)); err != nil {
		return fmt.Errorf("icalendar: encode reservation %s: %w", reservation.ID, err)
	}
	return nil
}

func summary(reservation application.Reservation) string {
	if reservation.Title != "" {
		return reservation.Title
	}
	return "Reserva " + reservation.RoomID
}

func eventStatus(status application.ItemStatus) string {
	switch status {
	case application.ItemApproved:
		return "CONFIRMED"
	case application.ItemDenied:
		return "CANCELLED"
	default:
		return "TENTATIVE"
	}
}
