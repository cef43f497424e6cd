// Package http exposes the room scheduler over a JSON API routed with
// httprouter.
//
// The router serves:
//   - POST /previews: schedules a reservation request against the room's
//     current bookings without persisting it. Body: {"room_id","start","end",
//     "recurrence" | "rrule","requester_id","title","purpose","participants"}.
//     Conflicts are reported per occurrence with status 200. Participants
//     beyond the room capacity answer 422.
//   - POST /reservations, GET /reservations?requester_id=, GET /reservations/{id}:
//     submit and read reservations. Every occurrence becomes a pending item.
//   - GET /reservations/{id}/calendar.ics: the items as an iCalendar document.
//   - POST /reservations/{id}/approve, POST /reservations/{id}/deny and the
//     per item variants under /reservations/{id}/items/{item}/: reviews. Body:
//     {"reviewer_id","comment"}. Approving over a confirmed booking answers 409.
//   - GET /rooms, POST /rooms, PUT /rooms/{id}, DELETE /rooms/{id}: room catalog.
//   - GET /rooms/{id}/bookings?from=&to=: confirmed bookings of a room.
//   - GET /healthz: liveness.
//
// The caller identity travels in the X-Requester-ID header when the body does
// not carry one. User facing messages are in Brazilian Portuguese.
package http
