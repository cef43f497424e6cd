package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/icalendar"
	"github.com/example/room-scheduler/internal/logging"
	"github.com/example/room-scheduler/internal/recurrence"
	"github.com/example/room-scheduler/internal/scheduler"
)

type reservationService interface {
	Preview(ctx context.Context, input application.ReservationInput) (scheduler.SchedulingResult, error)
	Submit(ctx context.Context, input application.ReservationInput) (application.Reservation, scheduler.SchedulingResult, error)
	GetReservation(ctx context.Context, id string) (application.Reservation, error)
	ListReservations(ctx context.Context, requesterID string) ([]application.Reservation, error)
	ListBookings(ctx context.Context, roomID string, window application.BookingWindow) ([]application.Booking, error)
	ApproveItem(ctx context.Context, params application.ReviewParams) (application.ReservationItem, error)
	DenyItem(ctx context.Context, params application.ReviewParams) (application.ReservationItem, error)
	ApproveAll(ctx context.Context, params application.ReviewParams) (application.BulkReviewResult, error)
	DenyAll(ctx context.Context, params application.ReviewParams) (application.BulkReviewResult, error)
}

type ReservationHandler struct {
	service   reservationService
	location  *time.Location
	validator *dtoValidator
	responder responder
	logger    *slog.Logger
}

// NewReservationHandler serves previews, submissions and reviews. loc is the
// location recurrence dates are interpreted in.
func NewReservationHandler(service reservationService, loc *time.Location, logger *slog.Logger) *ReservationHandler {
	if loc == nil {
		loc = time.UTC
	}
	base := logging.OrDefault(logger)
	return &ReservationHandler{
		service:   service,
		location:  loc,
		validator: newDTOValidator(),
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Scoped(ctx, h.logger, "handler", "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *ReservationHandler) Preview(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.ready(w) {
		return
	}

	input, ok := h.decodeReservation(w, r, "Preview")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Preview", "room_id", input.RoomID)
	result, err := h.service.Preview(r.Context(), input)
	if err != nil {
		logger.WarnContext(r.Context(), "preview failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("request_id", result.RequestID, "outcome", result.Outcome).DebugContext(r.Context(), "preview computed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, previewResponse{Result: toResultDTO(result)})
}

func (h *ReservationHandler) Submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.ready(w) {
		return
	}

	input, ok := h.decodeReservation(w, r, "Submit")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Submit", "room_id", input.RoomID, "requester_id", input.RequesterID)
	reservation, result, err := h.service.Submit(r.Context(), input)
	if err != nil {
		logger.WarnContext(r.Context(), "submission failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID, "outcome", result.Outcome).InfoContext(r.Context(), "reservation submitted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, submitResponse{
		Reservation: toReservationDTO(reservation),
		Result:      toResultDTO(result),
	})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.ready(w) {
		return
	}

	reservation, ok := h.load(w, r, ps, "Get")
	if !ok {
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

// List returns the reservations of the requester_id query parameter, or of
// the caller identity when the parameter is absent.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.ready(w) {
		return
	}

	requesterID := strings.TrimSpace(r.URL.Query().Get("requester_id"))
	if requesterID == "" {
		requesterID, _ = RequesterIDFromContext(r.Context())
	}

	logger := h.log(r.Context(), "List", "requester_id", requesterID)
	reservations, err := h.service.ListReservations(r.Context(), requesterID)
	if err != nil {
		logger.WarnContext(r.Context(), "reservation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: out})
}

// Calendar exports the reservation items as an iCalendar document.
func (h *ReservationHandler) Calendar(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.ready(w) {
		return
	}

	reservation, ok := h.load(w, r, ps, "Calendar")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := icalendar.Encode(&buf, reservation); err != nil {
		h.log(r.Context(), "Calendar", "reservation_id", reservation.ID).ErrorContext(r.Context(), "calendar export failed", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", icalendar.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+reservation.ID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *ReservationHandler) ApproveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.ready(w) {
		return
	}
	h.reviewItem(w, r, ps, "ApproveItem", h.service.ApproveItem)
}

func (h *ReservationHandler) DenyItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.ready(w) {
		return
	}
	h.reviewItem(w, r, ps, "DenyItem", h.service.DenyItem)
}

func (h *ReservationHandler) ApproveAll(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.ready(w) {
		return
	}
	h.reviewAll(w, r, ps, "ApproveAll", h.service.ApproveAll)
}

func (h *ReservationHandler) DenyAll(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.ready(w) {
		return
	}
	h.reviewAll(w, r, ps, "DenyAll", h.service.DenyAll)
}

func (h *ReservationHandler) reviewItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params, operation string, review func(context.Context, application.ReviewParams) (application.ReservationItem, error)) {
	params, ok := h.decodeReview(w, r, ps, operation)
	if !ok {
		return
	}
	params.ItemID = strings.TrimSpace(ps.ByName("item"))

	logger := h.log(r.Context(), operation, "reservation_id", params.ReservationID, "item_id", params.ItemID)
	item, err := review(r.Context(), params)
	if err != nil {
		logger.WarnContext(r.Context(), "item review failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", item.Status).InfoContext(r.Context(), "item reviewed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, itemResponse{Item: toItemDTO(item)})
}

func (h *ReservationHandler) reviewAll(w http.ResponseWriter, r *http.Request, ps httprouter.Params, operation string, review func(context.Context, application.ReviewParams) (application.BulkReviewResult, error)) {
	params, ok := h.decodeReview(w, r, ps, operation)
	if !ok {
		return
	}

	logger := h.log(r.Context(), operation, "reservation_id", params.ReservationID)
	result, err := review(r.Context(), params)
	if err != nil {
		logger.WarnContext(r.Context(), "bulk review failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reviewed", len(result.Reviewed), "skipped", len(result.Skipped)).InfoContext(r.Context(), "reservation reviewed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bulkReviewResponse{
		Reservation: toReservationDTO(result.Reservation),
		Reviewed:    nonNil(result.Reviewed),
		Skipped:     nonNil(result.Skipped),
	})
}

func (h *ReservationHandler) load(w http.ResponseWriter, r *http.Request, ps httprouter.Params, operation string) (application.Reservation, bool) {
	id := strings.TrimSpace(ps.ByName("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRequestID)
		return application.Reservation{}, false
	}

	reservation, err := h.service.GetReservation(r.Context(), id)
	if err != nil {
		h.log(r.Context(), operation, "reservation_id", id).WarnContext(r.Context(), "reservation lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return application.Reservation{}, false
	}
	return reservation, true
}

func (h *ReservationHandler) decodeReservation(w http.ResponseWriter, r *http.Request, operation string) (application.ReservationInput, bool) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return application.ReservationInput{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return application.ReservationInput{}, false
	}

	input, err := req.toInput(h.location)
	if err != nil {
		h.log(r.Context(), operation, "error_kind", application.ErrorKind(err)).WarnContext(r.Context(), "invalid recurrence", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return application.ReservationInput{}, false
	}
	if input.RequesterID == "" {
		input.RequesterID, _ = RequesterIDFromContext(r.Context())
	}
	return input, true
}

func (h *ReservationHandler) decodeReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params, operation string) (application.ReviewParams, bool) {
	reservationID := strings.TrimSpace(ps.ByName("id"))
	if reservationID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRequestID)
		return application.ReviewParams{}, false
	}

	var req reviewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode review request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return application.ReviewParams{}, false
		}
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return application.ReviewParams{}, false
	}

	reviewerID := strings.TrimSpace(req.ReviewerID)
	if reviewerID == "" {
		reviewerID, _ = RequesterIDFromContext(r.Context())
	}
	return application.ReviewParams{
		ReservationID: reservationID,
		ReviewerID:    reviewerID,
		Comment:       strings.TrimSpace(req.Comment),
	}, true
}

type reservationRequest struct {
	RoomID      string `json:"room_id" validate:"required"`
	RequesterID string `json:"requester_id"`
	Title       string `json:"title" validate:"max=200"`
	Purpose     string `json:"purpose" validate:"max=2000"`
	// Participants defaults to one when omitted.
	Participants *int           `json:"participants" validate:"omitempty,min=1"`
	Start        *time.Time     `json:"start" validate:"required"`
	End          *time.Time     `json:"end" validate:"required"`
	Recurrence   *recurrenceDTO `json:"recurrence"`
	// RRule is an RFC 5545 recurrence rule accepted when Recurrence is absent.
	RRule string `json:"rrule"`
}

func (r reservationRequest) toInput(loc *time.Location) (application.ReservationInput, error) {
	input := application.ReservationInput{
		RoomID:      strings.TrimSpace(r.RoomID),
		RequesterID: strings.TrimSpace(r.RequesterID),
		Title:       strings.TrimSpace(r.Title),
		Purpose:     strings.TrimSpace(r.Purpose),
		Start:       *r.Start,
		End:         *r.End,
		Recurrence:  recurrence.None(),
	}
	if r.Participants != nil {
		input.Participants = *r.Participants
	}

	anchorDate := calendar.DateOf(input.Start, loc)
	switch {
	case r.Recurrence != nil:
		rule, err := r.Recurrence.toRule(anchorDate)
		if err != nil {
			return application.ReservationInput{}, err
		}
		input.Recurrence = rule
	case strings.TrimSpace(r.RRule) != "":
		rule, err := recurrence.ParseRRule(r.RRule, anchorDate, loc)
		if err != nil {
			return application.ReservationInput{}, err
		}
		input.Recurrence = rule
	}
	return input, nil
}

type reviewRequest struct {
	ReviewerID string `json:"reviewer_id" validate:"max=100"`
	Comment    string `json:"comment" validate:"max=1000"`
}

type previewResponse struct {
	Result resultDTO `json:"result"`
}

type submitResponse struct {
	Reservation reservationDTO `json:"reservation"`
	Result      resultDTO      `json:"result"`
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type listReservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type itemResponse struct {
	Item itemDTO `json:"item"`
}

type bulkReviewResponse struct {
	Reservation reservationDTO `json:"reservation"`
	Reviewed    []string       `json:"reviewed"`
	Skipped     []string       `json:"skipped"`
}

type resultDTO struct {
	RequestID      string          `json:"request_id"`
	Outcome        string          `json:"outcome"`
	SnapshotDigest string          `json:"snapshot_digest"`
	Occurrences    []occurrenceDTO `json:"occurrences"`
}

type occurrenceDTO struct {
	Index         int                 `json:"index"`
	Start         string              `json:"start"`
	End           string              `json:"end"`
	Status        string              `json:"status"`
	ConflictsWith *conflictBookingDTO `json:"conflicts_with,omitempty"`
}

type conflictBookingDTO struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func toResultDTO(result scheduler.SchedulingResult) resultDTO {
	occurrences := make([]occurrenceDTO, 0, len(result.Occurrences))
	for _, occurrence := range result.Occurrences {
		dto := occurrenceDTO{
			Index:  occurrence.Index,
			Start:  formatTimestamp(occurrence.Range.Start()),
			End:    formatTimestamp(occurrence.Range.End()),
			Status: string(occurrence.Status),
		}
		if booking := occurrence.ConflictsWith; booking != nil {
			dto.ConflictsWith = &conflictBookingDTO{
				ID:    booking.ID,
				Start: formatTimestamp(booking.Range.Start()),
				End:   formatTimestamp(booking.Range.End()),
			}
		}
		occurrences = append(occurrences, dto)
	}
	return resultDTO{
		RequestID:      result.RequestID,
		Outcome:        string(result.Outcome),
		SnapshotDigest: result.SnapshotDigest,
		Occurrences:    occurrences,
	}
}

type reservationDTO struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	RoomID       string    `json:"room_id"`
	RequesterID  string    `json:"requester_id"`
	Title        string    `json:"title,omitempty"`
	Purpose      string    `json:"purpose,omitempty"`
	Participants int       `json:"participants"`
	Recurrence   string    `json:"recurrence,omitempty"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
	Status       string    `json:"status"`
	Items        []itemDTO `json:"items"`
	CreatedAt    string    `json:"created_at"`
	UpdatedAt    string    `json:"updated_at"`
}

type itemDTO struct {
	ID                string  `json:"id"`
	Position          int     `json:"position"`
	Start             string  `json:"start"`
	End               string  `json:"end"`
	Status            string  `json:"status"`
	Conflict          bool    `json:"conflict"`
	ConflictBookingID *string `json:"conflict_booking_id,omitempty"`
	Comment           string  `json:"comment,omitempty"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	items := make([]itemDTO, 0, len(reservation.Items))
	for _, item := range reservation.Items {
		items = append(items, toItemDTO(item))
	}
	return reservationDTO{
		ID:           reservation.ID,
		RequestID:    reservation.Fingerprint,
		RoomID:       reservation.RoomID,
		RequesterID:  reservation.RequesterID,
		Title:        reservation.Title,
		Purpose:      reservation.Purpose,
		Participants: reservation.Participants,
		Recurrence:   reservation.Recurrence,
		Start:        formatTimestamp(reservation.Start),
		End:          formatTimestamp(reservation.End),
		Status:       string(reservation.Status()),
		Items:        items,
		CreatedAt:    formatTimestamp(reservation.CreatedAt),
		UpdatedAt:    formatTimestamp(reservation.UpdatedAt),
	}
}

func toItemDTO(item application.ReservationItem) itemDTO {
	return itemDTO{
		ID:                item.ID,
		Position:          item.Position,
		Start:             formatTimestamp(item.Start),
		End:               formatTimestamp(item.End),
		Status:            string(item.Status),
		Conflict:          item.Conflict,
		ConflictBookingID: item.ConflictBookingID,
		Comment:           item.Comment,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
