package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/recurrence"
	"github.com/example/room-scheduler/internal/scheduler"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubReservationService struct {
	previewInput  application.ReservationInput
	submitInput   application.ReservationInput
	reviewParams  application.ReviewParams
	listRequester string

	result      scheduler.SchedulingResult
	reservation application.Reservation
	item        application.ReservationItem
	bulk        application.BulkReviewResult
	err         error
}

func (s *stubReservationService) Preview(_ context.Context, input application.ReservationInput) (scheduler.SchedulingResult, error) {
	s.previewInput = input
	return s.result, s.err
}

func (s *stubReservationService) Submit(_ context.Context, input application.ReservationInput) (application.Reservation, scheduler.SchedulingResult, error) {
	s.submitInput = input
	return s.reservation, s.result, s.err
}

func (s *stubReservationService) GetReservation(_ context.Context, id string) (application.Reservation, error) {
	if s.err != nil {
		return application.Reservation{}, s.err
	}
	if id != s.reservation.ID {
		return application.Reservation{}, application.ErrNotFound
	}
	return s.reservation, nil
}

func (s *stubReservationService) ListReservations(_ context.Context, requesterID string) ([]application.Reservation, error) {
	s.listRequester = requesterID
	return []application.Reservation{s.reservation}, s.err
}

func (s *stubReservationService) ListBookings(context.Context, string, application.BookingWindow) ([]application.Booking, error) {
	return nil, s.err
}

func (s *stubReservationService) ApproveItem(_ context.Context, params application.ReviewParams) (application.ReservationItem, error) {
	s.reviewParams = params
	return s.item, s.err
}

func (s *stubReservationService) DenyItem(_ context.Context, params application.ReviewParams) (application.ReservationItem, error) {
	s.reviewParams = params
	return s.item, s.err
}

func (s *stubReservationService) ApproveAll(_ context.Context, params application.ReviewParams) (application.BulkReviewResult, error) {
	s.reviewParams = params
	return s.bulk, s.err
}

func (s *stubReservationService) DenyAll(_ context.Context, params application.ReviewParams) (application.BulkReviewResult, error) {
	s.reviewParams = params
	return s.bulk, s.err
}

type stubRoomService struct {
	created application.RoomInput
	updated application.UpdateRoomParams
	deleted string
	rooms   []application.Room
	window  application.BookingWindow
	err     error
}

func (s *stubRoomService) CreateRoom(_ context.Context, input application.RoomInput) (application.Room, error) {
	s.created = input
	if s.err != nil {
		return application.Room{}, s.err
	}
	return application.Room{ID: "room-1", Name: input.Name, Location: input.Location, Capacity: input.Capacity, Active: true}, nil
}

func (s *stubRoomService) UpdateRoom(_ context.Context, params application.UpdateRoomParams) (application.Room, error) {
	s.updated = params
	if s.err != nil {
		return application.Room{}, s.err
	}
	return application.Room{ID: params.RoomID, Name: params.Input.Name, Capacity: params.Input.Capacity}, nil
}

func (s *stubRoomService) DeleteRoom(_ context.Context, roomID string) error {
	s.deleted = roomID
	return s.err
}

func (s *stubRoomService) ListRooms(context.Context) ([]application.Room, error) {
	return s.rooms, s.err
}

func (s *stubRoomService) ListBookings(_ context.Context, roomID string, window application.BookingWindow) ([]application.Booking, error) {
	s.window = window
	if s.err != nil {
		return nil, s.err
	}
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	return []application.Booking{{ID: "b-1", RoomID: roomID, RequesterID: "ana", Start: start, End: start.Add(time.Hour)}}, nil
}

func newTestRouter(reservations *stubReservationService, rooms *stubRoomService) http.Handler {
	return NewRouter(RouterConfig{
		Rooms:        NewRoomHandler(rooms, rooms, discardLogger),
		Reservations: NewReservationHandler(reservations, time.UTC, discardLogger),
		Middleware:   []func(http.Handler) http.Handler{Recovery(discardLogger), RequesterIdentity()},
		Logger:       discardLogger,
	})
}

func serve(t *testing.T, handler http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for key, value := range header {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return payload
}

func sampleResult(t *testing.T) scheduler.SchedulingResult {
	t.Helper()
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	first, err := calendar.NewTimeRange(start, start.Add(time.Hour))
	require.NoError(t, err)
	second, err := calendar.NewTimeRange(start.AddDate(0, 0, 7), start.AddDate(0, 0, 7).Add(time.Hour))
	require.NoError(t, err)
	booking, err := scheduler.NewExistingBooking("b-9", "room-1", second.Start(), second.End())
	require.NoError(t, err)

	return scheduler.SchedulingResult{
		RequestID:      "req-1",
		SnapshotDigest: "digest",
		Outcome:        scheduler.OutcomePartiallyConflicting,
		Occurrences: []scheduler.Occurrence{
			{Index: 0, Range: first, Status: scheduler.StatusAccepted},
			{Index: 1, Range: second, Status: scheduler.StatusConflicting, ConflictsWith: &booking},
		},
	}
}

func sampleReservation() application.Reservation {
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	return application.Reservation{
		ID:          "res-1",
		Fingerprint: "req-1",
		RoomID:      "room-1",
		RequesterID: "ana",
		Title:       "Planejamento",
		Recurrence:  "FREQ=WEEKLY;INTERVAL=1;COUNT=2",
		Start:       start,
		End:         start.Add(time.Hour),
		Items: []application.ReservationItem{
			{ID: "item-1", RequestID: "res-1", Position: 0, Start: start, End: start.Add(time.Hour), Status: application.ItemApproved},
			{ID: "item-2", RequestID: "res-1", Position: 1, Start: start.AddDate(0, 0, 7), End: start.AddDate(0, 0, 7).Add(time.Hour), Status: application.ItemPending},
		},
		CreatedAt: start.AddDate(0, 0, -5),
		UpdatedAt: start.AddDate(0, 0, -5),
	}
}

func TestReservationHandlers(t *testing.T) {
	t.Parallel()

	t.Run("preview converts the recurrence object and reports conflicts per occurrence", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{result: sampleResult(t)}
		router := newTestRouter(svc, &stubRoomService{})

		body := `{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z",
			"recurrence":{"frequency":"weekly","weekdays":["monday","WE"],"count":4}}`
		rec := serve(t, router, http.MethodPost, "/previews", body, map[string]string{RequesterHeader: "ana"})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "ana", svc.previewInput.RequesterID)
		assert.Equal(t, "room-1", svc.previewInput.RoomID)
		assert.Equal(t, recurrence.Weekly(1, time.Monday, time.Wednesday).Until(recurrence.AfterOccurrences(4)), svc.previewInput.Recurrence)

		result := decodeBody(t, rec)["result"].(map[string]any)
		assert.Equal(t, "partially_conflicting", result["outcome"])
		occurrences := result["occurrences"].([]any)
		require.Len(t, occurrences, 2)
		conflicting := occurrences[1].(map[string]any)
		assert.Equal(t, "conflicting", conflicting["status"])
		assert.Equal(t, "b-9", conflicting["conflicts_with"].(map[string]any)["id"])
		assert.NotContains(t, occurrences[0].(map[string]any), "conflicts_with")
	})

	t.Run("preview accepts an rrule string", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{result: sampleResult(t)}
		router := newTestRouter(svc, &stubRoomService{})

		body := `{"room_id":"room-1","requester_id":"bia","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","rrule":"FREQ=DAILY;INTERVAL=2;COUNT=5"}`
		rec := serve(t, router, http.MethodPost, "/previews", body, map[string]string{RequesterHeader: "ana"})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "bia", svc.previewInput.RequesterID)
		assert.Equal(t, recurrence.FrequencyDaily, svc.previewInput.Recurrence.Frequency)
		assert.Equal(t, 2, svc.previewInput.Recurrence.Interval)
		assert.Equal(t, recurrence.AfterOccurrences(5), svc.previewInput.Recurrence.End)
	})

	t.Run("omitted interval defaults to one", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{result: sampleResult(t)}
		body := `{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","recurrence":{"frequency":"weekly","interval":3,"count":2}}`
		rec := serve(t, newTestRouter(svc, &stubRoomService{}), http.MethodPost, "/previews", body, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 3, svc.previewInput.Recurrence.Interval)

		body = `{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","recurrence":{"frequency":"weekly","count":2}}`
		rec = serve(t, newTestRouter(svc, &stubRoomService{}), http.MethodPost, "/previews", body, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 1, svc.previewInput.Recurrence.Interval)
	})

	t.Run("monthly recurrence defaults to the anchor day", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{result: sampleResult(t)}
		router := newTestRouter(svc, &stubRoomService{})

		body := `{"room_id":"room-1","start":"2024-01-31T09:00:00Z","end":"2024-01-31T10:00:00Z",
			"recurrence":{"frequency":"monthly","until":"2024-06-30"}}`
		rec := serve(t, router, http.MethodPost, "/previews", body, nil)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		want := recurrence.MonthlyOnDay(1, 31).Until(recurrence.OnDate(calendar.Date{Year: 2024, Month: time.June, Day: 30}))
		assert.Equal(t, want, svc.previewInput.Recurrence)
	})

	t.Run("invalid bodies", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name       string
			body       string
			wantStatus int
			wantKind   string
			wantField  string
		}{
			{name: "malformed json", body: `{"room_id":`, wantStatus: http.StatusBadRequest},
			{name: "missing room", body: `{"start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z"}`, wantStatus: http.StatusUnprocessableEntity, wantKind: "validation", wantField: "room_id"},
			{name: "missing end", body: `{"room_id":"room-1","start":"2024-05-06T09:00:00Z"}`, wantStatus: http.StatusUnprocessableEntity, wantKind: "validation", wantField: "end"},
			{name: "unknown frequency", body: `{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","recurrence":{"frequency":"hourly"}}`, wantStatus: http.StatusUnprocessableEntity, wantKind: "validation", wantField: "recurrence.frequency"},
			{name: "unknown weekday", body: `{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","recurrence":{"frequency":"weekly","weekdays":["someday"]}}`, wantStatus: http.StatusUnprocessableEntity, wantKind: "invalid_recurrence"},
			{name: "count with until", body: `{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","recurrence":{"frequency":"daily","count":2,"until":"2024-06-01"}}`, wantStatus: http.StatusUnprocessableEntity, wantKind: "invalid_recurrence"},
			{name: "bad until date", body: `{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","recurrence":{"frequency":"daily","until":"06/01/2024"}}`, wantStatus: http.StatusUnprocessableEntity, wantKind: "invalid_date"},
			{name: "zero interval", body: `{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","recurrence":{"frequency":"daily","interval":0,"count":3}}`, wantStatus: http.StatusUnprocessableEntity, wantKind: "invalid_recurrence"},
			{name: "negative interval", body: `{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","recurrence":{"frequency":"weekly","interval":-4,"count":3}}`, wantStatus: http.StatusUnprocessableEntity, wantKind: "invalid_recurrence"},
			{name: "zero rrule interval", body: `{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","rrule":"FREQ=DAILY;INTERVAL=0;COUNT=3"}`, wantStatus: http.StatusUnprocessableEntity, wantKind: "invalid_recurrence"},
			{name: "unsupported rrule part", body: `{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","rrule":"FREQ=YEARLY;BYMONTH=3"}`, wantStatus: http.StatusUnprocessableEntity, wantKind: "invalid_recurrence"},
			{name: "zero participants", body: `{"room_id":"room-1","participants":0,"start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z"}`, wantStatus: http.StatusUnprocessableEntity, wantKind: "validation", wantField: "participants"},
			{name: "bad rrule", body: `{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","rrule":"FREQ=SOMETIMES"}`, wantStatus: http.StatusUnprocessableEntity, wantKind: "invalid_recurrence"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				svc := &stubReservationService{}
				rec := serve(t, newTestRouter(svc, &stubRoomService{}), http.MethodPost, "/previews", tt.body, nil)

				require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
				payload := decodeBody(t, rec)
				assert.NotEmpty(t, payload["message"])
				if tt.wantKind != "" {
					assert.Equal(t, tt.wantKind, payload["error_kind"])
				}
				if tt.wantField != "" {
					assert.Contains(t, payload["errors"], tt.wantField)
				}
				assert.Empty(t, svc.previewInput.RoomID)
			})
		}
	})

	t.Run("scheduling errors from the service map to 422", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{err: scheduler.ErrUnboundedRecurrence}
		rec := serve(t, newTestRouter(svc, &stubRoomService{}), http.MethodPost, "/previews",
			`{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","recurrence":{"frequency":"daily"}}`, nil)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		payload := decodeBody(t, rec)
		assert.Equal(t, "unbounded_recurrence", payload["error_kind"])
		assert.Equal(t, "A recorrência gera ocorrências demais.", payload["message"])
	})

	t.Run("service validation errors are localized", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{err: &application.ValidationError{FieldErrors: map[string]string{"requester_id": "requester is required"}}}
		rec := serve(t, newTestRouter(svc, &stubRoomService{}), http.MethodPost, "/reservations",
			`{"room_id":"room-1","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z"}`, nil)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		errs := decodeBody(t, rec)["errors"].(map[string]any)
		assert.Equal(t, "O solicitante é obrigatório.", errs["requester_id"])
	})

	t.Run("participants over capacity are reported per field", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{err: &application.ValidationError{FieldErrors: map[string]string{"participants": "participants must be at most 10"}}}
		rec := serve(t, newTestRouter(svc, &stubRoomService{}), http.MethodPost, "/reservations",
			`{"room_id":"room-1","participants":12,"start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z"}`, nil)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, 12, svc.submitInput.Participants)
		errs := decodeBody(t, rec)["errors"].(map[string]any)
		assert.Equal(t, "Deve ter no máximo 10.", errs["participants"])
	})

	t.Run("submit returns the stored reservation and the result", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{result: sampleResult(t), reservation: sampleReservation()}
		rec := serve(t, newTestRouter(svc, &stubRoomService{}), http.MethodPost, "/reservations",
			`{"room_id":"room-1","title":" Planejamento ","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z"}`,
			map[string]string{RequesterHeader: "ana"})

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "Planejamento", svc.submitInput.Title)
		assert.Equal(t, recurrence.None(), svc.submitInput.Recurrence)
		assert.Zero(t, svc.submitInput.Participants)

		payload := decodeBody(t, rec)
		reservation := payload["reservation"].(map[string]any)
		assert.Equal(t, "res-1", reservation["id"])
		assert.Equal(t, "pending", reservation["status"])
		assert.Len(t, reservation["items"], 2)
		assert.Equal(t, "req-1", payload["result"].(map[string]any)["request_id"])
	})

	t.Run("get maps missing reservations to 404", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{reservation: sampleReservation()}
		router := newTestRouter(svc, &stubRoomService{})

		rec := serve(t, router, http.MethodGet, "/reservations/res-1", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "FREQ=WEEKLY;INTERVAL=1;COUNT=2", decodeBody(t, rec)["reservation"].(map[string]any)["recurrence"])

		rec = serve(t, router, http.MethodGet, "/reservations/other", "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeBody(t, rec)["error_kind"])
	})

	t.Run("list defaults to the caller identity", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{reservation: sampleReservation()}
		router := newTestRouter(svc, &stubRoomService{})

		rec := serve(t, router, http.MethodGet, "/reservations", "", map[string]string{RequesterHeader: "ana"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ana", svc.listRequester)

		rec = serve(t, router, http.MethodGet, "/reservations?requester_id=bia", "", map[string]string{RequesterHeader: "ana"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "bia", svc.listRequester)
	})

	t.Run("calendar export", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{reservation: sampleReservation()}
		rec := serve(t, newTestRouter(svc, &stubRoomService{}), http.MethodGet, "/reservations/res-1/calendar.ics", "", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
		body := rec.Body.String()
		assert.Contains(t, body, "BEGIN:VCALENDAR")
		assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
		assert.Contains(t, body, "item-1@room-scheduler")
	})

	t.Run("item review passes the path and the reviewer", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{item: application.ReservationItem{ID: "item-2", Status: application.ItemApproved}}
		rec := serve(t, newTestRouter(svc, &stubRoomService{}), http.MethodPost, "/reservations/res-1/items/item-2/approve",
			`{"comment":" ok "}`, map[string]string{RequesterHeader: "gestor"})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, application.ReviewParams{ReservationID: "res-1", ItemID: "item-2", ReviewerID: "gestor", Comment: "ok"}, svc.reviewParams)
		assert.Equal(t, "approved", decodeBody(t, rec)["item"].(map[string]any)["status"])
	})

	t.Run("item review conflicts map to 409", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			err         error
			wantKind    string
			wantMessage string
		}{
			{err: application.ErrConflict, wantKind: "conflict", wantMessage: "O horário conflita com uma reserva já aprovada."},
			{err: application.ErrAlreadyReviewed, wantKind: "already_reviewed", wantMessage: "Este item já foi avaliado."},
		}
		for _, tt := range tests {
			svc := &stubReservationService{err: tt.err}
			rec := serve(t, newTestRouter(svc, &stubRoomService{}), http.MethodPost, "/reservations/res-1/items/item-2/deny", "", map[string]string{RequesterHeader: "gestor"})

			require.Equal(t, http.StatusConflict, rec.Code)
			payload := decodeBody(t, rec)
			assert.Equal(t, tt.wantKind, payload["error_kind"])
			assert.Equal(t, tt.wantMessage, payload["message"])
		}
	})

	t.Run("bulk review reports reviewed and skipped items", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{bulk: application.BulkReviewResult{
			Reservation: sampleReservation(),
			Reviewed:    []string{"item-1"},
		}}
		rec := serve(t, newTestRouter(svc, &stubRoomService{}), http.MethodPost, "/reservations/res-1/approve",
			`{"reviewer_id":"gestor"}`, nil)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "gestor", svc.reviewParams.ReviewerID)
		assert.Empty(t, svc.reviewParams.ItemID)
		payload := decodeBody(t, rec)
		assert.Equal(t, []any{"item-1"}, payload["reviewed"])
		assert.Equal(t, []any{}, payload["skipped"])
	})

	t.Run("unexpected errors map to 500", func(t *testing.T) {
		t.Parallel()
		svc := &stubReservationService{err: errors.New("disk on fire")}
		rec := serve(t, newTestRouter(svc, &stubRoomService{}), http.MethodPost, "/reservations/res-1/deny", "", nil)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		payload := decodeBody(t, rec)
		assert.Equal(t, "unexpected", payload["error_kind"])
		assert.NotContains(t, payload["message"], "disk")
	})
}

func TestRoomHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create trims the payload", func(t *testing.T) {
		t.Parallel()
		rooms := &stubRoomService{}
		rec := serve(t, newTestRouter(&stubReservationService{}, rooms), http.MethodPost, "/rooms",
			`{"name":" Sala Azul ","location":"2º andar","capacity":8,"facilities":" projetor "}`, nil)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "Sala Azul", rooms.created.Name)
		require.NotNil(t, rooms.created.Facilities)
		assert.Equal(t, "projetor", *rooms.created.Facilities)
		assert.Nil(t, rooms.created.Active)
		assert.Equal(t, "room-1", decodeBody(t, rec)["room"].(map[string]any)["id"])
	})

	t.Run("create validates fields", func(t *testing.T) {
		t.Parallel()
		rooms := &stubRoomService{}
		rec := serve(t, newTestRouter(&stubReservationService{}, rooms), http.MethodPost, "/rooms", `{"location":"térreo","capacity":0}`, nil)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		errs := decodeBody(t, rec)["errors"].(map[string]any)
		assert.Equal(t, "Campo obrigatório.", errs["name"])
		assert.Equal(t, "Deve ser no mínimo 1.", errs["capacity"])
		assert.Empty(t, rooms.created.Name)
	})

	t.Run("duplicate names map to 409", func(t *testing.T) {
		t.Parallel()
		rooms := &stubRoomService{err: application.ErrAlreadyExists}
		rec := serve(t, newTestRouter(&stubReservationService{}, rooms), http.MethodPost, "/rooms",
			`{"name":"Sala Azul","location":"térreo","capacity":4}`, nil)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Já existe uma sala com este nome.", decodeBody(t, rec)["message"])
	})

	t.Run("update and delete use the path id", func(t *testing.T) {
		t.Parallel()
		rooms := &stubRoomService{}
		router := newTestRouter(&stubReservationService{}, rooms)

		rec := serve(t, router, http.MethodPut, "/rooms/room-7", `{"name":"Sala Verde","location":"térreo","capacity":6,"active":false}`, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "room-7", rooms.updated.RoomID)
		require.NotNil(t, rooms.updated.Input.Active)
		assert.False(t, *rooms.updated.Input.Active)

		rec = serve(t, router, http.MethodDelete, "/rooms/room-7", "", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "room-7", rooms.deleted)
	})

	t.Run("delete of a referenced room maps to 409", func(t *testing.T) {
		t.Parallel()
		rooms := &stubRoomService{err: application.ErrRoomInUse}
		rec := serve(t, newTestRouter(&stubReservationService{}, rooms), http.MethodDelete, "/rooms/room-7", "", nil)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "room_in_use", decodeBody(t, rec)["error_kind"])
	})

	t.Run("bookings parse the window", func(t *testing.T) {
		t.Parallel()
		rooms := &stubRoomService{}
		router := newTestRouter(&stubReservationService{}, rooms)

		rec := serve(t, router, http.MethodGet, "/rooms/room-1/bookings?from=2024-05-01T00:00:00Z&to=2024-06-01T00:00:00Z", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), rooms.window.From)
		assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), rooms.window.To)
		bookings := decodeBody(t, rec)["bookings"].([]any)
		require.Len(t, bookings, 1)
		assert.Equal(t, "2024-05-06T09:00:00Z", bookings[0].(map[string]any)["start"])

		rec = serve(t, router, http.MethodGet, "/rooms/room-1/bookings?from=yesterday", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouterFallbacks(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubReservationService{}, &stubRoomService{})

	rec := serve(t, router, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = serve(t, router, http.MethodGet, "/nowhere", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "O recurso solicitado não foi encontrado.", decodeBody(t, rec)["message"])

	rec = serve(t, router, http.MethodPatch, "/rooms/room-1", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Método não permitido para este recurso.", decodeBody(t, rec)["message"])
}
