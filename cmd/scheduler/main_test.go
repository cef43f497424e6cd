package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/audit"
	"github.com/example/room-scheduler/internal/config"
	"github.com/example/room-scheduler/internal/persistence/sqlite"
	"github.com/example/room-scheduler/internal/recurrence"
	"github.com/example/room-scheduler/internal/scheduler"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const weeklyRequest = `{"room_id":"sala-1","requester_id":"ana",
	"start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z",
	"rrule":"FREQ=WEEKLY;COUNT=3"}`

func TestExpand(t *testing.T) {
	t.Parallel()

	engine := scheduler.NewEngine(recurrence.NewExpander(time.UTC, recurrence.DefaultMaxOccurrences))
	booked, err := scheduler.NewExistingBooking("b-1", "sala-1",
		time.Date(2024, 5, 13, 9, 30, 0, 0, time.UTC),
		time.Date(2024, 5, 13, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	t.Run("classifies against the snapshot", func(t *testing.T) {
		t.Parallel()
		result, err := expand(engine, strings.NewReader(weeklyRequest), []scheduler.ExistingBooking{booked}, time.Time{})
		require.NoError(t, err)

		assert.Equal(t, "partially_conflicting", result.Outcome)
		require.Len(t, result.Occurrences, 3)
		assert.Equal(t, "accepted", result.Occurrences[0].Status)
		assert.Equal(t, "conflicting", result.Occurrences[1].Status)
		assert.Equal(t, "b-1", result.Occurrences[1].ConflictsWith)
		assert.Equal(t, time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC), result.Occurrences[2].Start.UTC())
	})

	t.Run("marks occurrences before now invalid", func(t *testing.T) {
		t.Parallel()
		result, err := expand(engine, strings.NewReader(weeklyRequest), nil, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		assert.Equal(t, "invalid", result.Occurrences[0].Status)
		assert.Equal(t, "partially_conflicting", result.Outcome)
	})

	t.Run("rejects malformed documents", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			doc  string
		}{
			{name: "not json", doc: `room`},
			{name: "end before start", doc: `{"room_id":"sala-1","requester_id":"ana","start":"2024-05-06T10:00:00Z","end":"2024-05-06T09:00:00Z"}`},
			{name: "bad rrule", doc: `{"room_id":"sala-1","requester_id":"ana","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","rrule":"FREQ=NEVER"}`},
			{name: "unbounded", doc: `{"room_id":"sala-1","requester_id":"ana","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z","rrule":"FREQ=DAILY;COUNT=501"}`},
		}
		for _, tt := range tests {
			_, err := expand(engine, strings.NewReader(tt.doc), nil, time.Time{})
			assert.Error(t, err, tt.name)
		}
	})
}

func TestExpandCommand(t *testing.T) {
	t.Setenv("SCHEDULER_TIMEZONE", "UTC")
	t.Setenv("SCHEDULER_LOG_LEVEL", "error")

	bookingsPath := filepath.Join(t.TempDir(), "bookings.json")
	require.NoError(t, os.WriteFile(bookingsPath, []byte(`[
		{"id":"b-1","room_id":"sala-1","start":"2024-05-13T09:30:00Z","end":"2024-05-13T10:30:00Z"},
		{"id":"b-2","room_id":"sala-2","start":"2024-05-20T09:00:00Z","end":"2024-05-20T10:00:00Z"}
	]`), 0o600))

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetIn(strings.NewReader(weeklyRequest))
	cmd.SetArgs([]string{"expand", "--bookings", bookingsPath})
	require.NoError(t, cmd.ExecuteContext(context.Background()), stderr.String())

	var result expandResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	assert.Equal(t, "partially_conflicting", result.Outcome)
	assert.NotEmpty(t, result.RequestID)
	assert.NotEmpty(t, result.SnapshotDigest)
	assert.Equal(t, "accepted", result.Occurrences[2].Status)
}

func TestConfigErrorsStopCommands(t *testing.T) {
	t.Setenv("SCHEDULER_MAX_OCCURRENCES", "many")

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetArgs([]string{"migrate"})
	err := cmd.ExecuteContext(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULER_MAX_OCCURRENCES")
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scheduler.db")
	t.Setenv("SCHEDULER_SQLITE_DSN", dbPath)
	t.Setenv("SCHEDULER_LOG_LEVEL", "error")

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetArgs([]string{"migrate", "--status"})
	require.NoError(t, cmd.ExecuteContext(context.Background()), stderr.String())
	assert.Contains(t, stdout.String(), "schema version: none")
	assert.Contains(t, stdout.String(), "pending: 001")

	stdout.Reset()
	cmd = newRootCommand(&stdout, &stderr)
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.ExecuteContext(context.Background()), stderr.String())
	assert.Contains(t, stdout.String(), "0 pending")
	assert.NotContains(t, stdout.String(), "schema version: none")
}

func TestNewPublisherFallsBackToLogs(t *testing.T) {
	t.Parallel()

	publisher, err := newPublisher(config.Config{AuditTopic: "reservation-audit"}, discardLogger)
	require.NoError(t, err)
	assert.IsType(t, &audit.LogPublisher{}, publisher)

	publisher, err = newPublisher(config.Config{KafkaBrokers: []string{"localhost:9092"}, AuditTopic: "reservation-audit"}, discardLogger)
	require.NoError(t, err)
	assert.IsType(t, &audit.KafkaPublisher{}, publisher)
}

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func (c apiClient) do(method, path, requester, body string) (int, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if requester != "" {
		req.Header.Set("X-Requester-ID", requester)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	if rec.Body.Len() == 0 || !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		return rec.Code, nil
	}
	var payload map[string]any
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return rec.Code, payload
}

func TestReservationWorkflowOverSQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "scheduler.db"), discardLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })
	require.NoError(t, storage.Migrate(ctx))

	var counter atomic.Int64
	ids := func() string { return fmt.Sprintf("id-%d", counter.Add(1)) }
	now := func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	cfg := config.Config{Location: time.UTC, MaxOccurrences: recurrence.DefaultMaxOccurrences}

	api := apiClient{t: t, handler: newHandler(cfg, discardLogger, storage, audit.Nop{}, ids, now)}

	status, body := api.do(http.MethodPost, "/rooms", "", `{"name":"Sala Azul","location":"2º andar","capacity":10}`)
	require.Equal(t, http.StatusCreated, status, body)
	roomID := body["room"].(map[string]any)["id"].(string)

	request := fmt.Sprintf(`{"room_id":%q,"title":"Planejamento","start":"2024-05-06T09:00:00Z","end":"2024-05-06T10:00:00Z",
		"recurrence":{"frequency":"weekly","count":2}}`, roomID)

	status, body = api.do(http.MethodPost, "/previews", "ana", request)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "all_accepted", body["result"].(map[string]any)["outcome"])

	status, body = api.do(http.MethodPost, "/reservations", "ana", request)
	require.Equal(t, http.StatusCreated, status, body)
	first := body["reservation"].(map[string]any)
	firstID := first["id"].(string)
	assert.Equal(t, "FREQ=WEEKLY;INTERVAL=1;COUNT=2", first["recurrence"])
	require.Len(t, first["items"], 2)

	status, body = api.do(http.MethodPost, "/reservations/"+firstID+"/approve", "gestor", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, body["reviewed"], 2)
	assert.Equal(t, "approved", body["reservation"].(map[string]any)["status"])

	status, body = api.do(http.MethodGet, "/rooms/"+roomID+"/bookings", "", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, body["bookings"], 2)

	overlapping := fmt.Sprintf(`{"room_id":%q,"start":"2024-05-13T09:30:00Z","end":"2024-05-13T10:30:00Z"}`, roomID)
	status, body = api.do(http.MethodPost, "/reservations", "bia", overlapping)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "all_conflicting", body["result"].(map[string]any)["outcome"])
	second := body["reservation"].(map[string]any)
	secondID := second["id"].(string)
	item := second["items"].([]any)[0].(map[string]any)
	assert.Equal(t, true, item["conflict"])

	status, body = api.do(http.MethodPost, "/reservations/"+secondID+"/items/"+item["id"].(string)+"/approve", "gestor", "")
	require.Equal(t, http.StatusConflict, status, body)
	assert.Equal(t, "conflict", body["error_kind"])

	status, body = api.do(http.MethodPost, "/reservations/"+secondID+"/deny", "gestor", `{"comment":"sala ocupada"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "denied", body["reservation"].(map[string]any)["status"])

	status, body = api.do(http.MethodDelete, "/rooms/"+roomID, "", "")
	require.Equal(t, http.StatusConflict, status, body)
	assert.Equal(t, "room_in_use", body["error_kind"])

	status, _ = api.do(http.MethodGet, "/reservations/"+firstID+"/calendar.ics", "", "")
	assert.Equal(t, http.StatusOK, status)

	status, body = api.do(http.MethodGet, "/reservations?requester_id=ana", "", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, body["reservations"], 1)
}
