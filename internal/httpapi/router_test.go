package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roombooking/internal/api"
	"roombooking/internal/audit"
	"roombooking/internal/booking"
	"roombooking/internal/claims"
	"roombooking/internal/room"
	"roombooking/internal/scheduling"
	"roombooking/internal/store/memstore"
	"roombooking/pkg/config"
)

const secret = "router-test-secret"

type identity struct{ id, name, role string }

var (
	u1 = identity{"u1", "Ani", "Mahasiswa"}
	u2 = identity{"u2", "Budi", "Dosen"}
	a1 = identity{"a1", "Admin", "Admin"}
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rooms := room.NewMemoryCatalog(
		room.Room{ID: "R101", Name: "R101", Capacity: 40, Type: room.TypeClassroom, Building: "A", IsAvailable: true},
	)
	svc := scheduling.NewService(memstore.New(), rooms, scheduling.Options{
		Now:    func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
		Logger: logger,
	})
	srv := httptest.NewServer(NewRouter(Dependencies{
		Cfg:       config.Config{AppEnv: "dev", RateLimitRPS: 1000, RateLimitBurst: 1000},
		Scheduler: svc,
		Verifier:  claims.Verifier{Secret: secret},
		Logger:    logger,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, who identity, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", who.id)
	req.Header.Set("X-User-Name", who.name)
	req.Header.Set("X-User-Role", who.role)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var env api.ErrorEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env.Error.Code
}

func submitBody(from, to string) map[string]any {
	return map[string]any{
		"roomId":    "R101",
		"startTime": "2025-01-10T" + from + ":00Z",
		"endTime":   "2025-01-10T" + to + ":00Z",
		"purpose":   "study group",
	}
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestR101ScenarioOverHTTP(t *testing.T) {
	srv := newServer(t)

	resp, data := do(t, srv, u1, http.MethodPost, "/v1/bookings", submitBody("09:00", "10:00"))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var b1 booking.Booking
	require.NoError(t, json.Unmarshal(data, &b1))
	assert.Equal(t, booking.StatusPending, b1.Status)

	resp, data = do(t, srv, u2, http.MethodPost, "/v1/bookings", submitBody("09:30", "10:30"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errorCode(t, data))

	resp, data = do(t, srv, a1, http.MethodPut, "/v1/bookings/"+b1.ID+"/status", map[string]any{"status": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = do(t, srv, u1, http.MethodPut, "/v1/bookings/"+b1.ID+"/status", map[string]any{"status": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var cancelled booking.Booking
	require.NoError(t, json.Unmarshal(data, &cancelled))
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)

	resp, data = do(t, srv, u2, http.MethodPost, "/v1/bookings", submitBody("09:30", "10:30"))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	resp, data = do(t, srv, a1, http.MethodGet, "/v1/bookings/room/R101/logs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var logs struct{ Items []audit.Entry }
	require.NoError(t, json.Unmarshal(data, &logs))
	require.Len(t, logs.Items, 4)
	assert.Equal(t, audit.ActionApproved, logs.Items[1].Action)

	resp, data = do(t, srv, u1, http.MethodGet, "/v1/bookings/room/R101?active=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var schedule struct{ Items []booking.Booking }
	require.NoError(t, json.Unmarshal(data, &schedule))
	require.Len(t, schedule.Items, 1)
	assert.Equal(t, "u2", schedule.Items[0].RequesterID)

	resp, data = do(t, srv, a1, http.MethodDelete, "/v1/bookings/"+b1.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, string(data))
}

func TestErrorMapping(t *testing.T) {
	srv := newServer(t)

	resp, data := do(t, srv, u1, http.MethodPost, "/v1/bookings", submitBody("10:00", "09:00"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INTERVAL", errorCode(t, data))

	body := submitBody("09:00", "10:00")
	body["startTime"] = "2024-12-31T09:00:00Z"
	resp, data = do(t, srv, u1, http.MethodPost, "/v1/bookings", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "PAST_BOOKING", errorCode(t, data))

	body = submitBody("09:00", "10:00")
	body["startTime"] = "tomorrow"
	resp, data = do(t, srv, u1, http.MethodPost, "/v1/bookings", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, data))

	body = submitBody("09:00", "10:00")
	body["roomId"] = "R999"
	resp, data = do(t, srv, u1, http.MethodPost, "/v1/bookings", body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, data))

	resp, data = do(t, srv, u1, http.MethodPost, "/v1/bookings", submitBody("09:00", "10:00"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var b booking.Booking
	require.NoError(t, json.Unmarshal(data, &b))

	resp, data = do(t, srv, u1, http.MethodPut, "/v1/bookings/"+b.ID+"/status", map[string]any{"status": 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, data))

	resp, data = do(t, srv, a1, http.MethodPut, "/v1/bookings/"+b.ID+"/status", map[string]any{"status": 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "NOTES_REQUIRED", errorCode(t, data))

	resp, data = do(t, srv, a1, http.MethodPut, "/v1/bookings/"+b.ID+"/status", map[string]any{"status": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, data))

	resp, _ = do(t, srv, a1, http.MethodPut, "/v1/bookings/"+b.ID+"/status", map[string]any{"status": 7})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = do(t, srv, a1, http.MethodDelete, "/v1/bookings/"+b.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(t, data))

	resp, _ = do(t, srv, u1, http.MethodDelete, "/v1/bookings/"+b.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = do(t, srv, u1, http.MethodGet, "/v1/bookings", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = do(t, srv, u2, http.MethodGet, "/v1/bookings/"+b.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = do(t, srv, u2, http.MethodGet, "/v1/bookings/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, identity{}, http.MethodGet, "/v1/bookings/mine", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMineAndDashboard(t *testing.T) {
	srv := newServer(t)

	for _, slot := range [][2]string{{"09:00", "10:00"}, {"11:00", "12:30"}} {
		resp, data := do(t, srv, u1, http.MethodPost, "/v1/bookings", submitBody(slot[0], slot[1]))
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	}

	resp, data := do(t, srv, u1, http.MethodGet, "/v1/bookings/mine", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine struct{ Items []booking.Booking }
	require.NoError(t, json.Unmarshal(data, &mine))
	assert.Len(t, mine.Items, 2)

	resp, _ = do(t, srv, u2, http.MethodGet, "/v1/bookings/requester/u1", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, data = do(t, srv, u1, http.MethodGet, "/v1/dashboard/student", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.EqualValues(t, 2, summary["myActiveBookings"])
	assert.EqualValues(t, 2, summary["myTotalBookings"])
}
