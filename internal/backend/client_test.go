package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NetGuardEngine/internal/config"
	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&config.BackendConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 2 * time.Second,
	}, logger.Discard())
}

func TestClientActiveAlertsUnwrapsEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/alerts/active", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"alerts":[{"id":12,"level":"CRITICAL","message":"Device offline"}]}`))
	}))

	alerts, err := client.ActiveAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, int64(12), alerts[0].ID)
	assert.Equal(t, models.SeverityCritical, alerts[0].Level)
}

func TestClientActiveAlertsEmptyEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"alerts":[]}`))
	}))

	alerts, err := client.ActiveAlerts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestClientDevices(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/devices", r.URL.Path)
		w.Write([]byte(`[{"mac":"aa:bb:cc:dd:ee:ff","ip":"10.0.0.2","hostname":"router","status":"online"}]`))
	}))

	devices, err := client.Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", devices[0].MAC)
	assert.Equal(t, "router", devices[0].DisplayName())
}

func TestClientStats(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status", r.URL.Path)
		w.Write([]byte(`{"total":14,"online":11,"new_today":2}`))
	}))

	stats, err := client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Stats{Total: 14, Online: 11, NewToday: 2}, stats)
}

func TestClientAcknowledgeSendsUserParam(t *testing.T) {
	var gotMethod, gotPath, gotUser string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotUser = r.URL.Query().Get("user")
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.Acknowledge(context.Background(), 42, "jane doe"))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/alerts/42/acknowledge", gotPath)
	assert.Equal(t, "jane doe", gotUser, "the user name round-trips through query escaping")
}

func TestClientAcknowledgeNon2xxIsError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))

	err := client.Acknowledge(context.Background(), 42, "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClientMalformedBodyIsBadPayload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>proxy error</html>`))
	}))

	_, err := client.ActiveAlerts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrBadPayload)
}

func TestClientServerErrorIsNotBadPayload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.ActiveAlerts(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrBadPayload, "a 500 is a transport-class failure, not a decode failure")
}

func TestClientHonorsContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer close(blocked)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.ActiveAlerts(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
