package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend implements models.BackendClient with scriptable latency and
// failure on the acknowledge path.
type fakeBackend struct {
	mu       sync.Mutex
	ackDelay time.Duration
	ackErr   error
	acked    []int64
	ackUsers []string
}

func (f *fakeBackend) Devices(ctx context.Context) ([]models.Device, error) { return nil, nil }
func (f *fakeBackend) Stats(ctx context.Context) (models.Stats, error)      { return models.Stats{}, nil }
func (f *fakeBackend) Alerts(ctx context.Context) ([]models.Alert, error)   { return nil, nil }
func (f *fakeBackend) ActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	return nil, nil
}

func (f *fakeBackend) Acknowledge(ctx context.Context, alertID int64, user string) error {
	if f.ackDelay > 0 {
		select {
		case <-time.After(f.ackDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ackErr != nil {
		return f.ackErr
	}
	f.acked = append(f.acked, alertID)
	f.ackUsers = append(f.ackUsers, user)
	return nil
}

func (f *fakeBackend) ackedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.acked...)
}

func TestAckRemovesNotificationBeforeBackendResolves(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)
	backend := &fakeBackend{ackDelay: 200 * time.Millisecond}
	coord := NewAckCoordinator(backend, q, logger.Discard())

	q.OnPollResult(enabled, []models.Alert{alert(7, models.SeverityCritical)})
	require.Len(t, q.Notifications(), 1)

	start := time.Now()
	require.NoError(t, coord.Acknowledge(7, "operator"))
	assert.Less(t, time.Since(start), 100*time.Millisecond, "the caller must not wait on the backend")

	// Local state is already clean while the call is still in flight.
	assert.Empty(t, q.Notifications())
	assert.Equal(t, 0, q.ActiveAlertCount())
	assert.Empty(t, backend.ackedIDs())

	coord.Wait()
	require.Equal(t, []int64{7}, backend.ackedIDs())
	assert.Equal(t, []string{"operator"}, backend.ackUsers)
}

func TestAckBackendFailureIsNotRolledBack(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)
	backend := &fakeBackend{ackErr: errors.New("backend down")}
	coord := NewAckCoordinator(backend, q, logger.Discard())

	alerts := []models.Alert{alert(3, models.SeverityWarning)}
	q.OnPollResult(enabled, alerts)

	require.NoError(t, coord.Acknowledge(3, "operator"))
	coord.Wait()

	// The optimistic removal stands even though the backend rejected it.
	assert.Empty(t, q.Notifications())
	assert.Equal(t, 0, q.ActiveAlertCount())

	// The backend still reports the alert active, so the next poll brings
	// the notification back. That re-surfacing is the recovery path.
	q.OnPollResult(enabled, alerts)
	notifications := q.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, int64(3), notifications[0].AlertID)
}

func TestAckRejectsInvalidAlertID(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)
	backend := &fakeBackend{}
	coord := NewAckCoordinator(backend, q, logger.Discard())

	assert.ErrorIs(t, coord.Acknowledge(0, "operator"), ErrInvalidAlertID)
	assert.ErrorIs(t, coord.Acknowledge(-5, "operator"), ErrInvalidAlertID)

	coord.Wait()
	assert.Empty(t, backend.ackedIDs(), "invalid IDs never reach the backend")
}

func TestAckUnknownAlertStillForwarded(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)
	backend := &fakeBackend{}
	coord := NewAckCoordinator(backend, q, logger.Discard())

	// Nothing queued locally; the backend may still know the alert.
	require.NoError(t, coord.Acknowledge(42, "operator"))
	coord.Wait()

	assert.Equal(t, []int64{42}, backend.ackedIDs())
}
