package engine

import (
	"sync"
	"testing"
	"time"

	"NetGuardEngine/internal/config"
	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	enabled        = models.Settings{NotificationsEnabled: true}
	enabledAndLoud = models.Settings{NotificationsEnabled: true, SoundAlerts: true}
	disabled       = models.Settings{NotificationsEnabled: false}
)

func newTestQueue(t *testing.T, ttl time.Duration, autoClose bool) *Queue {
	t.Helper()
	return NewQueue(config.EngineConfig{
		NotificationTTL: ttl,
		AutoClose:       autoClose,
	}, logger.Discard())
}

func alert(id int64, level string) models.Alert {
	return models.Alert{ID: id, Level: level, Message: "test alert", Timestamp: time.Now()}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestQueueCreatesNotificationsForNewAlerts(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)

	q.OnPollResult(enabled, []models.Alert{alert(1, models.SeverityCritical), alert(2, models.SeverityWarning)})

	notifications := q.Notifications()
	require.Len(t, notifications, 2)
	assert.Equal(t, int64(1), notifications[0].AlertID, "retention order is arrival order, oldest first")
	assert.Equal(t, int64(2), notifications[1].AlertID)
	assert.Equal(t, models.SeverityCritical, notifications[0].Level)
	assert.True(t, notifications[0].AutoClose)
	assert.False(t, notifications[0].ExpiresAt.IsZero())
	assert.Equal(t, 2, q.ActiveAlertCount())
}

func TestQueueIdenticalPollIsIdempotent(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)
	alerts := []models.Alert{alert(1, models.SeverityCritical)}

	q.OnPollResult(enabled, alerts)
	q.OnPollResult(enabled, alerts)

	assert.Len(t, q.Notifications(), 1, "re-polling an identical active set must add nothing")
	assert.Equal(t, 1, q.ActiveAlertCount())
}

func TestQueueDebugAlertsNeverToast(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)

	q.OnPollResult(enabled, []models.Alert{alert(1, models.SeverityCritical)})
	q.OnPollResult(enabled, []models.Alert{alert(1, models.SeverityCritical), alert(2, models.SeverityDebug)})

	notifications := q.Notifications()
	require.Len(t, notifications, 1, "id 1 already present, id 2 DEBUG-suppressed")
	assert.Equal(t, int64(1), notifications[0].AlertID)

	// DEBUG alerts still count toward the active badge.
	assert.Equal(t, 2, q.ActiveAlertCount())
}

func TestQueueNotificationsDisabledSuppressesToastsOnly(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)

	q.OnPollResult(disabled, []models.Alert{alert(1, models.SeverityCritical)})

	assert.Empty(t, q.Notifications())
	assert.Equal(t, 1, q.ActiveAlertCount(), "the active mirror is replaced even when toasts are off")
}

func TestQueueDismissIsIdempotent(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)
	q.OnPollResult(enabled, []models.Alert{alert(1, models.SeverityCritical)})

	q.Dismiss("1")
	assert.Empty(t, q.Notifications())

	// Second dismiss, and a dismiss of a never-known id, are silent no-ops.
	q.Dismiss("1")
	q.Dismiss("999")
	assert.Empty(t, q.Notifications())
}

func TestQueueDismissedAlertNotRecreatedWhileStillActive(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)
	alerts := []models.Alert{alert(1, models.SeverityCritical)}

	q.OnPollResult(enabled, alerts)
	q.Dismiss("1")

	// The alert is still in the active set, so the next poll must not
	// resurrect a toast the user closed.
	q.OnPollResult(enabled, alerts)
	assert.Empty(t, q.Notifications())
	assert.Equal(t, 1, q.ActiveAlertCount())
}

func TestQueueExpiryRemovesNotification(t *testing.T) {
	q := newTestQueue(t, 30*time.Millisecond, true)
	rec := &eventRecorder{}
	q.Subscribe(rec)

	q.OnPollResult(enabled, []models.Alert{alert(1, models.SeverityWarning)})
	require.Len(t, q.Notifications(), 1)

	assert.Eventually(t, func() bool {
		return len(q.Notifications()) == 0
	}, time.Second, 10*time.Millisecond, "the expiry timer must clear the toast")

	require.Len(t, rec.ofType(EventExpired), 1)

	// A user dismissal racing the already-fired timer is a no-op.
	q.Dismiss("1")
	assert.Empty(t, rec.ofType(EventDismissed))
}

func TestQueueAutoCloseDisabledKeepsNotification(t *testing.T) {
	q := newTestQueue(t, 20*time.Millisecond, false)

	q.OnPollResult(enabled, []models.Alert{alert(1, models.SeverityInfo)})

	time.Sleep(80 * time.Millisecond)
	notifications := q.Notifications()
	require.Len(t, notifications, 1, "without auto-close the toast stays until dismissed")
	assert.False(t, notifications[0].AutoClose)
	assert.True(t, notifications[0].ExpiresAt.IsZero())

	q.Dismiss(notifications[0].ID)
	assert.Empty(t, q.Notifications())
}

func TestQueueRemoveAlertClearsQueueAndActiveSet(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)

	q.OnPollResult(enabled, []models.Alert{alert(1, models.SeverityCritical), alert(2, models.SeverityWarning)})
	q.RemoveAlert(1)

	notifications := q.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, int64(2), notifications[0].AlertID)
	assert.Equal(t, 1, q.ActiveAlertCount())

	// The backend never recorded the acknowledgment: the next poll still
	// carries id 1 and the notification comes back. Accepted behavior.
	q.OnPollResult(enabled, []models.Alert{alert(1, models.SeverityCritical), alert(2, models.SeverityWarning)})
	assert.Len(t, q.Notifications(), 2)
}

func TestQueueRemoveAlertUnknownIDEmitsNothing(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)
	rec := &eventRecorder{}
	q.Subscribe(rec)

	q.RemoveAlert(42)

	assert.Empty(t, rec.ofType(EventAcknowledged), "acknowledging an unknown id is silent")
}

func TestQueueRemoveAlertActiveOnlyStillEmits(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)
	rec := &eventRecorder{}
	q.Subscribe(rec)

	// Toasts were suppressed, so the alert sits in the active set with no
	// live notification to carry on the event.
	q.OnPollResult(disabled, []models.Alert{alert(9, models.SeverityCritical)})
	q.RemoveAlert(9)

	events := rec.ofType(EventAcknowledged)
	require.Len(t, events, 1)
	assert.Equal(t, int64(9), events[0].AlertID)
	assert.Nil(t, events[0].Notification)
	assert.Equal(t, 0, q.ActiveAlertCount())
}

func TestQueueArrivalModalOverwritten(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)

	q.OnDeviceArrival(enabled, models.Device{MAC: "aa:aa", IP: "10.0.0.7", Hostname: "printer"})
	first := q.Arrival()
	require.NotNil(t, first)
	assert.Contains(t, first.Message, "printer")

	// A second arrival before dismissal replaces the slot, it does not queue.
	q.OnDeviceArrival(enabled, models.Device{MAC: "bb:bb", IP: "10.0.0.8", Hostname: "camera"})
	second := q.Arrival()
	require.NotNil(t, second)
	assert.Contains(t, second.Message, "camera")
	assert.NotEqual(t, first.ID, second.ID)

	q.DismissArrival()
	assert.Nil(t, q.Arrival())
}

func TestQueueArrivalSuppressedWhenDisabled(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)

	q.OnDeviceArrival(disabled, models.Device{MAC: "aa:aa", IP: "10.0.0.7"})

	assert.Nil(t, q.Arrival())
}

func TestQueueEmitsLifecycleEvents(t *testing.T) {
	q := newTestQueue(t, time.Minute, true)
	rec := &eventRecorder{}
	q.Subscribe(rec)

	q.OnPollResult(enabledAndLoud, []models.Alert{alert(1, models.SeverityCritical)})
	created := rec.ofType(EventCreated)
	require.Len(t, created, 1)
	assert.True(t, created[0].Sound, "the sound flag rides along on the event")

	q.Dismiss("1")
	require.Len(t, rec.ofType(EventDismissed), 1)

	q.OnPollResult(enabled, []models.Alert{alert(2, models.SeverityWarning)})
	q.RemoveAlert(2)
	require.Len(t, rec.ofType(EventAcknowledged), 1)
}

func TestQueueStopCancelsPendingTimers(t *testing.T) {
	q := newTestQueue(t, 30*time.Millisecond, true)
	rec := &eventRecorder{}
	q.Subscribe(rec)

	q.OnPollResult(enabled, []models.Alert{alert(1, models.SeverityCritical)})
	q.Stop()

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, rec.ofType(EventExpired), "no expiry may fire after teardown")

	// Mutations after teardown are rejected.
	q.OnPollResult(enabled, []models.Alert{alert(2, models.SeverityCritical)})
	assert.Len(t, q.Notifications(), 1)
}
