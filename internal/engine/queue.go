package engine

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"NetGuardEngine/internal/config"
	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/models"

	"github.com/google/uuid"
)

// Queue owns the ordered collection of live transient notifications, the
// mirrored active-alert set, and the single device-arrival modal slot. All
// mutations serialize through one mutex: poll applies, user callbacks and
// timer-driven expiries never interleave mid-mutation.
type Queue struct {
	log       *logger.Logger
	ttl       time.Duration
	autoClose bool

	mu       sync.Mutex
	items    []*queueItem
	byID     map[string]*queueItem
	byAlert  map[int64]*queueItem
	active   []models.Alert
	activeID map[int64]struct{}
	arrival  *models.Notification
	sinks    []EventSink
	stopped  bool
}

type queueItem struct {
	notification models.Notification
	timer        *time.Timer
}

func NewQueue(cfg config.EngineConfig, log *logger.Logger) *Queue {
	return &Queue{
		log:       log,
		ttl:       cfg.NotificationTTL,
		autoClose: cfg.AutoClose,
		byID:      make(map[string]*queueItem),
		byAlert:   make(map[int64]*queueItem),
		activeID:  make(map[int64]struct{}),
	}
}

// Subscribe registers a sink for lifecycle events. Not safe to call after
// the queue has started receiving poll results.
func (q *Queue) Subscribe(sink EventSink) {
	q.sinks = append(q.sinks, sink)
}

// OnPollResult ingests one applied active-alert poll. Alerts that were not
// in the previously known active set become notifications, unless they are
// DEBUG, notifications are disabled, or a live notification for the same
// alert ID already exists. The mirrored active set is then replaced
// wholesale, so feeding the same list twice is a no-op the second time.
func (q *Queue) OnPollResult(settings models.Settings, alerts []models.Alert) {
	q.mu.Lock()

	if q.stopped {
		q.mu.Unlock()
		return
	}

	var events []Event

	if settings.NotificationsEnabled {
		for i := range alerts {
			alert := alerts[i]

			if alert.Level == models.SeverityDebug {
				continue
			}
			if _, known := q.activeID[alert.ID]; known {
				continue
			}
			if _, live := q.byAlert[alert.ID]; live {
				continue
			}

			n := q.appendLocked(alert)
			events = append(events, Event{Type: EventCreated, Notification: n, Sound: settings.SoundAlerts})
		}
	}

	q.active = append([]models.Alert(nil), alerts...)
	q.activeID = make(map[int64]struct{}, len(alerts))
	for i := range alerts {
		q.activeID[alerts[i].ID] = struct{}{}
	}

	q.mu.Unlock()
	q.emit(events...)
}

func (q *Queue) appendLocked(alert models.Alert) *models.Notification {
	now := time.Now()

	item := &queueItem{
		notification: models.Notification{
			ID:         strconv.FormatInt(alert.ID, 10),
			AlertID:    alert.ID,
			Level:      alert.Level,
			Message:    alert.Message,
			DeviceName: alert.DeviceName,
			DeviceIP:   alert.DeviceIP,
			CreatedAt:  now,
			AutoClose:  q.autoClose,
		},
	}

	if q.autoClose {
		id := item.notification.ID
		item.notification.ExpiresAt = now.Add(q.ttl)
		item.timer = time.AfterFunc(q.ttl, func() { q.expire(id) })
	}

	q.items = append(q.items, item)
	q.byID[item.notification.ID] = item
	q.byAlert[alert.ID] = item

	return &item.notification
}

// OnDeviceArrival fills the single modal slot. A second arrival before the
// first is dismissed overwrites it; nothing is queued behind the slot.
func (q *Queue) OnDeviceArrival(settings models.Settings, device models.Device) {
	if !settings.NotificationsEnabled {
		return
	}

	q.mu.Lock()

	if q.stopped {
		q.mu.Unlock()
		return
	}

	n := models.Notification{
		ID:         uuid.NewString(),
		Level:      models.SeverityInfo,
		Message:    fmt.Sprintf("New device detected on the network: %s (%s)", device.DisplayName(), device.IP),
		DeviceName: device.DisplayName(),
		DeviceIP:   device.IP,
		CreatedAt:  time.Now(),
		AutoClose:  false,
	}
	q.arrival = &n

	q.mu.Unlock()
	q.emit(Event{Type: EventArrival, Notification: &n, Device: &device, Sound: settings.SoundAlerts})
}

// Dismiss removes a notification immediately. Dismissing an unknown or
// already-removed ID is a no-op, not an error. The mirrored active set is
// left untouched so a dismissed alert is not re-surfaced by the next poll.
func (q *Queue) Dismiss(id string) {
	q.remove(id, EventDismissed)
}

// expire is invoked only by a notification's own timer. It has the exact
// effect of a dismissal and is safe after the item is already gone.
func (q *Queue) expire(id string) {
	q.remove(id, EventExpired)
}

func (q *Queue) remove(id string, reason EventType) {
	q.mu.Lock()

	item, ok := q.byID[id]
	if !ok || q.stopped {
		q.mu.Unlock()
		return
	}
	q.removeLocked(item)

	q.mu.Unlock()
	q.emit(Event{Type: reason, Notification: &item.notification})
}

// RemoveAlert drops the alert from both the live queue and the mirrored
// active set. This is the optimistic-removal half of an acknowledgment; it
// runs before (and regardless of) the backend call resolving.
func (q *Queue) RemoveAlert(alertID int64) {
	q.mu.Lock()

	if q.stopped {
		q.mu.Unlock()
		return
	}

	var removed *models.Notification
	if item, ok := q.byAlert[alertID]; ok {
		q.removeLocked(item)
		removed = &item.notification
	}

	_, wasActive := q.activeID[alertID]
	if wasActive {
		delete(q.activeID, alertID)
		filtered := q.active[:0]
		for i := range q.active {
			if q.active[i].ID != alertID {
				filtered = append(filtered, q.active[i])
			}
		}
		q.active = filtered
	}

	q.mu.Unlock()

	// An id the queue never knew about changes nothing; announcing it
	// would hand sinks an event with no payload.
	if removed == nil && !wasActive {
		return
	}
	q.emit(Event{Type: EventAcknowledged, AlertID: alertID, Notification: removed})
}

func (q *Queue) removeLocked(item *queueItem) {
	if item.timer != nil {
		item.timer.Stop()
	}

	delete(q.byID, item.notification.ID)
	delete(q.byAlert, item.notification.AlertID)

	for i := range q.items {
		if q.items[i] == item {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
}

// DismissArrival clears the modal slot.
func (q *Queue) DismissArrival() {
	q.mu.Lock()
	q.arrival = nil
	q.mu.Unlock()
}

// Notifications returns the live queue in stable arrival order.
func (q *Queue) Notifications() []models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.Notification, len(q.items))
	for i, item := range q.items {
		out[i] = item.notification
	}
	return out
}

// Arrival returns the current modal payload, or nil.
func (q *Queue) Arrival() *models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.arrival == nil {
		return nil
	}
	n := *q.arrival
	return &n
}

// ActiveAlerts returns the mirrored active set in poll order.
func (q *Queue) ActiveAlerts() []models.Alert {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.Alert(nil), q.active...)
}

// ActiveAlertCount feeds the badge in the presentation layer.
func (q *Queue) ActiveAlertCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}

// Stop cancels every outstanding expiry timer and rejects further
// mutations, so nothing fires after teardown.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
	for _, item := range q.items {
		if item.timer != nil {
			item.timer.Stop()
		}
	}
}

func (q *Queue) emit(events ...Event) {
	for _, event := range events {
		for _, sink := range q.sinks {
			sink.Notify(event)
		}
	}
}
