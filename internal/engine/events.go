package engine

import "NetGuardEngine/internal/models"

// EventType labels a notification lifecycle transition.
type EventType string

const (
	EventCreated      EventType = "NOTIFICATION_CREATED"
	EventDismissed    EventType = "NOTIFICATION_DISMISSED"
	EventExpired      EventType = "NOTIFICATION_EXPIRED"
	EventAcknowledged EventType = "NOTIFICATION_ACKNOWLEDGED"
	EventArrival      EventType = "DEVICE_ARRIVAL"
)

// Event is fanned out to registered sinks (presentation hub, MQTT publisher)
// whenever the queue mutates. Sound mirrors the user's sound-alerts flag at
// the moment the event was produced; the engine itself plays nothing.
// AlertID identifies the acknowledged alert when no live notification
// existed for it (Notification is nil in that case).
type Event struct {
	Type         EventType            `json:"type"`
	AlertID      int64                `json:"alert_id,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
	Device       *models.Device       `json:"device,omitempty"`
	Sound        bool                 `json:"sound,omitempty"`
}

// EventSink receives queue lifecycle events. Notify may be called while the
// poller holds its apply lock; implementations must not block for long and
// must never call back into the engine synchronously.
type EventSink interface {
	Notify(Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Notify(e Event) { f(e) }
