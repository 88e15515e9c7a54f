package models

import (
	"context"
	"errors"
	"time"
)

// ErrBadPayload marks a backend response that arrived but could not be
// decoded. Pollers treat it as an empty result for that tick rather than a
// transport failure, so one bad payload cannot halt subsequent polling.
var ErrBadPayload = errors.New("malformed backend payload")

// Severity levels as emitted by the backend. Ordered for display only;
// suppression logic special-cases DEBUG and nothing else.
const (
	SeverityCritical = "CRITICAL"
	SeverityWarning  = "WARNING"
	SeverityInfo     = "INFO"
	SeverityDebug    = "DEBUG"
)

var severityRank = map[string]int{
	SeverityCritical: 0,
	SeverityWarning:  1,
	SeverityInfo:     2,
	SeverityDebug:    3,
}

// SeverityRank returns the display rank of a level, lower is more severe.
// Unknown levels sort after DEBUG.
func SeverityRank(level string) int {
	if r, ok := severityRank[level]; ok {
		return r
	}
	return len(severityRank)
}

// Device is the backend's view of a LAN host. The engine never creates
// devices; it only mirrors full snapshots of them. MAC is the identity key.
type Device struct {
	MAC       string    `json:"mac"`
	IP        string    `json:"ip"`
	Hostname  string    `json:"hostname"`
	Alias     string    `json:"alias,omitempty"`
	Vendor    string    `json:"vendor,omitempty"`
	Status    string    `json:"status"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// DisplayName resolves the label the dashboard shows for a device:
// alias wins over hostname, hostname over IP.
func (d Device) DisplayName() string {
	if d.Alias != "" {
		return d.Alias
	}
	if d.Hostname != "" {
		return d.Hostname
	}
	return d.IP
}

// Alert is a backend-owned record. ID is server-issued and opaque to the
// engine. Once IsAcknowledged is true it never reverts.
type Alert struct {
	ID             int64     `json:"id"`
	Level          string    `json:"level"`
	Message        string    `json:"message"`
	DeviceName     string    `json:"device_name,omitempty"`
	DeviceIP       string    `json:"device_ip,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	IsAcknowledged bool      `json:"is_acknowledged"`
	AcknowledgedBy string    `json:"acknowledged_by,omitempty"`
}

// Notification is the engine-local, ephemeral projection of an alert (or of
// a device-arrival event) while it is visible to the user. At most one live
// notification exists per source alert ID.
type Notification struct {
	ID         string    `json:"id"`
	AlertID    int64     `json:"alert_id,omitempty"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	DeviceName string    `json:"device_name,omitempty"`
	DeviceIP   string    `json:"device_ip,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	AutoClose  bool      `json:"auto_close"`
}

// Stats mirrors the backend /status summary.
type Stats struct {
	Total    int `json:"total"`
	Online   int `json:"online"`
	NewToday int `json:"new_today"`
}

// Settings are the user-configured flags owned by the external settings
// subsystem. The engine reads them at each poll and never writes them.
type Settings struct {
	NotificationsEnabled bool `json:"notifications_enabled"`
	SoundAlerts          bool `json:"sound_alerts"`
}

// WSMessage is the frame shape shared by the backend realtime channel and
// the engine's own presentation hub.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// BackendClient is the transport contract against the monitoring backend.
type BackendClient interface {
	Devices(ctx context.Context) ([]Device, error)
	Stats(ctx context.Context) (Stats, error)
	Alerts(ctx context.Context) ([]Alert, error)
	ActiveAlerts(ctx context.Context) ([]Alert, error)
	Acknowledge(ctx context.Context, alertID int64, user string) error
}

// SettingsProvider yields the current user flags. Implementations must be
// best-effort: a failed read returns the last known (or default) values.
type SettingsProvider interface {
	Current(ctx context.Context) Settings
}
