package handler

import (
	"net/http"
	"time"

	"NetGuardEngine/internal/engine"
	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/ws"

	"github.com/gorilla/mux"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  struct {
		Backend bool  `json:"backend"`
		Hub     int   `json:"hub_clients"`
		MQTT    *bool `json:"mqtt_connected,omitempty"`
	} `json:"services"`
	LastAlertPoll  *time.Time `json:"last_alert_poll,omitempty"`
	LastDevicePoll *time.Time `json:"last_device_poll,omitempty"`
}

// MQTTStatus is implemented by the optional fan-out publisher.
type MQTTStatus interface {
	IsConnected() bool
}

type HealthHandler struct {
	engine *engine.Engine
	hub    *ws.Hub
	mqtt   MQTTStatus
	log    *logger.Logger

	// Staleness horizon: backend is considered unreachable when no
	// alert poll has been applied within this window.
	staleAfter time.Duration
}

func NewHealthHandler(eng *engine.Engine, hub *ws.Hub, mqtt MQTTStatus, staleAfter time.Duration, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		engine:     eng,
		hub:        hub,
		mqtt:       mqtt,
		log:        log,
		staleAfter: staleAfter,
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/health/live", h.Liveness).Methods("GET")
	r.HandleFunc("/health/ready", h.Readiness).Methods("GET")
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	lastAlert, lastDevice := h.engine.LastPolls()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}
	response.Services.Backend = h.backendFresh(lastAlert)
	response.Services.Hub = h.hub.ClientCount()
	if h.mqtt != nil {
		connected := h.mqtt.IsConnected()
		response.Services.MQTT = &connected
	}

	if !lastAlert.IsZero() {
		response.LastAlertPoll = &lastAlert
	}
	if !lastDevice.IsZero() {
		response.LastDevicePoll = &lastDevice
	}

	if !response.Services.Backend {
		response.Status = "degraded"
		h.log.Warn("Health check degraded - no alert poll applied within %s", h.staleAfter)
	}

	respondJSON(w, http.StatusOK, response)
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondStatus(w, "alive")
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	lastAlert, _ := h.engine.LastPolls()

	if !h.backendFresh(lastAlert) {
		respondError(w, http.StatusServiceUnavailable, "no recent backend poll")
		return
	}

	respondStatus(w, "ready")
}

func (h *HealthHandler) backendFresh(lastAlert time.Time) bool {
	return !lastAlert.IsZero() && time.Since(lastAlert) < h.staleAfter
}
