package handler

import (
	"net/http"

	"NetGuardEngine/internal/engine"
	"NetGuardEngine/internal/logger"

	"github.com/gorilla/mux"
)

// DeviceHandler serves the engine's read-only mirror of the backend roster.
type DeviceHandler struct {
	engine *engine.Engine
	log    *logger.Logger
}

func NewDeviceHandler(eng *engine.Engine, log *logger.Logger) *DeviceHandler {
	return &DeviceHandler{
		engine: eng,
		log:    log,
	}
}

func (h *DeviceHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/devices", h.List).Methods("GET")
	r.HandleFunc("/status", h.Stats).Methods("GET")
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Devices())
}

func (h *DeviceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Stats())
}
