package handler

import (
	"net/http"
	"strconv"

	"NetGuardEngine/internal/engine"
	"NetGuardEngine/internal/logger"

	"github.com/gorilla/mux"
)

// NotificationHandler exposes the engine's read-only notification surface
// and the dismiss/acknowledge callbacks to the presentation layer.
type NotificationHandler struct {
	engine *engine.Engine
	log    *logger.Logger
}

func NewNotificationHandler(eng *engine.Engine, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		engine: eng,
		log:    log,
	}
}

func (h *NotificationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/notifications", h.List).Methods("GET")
	r.HandleFunc("/notifications/arrival", h.Arrival).Methods("GET")
	r.HandleFunc("/notifications/arrival", h.DismissArrival).Methods("DELETE")
	r.HandleFunc("/notifications/{id}/dismiss", h.Dismiss).Methods("POST")
	r.HandleFunc("/notifications/{id}/acknowledge", h.Acknowledge).Methods("POST")
	r.HandleFunc("/alerts/active", h.ActiveAlerts).Methods("GET")
	r.HandleFunc("/alerts/active/count", h.ActiveAlertCount).Methods("GET")
	r.HandleFunc("/alerts", h.History).Methods("GET")
	r.HandleFunc("/settings", h.Settings).Methods("GET")
}

// List returns the live queue in stable arrival order (oldest first);
// stacking is the presentation layer's choice.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Notifications())
}

func (h *NotificationHandler) Arrival(w http.ResponseWriter, r *http.Request) {
	arrival := h.engine.Arrival()
	if arrival == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"arrival": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"arrival": arrival})
}

func (h *NotificationHandler) DismissArrival(w http.ResponseWriter, r *http.Request) {
	h.engine.DismissArrival()
	w.WriteHeader(http.StatusNoContent)
}

// Dismiss is idempotent: dismissing an unknown or already-expired
// notification still answers OK.
func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	h.engine.Dismiss(id)
	respondStatus(w, "dismissed")
}

// Acknowledge answers as soon as the optimistic local removal is applied;
// the backend call resolves in the background.
func (h *NotificationHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]

	alertID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid alert ID")
		return
	}

	user := r.URL.Query().Get("user")

	if err := h.engine.Acknowledge(alertID, user); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondStatus(w, "acknowledged")
}

func (h *NotificationHandler) ActiveAlerts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"alerts": h.engine.ActiveAlerts()})
}

func (h *NotificationHandler) ActiveAlertCount(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int{"count": h.engine.ActiveAlertCount()})
}

func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.History())
}

func (h *NotificationHandler) Settings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Settings(r.Context()))
}
