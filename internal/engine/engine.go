package engine

import (
	"context"
	"sync"
	"time"

	"NetGuardEngine/internal/config"
	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/models"
)

// Engine ties the roster differ, the two pollers, the notification queue
// and the acknowledgment coordinator into one lifecycle. It is the only
// surface the HTTP layer talks to.
type Engine struct {
	cfg      config.EngineConfig
	queue    *Queue
	poller   *Poller
	ack      *AckCoordinator
	settings models.SettingsProvider
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg config.EngineConfig, client models.BackendClient, settings models.SettingsProvider, log *logger.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	queue := NewQueue(cfg, log)

	return &Engine{
		cfg:      cfg,
		queue:    queue,
		poller:   NewPoller(cfg, client, queue, settings, log),
		ack:      NewAckCoordinator(client, queue, log),
		settings: settings,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe registers an event sink. Call before Start.
func (e *Engine) Subscribe(sink EventSink) {
	e.queue.Subscribe(sink)
}

func (e *Engine) Start() {
	e.log.Info("Starting reconciliation engine (alert poll %s, refresh %s)",
		e.cfg.AlertPollInterval, e.cfg.RefreshInterval)

	e.wg.Add(1)
	go e.poller.runAlertLoop(e.ctx, &e.wg)

	e.wg.Add(1)
	go e.poller.runDeviceLoop(e.ctx, &e.wg)
}

// Shutdown stops the poll loops, waits for in-flight acknowledgments and
// cancels every pending notification timer.
func (e *Engine) Shutdown() {
	e.log.Info("Shutting down reconciliation engine...")
	e.cancel()
	e.wg.Wait()
	e.ack.Wait()
	e.queue.Stop()
	e.log.Info("Reconciliation engine stopped")
}

// Acknowledge applies the optimistic local removal and fires the backend
// call in the background.
func (e *Engine) Acknowledge(alertID int64, user string) error {
	if user == "" {
		user = e.cfg.AckUser
	}
	return e.ack.Acknowledge(alertID, user)
}

func (e *Engine) Dismiss(notificationID string) {
	e.queue.Dismiss(notificationID)
}

func (e *Engine) DismissArrival() {
	e.queue.DismissArrival()
}

func (e *Engine) Notifications() []models.Notification {
	return e.queue.Notifications()
}

func (e *Engine) Arrival() *models.Notification {
	return e.queue.Arrival()
}

func (e *Engine) ActiveAlerts() []models.Alert {
	return e.queue.ActiveAlerts()
}

func (e *Engine) ActiveAlertCount() int {
	return e.queue.ActiveAlertCount()
}

func (e *Engine) Devices() []models.Device {
	return e.poller.Devices()
}

func (e *Engine) Stats() models.Stats {
	return e.poller.Stats()
}

func (e *Engine) History() []models.Alert {
	return e.poller.History()
}

func (e *Engine) LastPolls() (alerts, devices time.Time) {
	return e.poller.LastPolls()
}

// Settings exposes the current user flags for the read-only API surface.
func (e *Engine) Settings(ctx context.Context) models.Settings {
	return e.settings.Current(ctx)
}
