package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"NetGuardEngine/internal/config"
	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/models"
)

// Poller drives the two reconciliation cadences: the active-alert poll and
// the device/stat/history refresh. Ticks are wall-clock-scheduled, so a slow
// response never delays the next tick; instead every tick carries a
// monotonic sequence number and a response older than the last applied one
// is discarded. The watermark check and the state apply happen under one
// lock, so applies are strictly ordered by sequence number and a stale
// in-flight result can never overwrite newer state.
type Poller struct {
	client   models.BackendClient
	queue    *Queue
	settings models.SettingsProvider
	cfg      config.EngineConfig
	log      *logger.Logger

	alertSeq  atomic.Uint64
	deviceSeq atomic.Uint64

	mu             sync.Mutex
	roster         *roster
	devices        []models.Device
	stats          models.Stats
	history        []models.Alert
	alertApplied   uint64
	deviceApplied  uint64
	lastAlertPoll  time.Time
	lastDevicePoll time.Time
}

func NewPoller(cfg config.EngineConfig, client models.BackendClient, queue *Queue, settings models.SettingsProvider, log *logger.Logger) *Poller {
	return &Poller{
		client:   client,
		queue:    queue,
		settings: settings,
		cfg:      cfg,
		log:      log,
		roster:   newRoster(),
	}
}

// runAlertLoop fires the active-alert poll on its fixed cadence, with one
// immediate poll at startup. Each fetch runs in its own goroutine.
func (p *Poller) runAlertLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	go p.pollAlerts(ctx, p.alertSeq.Add(1))

	ticker := time.NewTicker(p.cfg.AlertPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Alert poll loop stopping")
			return
		case <-ticker.C:
			go p.pollAlerts(ctx, p.alertSeq.Add(1))
		}
	}
}

// runDeviceLoop fires the device/stat/history refresh. When auto-refresh is
// disabled only the immediate startup fetch happens.
func (p *Poller) runDeviceLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	go p.pollDevices(ctx, p.deviceSeq.Add(1))

	if !p.cfg.AutoRefresh {
		p.log.Info("Auto-refresh disabled, device roster will not be re-polled")
		return
	}

	ticker := time.NewTicker(p.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Device poll loop stopping")
			return
		case <-ticker.C:
			go p.pollDevices(ctx, p.deviceSeq.Add(1))
		}
	}
}

func (p *Poller) pollAlerts(ctx context.Context, seq uint64) {
	alerts, err := p.client.ActiveAlerts(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrBadPayload) {
			// Transport failure: skip the tick, keep the held set intact.
			p.log.Error("Active-alert poll failed: %v", err)
			return
		}
		p.log.Warn("Active-alert poll returned a malformed payload, treating as empty: %v", err)
		alerts = nil
	}

	settings := p.settings.Current(ctx)

	// Check-and-apply is atomic: releasing the lock between the watermark
	// check and the queue apply would let a stale response land after a
	// newer one.
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq <= p.alertApplied {
		p.log.Debug("Discarding stale active-alert response (tick %d <= %d)", seq, p.alertApplied)
		return
	}
	p.alertApplied = seq

	p.queue.OnPollResult(settings, alerts)
	p.lastAlertPoll = time.Now()
}

func (p *Poller) pollDevices(ctx context.Context, seq uint64) {
	var (
		devices []models.Device
		stats   models.Stats
		history []models.Alert

		devErr, statErr, histErr error
		fetch                    sync.WaitGroup
	)

	fetch.Add(3)
	go func() { defer fetch.Done(); devices, devErr = p.client.Devices(ctx) }()
	go func() { defer fetch.Done(); stats, statErr = p.client.Stats(ctx) }()
	go func() { defer fetch.Done(); history, histErr = p.client.Alerts(ctx) }()
	fetch.Wait()

	for _, err := range []error{devErr, statErr, histErr} {
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrBadPayload) {
			p.log.Error("Device refresh failed: %v", err)
			return
		}
		p.log.Warn("Device refresh returned a malformed payload, treating as empty: %v", err)
	}

	settings := p.settings.Current(ctx)

	// Same atomicity rule as pollAlerts: the modal must never be raised by
	// a response older than one already applied.
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq <= p.deviceApplied {
		p.log.Debug("Discarding stale device response (tick %d <= %d)", seq, p.deviceApplied)
		return
	}
	p.deviceApplied = seq
	p.lastDevicePoll = time.Now()

	arrival := p.roster.Diff(devices)
	p.devices = devices
	p.stats = stats
	p.history = history

	if arrival != nil {
		p.log.Info("New device on the roster: %s (%s)", arrival.DisplayName(), arrival.MAC)
		p.queue.OnDeviceArrival(settings, *arrival)
	}
}

// Devices returns the last applied device snapshot.
func (p *Poller) Devices() []models.Device {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Device(nil), p.devices...)
}

// Stats returns the last applied roster summary.
func (p *Poller) Stats() models.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// History returns the last applied alert-history fetch.
func (p *Poller) History() []models.Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Alert(nil), p.history...)
}

// LastPolls reports when each loop last applied a result, for health checks.
func (p *Poller) LastPolls() (alerts, devices time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAlertPoll, p.lastDevicePoll
}
