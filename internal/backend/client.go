package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"NetGuardEngine/internal/config"
	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/models"
)

// Client is a thin request/response wrapper around the monitoring backend.
// It carries no reconciliation logic.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(cfg *config.BackendConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		log:     log,
	}
}

// Devices fetches the full device snapshot.
func (c *Client) Devices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	if err := c.getJSON(ctx, "/devices", &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// Stats fetches the roster summary counters.
func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	if err := c.getJSON(ctx, "/status", &stats); err != nil {
		return models.Stats{}, err
	}
	return stats, nil
}

// Alerts fetches the historical alert list.
func (c *Client) Alerts(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	if err := c.getJSON(ctx, "/alerts", &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ActiveAlerts fetches the currently-live alert set. The backend wraps the
// list in an envelope: {"alerts": [...]}.
func (c *Client) ActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	var envelope struct {
		Alerts []models.Alert `json:"alerts"`
	}
	if err := c.getJSON(ctx, "/alerts/active", &envelope); err != nil {
		return nil, err
	}
	return envelope.Alerts, nil
}

// Acknowledge records the acting user against an alert on the backend.
// A 2xx status is success; no response body is required.
func (c *Client) Acknowledge(ctx context.Context, alertID int64, user string) error {
	endpoint := fmt.Sprintf("%s/alerts/%d/acknowledge?user=%s", c.baseURL, alertID, url.QueryEscape(user))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build acknowledge request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("acknowledge alert %d: %w", alertID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("acknowledge alert %d: backend returned %d", alertID, resp.StatusCode)
	}

	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: backend returned %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: %w: %v", path, models.ErrBadPayload, err)
	}

	return nil
}
