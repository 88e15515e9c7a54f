package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/models"
)

// ErrInvalidAlertID is returned for acknowledgment requests that cannot
// name a real alert. It is the only error the coordinator surfaces; backend
// failures are logged and swallowed.
var ErrInvalidAlertID = errors.New("invalid alert id")

const ackTimeout = 10 * time.Second

// AckCoordinator applies a user acknowledgment locally before the backend
// call resolves. The local removal is never rolled back: if the backend
// never records the acknowledgment, the next successful active-alert poll
// is the sole mechanism that re-surfaces the alert.
type AckCoordinator struct {
	client models.BackendClient
	queue  *Queue
	log    *logger.Logger
	wg     sync.WaitGroup
}

func NewAckCoordinator(client models.BackendClient, queue *Queue, log *logger.Logger) *AckCoordinator {
	return &AckCoordinator{
		client: client,
		queue:  queue,
		log:    log,
	}
}

// Acknowledge removes the alert from the notification queue and the active
// set immediately, then fires the backend call in the background so the
// caller never waits on network latency.
func (c *AckCoordinator) Acknowledge(alertID int64, user string) error {
	if alertID <= 0 {
		return ErrInvalidAlertID
	}

	c.queue.RemoveAlert(alertID)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
		defer cancel()

		if err := c.client.Acknowledge(ctx, alertID, user); err != nil {
			// Logged only. The alert reappears on a later poll if the
			// backend never recorded it.
			c.log.Error("Failed to acknowledge alert %d as %s: %v", alertID, user, err)
			return
		}

		c.log.Debug("Alert %d acknowledged by %s", alertID, user)
	}()

	return nil
}

// Wait blocks until all in-flight acknowledgment calls have finished.
// Used during shutdown and by tests.
func (c *AckCoordinator) Wait() {
	c.wg.Wait()
}
