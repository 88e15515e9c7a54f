package ws

import (
	"context"
	"encoding/json"
	"time"

	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/models"

	"github.com/gorilla/websocket"
)

// Consumer holds the connection to the backend's realtime channel. No
// alert or notification behavior is keyed off this channel today; frames
// are logged and forwarded to the presentation hub as a collaborator hook
// for future push-based reconciliation.
//
// Reconnection is fail-hard-and-restart: on any read error the whole client
// is torn down, the loop sleeps the configured delay, and a fresh connection
// is dialed from scratch. No in-place retry.
type Consumer struct {
	url   string
	delay time.Duration
	hub   *Hub
	log   *logger.Logger
}

func NewConsumer(url string, delay time.Duration, hub *Hub, log *logger.Logger) *Consumer {
	return &Consumer{
		url:   url,
		delay: delay,
		hub:   hub,
		log:   log,
	}
}

// Run dials, reads until failure, restarts. Exits on context cancellation.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.log.Warn("Backend channel dial failed: %v", err)
		} else {
			c.log.Info("Backend channel connected: %s", c.url)
			c.read(ctx, conn)
			conn.Close()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.delay):
			c.log.Info("Restarting backend channel client...")
		}
	}
}

func (c *Consumer) read(ctx context.Context, conn *websocket.Conn) {
	// Unblock the read when the engine is torn down.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("Backend channel closed: %v", err)
			}
			return
		}

		var frame models.WSMessage
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.log.Warn("Dropping malformed backend frame: %v", err)
			continue
		}

		c.log.Debug("Backend frame: %s", frame.Type)
		c.hub.Broadcast(frame.Type, frame.Data)
	}
}
