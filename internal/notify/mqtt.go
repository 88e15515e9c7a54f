package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"NetGuardEngine/internal/config"
	"NetGuardEngine/internal/engine"
	"NetGuardEngine/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher fans notification lifecycle events out to an MQTT broker so
// external integrations (annunciators, home automations) can react without
// talking to the engine API. Publish failures are logged and never reach
// the engine.
type MQTTPublisher struct {
	client    mqtt.Client
	cfg       *config.MQTTConfig
	log       *logger.Logger
	mu        sync.RWMutex
	connected bool
}

func NewMQTTPublisher(cfg *config.MQTTConfig, brokerURL string, log *logger.Logger) *MQTTPublisher {
	p := &MQTTPublisher{
		cfg: cfg,
		log: log,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(cfg.AutoReconnect)
	opts.SetCleanSession(true)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.setConnected(true)
		p.log.Info("Notification fan-out connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		p.log.Warn("MQTT connection lost: %v", err)
	})

	p.client = mqtt.NewClient(opts)

	return p
}

func (p *MQTTPublisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(p.cfg.ConnectTimeout) {
		return fmt.Errorf("mqtt connection timeout after %v", p.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	p.setConnected(true)
	return nil
}

func (p *MQTTPublisher) Disconnect() {
	p.setConnected(false)
	p.client.Disconnect(250)
	p.log.Info("Notification fan-out disconnected from MQTT broker")
}

func (p *MQTTPublisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected && p.client.IsConnected()
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

// Notify implements engine.EventSink. Topics follow
// <prefix>/<lowercased event type>, e.g. netguard/notifications/device_arrival.
func (p *MQTTPublisher) Notify(e engine.Event) {
	if !p.IsConnected() {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		p.log.Error("Failed to encode %s event: %v", e.Type, err)
		return
	}

	topic := p.cfg.TopicPrefix + "/" + strings.ToLower(string(e.Type))
	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.RetainMessages, payload)

	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			p.log.Error("Failed to publish %s to %s: %v", e.Type, topic, err)
		}
	}()
}
