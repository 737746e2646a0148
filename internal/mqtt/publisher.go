// Package mqtt mirrors rendered frames to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/koios/paperweather/internal/config"
	"github.com/koios/paperweather/pkg/models"
)

// Publisher sends each frame as a JSON FrameMessage on one topic.
type Publisher struct {
	client   paho.Client
	topic    string
	qos      byte
	retained bool
	timeout  time.Duration
	logger   *zap.Logger
}

// NewPublisher connects to the broker.
func NewPublisher(cfg config.MQTTConfig, logger *zap.Logger) (*Publisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	p := NewPublisherFromClient(paho.NewClient(opts), cfg, logger)
	token := p.client.Connect()
	if !token.WaitTimeout(p.timeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	logger.Info("Connected to MQTT broker",
		zap.String("broker", cfg.Broker),
		zap.String("topic", cfg.Topic))
	return p, nil
}

// NewPublisherFromClient wraps an existing client.
func NewPublisherFromClient(client paho.Client, cfg config.MQTTConfig, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:   client,
		topic:    cfg.Topic,
		qos:      cfg.QoS,
		retained: cfg.Retained,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// PublishFrame publishes both planes of frame.
func (p *Publisher) PublishFrame(frame *models.RenderedFrame) error {
	msg, err := models.NewFrameMessage(frame, time.Now().UTC())
	if err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	token := p.client.Publish(p.topic, p.qos, p.retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("timed out publishing to MQTT topic %s", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to MQTT topic %s: %w", p.topic, err)
	}

	p.logger.Debug("Published frame",
		zap.String("topic", p.topic),
		zap.Int("bytes", len(payload)))
	return nil
}

// IsHealthy reports whether the broker connection is up.
func (p *Publisher) IsHealthy() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects, giving in-flight messages a moment to go out.
func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

// The display.Sink methods let the publisher mirror the active panel.

func (p *Publisher) Name() string { return "mqtt" }
func (p *Publisher) Init() error  { return nil }
func (p *Publisher) Clear() error { return nil }
func (p *Publisher) Sleep() error { return nil }

func (p *Publisher) Display(frame *models.RenderedFrame) error {
	return p.PublishFrame(frame)
}
