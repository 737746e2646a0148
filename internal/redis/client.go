// Package redis publishes rendered frames for remote panels.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/koios/paperweather/internal/config"
	"github.com/koios/paperweather/pkg/models"
)

// Client publishes frames on a channel. It writes no keys.
type Client struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
	timeout time.Duration
}

// NewClient creates a publisher and checks the connection.
func NewClient(cfg config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	c := NewClientFromRedis(rdb, cfg.Channel, logger)
	if err := c.Ping(context.Background()); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.String("channel", cfg.Channel))
	return c, nil
}

// NewClientFromRedis wraps an existing client.
func NewClientFromRedis(rdb *redis.Client, channel string, logger *zap.Logger) *Client {
	return &Client{
		client:  rdb,
		channel: channel,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping tests the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// IsHealthy checks if Redis connection is healthy
func (c *Client) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.Ping(ctx) == nil
}

// PublishFrame publishes both planes of frame.
func (c *Client) PublishFrame(ctx context.Context, frame *models.RenderedFrame) error {
	msg, err := models.NewFrameMessage(frame, time.Now().UTC())
	if err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	receivers, err := c.client.Publish(ctx, c.channel, body).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", c.channel, err)
	}

	c.logger.Debug("Published frame",
		zap.String("channel", c.channel),
		zap.Int64("receivers", receivers),
		zap.Int("bytes", len(body)))
	return nil
}

// The display.Sink methods let the publisher mirror the active panel.

func (c *Client) Name() string { return "redis" }
func (c *Client) Init() error  { return nil }
func (c *Client) Clear() error { return nil }
func (c *Client) Sleep() error { return nil }

func (c *Client) Display(frame *models.RenderedFrame) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.PublishFrame(ctx, frame)
}
