// Package redis publishes evaluation outcomes to Redis Pub/Sub so the
// dashboard can refresh without polling SQLite. Publishing is strictly
// best-effort: the engine runs unchanged when Redis is absent.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"simbot/internal/sim"
)

const defaultChannelPrefix = "pub:sim:outcome:"

// Config configures the publisher connection.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher publishes per-account evaluation outcomes.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a Publisher and pings the server.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// PublishOutcome pushes one outcome to the account's channel and mirrors
// it into a latest-value key with a TTL. Errors are logged and dropped.
func (p *Publisher) PublishOutcome(ctx context.Context, outcome sim.Outcome) {
	data, err := json.Marshal(outcome)
	if err != nil {
		log.Printf("[redis] marshal outcome: %v", err)
		return
	}

	channel := defaultChannelPrefix + outcome.AccountID
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("[redis] publish %s: %v", channel, err)
		return
	}

	latestKey := "sim:latest:" + outcome.AccountID
	if err := p.client.Set(ctx, latestKey, data, 24*time.Hour).Err(); err != nil {
		log.Printf("[redis] set %s: %v", latestKey, err)
	}
}

// Close closes the client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
