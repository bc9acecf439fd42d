// Package registry maintains an ephemeral directory of currently-active
// pktudp connections in Redis:
// same client construction, context-per-call, and Ping-on-connect pattern.
// This is pure observability — the core protocol shares no mutable state
// between connections; the registry only mirrors activity for operators.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Registry publishes connection activity to Redis with a short, renewed TTL.
type Registry struct {
	client *redis.Client
	ctx    context.Context
	ttl    time.Duration
}

// Config holds Redis connection settings for the registry.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // default 30s if zero
}

// New connects to Redis and returns a Registry, or an error if the server
// is unreachable. Callers that want the core to keep running without Redis
// should treat a non-nil error as "run without a registry" rather than a
// fatal condition.
func New(cfg Config) (*Registry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("registry: connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}

	return &Registry{client: client, ctx: ctx, ttl: ttl}, nil
}

// Touch implements pktconn.ActivityNotifier: it marks peerAddr as active,
// renewing its TTL.
func (r *Registry) Touch(peerAddr string) {
	if peerAddr == "" {
		return
	}
	key := fmt.Sprintf("pktudp:conn:%s", peerAddr)
	_ = r.client.Set(r.ctx, key, time.Now().UTC().Format(time.RFC3339), r.ttl).Err()
}

// ListActive returns the peer addresses of all currently-active connections.
func (r *Registry) ListActive() ([]string, error) {
	keys, err := r.client.Keys(r.ctx, "pktudp:conn:*").Result()
	if err != nil {
		return nil, fmt.Errorf("registry: list active: %w", err)
	}
	peers := make([]string, 0, len(keys))
	for _, k := range keys {
		peers = append(peers, k[len("pktudp:conn:"):])
	}
	return peers, nil
}

// Close closes the underlying Redis client.
func (r *Registry) Close() error {
	return r.client.Close()
}
