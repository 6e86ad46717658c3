package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"goose/pkg/logging"
)

// DefaultRedisPrefix namespaces session keys in a shared Redis.
const DefaultRedisPrefix = "goose"

// defaultRedisOpTimeout bounds each store call; the Store contract is
// synchronous, so a stalled Redis must not hang the caller.
const defaultRedisOpTimeout = 5 * time.Second

// Redis keeps the session keys in Redis as plain strings without expiry.
// Session lifetime is decided by the backend, not by the store.
type Redis struct {
	client    redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

// RedisOptions configures a Redis store.
type RedisOptions struct {
	// Prefix is prepended to every key as "<prefix>:<key>".
	Prefix string

	// OpTimeout bounds a single Get/Set/Remove. Defaults to 5s.
	OpTimeout time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, opts RedisOptions) *Redis {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	timeout := opts.OpTimeout
	if timeout <= 0 {
		timeout = defaultRedisOpTimeout
	}
	return &Redis{
		client:    client,
		prefix:    prefix,
		opTimeout: timeout,
	}
}

func (r *Redis) key(k string) string {
	return r.prefix + ":" + k
}

// Get returns the value under the prefixed key. Redis errors read as absent.
func (r *Redis) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Warn("Store", "Redis get for %s failed, treating as absent: %v", key, err)
		}
		return "", false
	}
	return v, true
}

// Set stores value without expiry. Failures are audited, not returned.
func (r *Redis) Set(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		r.audit("key_store_failed", "failure", key, err)
		return
	}
	r.audit("key_stored", "success", key, nil)
}

// Remove deletes the prefixed key.
func (r *Redis) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.audit("key_delete_failed", "failure", key, err)
		return
	}
	r.audit("key_deleted", "success", key, nil)
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) audit(event, outcome, key string, err error) {
	attrs := []slog.Attr{
		slog.String("backend", "redis"),
		slog.String("key", r.key(key)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logging.Audit(logging.AuditEvent{
		Event:     event,
		Subsystem: "Store",
		Outcome:   outcome,
		Attrs:     attrs,
	})
}

var _ Store = (*Redis)(nil)
