// Package cachebackend is an optional pull-through accelerator in front of
// the on-disk cache. It is never the cache of record: a miss or a backend
// outage always falls back to a normal rebuild, it just skips a chance to
// avoid one.
package cachebackend

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rusty-tags/rtags/pkg/rterrors"
)

// Backend fetches and stores tag file bytes by a content-addressed key
// (typically a source's Hash plus its kind extension).
type Backend interface {
	Fetch(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, data []byte) error
	Close() error
}

// NullBackend always misses and discards stores; it's the default when no
// backend DSN is configured.
type NullBackend struct{}

// Fetch always reports a miss.
func (NullBackend) Fetch(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Store is a no-op.
func (NullBackend) Store(context.Context, string, []byte) error { return nil }

// Close is a no-op.
func (NullBackend) Close() error { return nil }

// RedisBackend mirrors tag file bytes into Redis, keyed under a fixed
// namespace so this tool's entries don't collide with anything else on a
// shared instance.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

const keyPrefix = "rtags:tags:"

// NewRedisBackend parses dsn (a redis:// URL) and returns a connected
// backend. ttl of 0 means entries never expire.
func NewRedisBackend(dsn string, ttl time.Duration) (*RedisBackend, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, rterrors.Wrap(rterrors.ConfigInvalid, err, "parse redis dsn")
	}
	return &RedisBackend{client: redis.NewClient(opts), ttl: ttl}, nil
}

// Fetch retrieves cached tag bytes for key. A connection error is reported
// to the caller, who is expected to treat any error here as "miss, proceed
// without the accelerator" rather than fatal.
func (b *RedisBackend) Fetch(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, rterrors.Wrap(rterrors.IoFailed, err, "fetch %q from redis", key)
	}
	return data, true, nil
}

// Store mirrors tag bytes into Redis. Best-effort: callers should log and
// continue on error rather than fail the build over it.
func (b *RedisBackend) Store(ctx context.Context, key string, data []byte) error {
	if err := b.client.Set(ctx, keyPrefix+key, data, b.ttl).Err(); err != nil {
		return rterrors.Wrap(rterrors.IoFailed, err, "store %q in redis", key)
	}
	return nil
}

// Close releases the underlying connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
