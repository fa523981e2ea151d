package gate

import (
	"context"
	"errors"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// ErrLocked means the platform kill switch is engaged and state-changing
// operations must be refused.
var ErrLocked = errors.New("platform maintenance lock is engaged")

// Gate is the operation-allowed capability checked once per
// state-changing invocation.
type Gate interface {
	Allow(ctx context.Context) error
}

// AllowAll is the gate used when no shared flag store is configured.
type AllowAll struct{}

func (AllowAll) Allow(context.Context) error { return nil }

// RedisGate reads the maintenance flag from redis on every call, so the
// lock takes effect across all instances without waiting out a cache.
type RedisGate struct {
	client *redis.Client
	key    string
	logger logrus.FieldLogger
}

func NewRedisGate(client *redis.Client, key string) *RedisGate {
	return &RedisGate{
		client: client,
		key:    key,
		logger: logrus.WithField("module", "maintenance-gate"),
	}
}

func (g *RedisGate) Allow(ctx context.Context) error {
	value, err := g.client.Get(ctx, g.key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		// Fail open: the kill switch protects planned maintenance, and a
		// flag-store outage must not take commerce down with it.
		g.logger.WithError(err).Warn("maintenance flag read failed, allowing operation")
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "locked", "on":
		return ErrLocked
	default:
		return nil
	}
}
