package redis

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const invalidationChannel = "entitlement:invalidate"

// InvalidationSubscriber drops in-memory entitlements when another instance
// reports a subscription or role change.
type InvalidationSubscriber struct {
	rdb   *goredis.Client
	cache *EntitlementCache
}

func NewInvalidationSubscriber(rdb *goredis.Client, cache *EntitlementCache) *InvalidationSubscriber {
	return &InvalidationSubscriber{rdb: rdb, cache: cache}
}

// Start blocks until ctx is cancelled.
func (s *InvalidationSubscriber) Start(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, invalidationChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			s.handleInvalidation(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *InvalidationSubscriber) handleInvalidation(payload string) {
	if _, err := uuid.Parse(payload); err != nil {
		slog.Warn("Ignoring malformed entitlement invalidation", "payload", payload)
		return
	}
	s.cache.evictLocal(payload)
	slog.Debug("Entitlement cache invalidated via pub/sub", "user_id", payload)
}
