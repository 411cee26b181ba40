package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/splitledger/internal/models"
)

// RedisBus fans activities out to every ledger node through Redis pub/sub.
// Each node forwards what it receives into its local Registry, so a user
// connected to any node gets the push.
type RedisBus struct {
	rdb     redis.UniversalClient
	channel string
	logger  *slog.Logger
}

// NewRedisBus creates a bus publishing on channel.
func NewRedisBus(rdb redis.UniversalClient, channel string, logger *slog.Logger) *RedisBus {
	if channel == "" {
		channel = "ledger-activity"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{rdb: rdb, channel: channel, logger: logger.With("service", "RedisActivityBus")}
}

// Publish sends an activity to every node.
func (b *RedisBus) Publish(ctx context.Context, a *models.Activity) error {
	raw, err := json.Marshal(NewActivityPayload(a))
	if err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish activity: %w", err)
	}
	return nil
}

// StartForwarder subscribes to the channel and calls onMsg for every
// activity until ctx ends. It returns once the subscription is live.
func (b *RedisBus) StartForwarder(ctx context.Context, onMsg func(*ActivityPayload)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var p ActivityPayload
				if err := json.Unmarshal([]byte(m.Payload), &p); err != nil {
					b.logger.Warn("bad redis activity payload", "error", err)
					continue
				}
				onMsg(&p)
			}
		}
	}()

	return nil
}
