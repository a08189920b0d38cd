package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
)

// EntityEventBus fans enrichment events out to every interested process
// over a redis pub/sub channel. It satisfies enrichment.EventSink on the
// publishing side.
type EntityEventBus interface {
	PublishUpdate(ctx context.Context, event domain.EntityUpdateEvent) error
	PublishDelete(ctx context.Context, event domain.EntityDeleteEvent) error
	StartForwarder(ctx context.Context, onUpdate func(domain.EntityUpdateEvent), onDelete func(domain.EntityDeleteEvent)) error
	Close() error
}

type entityEventBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// envelope is the wire shape on the channel; exactly one of the payload
// fields is set.
type envelope struct {
	Type   string                    `json:"type"`
	Update *domain.EntityUpdateEvent `json:"update,omitempty"`
	Delete *domain.EntityDeleteEvent `json:"delete,omitempty"`
}

const (
	envelopeUpdate = "update"
	envelopeDelete = "delete"
)

func NewEntityEventBus(log *logger.Logger) (EntityEventBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_ENTITY_CHANNEL"))
	if ch == "" {
		ch = "entity-events"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &entityEventBus{
		log:     log.With("service", "RedisEntityEventBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *entityEventBus) PublishUpdate(ctx context.Context, event domain.EntityUpdateEvent) error {
	return b.publish(ctx, envelope{Type: envelopeUpdate, Update: &event})
}

func (b *entityEventBus) PublishDelete(ctx context.Context, event domain.EntityDeleteEvent) error {
	return b.publish(ctx, envelope{Type: envelopeDelete, Delete: &event})
}

func (b *entityEventBus) publish(ctx context.Context, env envelope) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("entity event bus not initialized")
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *entityEventBus) StartForwarder(ctx context.Context, onUpdate func(domain.EntityUpdateEvent), onDelete func(domain.EntityDeleteEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("entity event bus not initialized")
	}
	if onUpdate == nil || onDelete == nil {
		return fmt.Errorf("both callbacks required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					b.log.Warn("bad entity event payload", "error", err)
					continue
				}
				switch {
				case env.Type == envelopeUpdate && env.Update != nil:
					onUpdate(*env.Update)
				case env.Type == envelopeDelete && env.Delete != nil:
					onDelete(*env.Delete)
				default:
					b.log.Warn("unknown entity event envelope", "type", env.Type)
				}
			}
		}
	}()

	return nil
}

func (b *entityEventBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
