package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/noticias/core/internal/pkg/metrics"
	"github.com/noticias/core/internal/pkg/redis"
	"go.uber.org/zap"
)

// Redis fans events out through Redis pub/sub so every instance sees them.
// Delivery is at-most-once; instances that are down miss events.
type Redis struct {
	client *redis.Client
	prefix string
	logger *zap.Logger

	mu     sync.Mutex
	cancel []context.CancelFunc
	wg     sync.WaitGroup
}

func NewRedis(client *redis.Client, prefix string, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, prefix: prefix, logger: logger.Named("EventBus")}
}

func (b *Redis) channel(topic string) string {
	if b.prefix == "" {
		return topic
	}
	return b.prefix + ":" + topic
}

func (b *Redis) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	err = b.client.Publish(ctx, b.channel(e.Topic), data)
	metrics.EventsPublished.WithLabelValues("redis", e.Topic, metrics.Status(err)).Inc()
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Topic, err)
	}
	return nil
}

// Subscribe returns once Redis has acknowledged the subscription, so events
// published after it returns are not lost.
func (b *Redis) Subscribe(topic string, h Handler) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	ps := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	b.mu.Lock()
	b.cancel = append(b.cancel, cancel)
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					b.logger.Warn("drop malformed event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				h(ctx, e)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// Close stops every subscription and waits for their goroutines.
func (b *Redis) Close() error {
	b.mu.Lock()
	for _, c := range b.cancel {
		c()
	}
	b.cancel = nil
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}
