package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/noticias/core/internal/pkg/metrics"
	"go.uber.org/zap"
)

// NATS publishes events on core NATS subjects "<prefix>.<topic>".
type NATS struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// ConnectNATS dials url with reconnects enabled.
func ConnectNATS(url, prefix string, logger *zap.Logger) (*NATS, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("EventBus")
	nc, err := nats.Connect(url,
		nats.Name("noticias-core"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to nats", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats connection lost", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATS{conn: nc, prefix: prefix, logger: logger}, nil
}

func (b *NATS) subject(topic string) string {
	if b.prefix == "" {
		return topic
	}
	return b.prefix + "." + topic
}

func (b *NATS) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	err = b.conn.Publish(b.subject(e.Topic), data)
	metrics.EventsPublished.WithLabelValues("nats", e.Topic, metrics.Status(err)).Inc()
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Topic, err)
	}
	return nil
}

func (b *NATS) Subscribe(topic string, h Handler) (func(), error) {
	sub, err := b.conn.Subscribe(b.subject(topic), func(msg *nats.Msg) {
		var e Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			b.logger.Warn("drop malformed event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		h(context.Background(), e)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	// Flush so the server has registered the interest before we return.
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (b *NATS) Close() error {
	return b.conn.Drain()
}
