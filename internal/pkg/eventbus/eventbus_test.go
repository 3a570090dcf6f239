package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/noticias/core/internal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPublishSubscribe(t *testing.T) {
	bus := NewLocal()
	var got []Event
	unsub, err := bus.Subscribe(TopicCategoryUpdated, func(_ context.Context, e Event) {
		got = append(got, e)
	})
	require.NoError(t, err)

	e, err := NewEvent(TopicCategoryUpdated, "deportes", map[string]string{"slug": "futbol"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), e))
	require.NoError(t, bus.Publish(context.Background(), Event{Topic: "other"}))

	require.Len(t, got, 1)
	assert.Equal(t, "deportes", got[0].Site)
	assert.JSONEq(t, `{"slug":"futbol"}`, string(got[0].Payload))

	unsub()
	require.NoError(t, bus.Publish(context.Background(), e))
	assert.Len(t, got, 1)
}

func TestLocalClosed(t *testing.T) {
	bus := NewLocal()
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), Event{Topic: "x"}), ErrClosed)
	_, err := bus.Subscribe("x", func(context.Context, Event) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRedisBus(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	bus := NewRedis(client, "noticias", nil)
	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan Event, 1)
	_, err := bus.Subscribe(TopicCategoryUpdated, func(_ context.Context, e Event) {
		received <- e
	})
	require.NoError(t, err)

	e, err := NewEvent(TopicCategoryUpdated, "criterio", nil)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), e))

	select {
	case got := <-received:
		assert.Equal(t, TopicCategoryUpdated, got.Topic)
		assert.Equal(t, "criterio", got.Site)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
