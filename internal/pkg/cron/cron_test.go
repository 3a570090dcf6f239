package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyAt(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	s := DailyAt(7, 0, loc)

	before := time.Date(2026, 3, 10, 6, 59, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 10, 7, 0, 0, 0, loc), s.Next(before))

	exact := time.Date(2026, 3, 10, 7, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, loc), s.Next(exact))
}

func TestWeeklyAt(t *testing.T) {
	loc := time.UTC
	s := WeeklyAt(time.Sunday, 9, 30, loc)

	// 2026-03-10 is a Tuesday.
	next := s.Next(time.Date(2026, 3, 10, 12, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 3, 15, 9, 30, 0, 0, loc), next)
	assert.Equal(t, time.Sunday, next.Weekday())

	after := s.Next(next)
	assert.Equal(t, next.AddDate(0, 0, 7), after)
}

func TestParse(t *testing.T) {
	loc := time.UTC
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, loc)

	s, err := Parse("07:05", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 7, 5, 0, 0, loc), s.Next(at))

	s, err = Parse("Dom 09:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 9, 0, 0, 0, loc), s.Next(at))

	for _, bad := range []string{"", "25:00", "funday 07:00", "sun 07:00 extra"} {
		_, err := Parse(bad, loc)
		assert.Error(t, err, bad)
	}
}

func TestEvery(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, at.Add(time.Hour), Every(time.Hour).Next(at))
}

func TestRunRecordsStatus(t *testing.T) {
	s := New()
	var calls atomic.Int32
	s.Register(Job{Name: "ok", Schedule: Every(time.Hour), Fn: func(context.Context) error {
		calls.Add(1)
		return nil
	}})
	s.Register(Job{Name: "bad", Schedule: Every(time.Hour), Fn: func(context.Context) error {
		return errors.New("boom")
	}})

	require.NoError(t, s.Run(context.Background(), "ok"))
	assert.EqualError(t, s.Run(context.Background(), "bad"), `job "bad": boom`)
	assert.Error(t, s.Run(context.Background(), "missing"))
	assert.Equal(t, int32(1), calls.Load())

	items := s.List()
	require.Len(t, items, 2)
	assert.Equal(t, "bad", items[0].Name)
	assert.Equal(t, StatusReject, items[0].Status)
	assert.Equal(t, StatusFulfill, items[1].Status)
}

func TestStartStopsOnCancel(t *testing.T) {
	s := New()
	fired := make(chan struct{}, 8)
	s.Register(Job{Name: "tick", Schedule: Every(5 * time.Millisecond), Fn: func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("job never fired")
	}
	cancel()
	s.Wait()
}

func TestRunRecoversPanic(t *testing.T) {
	s := New()
	s.Register(Job{Name: "panics", Schedule: Every(time.Hour), Fn: func(context.Context) error {
		panic("nil map")
	}})

	err := s.Run(t.Context(), "panics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked: nil map")
	assert.Equal(t, StatusReject, s.List()[0].Status)
}
