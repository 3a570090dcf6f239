// Package eventbus carries domain events between components, in process or
// across instances through Redis pub/sub or NATS.
package eventbus

import (
	"context"
	"encoding/json"
	"time"
)

// Topics.
const (
	TopicCategoryUpdated   = "category.updated"
	TopicSubscriberChanged = "subscriber.changed"
	TopicBulletinSent      = "bulletin.sent"
)

// Event is a published notification. Site is empty for events that apply to
// every site.
type Event struct {
	Topic   string          `json:"topic"`
	Site    string          `json:"site,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

// Handler consumes events. Handlers must not block for long: the local bus
// runs them on the publisher's goroutine.
type Handler func(ctx context.Context, e Event)

// Bus publishes and subscribes to events.
type Bus interface {
	Publish(ctx context.Context, e Event) error
	// Subscribe registers h for topic and returns a function that removes it.
	Subscribe(topic string, h Handler) (func(), error)
	Close() error
}

// NewEvent builds an event with payload encoded as JSON.
func NewEvent(topic, site string, payload any) (Event, error) {
	e := Event{Topic: topic, Site: site, At: time.Now().UTC()}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		e.Payload = b
	}
	return e, nil
}
