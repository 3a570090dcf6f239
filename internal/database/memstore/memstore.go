// Package memstore is an in-process backend used for development and tests.
// It mirrors the query semantics of the MongoDB backend closely enough for
// service tests, including a small weighted text search.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/id"
)

// Store holds every collection behind one lock.
type Store struct {
	mu          sync.RWMutex
	articles    map[string]models.Article
	categories  map[string]models.Category
	subscribers map[string]models.Subscriber
	bulletins   map[string]models.Bulletin
	contacts    map[string]models.ContactMessage
	now         func() time.Time

	// Calls counts store round trips per operation name, for tests that
	// assert caching behavior.
	calls map[string]int
}

type Option func(*Store)

// WithClock sets the clock used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		articles:    make(map[string]models.Article),
		categories:  make(map[string]models.Category),
		subscribers: make(map[string]models.Subscriber),
		bulletins:   make(map[string]models.Bulletin),
		contacts:    make(map[string]models.ContactMessage),
		now:         time.Now,
		calls:       make(map[string]int),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Articles etc. expose the typed views over the shared store.
func (s *Store) Articles() *Articles       { return &Articles{s} }
func (s *Store) Categories() *Categories   { return &Categories{s} }
func (s *Store) Subscribers() *Subscribers { return &Subscribers{s} }
func (s *Store) Bulletins() *Bulletins     { return &Bulletins{s} }
func (s *Store) Contacts() *Contacts       { return &Contacts{s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

func (s *Store) track(op string) {
	s.calls[op]++
}

// PutArticle inserts or replaces an article, assigning an id when empty.
func (s *Store) PutArticle(a models.Article) models.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = id.New()
	}
	if a.Status == "" {
		a.Status = models.ArticlePublished
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	a.UpdatedAt = s.now()
	s.articles[a.ID] = cloneArticle(a)
	return a
}

// PutCategory inserts or replaces a category, assigning an id when empty.
func (s *Store) PutCategory(c models.Category) models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = id.New()
	}
	s.categories[c.ID] = c
	return c
}

func cloneArticle(a models.Article) models.Article {
	a.Tags = append([]string(nil), a.Tags...)
	a.Keywords = append([]string(nil), a.Keywords...)
	return a
}

func cloneSubscriber(sub models.Subscriber) models.Subscriber {
	if sub.ConfirmationToken != nil {
		t := *sub.ConfirmationToken
		sub.ConfirmationToken = &t
	}
	if sub.ConfirmationTokenExpires != nil {
		t := *sub.ConfirmationTokenExpires
		sub.ConfirmationTokenExpires = &t
	}
	if sub.ConfirmedAt != nil {
		t := *sub.ConfirmedAt
		sub.ConfirmedAt = &t
	}
	if sub.UnsubscribedAt != nil {
		t := *sub.UnsubscribedAt
		sub.UnsubscribedAt = &t
	}
	return sub
}

func cloneBulletin(b models.Bulletin) models.Bulletin {
	b.ArticleIDs = append([]string(nil), b.ArticleIDs...)
	b.Snapshots = append([]models.ArticleSnapshot(nil), b.Snapshots...)
	if b.SentAt != nil {
		t := *b.SentAt
		b.SentAt = &t
	}
	return b
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
