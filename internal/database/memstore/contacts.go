package memstore

import (
	"context"
	"time"

	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/id"
)

type Contacts struct{ s *Store }

func (r *Contacts) Create(_ context.Context, m *models.ContactMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.ID == "" {
		m.ID = id.New()
	}
	now := r.s.now()
	m.CreatedAt, m.UpdatedAt = now, now
	c := *m
	c.SpamReasons = append([]string(nil), m.SpamReasons...)
	r.s.contacts[m.ID] = c
	return nil
}

func (r *Contacts) CountRecentByEmail(_ context.Context, site, email string, since time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, m := range r.s.contacts {
		if m.Site == site && m.Email == email && !m.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// All returns every stored contact message, for tests.
func (r *Contacts) All() []models.ContactMessage {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.ContactMessage, 0, len(r.s.contacts))
	for _, m := range r.s.contacts {
		out = append(out, m)
	}
	return out
}
