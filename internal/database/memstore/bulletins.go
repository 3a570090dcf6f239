package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/id"
)

type Bulletins struct{ s *Store }

func (r *Bulletins) GetByTypeAndDate(_ context.Context, site string, t models.BulletinType, day time.Time) (*models.Bulletin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.bulletins {
		if b.Site == site && b.Type == t && b.PublishDate.Equal(day) {
			c := cloneBulletin(b)
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Bulletins) GetByID(_ context.Context, bid string) (*models.Bulletin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bulletins[bid]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := cloneBulletin(b)
	return &c, nil
}

func (r *Bulletins) Create(_ context.Context, b *models.Bulletin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.bulletins {
		if existing.Site == b.Site && existing.Type == b.Type && existing.PublishDate.Equal(b.PublishDate) {
			return models.ErrDuplicate
		}
	}
	if b.ID == "" {
		b.ID = id.New()
	}
	now := r.s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.bulletins[b.ID] = cloneBulletin(*b)
	return nil
}

func (r *Bulletins) Update(_ context.Context, b *models.Bulletin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bulletins[b.ID]; !ok {
		return models.ErrNotFound
	}
	b.UpdatedAt = r.s.now()
	r.s.bulletins[b.ID] = cloneBulletin(*b)
	return nil
}

func (r *Bulletins) Claim(_ context.Context, bid string, staleBefore time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bulletins[bid]
	if !ok {
		return false, models.ErrNotFound
	}
	switch {
	case b.Status == models.BulletinDraft, b.Status == models.BulletinFailed:
	case b.Status == models.BulletinSending && b.UpdatedAt.Before(staleBefore):
	default:
		return false, nil
	}
	b.Status = models.BulletinSending
	b.UpdatedAt = r.s.now()
	r.s.bulletins[bid] = b
	return true, nil
}

func (r *Bulletins) IncrementStat(_ context.Context, bid, stat string, n int64) error {
	if !models.ValidStat(stat) {
		return fmt.Errorf("%w: unknown stat %q", models.ErrInvalidInput, stat)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bulletins[bid]
	if !ok {
		return models.ErrNotFound
	}
	switch stat {
	case models.StatSent:
		b.Stats.Sent += n
	case models.StatDelivered:
		b.Stats.Delivered += n
	case models.StatOpened:
		b.Stats.Opened += n
	case models.StatClicked:
		b.Stats.Clicked += n
	case models.StatBounced:
		b.Stats.Bounced += n
	case models.StatUnsubscribed:
		b.Stats.Unsubscribed += n
	}
	r.s.bulletins[bid] = b
	return nil
}

func (r *Bulletins) List(_ context.Context, site string, skip, limit int) ([]models.Bulletin, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Bulletin, 0)
	for _, b := range r.s.bulletins {
		if site == "" || b.Site == site {
			out = append(out, cloneBulletin(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishDate.Equal(out[j].PublishDate) {
			return out[i].PublishDate.After(out[j].PublishDate)
		}
		return out[i].Type < out[j].Type
	})
	return page(out, skip, limit), int64(len(out)), nil
}
