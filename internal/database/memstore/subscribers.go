package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/id"
)

type Subscribers struct{ s *Store }

func (r *Subscribers) find(pred func(models.Subscriber) bool) (*models.Subscriber, error) {
	for _, sub := range r.s.subscribers {
		if pred(sub) {
			c := cloneSubscriber(sub)
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Subscribers) GetByEmail(_ context.Context, site, email string) (*models.Subscriber, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.find(func(sub models.Subscriber) bool {
		return sub.Email == email && sub.Site == site
	})
}

func (r *Subscribers) GetByConfirmationToken(_ context.Context, token string, now time.Time) (*models.Subscriber, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.find(func(sub models.Subscriber) bool {
		return sub.ConfirmationToken != nil && *sub.ConfirmationToken == token &&
			sub.ConfirmationTokenExpires != nil && sub.ConfirmationTokenExpires.After(now)
	})
}

func (r *Subscribers) GetByUnsubscribeToken(_ context.Context, token string) (*models.Subscriber, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.find(func(sub models.Subscriber) bool {
		return sub.UnsubscribeToken == token
	})
}

func (r *Subscribers) Create(_ context.Context, sub *models.Subscriber) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("subscribers.create")
	for _, existing := range r.s.subscribers {
		if existing.Site == sub.Site && existing.Email == sub.Email {
			return models.ErrDuplicate
		}
		if existing.UnsubscribeToken == sub.UnsubscribeToken {
			return models.ErrDuplicate
		}
	}
	if sub.ID == "" {
		sub.ID = id.New()
	}
	now := r.s.now()
	sub.CreatedAt, sub.UpdatedAt = now, now
	r.s.subscribers[sub.ID] = cloneSubscriber(*sub)
	return nil
}

func (r *Subscribers) Update(_ context.Context, sub *models.Subscriber) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("subscribers.update")
	if _, ok := r.s.subscribers[sub.ID]; !ok {
		return models.ErrNotFound
	}
	sub.UpdatedAt = r.s.now()
	r.s.subscribers[sub.ID] = cloneSubscriber(*sub)
	return nil
}

func (r *Subscribers) ListRecipients(_ context.Context, site string, t models.BulletinType) ([]models.Subscriber, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Subscriber, 0)
	for _, sub := range r.s.subscribers {
		if sub.Site == site && sub.IsActive && sub.IsConfirmed && sub.Preferences.Wants(t) {
			out = append(out, cloneSubscriber(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *Subscribers) List(_ context.Context, q models.SubscriberQuery) ([]models.Subscriber, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Subscriber, 0)
	for _, sub := range r.s.subscribers {
		if q.Site != "" && sub.Site != q.Site {
			continue
		}
		if q.Active != nil && sub.IsActive != *q.Active {
			continue
		}
		if q.Confirmed != nil && sub.IsConfirmed != *q.Confirmed {
			continue
		}
		out = append(out, cloneSubscriber(sub))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubscribedAt.Equal(out[j].SubscribedAt) {
			return out[i].SubscribedAt.After(out[j].SubscribedAt)
		}
		return out[i].Email < out[j].Email
	})
	return page(out, q.Skip, q.Limit), int64(len(out)), nil
}

func (r *Subscribers) Stats(_ context.Context, site string) (*models.SubscriberStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st := &models.SubscriberStats{ByType: map[models.BulletinType]int64{}}
	for _, t := range models.BulletinTypes {
		st.ByType[t] = 0
	}
	for _, sub := range r.s.subscribers {
		if site != "" && sub.Site != site {
			continue
		}
		st.Total++
		if sub.IsActive {
			st.Active++
		}
		if sub.IsConfirmed {
			st.Confirmed++
		} else {
			st.Unconfirmed++
		}
		if sub.IsActive && sub.IsConfirmed {
			for _, t := range models.BulletinTypes {
				if sub.Preferences.Wants(t) {
					st.ByType[t]++
				}
			}
		}
	}
	return st, nil
}
