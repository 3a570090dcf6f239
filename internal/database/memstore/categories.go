package memstore

import (
	"context"
	"sort"

	"github.com/noticias/core/internal/models"
)

type Categories struct{ s *Store }

func (r *Categories) ListActive(_ context.Context, site string) ([]models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("categories.listActive")
	out := make([]models.Category, 0)
	for _, c := range r.s.categories {
		if c.IsActive && (site == "" || c.Site == site) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *Categories) GetBySlug(_ context.Context, site, slug string) (*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.categories {
		if c.Slug == slug && c.IsActive && (site == "" || c.Site == site) {
			c := c
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Categories) GetByIDs(_ context.Context, ids []string) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.s.categories[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}
