package sqlstore

import (
	"context"
	"fmt"

	"github.com/noticias/core/internal/models"
	"gorm.io/gorm"
)

type Categories struct {
	db *gorm.DB
}

func categoryModels(rows []categoryRecord) []models.Category {
	out := make([]models.Category, len(rows))
	for i, row := range rows {
		out[i] = row.model()
	}
	return out
}

func (r *Categories) ListActive(ctx context.Context, site string) ([]models.Category, error) {
	db := r.db.WithContext(ctx).Where("is_active = ?", true)
	if site != "" {
		db = db.Where("site = ?", site)
	}
	var rows []categoryRecord
	if err := db.Order("sort_order ASC").Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categoryModels(rows), nil
}

func (r *Categories) GetBySlug(ctx context.Context, site, slug string) (*models.Category, error) {
	db := r.db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true)
	if site != "" {
		db = db.Where("site = ?", site)
	}
	var row categoryRecord
	if err := db.Take(&row).Error; err != nil {
		return nil, translate(err)
	}
	c := row.model()
	return &c, nil
}

func (r *Categories) GetByIDs(ctx context.Context, ids []string) ([]models.Category, error) {
	if len(ids) == 0 {
		return []models.Category{}, nil
	}
	var rows []categoryRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("categories by id: %w", err)
	}
	return categoryModels(rows), nil
}
