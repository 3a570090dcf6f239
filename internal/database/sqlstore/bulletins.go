package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/noticias/core/internal/models"
	"gorm.io/gorm"
)

type Bulletins struct {
	db  *gorm.DB
	now func() time.Time
}

func (r *Bulletins) take(db *gorm.DB) (*models.Bulletin, error) {
	var row bulletinRecord
	if err := db.Take(&row).Error; err != nil {
		return nil, translate(err)
	}
	b := row.model()
	return &b, nil
}

func (r *Bulletins) GetByTypeAndDate(ctx context.Context, site string, t models.BulletinType, day time.Time) (*models.Bulletin, error) {
	return r.take(r.db.WithContext(ctx).
		Where("site = ? AND type = ? AND publish_date = ?", site, string(t), day))
}

func (r *Bulletins) GetByID(ctx context.Context, id string) (*models.Bulletin, error) {
	return r.take(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *Bulletins) Create(ctx context.Context, b *models.Bulletin) error {
	now := r.now()
	b.CreatedAt, b.UpdatedAt = now, now
	rec := toBulletinRecord(b)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err)
	}
	b.ID = rec.ID
	return nil
}

func (r *Bulletins) Update(ctx context.Context, b *models.Bulletin) error {
	b.UpdatedAt = r.now()
	rec := toBulletinRecord(b)
	return updateRow(ctx, r.db, &rec, b.ID)
}

func (r *Bulletins) Claim(ctx context.Context, id string, staleBefore time.Time) (bool, error) {
	res := r.claimQuery(r.db.WithContext(ctx), id, staleBefore).
		UpdateColumns(map[string]any{
			"status":     string(models.BulletinSending),
			"updated_at": r.now(),
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	return false, ensureExists(ctx, r.db, &bulletinRecord{}, id)
}

func (r *Bulletins) claimQuery(db *gorm.DB, id string, staleBefore time.Time) *gorm.DB {
	return db.Model(&bulletinRecord{}).
		Where("id = ?", id).
		Where("status IN ? OR (status = ? AND updated_at < ?)",
			[]string{string(models.BulletinDraft), string(models.BulletinFailed)},
			string(models.BulletinSending), staleBefore)
}

func (r *Bulletins) IncrementStat(ctx context.Context, id, stat string, n int64) error {
	if !models.ValidStat(stat) {
		return fmt.Errorf("%w: stat %q", models.ErrInvalidInput, stat)
	}
	col := "stat_" + stat
	res := r.db.WithContext(ctx).Model(&bulletinRecord{}).Where("id = ?", id).
		UpdateColumns(map[string]any{
			col:          gorm.Expr(col+" + ?", n),
			"updated_at": r.now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ensureExists(ctx, r.db, &bulletinRecord{}, id)
	}
	return nil
}

func (r *Bulletins) List(ctx context.Context, site string, skip, limit int) ([]models.Bulletin, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if site != "" {
			return db.Where("site = ?", site)
		}
		return db
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&bulletinRecord{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count bulletins: %w", err)
	}
	var rows []bulletinRecord
	err := r.db.WithContext(ctx).Scopes(scope, paginate(skip, limit)).
		Omit("content_html", "content_text").
		Order("publish_date DESC").Order("type").
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list bulletins: %w", err)
	}
	out := make([]models.Bulletin, len(rows))
	for i, row := range rows {
		out[i] = row.model()
	}
	return out, total, nil
}
