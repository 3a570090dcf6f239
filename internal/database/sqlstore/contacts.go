package sqlstore

import (
	"context"
	"time"

	"github.com/noticias/core/internal/models"
	"gorm.io/gorm"
)

type Contacts struct {
	db  *gorm.DB
	now func() time.Time
}

func (r *Contacts) Create(ctx context.Context, m *models.ContactMessage) error {
	now := r.now()
	m.CreatedAt, m.UpdatedAt = now, now
	rec := contactRecord{
		Base:        Base{ID: m.ID, CreatedAt: now, UpdatedAt: now},
		Site:        m.Site,
		Name:        m.Name,
		Email:       m.Email,
		Phone:       m.Phone,
		Subject:     m.Subject,
		Message:     m.Message,
		Status:      string(m.Status),
		SpamScore:   m.SpamScore,
		SpamReasons: StringArray(m.SpamReasons),
		Origin:      originColumns(m.Origin),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err)
	}
	m.ID = rec.ID
	return nil
}

func (r *Contacts) CountRecentByEmail(ctx context.Context, site, email string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&contactRecord{}).
		Where("site = ? AND email = ? AND created_at >= ?", site, email, since).
		Count(&n).Error
	return n, err
}
