package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/noticias/core/internal/models"
	"gorm.io/gorm"
)

var preferenceColumn = map[models.BulletinType]string{
	models.BulletinMorning: "pref_morning",
	models.BulletinEvening: "pref_evening",
	models.BulletinWeekly:  "pref_weekly",
	models.BulletinSports:  "pref_sports",
}

type Subscribers struct {
	db  *gorm.DB
	now func() time.Time
}

func (r *Subscribers) take(db *gorm.DB) (*models.Subscriber, error) {
	var row subscriberRecord
	if err := db.Take(&row).Error; err != nil {
		return nil, translate(err)
	}
	s := row.model()
	return &s, nil
}

func subscriberModels(rows []subscriberRecord) []models.Subscriber {
	out := make([]models.Subscriber, len(rows))
	for i, row := range rows {
		out[i] = row.model()
	}
	return out
}

func (r *Subscribers) GetByEmail(ctx context.Context, site, email string) (*models.Subscriber, error) {
	return r.take(r.db.WithContext(ctx).Where("site = ? AND email = ?", site, email))
}

func (r *Subscribers) GetByConfirmationToken(ctx context.Context, token string, now time.Time) (*models.Subscriber, error) {
	return r.take(r.db.WithContext(ctx).
		Where("confirmation_token = ? AND confirmation_token_expires > ?", token, now))
}

func (r *Subscribers) GetByUnsubscribeToken(ctx context.Context, token string) (*models.Subscriber, error) {
	return r.take(r.db.WithContext(ctx).Where("unsubscribe_token = ?", token))
}

func (r *Subscribers) Create(ctx context.Context, s *models.Subscriber) error {
	now := r.now()
	s.CreatedAt, s.UpdatedAt = now, now
	rec := toSubscriberRecord(s)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err)
	}
	s.ID = rec.ID
	return nil
}

func (r *Subscribers) Update(ctx context.Context, s *models.Subscriber) error {
	s.UpdatedAt = r.now()
	rec := toSubscriberRecord(s)
	return updateRow(ctx, r.db, &rec, s.ID)
}

func (r *Subscribers) ListRecipients(ctx context.Context, site string, t models.BulletinType) ([]models.Subscriber, error) {
	col, ok := preferenceColumn[t]
	if !ok {
		return nil, fmt.Errorf("%w: bulletin type %q", models.ErrInvalidInput, t)
	}
	var rows []subscriberRecord
	err := r.db.WithContext(ctx).
		Where("site = ? AND is_active = ? AND is_confirmed = ?", site, true, true).
		Where(col+" = ?", true).
		Order("email").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return subscriberModels(rows), nil
}

func subscriberScope(q models.SubscriberQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.Site != "" {
			db = db.Where("site = ?", q.Site)
		}
		if q.Active != nil {
			db = db.Where("is_active = ?", *q.Active)
		}
		if q.Confirmed != nil {
			db = db.Where("is_confirmed = ?", *q.Confirmed)
		}
		return db
	}
}

func (r *Subscribers) List(ctx context.Context, q models.SubscriberQuery) ([]models.Subscriber, int64, error) {
	base := r.db.WithContext(ctx).Model(&subscriberRecord{}).Scopes(subscriberScope(q))
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count subscribers: %w", err)
	}
	var rows []subscriberRecord
	err := r.db.WithContext(ctx).Scopes(subscriberScope(q), paginate(q.Skip, q.Limit)).
		Order("subscribed_at DESC").Order("email").
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list subscribers: %w", err)
	}
	return subscriberModels(rows), total, nil
}

func (r *Subscribers) Stats(ctx context.Context, site string) (*models.SubscriberStats, error) {
	var row struct {
		Total       int64
		Active      int64
		Confirmed   int64
		Unconfirmed int64
		Morning     int64
		Evening     int64
		Weekly      int64
		Sports      int64
	}
	db := r.db.WithContext(ctx).Model(&subscriberRecord{}).Select(
		"COUNT(*) AS total, " +
			"COALESCE(SUM(is_active), 0) AS active, " +
			"COALESCE(SUM(is_confirmed), 0) AS confirmed, " +
			"COALESCE(SUM(NOT is_confirmed), 0) AS unconfirmed, " +
			"COALESCE(SUM(is_active AND is_confirmed AND pref_morning), 0) AS morning, " +
			"COALESCE(SUM(is_active AND is_confirmed AND pref_evening), 0) AS evening, " +
			"COALESCE(SUM(is_active AND is_confirmed AND pref_weekly), 0) AS weekly, " +
			"COALESCE(SUM(is_active AND is_confirmed AND pref_sports), 0) AS sports")
	if site != "" {
		db = db.Where("site = ?", site)
	}
	if err := db.Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("subscriber stats: %w", err)
	}
	return &models.SubscriberStats{
		Total:       row.Total,
		Active:      row.Active,
		Confirmed:   row.Confirmed,
		Unconfirmed: row.Unconfirmed,
		ByType: map[models.BulletinType]int64{
			models.BulletinMorning: row.Morning,
			models.BulletinEvening: row.Evening,
			models.BulletinWeekly:  row.Weekly,
			models.BulletinSports:  row.Sports,
		},
	}, nil
}
