package sqlstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/noticias/core/internal/models"
	"gorm.io/gorm"
)

// Base carries the uuid primary key and timestamps shared by every table.
type Base struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// articleRecord keeps the normalized category reference and the raw legacy
// category name side by side. Each searchable column carries its own
// FULLTEXT index so relevance can be weighted per column.
type articleRecord struct {
	Base
	Site        string      `gorm:"type:varchar(64);index:idx_articles_listing,priority:1"`
	Title       string      `gorm:"type:varchar(512);not null;index:ft_articles_title,class:FULLTEXT"`
	Slug        string      `gorm:"type:varchar(191);index"`
	Summary     string      `gorm:"type:text;index:ft_articles_summary,class:FULLTEXT"`
	Content     string      `gorm:"type:longtext;index:ft_articles_content,class:FULLTEXT"`
	Image       string      `gorm:"type:varchar(1024)"`
	Author      string      `gorm:"type:varchar(191)"`
	AuthorSlug  string      `gorm:"type:varchar(191)"`
	Tags        StringArray `gorm:"type:json"`
	Keywords    StringArray `gorm:"type:json"`
	CategoryID  *string     `gorm:"type:char(36);index"`
	Category    string      `gorm:"type:varchar(191);index"`
	Status      string      `gorm:"type:varchar(16);index:idx_articles_listing,priority:2"`
	PublishedAt time.Time   `gorm:"index:idx_articles_listing,priority:3"`
	Views       int64       `gorm:"not null;default:0"`
	Score       float64     `gorm:"->;-:migration"`
}

func (articleRecord) TableName() string { return "noticias" }

func (r articleRecord) model() models.Article {
	a := models.Article{
		ID:           r.ID,
		Site:         r.Site,
		Title:        r.Title,
		Slug:         r.Slug,
		Summary:      r.Summary,
		Content:      r.Content,
		Image:        r.Image,
		Author:       r.Author,
		AuthorSlug:   r.AuthorSlug,
		Tags:         []string(r.Tags),
		Keywords:     []string(r.Keywords),
		CategoryName: r.Category,
		Status:       models.ArticleStatus(r.Status),
		PublishedAt:  r.PublishedAt,
		Views:        r.Views,
		Score:        r.Score,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.CategoryID != nil {
		a.CategoryID = *r.CategoryID
		a.CategoryName = ""
	}
	return a
}

type categoryRecord struct {
	Base
	Site           string `gorm:"type:varchar(64);uniqueIndex:idx_categories_site_slug,priority:1"`
	Name           string `gorm:"type:varchar(191);not null"`
	Slug           string `gorm:"type:varchar(191);not null;uniqueIndex:idx_categories_site_slug,priority:2"`
	Description    string `gorm:"type:text"`
	Color          string `gorm:"type:varchar(32)"`
	Icon           string `gorm:"type:varchar(64)"`
	IsActive       bool   `gorm:"not null;default:true;index"`
	Order          int    `gorm:"column:sort_order;not null;default:0"`
	SEOTitle       string `gorm:"column:seo_title;type:varchar(255)"`
	SEODescription string `gorm:"column:seo_description;type:text"`
	ArticleCount   int64  `gorm:"not null;default:0"`
	TotalViews     int64  `gorm:"not null;default:0"`
}

func (categoryRecord) TableName() string { return "categories" }

func (r categoryRecord) model() models.Category {
	return models.Category{
		ID:             r.ID,
		Site:           r.Site,
		Name:           r.Name,
		Slug:           r.Slug,
		Description:    r.Description,
		Color:          r.Color,
		Icon:           r.Icon,
		IsActive:       r.IsActive,
		Order:          r.Order,
		SEOTitle:       r.SEOTitle,
		SEODescription: r.SEODescription,
		ArticleCount:   r.ArticleCount,
		TotalViews:     r.TotalViews,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type preferenceColumns struct {
	Morning bool `gorm:"not null;default:false"`
	Evening bool `gorm:"not null;default:false"`
	Weekly  bool `gorm:"not null;default:false"`
	Sports  bool `gorm:"not null;default:false"`
}

type subscriberRecord struct {
	Base
	Site                     string            `gorm:"type:varchar(64);uniqueIndex:idx_subscribers_site_email,priority:1"`
	Email                    string            `gorm:"type:varchar(191);not null;uniqueIndex:idx_subscribers_site_email,priority:2"`
	Name                     string            `gorm:"type:varchar(191)"`
	Preferences              preferenceColumns `gorm:"embedded;embeddedPrefix:pref_"`
	Source                   string            `gorm:"type:varchar(64)"`
	IsActive                 bool              `gorm:"not null;index"`
	IsConfirmed              bool              `gorm:"not null;index"`
	ConfirmedAt              *time.Time
	SubscribedAt             time.Time
	UnsubscribedAt           *time.Time
	UnsubscribeReason        string  `gorm:"type:varchar(255)"`
	UnsubscribeToken         string  `gorm:"type:char(64);not null;uniqueIndex"`
	ConfirmationToken        *string `gorm:"type:char(64);index"`
	ConfirmationTokenExpires *time.Time
}

func (subscriberRecord) TableName() string { return "subscribers" }

func toSubscriberRecord(s *models.Subscriber) subscriberRecord {
	return subscriberRecord{
		Base:  Base{ID: s.ID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt},
		Site:  s.Site,
		Email: s.Email,
		Name:  s.Name,
		Preferences: preferenceColumns{
			Morning: s.Preferences.Morning,
			Evening: s.Preferences.Evening,
			Weekly:  s.Preferences.Weekly,
			Sports:  s.Preferences.Sports,
		},
		Source:                   s.Source,
		IsActive:                 s.IsActive,
		IsConfirmed:              s.IsConfirmed,
		ConfirmedAt:              s.ConfirmedAt,
		SubscribedAt:             s.SubscribedAt,
		UnsubscribedAt:           s.UnsubscribedAt,
		UnsubscribeReason:        s.UnsubscribeReason,
		UnsubscribeToken:         s.UnsubscribeToken,
		ConfirmationToken:        s.ConfirmationToken,
		ConfirmationTokenExpires: s.ConfirmationTokenExpires,
	}
}

func (r subscriberRecord) model() models.Subscriber {
	return models.Subscriber{
		ID:    r.ID,
		Site:  r.Site,
		Email: r.Email,
		Name:  r.Name,
		Preferences: models.Preferences{
			Morning: r.Preferences.Morning,
			Evening: r.Preferences.Evening,
			Weekly:  r.Preferences.Weekly,
			Sports:  r.Preferences.Sports,
		},
		Source:                   r.Source,
		IsActive:                 r.IsActive,
		IsConfirmed:              r.IsConfirmed,
		ConfirmedAt:              r.ConfirmedAt,
		SubscribedAt:             r.SubscribedAt,
		UnsubscribedAt:           r.UnsubscribedAt,
		UnsubscribeReason:        r.UnsubscribeReason,
		UnsubscribeToken:         r.UnsubscribeToken,
		ConfirmationToken:        r.ConfirmationToken,
		ConfirmationTokenExpires: r.ConfirmationTokenExpires,
		CreatedAt:                r.CreatedAt,
		UpdatedAt:                r.UpdatedAt,
	}
}

type statColumns struct {
	Sent         int64 `gorm:"not null;default:0"`
	Delivered    int64 `gorm:"not null;default:0"`
	Opened       int64 `gorm:"not null;default:0"`
	Clicked      int64 `gorm:"not null;default:0"`
	Bounced      int64 `gorm:"not null;default:0"`
	Unsubscribed int64 `gorm:"not null;default:0"`
}

type bulletinRecord struct {
	Base
	Site        string                   `gorm:"type:varchar(64);uniqueIndex:idx_bulletins_slot,priority:1"`
	Type        string                   `gorm:"type:varchar(16);not null;uniqueIndex:idx_bulletins_slot,priority:2"`
	PublishDate time.Time                `gorm:"not null;uniqueIndex:idx_bulletins_slot,priority:3"`
	Subject     string                   `gorm:"type:varchar(255)"`
	ContentHTML string                   `gorm:"type:longtext"`
	ContentText string                   `gorm:"type:longtext"`
	ArticleIDs  StringArray              `gorm:"type:json"`
	Snapshots   []models.ArticleSnapshot `gorm:"type:json;serializer:json"`
	Stats       statColumns              `gorm:"embedded;embeddedPrefix:stat_"`
	Status      string                   `gorm:"type:varchar(16);index"`
	ArchiveURL  string                   `gorm:"type:varchar(1024)"`
	SentAt      *time.Time
}

func (bulletinRecord) TableName() string { return "boletines" }

func toBulletinRecord(b *models.Bulletin) bulletinRecord {
	return bulletinRecord{
		Base:        Base{ID: b.ID, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt},
		Site:        b.Site,
		Type:        string(b.Type),
		PublishDate: b.PublishDate,
		Subject:     b.Subject,
		ContentHTML: b.Content.HTML,
		ContentText: b.Content.Text,
		ArticleIDs:  StringArray(append([]string{}, b.ArticleIDs...)),
		Snapshots:   append([]models.ArticleSnapshot{}, b.Snapshots...),
		Stats:       statColumns(b.Stats),
		Status:      string(b.Status),
		ArchiveURL:  b.ArchiveURL,
		SentAt:      b.SentAt,
	}
}

func (r bulletinRecord) model() models.Bulletin {
	return models.Bulletin{
		ID:          r.ID,
		Site:        r.Site,
		Type:        models.BulletinType(r.Type),
		PublishDate: r.PublishDate,
		Subject:     r.Subject,
		Content:     models.BulletinContent{HTML: r.ContentHTML, Text: r.ContentText},
		ArticleIDs:  []string(r.ArticleIDs),
		Snapshots:   r.Snapshots,
		Stats:       models.BulletinStats(r.Stats),
		Status:      models.BulletinStatus(r.Status),
		ArchiveURL:  r.ArchiveURL,
		SentAt:      r.SentAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type originColumns struct {
	IP        string `gorm:"type:varchar(64)"`
	UserAgent string `gorm:"type:varchar(512)"`
	Referer   string `gorm:"type:varchar(1024)"`
}

type contactRecord struct {
	Base
	Site        string        `gorm:"type:varchar(64);index:idx_contacts_recent,priority:1"`
	Name        string        `gorm:"type:varchar(191)"`
	Email       string        `gorm:"type:varchar(191);index:idx_contacts_recent,priority:2"`
	Phone       string        `gorm:"type:varchar(32)"`
	Subject     string        `gorm:"type:varchar(255)"`
	Message     string        `gorm:"type:text"`
	Status      string        `gorm:"type:varchar(16);index"`
	SpamScore   int           `gorm:"not null;default:0"`
	SpamReasons StringArray   `gorm:"type:json"`
	Origin      originColumns `gorm:"embedded;embeddedPrefix:origin_"`
}

func (contactRecord) TableName() string { return "contacts" }

// allRecords lists every table for AutoMigrate.
var allRecords = []any{
	&articleRecord{},
	&categoryRecord{},
	&subscriberRecord{},
	&bulletinRecord{},
	&contactRecord{},
}
