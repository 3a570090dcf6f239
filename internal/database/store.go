package database

import (
	"context"
	"time"

	"github.com/noticias/core/internal/models"
)

// ArticleStore reads published articles. Every query is restricted to
// status=published.
type ArticleStore interface {
	Find(ctx context.Context, q models.ArticleQuery) ([]models.Article, error)
	Count(ctx context.Context, q models.ArticleQuery) (int64, error)
	GetBySlug(ctx context.Context, site, slug string) (*models.Article, error)
	IncrementViews(ctx context.Context, id string) error
	// LegacyCategoryCounts returns the distinct raw category strings of
	// published articles with their counts.
	LegacyCategoryCounts(ctx context.Context, site string) ([]models.CategoryCount, error)
}

type CategoryStore interface {
	// ListActive returns active categories sorted by (order, name).
	ListActive(ctx context.Context, site string) ([]models.Category, error)
	GetBySlug(ctx context.Context, site, slug string) (*models.Category, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Category, error)
}

type SubscriberStore interface {
	GetByEmail(ctx context.Context, site, email string) (*models.Subscriber, error)
	// GetByConfirmationToken only matches tokens whose expiry is after now.
	GetByConfirmationToken(ctx context.Context, token string, now time.Time) (*models.Subscriber, error)
	GetByUnsubscribeToken(ctx context.Context, token string) (*models.Subscriber, error)
	Create(ctx context.Context, s *models.Subscriber) error
	Update(ctx context.Context, s *models.Subscriber) error
	// ListRecipients returns active, confirmed subscribers of site whose
	// preference flag for t is on.
	ListRecipients(ctx context.Context, site string, t models.BulletinType) ([]models.Subscriber, error)
	List(ctx context.Context, q models.SubscriberQuery) ([]models.Subscriber, int64, error)
	Stats(ctx context.Context, site string) (*models.SubscriberStats, error)
}

type BulletinStore interface {
	GetByTypeAndDate(ctx context.Context, site string, t models.BulletinType, day time.Time) (*models.Bulletin, error)
	GetByID(ctx context.Context, id string) (*models.Bulletin, error)
	Create(ctx context.Context, b *models.Bulletin) error
	Update(ctx context.Context, b *models.Bulletin) error
	// Claim moves a draft or failed bulletin, or one left sending since
	// before staleBefore, to sending. It reports false when another run
	// holds the bulletin or it was already sent.
	Claim(ctx context.Context, id string, staleBefore time.Time) (bool, error)
	IncrementStat(ctx context.Context, id, stat string, n int64) error
	List(ctx context.Context, site string, skip, limit int) ([]models.Bulletin, int64, error)
}

type ContactStore interface {
	Create(ctx context.Context, m *models.ContactMessage) error
	CountRecentByEmail(ctx context.Context, site, email string, since time.Time) (int64, error)
}

// Stores bundles one backend's implementations.
type Stores struct {
	Articles    ArticleStore
	Categories  CategoryStore
	Subscribers SubscriberStore
	Bulletins   BulletinStore
	Contacts    ContactStore

	Driver string
	ping   func(ctx context.Context) error
	close  func(ctx context.Context) error
}

// Ping checks the backend connection.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend connection.
func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
