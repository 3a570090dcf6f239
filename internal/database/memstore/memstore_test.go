package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/slug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T) *Store {
	t.Helper()
	s := New(WithClock(func() time.Time { return base }))
	s.PutArticle(models.Article{ID: "a1", Site: "s", Title: "Pachuca gana la final", Slug: "pachuca-gana", CategoryName: "Deportes", Tags: []string{"Pachuca", "Liga MX"}, PublishedAt: base.Add(-1 * time.Hour), Views: 10})
	s.PutArticle(models.Article{ID: "a2", Site: "s", Title: "Clima en Pachuca", Summary: "Lluvias en Pachuca; Pachuca en alerta", Slug: "clima", CategoryName: "Política Nacional", Tags: []string{"clima"}, PublishedAt: base.Add(-2 * time.Hour), Views: 50})
	s.PutArticle(models.Article{ID: "a3", Site: "s", Title: "Borrador", Slug: "borrador", Status: models.ArticleDraft, PublishedAt: base})
	s.PutArticle(models.Article{ID: "a4", Site: "otro", Title: "Pachuca", Slug: "pachuca", PublishedAt: base})
	return s
}

func TestFindFiltersPublishedAndSite(t *testing.T) {
	s := seed(t)
	got, err := s.Articles().Find(context.Background(), models.ArticleQuery{Site: "s"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
}

func TestFindLegacyCategoryRegex(t *testing.T) {
	s := seed(t)
	q := models.ArticleQuery{Site: "s", Category: models.ByLegacyCategory(slug.Pattern("politica-nacional"))}
	got, err := s.Articles().Find(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a2", got[0].ID)
}

func TestFindTextRelevanceAndDate(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	byScore, err := s.Articles().Find(ctx, models.ArticleQuery{Site: "s", Text: "pachuca", Sort: models.SortByRelevance})
	require.NoError(t, err)
	require.Len(t, byScore, 2)
	// a2 matches in title and twice in summary.
	assert.Equal(t, "a2", byScore[0].ID)
	assert.Greater(t, byScore[0].Score, byScore[1].Score)

	byDate, err := s.Articles().Find(ctx, models.ArticleQuery{Site: "s", Text: "pachuca", Sort: models.SortByDate})
	require.NoError(t, err)
	assert.Equal(t, "a1", byDate[0].ID)
}

func TestFindAnyTermsIsCaseSensitive(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	got, err := s.Articles().Find(ctx, models.ArticleQuery{Site: "s", AnyTerms: []string{"Liga MX"}})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.Articles().Find(ctx, models.ArticleQuery{Site: "s", AnyTerms: []string{"liga mx"}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConfirmationTokenExpiry(t *testing.T) {
	s := New()
	ctx := context.Background()
	sub := &models.Subscriber{Site: "s", Email: "a@b.com", UnsubscribeToken: "u"}
	sub.SetConfirmationToken("tok", base.Add(time.Hour))
	require.NoError(t, s.Subscribers().Create(ctx, sub))

	_, err := s.Subscribers().GetByConfirmationToken(ctx, "tok", base)
	require.NoError(t, err)

	_, err = s.Subscribers().GetByConfirmationToken(ctx, "tok", base.Add(2*time.Hour))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSubscriberUniquePerSite(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Subscribers().Create(ctx, &models.Subscriber{Site: "s", Email: "a@b.com", UnsubscribeToken: "1"}))
	assert.ErrorIs(t, s.Subscribers().Create(ctx, &models.Subscriber{Site: "s", Email: "a@b.com", UnsubscribeToken: "2"}), models.ErrDuplicate)
	assert.NoError(t, s.Subscribers().Create(ctx, &models.Subscriber{Site: "t", Email: "a@b.com", UnsubscribeToken: "3"}))
}

func TestBulletinStats(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := &models.Bulletin{Site: "s", Type: models.BulletinMorning, PublishDate: base}
	require.NoError(t, s.Bulletins().Create(ctx, b))
	assert.ErrorIs(t, s.Bulletins().Create(ctx, &models.Bulletin{Site: "s", Type: models.BulletinMorning, PublishDate: base}), models.ErrDuplicate)

	require.NoError(t, s.Bulletins().IncrementStat(ctx, b.ID, models.StatOpened, 2))
	assert.ErrorIs(t, s.Bulletins().IncrementStat(ctx, b.ID, "likes", 1), models.ErrInvalidInput)

	got, err := s.Bulletins().GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Stats.Opened)
}

func TestBulletinClaim(t *testing.T) {
	s := New(WithClock(func() time.Time { return base }))
	ctx := context.Background()
	b := &models.Bulletin{Site: "s", Type: models.BulletinMorning, PublishDate: base, Status: models.BulletinDraft}
	require.NoError(t, s.Bulletins().Create(ctx, b))

	ok, err := s.Bulletins().Claim(ctx, b.ID, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Bulletins().Claim(ctx, b.ID, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "a run holding the bulletin keeps it")

	ok, err = s.Bulletins().Claim(ctx, b.ID, base.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok, "a stale run can be taken over")

	b.Status = models.BulletinSent
	require.NoError(t, s.Bulletins().Update(ctx, b))
	ok, err = s.Bulletins().Claim(ctx, b.ID, base.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Bulletins().Claim(ctx, "missing", base)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
