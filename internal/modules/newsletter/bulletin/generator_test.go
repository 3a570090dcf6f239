package bulletin

import (
	"context"
	"testing"
	"time"

	"github.com/noticias/core/internal/config"
	"github.com/noticias/core/internal/database/memstore"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/modules/content/category"
	"github.com/noticias/core/internal/modules/newsletter/links"
	"github.com/noticias/core/internal/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mexico = time.FixedZone("CST", -6*3600)
	// 2026-05-04 10:00 CST.
	now = time.Date(2026, 5, 4, 16, 0, 0, 0, time.UTC)
)

func testLinks() *links.Builder {
	return links.New("https://api.test", config.SitesConfig{
		Default: "hidalgo",
		URLs:    map[string]string{"hidalgo": "https://hidalgo.test"},
		Names:   map[string]string{"hidalgo": "Noticias Hidalgo"},
	})
}

func siteCtx() context.Context { return tenant.WithSite(context.Background(), "hidalgo") }

func newGenerator(store *memstore.Store) *Generator {
	labels := category.NewService(store.Categories(), store.Articles())
	return NewGenerator(store.Articles(), labels, testLinks(),
		WithGeneratorClock(func() time.Time { return now }),
		WithLocation(mexico),
	)
}

func put(store *memstore.Store, title string, age time.Duration, views int64, tags ...string) models.Article {
	return store.PutArticle(models.Article{
		Site:        "hidalgo",
		Title:       title,
		Slug:        title,
		PublishedAt: now.Add(-age),
		Views:       views,
		Tags:        tags,
	})
}

func titles(b *models.Bulletin) []string {
	var out []string
	for _, s := range b.Snapshots {
		out = append(out, s.Title)
	}
	return out
}

func TestMorningTakesLatestFiveOfLastDay(t *testing.T) {
	store := memstore.New()
	for i, title := range []string{"a", "b", "c", "d", "e", "f"} {
		put(store, title, time.Duration(i+1)*time.Hour, 0)
	}
	put(store, "vieja", 25*time.Hour, 1000)
	store.PutArticle(models.Article{Site: "hidalgo", Title: "borrador", PublishedAt: now, Status: models.ArticleDraft})

	b, err := newGenerator(store).Morning(siteCtx())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, titles(b))
	assert.Len(t, b.ArticleIDs, len(b.Snapshots))
	assert.Equal(t, models.BulletinDraft, b.Status)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, mexico), b.PublishDate)
	assert.Contains(t, b.Subject, "4 de mayo de 2026")
	assert.Contains(t, b.Content.HTML, "https://hidalgo.test/noticias/a")
	assert.Contains(t, b.Content.Text, "Noticias Hidalgo")
}

func TestEveningStartsAtLocalMidnight(t *testing.T) {
	store := memstore.New()
	put(store, "hoy-poco", time.Hour, 5)
	put(store, "hoy-mucho", 2*time.Hour, 50)
	put(store, "hoy-medio", 3*time.Hour, 20)
	put(store, "hoy-nada", 4*time.Hour, 1)
	// 11 hours ago is 23:00 of the previous local day.
	put(store, "ayer", 11*time.Hour, 999)

	b, err := newGenerator(store).Evening(siteCtx())
	require.NoError(t, err)
	assert.Equal(t, []string{"hoy-mucho", "hoy-medio", "hoy-poco"}, titles(b))
}

func TestWeeklyTopTenByViews(t *testing.T) {
	store := memstore.New()
	for i := range 12 {
		put(store, string(rune('a'+i)), time.Duration(i)*12*time.Hour, int64(i))
	}
	put(store, "fuera", 8*24*time.Hour, 10000)

	b, err := newGenerator(store).Weekly(siteCtx())
	require.NoError(t, err)
	require.Len(t, b.Snapshots, 10)
	assert.Equal(t, "l", b.Snapshots[0].Title)
}

func TestSportsNilWithoutMatches(t *testing.T) {
	store := memstore.New()
	put(store, "politica", time.Hour, 0, "Política")
	put(store, "minusculas", time.Hour, 0, "FUTBOL")
	put(store, "vieja", 30*time.Hour, 0, "Deportes")

	b, err := newGenerator(store).Sports(siteCtx())
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestSportsMatchesTagsOrKeywords(t *testing.T) {
	store := memstore.New()
	put(store, "por-tag", time.Hour, 0, "Tuzos")
	store.PutArticle(models.Article{Site: "hidalgo", Title: "por-keyword", PublishedAt: now.Add(-2 * time.Hour), Keywords: []string{"Liga MX"}})
	put(store, "otra", time.Hour, 0, "Cultura")

	b, err := newGenerator(store).Sports(siteCtx())
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, []string{"por-tag", "por-keyword"}, titles(b))
}

func TestSnapshotsCarryCategoryLabels(t *testing.T) {
	store := memstore.New()
	cat := store.PutCategory(models.Category{Site: "hidalgo", Name: "Deportes", Slug: "deportes", IsActive: true})
	store.PutArticle(models.Article{Site: "hidalgo", Title: "normalizada", CategoryID: cat.ID, PublishedAt: now.Add(-time.Hour)})
	store.PutArticle(models.Article{Site: "hidalgo", Title: "legado", CategoryName: "Política", PublishedAt: now.Add(-2 * time.Hour)})

	b, err := newGenerator(store).Morning(siteCtx())
	require.NoError(t, err)
	require.Len(t, b.Snapshots, 2)
	assert.Equal(t, "Deportes", b.Snapshots[0].Category)
	assert.Equal(t, "Política", b.Snapshots[1].Category)
}

func TestGenerateUnknownType(t *testing.T) {
	_, err := newGenerator(memstore.New()).Generate(siteCtx(), "monthly")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
