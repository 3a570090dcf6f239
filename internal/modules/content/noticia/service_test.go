package noticia

import (
	"context"
	"testing"
	"time"

	"github.com/noticias/core/internal/database/memstore"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/modules/content/category"
	"github.com/noticias/core/internal/pkg/pagination"
	"github.com/noticias/core/internal/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *memstore.Store, context.Context) {
	t.Helper()
	store := memstore.New(memstore.WithClock(func() time.Time { return now }))
	cats := category.NewService(store.Categories(), store.Articles())
	return NewService(store.Articles(), cats), store, tenant.WithSite(context.Background(), "s")
}

func TestByCategoryUsesReference(t *testing.T) {
	svc, store, ctx := setup(t)
	dep := store.PutCategory(models.Category{Site: "s", Name: "Deportes", Slug: "deportes", IsActive: true})
	store.PutArticle(models.Article{ID: "a1", Site: "s", Title: "Final", CategoryID: dep.ID, PublishedAt: now.Add(-time.Hour)})
	store.PutArticle(models.Article{ID: "a2", Site: "s", Title: "Otra", CategoryName: "Deportes", PublishedAt: now})

	items, pag, err := svc.ByCategory(ctx, "deportes", pagination.New(1, 20))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a1", items[0].ID)
	assert.Equal(t, "Deportes", items[0].CategoryName)
	assert.EqualValues(t, 1, pag.Total)
}

func TestByCategoryFallsBackToLegacyString(t *testing.T) {
	svc, store, ctx := setup(t)
	store.PutArticle(models.Article{ID: "a1", Site: "s", Title: "x", CategoryName: "Política Nacional", PublishedAt: now})
	store.PutArticle(models.Article{ID: "a2", Site: "s", Title: "y", CategoryName: "politica nacional", PublishedAt: now.Add(-time.Hour)})

	items, _, err := svc.ByCategory(ctx, "politica-nacional", pagination.New(1, 20))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a1", items[0].ID)
}

func TestByCategoryNotFoundOnEmptyFirstPage(t *testing.T) {
	svc, _, ctx := setup(t)
	_, _, err := svc.ByCategory(ctx, "nonexistent-slug", pagination.New(1, 20))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLaterEmptyPageIsNotAnError(t *testing.T) {
	svc, store, ctx := setup(t)
	store.PutArticle(models.Article{Site: "s", Title: "x", Tags: []string{"Fútbol"}, PublishedAt: now})

	items, pag, err := svc.ByTag(ctx, "futbol", pagination.New(3, 20))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.EqualValues(t, 1, pag.Total)
}

func TestByAuthor(t *testing.T) {
	svc, store, ctx := setup(t)
	store.PutArticle(models.Article{ID: "a1", Site: "s", Title: "x", Author: "José Núñez", PublishedAt: now})
	store.PutArticle(models.Article{ID: "a2", Site: "s", Title: "y", Author: "Ana", PublishedAt: now})

	items, _, err := svc.ByAuthor(ctx, "jose-nunez", pagination.New(1, 20))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a1", items[0].ID)
}

func TestSearchByDateIgnoresScore(t *testing.T) {
	svc, store, ctx := setup(t)
	store.PutArticle(models.Article{ID: "old", Site: "s", Title: "Pachuca Pachuca Pachuca", Summary: "Pachuca", PublishedAt: now.Add(-48 * time.Hour)})
	store.PutArticle(models.Article{ID: "mid", Site: "s", Title: "Tuzos", Content: "pachuca", PublishedAt: now.Add(-24 * time.Hour)})
	store.PutArticle(models.Article{ID: "new", Site: "s", Title: "Pachuca", PublishedAt: now})

	items, _, err := svc.Search(ctx, "pachuca", "", models.SortByDate, pagination.New(1, 20))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{items[0].ID, items[1].ID, items[2].ID})

	items, _, err = svc.Search(ctx, "pachuca", "", models.SortByRelevance, pagination.New(1, 20))
	require.NoError(t, err)
	assert.Equal(t, "old", items[0].ID)
}

func TestSearchValidation(t *testing.T) {
	svc, _, ctx := setup(t)
	_, _, err := svc.Search(ctx, "  ", "", "", pagination.New(1, 20))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, _, err = svc.Search(ctx, "x", "", "views", pagination.New(1, 20))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestGetNoticiaIncrementsViews(t *testing.T) {
	svc, store, ctx := setup(t)
	store.PutArticle(models.Article{ID: "a1", Site: "s", Title: "x", Slug: "x", Views: 4, PublishedAt: now})

	a, err := svc.GetNoticia(ctx, "x")
	require.NoError(t, err)
	assert.EqualValues(t, 5, a.Views)

	a, err = svc.GetNoticia(ctx, "x")
	require.NoError(t, err)
	assert.EqualValues(t, 6, a.Views)

	_, err = svc.GetNoticia(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
