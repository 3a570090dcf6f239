package category

import (
	"context"
	"testing"
	"time"

	"github.com/noticias/core/internal/database/memstore"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/eventbus"
	"github.com/noticias/core/internal/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T) (*Service, *memstore.Store, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	store := memstore.New(memstore.WithClock(clk.now))
	svc := NewService(store.Categories(), store.Articles(), WithClock(clk.now))
	return svc, store, clk
}

func siteCtx(site string) context.Context {
	return tenant.WithSite(context.Background(), site)
}

func TestGetCategoriesCountsAndOrders(t *testing.T) {
	svc, store, _ := setup(t)
	dep := store.PutCategory(models.Category{Site: "s", Name: "Deportes", Slug: "deportes", IsActive: true, Order: 2})
	pol := store.PutCategory(models.Category{Site: "s", Name: "Política", Slug: "politica", IsActive: true, Order: 1})
	store.PutCategory(models.Category{Site: "s", Name: "Oculta", Slug: "oculta", IsActive: false})
	store.PutArticle(models.Article{Site: "s", Title: "a", CategoryID: dep.ID})
	store.PutArticle(models.Article{Site: "s", Title: "b", CategoryID: dep.ID})
	store.PutArticle(models.Article{Site: "s", Title: "c", CategoryID: pol.ID})

	cats, err := svc.GetCategories(siteCtx("s"))
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "politica", cats[0].Slug)
	assert.EqualValues(t, 1, cats[0].ArticleCount)
	assert.EqualValues(t, 2, cats[1].ArticleCount)
}

func TestGetCategoriesCachesForTTL(t *testing.T) {
	svc, store, clk := setup(t)
	store.PutCategory(models.Category{Site: "s", Name: "Deportes", Slug: "deportes", IsActive: true})
	ctx := siteCtx("s")

	first, err := svc.GetCategories(ctx)
	require.NoError(t, err)
	second, err := svc.GetCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Calls("categories.listActive"))

	clk.t = clk.t.Add(DefaultTTL)
	_, err = svc.GetCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Calls("categories.listActive"))
}

func TestCategoryUpdatedEventInvalidatesNamedSiteOnly(t *testing.T) {
	svc, store, _ := setup(t)
	store.PutCategory(models.Category{Site: "a", Name: "Uno", Slug: "uno", IsActive: true})
	store.PutCategory(models.Category{Site: "b", Name: "Dos", Slug: "dos", IsActive: true})
	bus := eventbus.NewLocal()
	_, err := bus.Subscribe(eventbus.TopicCategoryUpdated, svc.HandleEvent)
	require.NoError(t, err)

	_, _ = svc.GetCategories(siteCtx("a"))
	_, _ = svc.GetCategories(siteCtx("b"))
	require.Equal(t, 2, store.Calls("categories.listActive"))

	e, err := eventbus.NewEvent(eventbus.TopicCategoryUpdated, "a", nil)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), e))

	_, _ = svc.GetCategories(siteCtx("a"))
	_, _ = svc.GetCategories(siteCtx("b"))
	assert.Equal(t, 3, store.Calls("categories.listActive"))
}

func TestInvalidateAllSites(t *testing.T) {
	svc, store, _ := setup(t)
	_, _ = svc.GetCategories(siteCtx("a"))
	_, _ = svc.GetCategories(siteCtx("b"))
	svc.Invalidate("")
	_, _ = svc.GetCategories(siteCtx("a"))
	_, _ = svc.GetCategories(siteCtx("b"))
	assert.Equal(t, 4, store.Calls("categories.listActive"))
}

func TestLegacyPseudoCategories(t *testing.T) {
	svc, store, _ := setup(t)
	store.PutArticle(models.Article{Site: "s", Title: "a", CategoryName: "Política"})
	store.PutArticle(models.Article{Site: "s", Title: "b", CategoryName: "politica"})
	store.PutArticle(models.Article{Site: "s", Title: "c", CategoryName: "Economía"})

	cats, err := svc.GetCategories(siteCtx("s"))
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "economia", cats[0].Slug)
	assert.Equal(t, "politica", cats[1].Slug)
	assert.EqualValues(t, 2, cats[1].ArticleCount)
	assert.True(t, cats[1].Legacy)

	got, err := svc.GetCategory(siteCtx("s"), "economia")
	require.NoError(t, err)
	assert.Equal(t, "Economía", got.Name)
}

func TestGetCategoryNotFound(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.GetCategory(siteCtx("s"), "nada")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestResolveDualMode(t *testing.T) {
	svc, store, _ := setup(t)
	dep := store.PutCategory(models.Category{Site: "s", Name: "Deportes", Slug: "deportes", IsActive: true})

	m, label, err := svc.Resolve(siteCtx("s"), "deportes")
	require.NoError(t, err)
	assert.Equal(t, models.MatchCategoryID, m.Kind)
	assert.Equal(t, dep.ID, m.ID)
	assert.Equal(t, "Deportes", label)

	m, _, err = svc.Resolve(siteCtx("s"), "politica")
	require.NoError(t, err)
	assert.Equal(t, models.MatchLegacyCategory, m.Kind)
	assert.NotEmpty(t, m.Pattern)
}
