package memstore

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/slug"
)

type Articles struct{ s *Store }

// Text-search field weights, matching the MongoDB text index.
const (
	weightTitle   = 10
	weightSummary = 5
	weightTags    = 5
	weightContent = 1
)

type articleFilter struct {
	q      models.ArticleQuery
	cat    *regexp.Regexp
	tag    *regexp.Regexp
	author *regexp.Regexp
	terms  []string
	any    map[string]struct{}
}

func newFilter(q models.ArticleQuery) (*articleFilter, error) {
	f := &articleFilter{q: q}
	var err error
	if q.Category != nil && q.Category.Kind == models.MatchLegacyCategory {
		if f.cat, err = regexp.Compile("(?i)" + q.Category.Pattern); err != nil {
			return nil, err
		}
	}
	if q.TagPattern != "" {
		if f.tag, err = regexp.Compile("(?i)" + q.TagPattern); err != nil {
			return nil, err
		}
	}
	if q.AuthorPattern != "" {
		if f.author, err = regexp.Compile("(?i)" + q.AuthorPattern); err != nil {
			return nil, err
		}
	}
	if q.Text != "" {
		f.terms = strings.Fields(slug.Fold(q.Text))
	}
	if len(q.AnyTerms) > 0 {
		f.any = make(map[string]struct{}, len(q.AnyTerms))
		for _, t := range q.AnyTerms {
			f.any[t] = struct{}{}
		}
	}
	return f, nil
}

// match reports whether a passes the filter and its text score.
func (f *articleFilter) match(a models.Article) (bool, float64) {
	q := f.q
	if a.Status != models.ArticlePublished {
		return false, 0
	}
	if q.Site != "" && a.Site != q.Site {
		return false, 0
	}
	if !q.PublishedSince.IsZero() && a.PublishedAt.Before(q.PublishedSince) {
		return false, 0
	}
	if !q.PublishedUntil.IsZero() && !a.PublishedAt.Before(q.PublishedUntil) {
		return false, 0
	}
	if q.Category != nil {
		switch q.Category.Kind {
		case models.MatchCategoryID:
			if a.CategoryID != q.Category.ID {
				return false, 0
			}
		case models.MatchLegacyCategory:
			if !f.cat.MatchString(a.CategoryName) {
				return false, 0
			}
		}
	}
	if f.tag != nil && !anyMatch(f.tag, a.Tags) {
		return false, 0
	}
	if f.author != nil && !f.author.MatchString(a.Author) {
		return false, 0
	}
	if f.any != nil && !f.inAny(a.Tags) && !f.inAny(a.Keywords) {
		return false, 0
	}
	if len(f.terms) > 0 {
		score := f.score(a)
		if score == 0 {
			return false, 0
		}
		return true, score
	}
	return true, 0
}

func (f *articleFilter) inAny(vals []string) bool {
	for _, v := range vals {
		if _, ok := f.any[v]; ok {
			return true
		}
	}
	return false
}

func (f *articleFilter) score(a models.Article) float64 {
	title := slug.Fold(a.Title)
	summary := slug.Fold(a.Summary)
	tags := slug.Fold(strings.Join(a.Tags, " "))
	content := slug.Fold(a.Content)
	var total float64
	for _, t := range f.terms {
		total += float64(weightTitle*strings.Count(title, t) +
			weightSummary*strings.Count(summary, t) +
			weightTags*strings.Count(tags, t) +
			weightContent*strings.Count(content, t))
	}
	return total
}

func anyMatch(re *regexp.Regexp, vals []string) bool {
	for _, v := range vals {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

func (r *Articles) filtered(q models.ArticleQuery) ([]models.Article, error) {
	f, err := newFilter(q)
	if err != nil {
		return nil, err
	}
	out := make([]models.Article, 0)
	for _, a := range r.s.articles {
		ok, score := f.match(a)
		if !ok {
			continue
		}
		a = cloneArticle(a)
		a.Score = score
		out = append(out, a)
	}
	return out, nil
}

func (r *Articles) Find(_ context.Context, q models.ArticleQuery) ([]models.Article, error) {
	r.s.mu.Lock()
	r.s.track("articles.find")
	out, err := r.filtered(q)
	r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sortArticles(out, q.Sort)
	return page(out, q.Skip, q.Limit), nil
}

func sortArticles(items []models.Article, by models.ArticleSort) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch by {
		case models.SortByViews:
			if a.Views != b.Views {
				return a.Views > b.Views
			}
		case models.SortByRelevance:
			if a.Score != b.Score {
				return a.Score > b.Score
			}
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})
}

func (r *Articles) Count(_ context.Context, q models.ArticleQuery) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("articles.count")
	out, err := r.filtered(q)
	if err != nil {
		return 0, err
	}
	return int64(len(out)), nil
}

func (r *Articles) GetBySlug(_ context.Context, site, s string) (*models.Article, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.articles {
		if a.Slug == s && a.Status == models.ArticlePublished && (site == "" || a.Site == site) {
			c := cloneArticle(a)
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Articles) IncrementViews(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.articles[id]
	if !ok {
		return models.ErrNotFound
	}
	a.Views++
	r.s.articles[id] = a
	return nil
}

func (r *Articles) LegacyCategoryCounts(_ context.Context, site string) ([]models.CategoryCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("articles.legacyCategories")
	counts := map[string]int64{}
	for _, a := range r.s.articles {
		if a.Status != models.ArticlePublished || a.CategoryName == "" {
			continue
		}
		if site != "" && a.Site != site {
			continue
		}
		counts[a.CategoryName]++
	}
	out := make([]models.CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
