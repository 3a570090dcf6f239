package models

import "time"

// ArticleStatus is the editorial state of an article.
type ArticleStatus string

const (
	ArticlePublished ArticleStatus = "published"
	ArticleDraft     ArticleStatus = "draft"
	ArticleArchived  ArticleStatus = "archived"
)

// Article is the read model of a news article. Articles are written by the
// CMS; this service only reads them and bumps view counters.
type Article struct {
	ID         string   `json:"id"`
	Site       string   `json:"site,omitempty"`
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	Summary    string   `json:"summary"`
	Content    string   `json:"content,omitempty"`
	Image      string   `json:"image,omitempty"`
	Author     string   `json:"author"`
	AuthorSlug string   `json:"authorSlug,omitempty"`
	Tags       []string `json:"tags"`
	Keywords   []string `json:"keywords,omitempty"`

	// CategoryID references the categories collection. Articles written
	// before categories were normalized only carry CategoryName.
	CategoryID   string `json:"categoryId,omitempty"`
	CategoryName string `json:"category"`

	Status      ArticleStatus `json:"status"`
	PublishedAt time.Time     `json:"publishedAt"`
	Views       int64         `json:"views"`

	// Score is the text-search relevance, only set on search results.
	Score float64 `json:"score,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
