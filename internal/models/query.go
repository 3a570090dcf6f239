package models

import "time"

// CategoryMatchKind discriminates CategoryMatch.
type CategoryMatchKind string

const (
	MatchCategoryID     CategoryMatchKind = "id"
	MatchLegacyCategory CategoryMatchKind = "legacy-string"
)

// CategoryMatch is how an article listing is tied to a category: either by
// reference to a normalized category, or by a case-insensitive regex over
// the raw category string carried by older articles.
type CategoryMatch struct {
	Kind    CategoryMatchKind
	ID      string
	Pattern string
}

// ByCategoryID matches articles referencing the category id.
func ByCategoryID(id string) *CategoryMatch {
	return &CategoryMatch{Kind: MatchCategoryID, ID: id}
}

// ByLegacyCategory matches articles whose raw category string matches pattern.
func ByLegacyCategory(pattern string) *CategoryMatch {
	return &CategoryMatch{Kind: MatchLegacyCategory, Pattern: pattern}
}

type ArticleSort string

const (
	SortByDate      ArticleSort = "date"
	SortByViews     ArticleSort = "views"
	SortByRelevance ArticleSort = "relevance"
)

// ArticleQuery filters published articles. Stores always restrict results
// to status=published; zero-valued fields do not filter.
type ArticleQuery struct {
	Site     string
	Category *CategoryMatch

	// TagPattern and AuthorPattern are case-insensitive regexes.
	TagPattern    string
	AuthorPattern string

	// AnyTerms matches articles whose tags or keywords contain one of the
	// terms exactly (case-sensitive).
	AnyTerms []string

	// Text runs a native full-text search.
	Text string

	PublishedSince time.Time
	PublishedUntil time.Time

	Sort  ArticleSort
	Skip  int
	Limit int
}
