package models

import "time"

// Category groups articles. Slug is unique within a site.
type Category struct {
	ID             string    `json:"id,omitempty"`
	Site           string    `json:"site,omitempty"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Description    string    `json:"description,omitempty"`
	Color          string    `json:"color,omitempty"`
	Icon           string    `json:"icon,omitempty"`
	IsActive       bool      `json:"isActive"`
	Order          int       `json:"order"`
	SEOTitle       string    `json:"seoTitle,omitempty"`
	SEODescription string    `json:"seoDescription,omitempty"`
	ArticleCount   int64     `json:"articleCount"`
	TotalViews     int64     `json:"totalViews"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`

	// Legacy is set on pseudo-categories derived from raw article
	// category strings when the categories collection is empty.
	Legacy bool `json:"legacy,omitempty"`
}

// CategoryCount is a distinct raw category string with its article count.
type CategoryCount struct {
	Name  string
	Count int64
}
