package models

import (
	"fmt"
	"time"
)

// BulletinType identifies one of the fixed bulletin profiles.
type BulletinType string

const (
	BulletinMorning BulletinType = "morning"
	BulletinEvening BulletinType = "evening"
	BulletinWeekly  BulletinType = "weekly"
	BulletinSports  BulletinType = "sports"
)

// BulletinTypes lists every profile in display order.
var BulletinTypes = []BulletinType{BulletinMorning, BulletinEvening, BulletinWeekly, BulletinSports}

// ParseBulletinType accepts the canonical names and the Spanish aliases used
// by older clients.
func ParseBulletinType(s string) (BulletinType, error) {
	switch s {
	case "morning", "manana", "mañana":
		return BulletinMorning, nil
	case "evening", "tarde":
		return BulletinEvening, nil
	case "weekly", "semanal":
		return BulletinWeekly, nil
	case "sports", "deportes":
		return BulletinSports, nil
	}
	return "", fmt.Errorf("%w: unknown bulletin type %q", ErrInvalidInput, s)
}

type BulletinStatus string

const (
	BulletinDraft     BulletinStatus = "draft"
	BulletinScheduled BulletinStatus = "scheduled"
	BulletinSending   BulletinStatus = "sending"
	BulletinSent      BulletinStatus = "sent"
	BulletinFailed    BulletinStatus = "failed"
)

// ArticleSnapshot is a point-in-time copy of the fields a bulletin renders.
// It is never re-synced with the source article.
type ArticleSnapshot struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Category string `json:"category"`
	Image    string `json:"image,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

type BulletinContent struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// BulletinStats holds delivery counters.
type BulletinStats struct {
	Sent         int64 `json:"sent"`
	Delivered    int64 `json:"delivered"`
	Opened       int64 `json:"opened"`
	Clicked      int64 `json:"clicked"`
	Bounced      int64 `json:"bounced"`
	Unsubscribed int64 `json:"unsubscribed"`
}

// Stat names accepted by BulletinStore.IncrementStat.
const (
	StatSent         = "sent"
	StatDelivered    = "delivered"
	StatOpened       = "opened"
	StatClicked      = "clicked"
	StatBounced      = "bounced"
	StatUnsubscribed = "unsubscribed"
)

// ValidStat reports whether name is a bulletin stat counter.
func ValidStat(name string) bool {
	switch name {
	case StatSent, StatDelivered, StatOpened, StatClicked, StatBounced, StatUnsubscribed:
		return true
	}
	return false
}

// Bulletin is a generated digest. (Site, Type, PublishDate) is unique;
// PublishDate is truncated to the calendar day in the configured timezone.
//
// len(Snapshots) == len(ArticleIDs) at creation time.
type Bulletin struct {
	ID          string            `json:"id"`
	Site        string            `json:"site,omitempty"`
	Type        BulletinType      `json:"type"`
	PublishDate time.Time         `json:"publishDate"`
	Subject     string            `json:"subject"`
	Content     BulletinContent   `json:"content"`
	ArticleIDs  []string          `json:"articleIds"`
	Snapshots   []ArticleSnapshot `json:"articles"`
	Stats       BulletinStats     `json:"stats"`
	Status      BulletinStatus    `json:"status"`
	ArchiveURL  string            `json:"archiveUrl,omitempty"`
	SentAt      *time.Time        `json:"sentAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
