package models

import "time"

// Preferences selects which bulletins a subscriber receives.
type Preferences struct {
	Morning bool `json:"morning"`
	Evening bool `json:"evening"`
	Weekly  bool `json:"weekly"`
	Sports  bool `json:"sports"`
}

// Wants reports whether the preference flag for t is on.
func (p Preferences) Wants(t BulletinType) bool {
	switch t {
	case BulletinMorning:
		return p.Morning
	case BulletinEvening:
		return p.Evening
	case BulletinWeekly:
		return p.Weekly
	case BulletinSports:
		return p.Sports
	}
	return false
}

// Any reports whether at least one flag is on.
func (p Preferences) Any() bool {
	return p.Morning || p.Evening || p.Weekly || p.Sports
}

// PreferencesPatch is a partial preferences update. Nil fields are left
// untouched.
type PreferencesPatch struct {
	Morning *bool `json:"morning,omitempty"`
	Evening *bool `json:"evening,omitempty"`
	Weekly  *bool `json:"weekly,omitempty"`
	Sports  *bool `json:"sports,omitempty"`
}

// Apply writes the present fields of the patch into p.
func (pp PreferencesPatch) Apply(p *Preferences) {
	if pp.Morning != nil {
		p.Morning = *pp.Morning
	}
	if pp.Evening != nil {
		p.Evening = *pp.Evening
	}
	if pp.Weekly != nil {
		p.Weekly = *pp.Weekly
	}
	if pp.Sports != nil {
		p.Sports = *pp.Sports
	}
}

// Empty reports whether no field is present.
func (pp PreferencesPatch) Empty() bool {
	return pp.Morning == nil && pp.Evening == nil && pp.Weekly == nil && pp.Sports == nil
}

// Subscriber is a newsletter subscriber. Email is unique per site.
//
// ConfirmationToken and ConfirmationTokenExpires are either both set or
// both nil. UnsubscribeToken is issued once and never rotated.
type Subscriber struct {
	ID          string      `json:"id"`
	Site        string      `json:"site,omitempty"`
	Email       string      `json:"email"`
	Name        string      `json:"name,omitempty"`
	Preferences Preferences `json:"preferences"`
	Source      string      `json:"source,omitempty"`

	IsActive          bool       `json:"isActive"`
	IsConfirmed       bool       `json:"isConfirmed"`
	ConfirmedAt       *time.Time `json:"confirmedAt,omitempty"`
	SubscribedAt      time.Time  `json:"subscribedAt"`
	UnsubscribedAt    *time.Time `json:"unsubscribedAt,omitempty"`
	UnsubscribeReason string     `json:"unsubscribeReason,omitempty"`

	UnsubscribeToken         string     `json:"-"`
	ConfirmationToken        *string    `json:"-"`
	ConfirmationTokenExpires *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetConfirmationToken sets the token and its expiry together.
func (s *Subscriber) SetConfirmationToken(token string, expires time.Time) {
	s.ConfirmationToken = &token
	s.ConfirmationTokenExpires = &expires
}

// ClearConfirmationToken removes the token and its expiry together.
func (s *Subscriber) ClearConfirmationToken() {
	s.ConfirmationToken = nil
	s.ConfirmationTokenExpires = nil
}

// SubscriberQuery filters the admin subscriber listing.
type SubscriberQuery struct {
	Site      string
	Active    *bool
	Confirmed *bool
	Skip      int
	Limit     int
}

// SubscriberStats aggregates subscriber counts for a site.
type SubscriberStats struct {
	Total       int64                  `json:"total"`
	Active      int64                  `json:"active"`
	Confirmed   int64                  `json:"confirmed"`
	Unconfirmed int64                  `json:"unconfirmed"`
	ByType      map[BulletinType]int64 `json:"byType"`
}
