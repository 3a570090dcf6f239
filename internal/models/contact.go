package models

import "time"

type ContactStatus string

const (
	ContactPending  ContactStatus = "pending"
	ContactRead     ContactStatus = "read"
	ContactReplied  ContactStatus = "replied"
	ContactArchived ContactStatus = "archived"
	ContactSpam     ContactStatus = "spam"
)

// ContactOrigin is request metadata captured with a submission.
type ContactOrigin struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Referer   string `json:"referer,omitempty"`
}

type ContactMessage struct {
	ID          string        `json:"id"`
	Site        string        `json:"site,omitempty"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone,omitempty"`
	Subject     string        `json:"subject"`
	Message     string        `json:"message"`
	Status      ContactStatus `json:"status"`
	SpamScore   int           `json:"spamScore"`
	SpamReasons []string      `json:"spamReasons,omitempty"`
	Origin      ContactOrigin `json:"origin"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
