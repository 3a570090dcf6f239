package mongostore

import (
	"context"
	"time"

	"github.com/noticias/core/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type contactDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Site        string             `bson:"site"`
	Name        string             `bson:"name"`
	Email       string             `bson:"email"`
	Phone       string             `bson:"phone,omitempty"`
	Subject     string             `bson:"subject"`
	Message     string             `bson:"message"`
	Status      string             `bson:"status"`
	SpamScore   int                `bson:"spamScore"`
	SpamReasons []string           `bson:"spamReasons,omitempty"`
	Origin      struct {
		IP        string `bson:"ip,omitempty"`
		UserAgent string `bson:"userAgent,omitempty"`
		Referer   string `bson:"referer,omitempty"`
	} `bson:"origin"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type Contacts struct {
	col *mongo.Collection
	now func() time.Time
}

func (r *Contacts) Create(ctx context.Context, m *models.ContactMessage) error {
	now := r.now()
	m.CreatedAt, m.UpdatedAt = now, now
	d := contactDoc{
		ID:          primitive.NewObjectID(),
		Site:        m.Site,
		Name:        m.Name,
		Email:       m.Email,
		Phone:       m.Phone,
		Subject:     m.Subject,
		Message:     m.Message,
		Status:      string(m.Status),
		SpamScore:   m.SpamScore,
		SpamReasons: m.SpamReasons,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	d.Origin.IP, d.Origin.UserAgent, d.Origin.Referer = m.Origin.IP, m.Origin.UserAgent, m.Origin.Referer
	if _, err := r.col.InsertOne(ctx, d); err != nil {
		return translate(err)
	}
	m.ID = d.ID.Hex()
	return nil
}

func (r *Contacts) CountRecentByEmail(ctx context.Context, site, email string, since time.Time) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{
		"site":      site,
		"email":     email,
		"createdAt": bson.M{"$gte": since},
	})
}
