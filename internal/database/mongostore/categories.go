package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/noticias/core/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type categoryDoc struct {
	ID             primitive.ObjectID `bson:"_id"`
	Site           string             `bson:"site"`
	Name           string             `bson:"name"`
	Slug           string             `bson:"slug"`
	Description    string             `bson:"description,omitempty"`
	Color          string             `bson:"color,omitempty"`
	Icon           string             `bson:"icon,omitempty"`
	IsActive       bool               `bson:"isActive"`
	Order          int                `bson:"order"`
	SEOTitle       string             `bson:"seoTitle,omitempty"`
	SEODescription string             `bson:"seoDescription,omitempty"`
	ArticleCount   int64              `bson:"articleCount"`
	TotalViews     int64              `bson:"totalViews"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func (d categoryDoc) model() models.Category {
	return models.Category{
		ID:             d.ID.Hex(),
		Site:           d.Site,
		Name:           d.Name,
		Slug:           d.Slug,
		Description:    d.Description,
		Color:          d.Color,
		Icon:           d.Icon,
		IsActive:       d.IsActive,
		Order:          d.Order,
		SEOTitle:       d.SEOTitle,
		SEODescription: d.SEODescription,
		ArticleCount:   d.ArticleCount,
		TotalViews:     d.TotalViews,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type Categories struct {
	col *mongo.Collection
}

func (r *Categories) decodeAll(ctx context.Context, cur *mongo.Cursor) ([]models.Category, error) {
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	out := make([]models.Category, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

func (r *Categories) ListActive(ctx context.Context, site string) ([]models.Category, error) {
	f := bson.M{"isActive": true}
	if site != "" {
		f["site"] = site
	}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "name", Value: 1}})
	cur, err := r.col.Find(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return r.decodeAll(ctx, cur)
}

func (r *Categories) GetBySlug(ctx context.Context, site, slug string) (*models.Category, error) {
	f := bson.M{"slug": slug, "isActive": true}
	if site != "" {
		f["site"] = site
	}
	var d categoryDoc
	if err := r.col.FindOne(ctx, f).Decode(&d); err != nil {
		return nil, translate(err)
	}
	c := d.model()
	return &c, nil
}

func (r *Categories) GetByIDs(ctx context.Context, ids []string) ([]models.Category, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []models.Category{}, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("categories by id: %w", err)
	}
	return r.decodeAll(ctx, cur)
}
