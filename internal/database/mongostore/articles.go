package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/noticias/core/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// articleDoc is the stored shape. Category holds either an ObjectId
// reference or, on articles that predate the categories collection, the raw
// category name.
type articleDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Site        string             `bson:"site"`
	Title       string             `bson:"title"`
	Slug        string             `bson:"slug"`
	Summary     string             `bson:"summary"`
	Content     string             `bson:"content"`
	Image       string             `bson:"image,omitempty"`
	Author      string             `bson:"author"`
	AuthorSlug  string             `bson:"authorSlug,omitempty"`
	Tags        []string           `bson:"tags"`
	Keywords    []string           `bson:"keywords"`
	Category    bson.RawValue      `bson:"category,omitempty"`
	Status      string             `bson:"status"`
	PublishedAt time.Time          `bson:"publishedAt"`
	Views       int64              `bson:"views"`
	Score       float64            `bson:"score,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d articleDoc) model() models.Article {
	a := models.Article{
		ID:          d.ID.Hex(),
		Site:        d.Site,
		Title:       d.Title,
		Slug:        d.Slug,
		Summary:     d.Summary,
		Content:     d.Content,
		Image:       d.Image,
		Author:      d.Author,
		AuthorSlug:  d.AuthorSlug,
		Tags:        d.Tags,
		Keywords:    d.Keywords,
		Status:      models.ArticleStatus(d.Status),
		PublishedAt: d.PublishedAt,
		Views:       d.Views,
		Score:       d.Score,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	switch d.Category.Type {
	case bsontype.ObjectID:
		a.CategoryID = d.Category.ObjectID().Hex()
	case bsontype.String:
		a.CategoryName = d.Category.StringValue()
	}
	return a
}

type Articles struct {
	col *mongo.Collection
}

// articleFilter translates q into a MongoDB filter.
func articleFilter(q models.ArticleQuery) (bson.M, error) {
	f := bson.M{"status": string(models.ArticlePublished)}
	if q.Site != "" {
		f["site"] = q.Site
	}
	published := bson.M{}
	if !q.PublishedSince.IsZero() {
		published["$gte"] = q.PublishedSince
	}
	if !q.PublishedUntil.IsZero() {
		published["$lt"] = q.PublishedUntil
	}
	if len(published) > 0 {
		f["publishedAt"] = published
	}
	if q.Category != nil {
		switch q.Category.Kind {
		case models.MatchCategoryID:
			oid, err := primitive.ObjectIDFromHex(q.Category.ID)
			if err != nil {
				return nil, fmt.Errorf("%w: category id %q", models.ErrInvalidInput, q.Category.ID)
			}
			f["category"] = oid
		case models.MatchLegacyCategory:
			f["category"] = bson.M{"$regex": q.Category.Pattern, "$options": "i"}
		}
	}
	if q.TagPattern != "" {
		f["tags"] = bson.M{"$regex": q.TagPattern, "$options": "i"}
	}
	if q.AuthorPattern != "" {
		f["author"] = bson.M{"$regex": q.AuthorPattern, "$options": "i"}
	}
	if len(q.AnyTerms) > 0 {
		f["$or"] = bson.A{
			bson.M{"tags": bson.M{"$in": q.AnyTerms}},
			bson.M{"keywords": bson.M{"$in": q.AnyTerms}},
		}
	}
	if q.Text != "" {
		f["$text"] = bson.M{"$search": q.Text}
	}
	return f, nil
}

// articleSort returns the sort document for q. Relevance only applies to
// text queries; without one it degrades to date order.
func articleSort(q models.ArticleQuery) bson.D {
	switch {
	case q.Sort == models.SortByRelevance && q.Text != "":
		return bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}, {Key: "publishedAt", Value: -1}}
	case q.Sort == models.SortByViews:
		return bson.D{{Key: "views", Value: -1}, {Key: "publishedAt", Value: -1}}
	default:
		return bson.D{{Key: "publishedAt", Value: -1}}
	}
}

func (r *Articles) Find(ctx context.Context, q models.ArticleQuery) ([]models.Article, error) {
	filter, err := articleFilter(q)
	if err != nil {
		return nil, err
	}
	opts := paged(q.Skip, q.Limit).SetSort(articleSort(q))
	if q.Text != "" {
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}})
	}

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find articles: %w", err)
	}
	var docs []articleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	out := make([]models.Article, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

func (r *Articles) Count(ctx context.Context, q models.ArticleQuery) (int64, error) {
	filter, err := articleFilter(q)
	if err != nil {
		return 0, err
	}
	n, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

func (r *Articles) GetBySlug(ctx context.Context, site, slug string) (*models.Article, error) {
	f := bson.M{"slug": slug, "status": string(models.ArticlePublished)}
	if site != "" {
		f["site"] = site
	}
	var d articleDoc
	if err := r.col.FindOne(ctx, f).Decode(&d); err != nil {
		return nil, translate(err)
	}
	a := d.model()
	return &a, nil
}

func (r *Articles) IncrementViews(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.col.UpdateByID(ctx, oid, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Articles) LegacyCategoryCounts(ctx context.Context, site string) ([]models.CategoryCount, error) {
	match := bson.M{
		"status":   string(models.ArticlePublished),
		"category": bson.M{"$type": "string", "$ne": ""},
	}
	if site != "" {
		match["site"] = site
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline, options.Aggregate())
	if err != nil {
		return nil, fmt.Errorf("aggregate legacy categories: %w", err)
	}
	var rows []struct {
		Name  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]models.CategoryCount, len(rows))
	for i, row := range rows {
		out[i] = models.CategoryCount{Name: row.Name, Count: row.Count}
	}
	return out, nil
}
