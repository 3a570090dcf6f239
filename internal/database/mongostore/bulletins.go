package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/noticias/core/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type snapshotDoc struct {
	ID       string `bson:"id"`
	Title    string `bson:"title"`
	Slug     string `bson:"slug"`
	Category string `bson:"category"`
	Image    string `bson:"image,omitempty"`
	Summary  string `bson:"summary,omitempty"`
}

type bulletinDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Site        string             `bson:"site"`
	Type        string             `bson:"type"`
	PublishDate time.Time          `bson:"publishDate"`
	Subject     string             `bson:"subject"`
	Content     struct {
		HTML string `bson:"html"`
		Text string `bson:"text"`
	} `bson:"content"`
	ArticleIDs []string      `bson:"articleIds"`
	Articles   []snapshotDoc `bson:"articles"`
	Stats      struct {
		Sent         int64 `bson:"sent"`
		Delivered    int64 `bson:"delivered"`
		Opened       int64 `bson:"opened"`
		Clicked      int64 `bson:"clicked"`
		Bounced      int64 `bson:"bounced"`
		Unsubscribed int64 `bson:"unsubscribed"`
	} `bson:"stats"`
	Status     string     `bson:"status"`
	ArchiveURL string     `bson:"archiveUrl,omitempty"`
	SentAt     *time.Time `bson:"sentAt,omitempty"`
	CreatedAt  time.Time  `bson:"createdAt"`
	UpdatedAt  time.Time  `bson:"updatedAt"`
}

func toBulletinDoc(b *models.Bulletin, oid primitive.ObjectID) bulletinDoc {
	d := bulletinDoc{
		ID:          oid,
		Site:        b.Site,
		Type:        string(b.Type),
		PublishDate: b.PublishDate,
		Subject:     b.Subject,
		ArticleIDs:  append([]string{}, b.ArticleIDs...),
		Status:      string(b.Status),
		ArchiveURL:  b.ArchiveURL,
		SentAt:      b.SentAt,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	d.Content.HTML, d.Content.Text = b.Content.HTML, b.Content.Text
	d.Stats.Sent = b.Stats.Sent
	d.Stats.Delivered = b.Stats.Delivered
	d.Stats.Opened = b.Stats.Opened
	d.Stats.Clicked = b.Stats.Clicked
	d.Stats.Bounced = b.Stats.Bounced
	d.Stats.Unsubscribed = b.Stats.Unsubscribed
	d.Articles = make([]snapshotDoc, len(b.Snapshots))
	for i, s := range b.Snapshots {
		d.Articles[i] = snapshotDoc(s)
	}
	return d
}

func (d bulletinDoc) model() models.Bulletin {
	b := models.Bulletin{
		ID:          d.ID.Hex(),
		Site:        d.Site,
		Type:        models.BulletinType(d.Type),
		PublishDate: d.PublishDate,
		Subject:     d.Subject,
		Content:     models.BulletinContent{HTML: d.Content.HTML, Text: d.Content.Text},
		ArticleIDs:  d.ArticleIDs,
		Stats: models.BulletinStats{
			Sent:         d.Stats.Sent,
			Delivered:    d.Stats.Delivered,
			Opened:       d.Stats.Opened,
			Clicked:      d.Stats.Clicked,
			Bounced:      d.Stats.Bounced,
			Unsubscribed: d.Stats.Unsubscribed,
		},
		Status:     models.BulletinStatus(d.Status),
		ArchiveURL: d.ArchiveURL,
		SentAt:     d.SentAt,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	b.Snapshots = make([]models.ArticleSnapshot, len(d.Articles))
	for i, s := range d.Articles {
		b.Snapshots[i] = models.ArticleSnapshot(s)
	}
	return b
}

type Bulletins struct {
	col *mongo.Collection
	now func() time.Time
}

func (r *Bulletins) findOne(ctx context.Context, filter bson.M) (*models.Bulletin, error) {
	var d bulletinDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translate(err)
	}
	b := d.model()
	return &b, nil
}

func (r *Bulletins) GetByTypeAndDate(ctx context.Context, site string, t models.BulletinType, day time.Time) (*models.Bulletin, error) {
	return r.findOne(ctx, bson.M{"site": site, "type": string(t), "publishDate": day})
}

func (r *Bulletins) GetByID(ctx context.Context, id string) (*models.Bulletin, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *Bulletins) Create(ctx context.Context, b *models.Bulletin) error {
	oid := primitive.NewObjectID()
	now := r.now()
	b.CreatedAt, b.UpdatedAt = now, now
	if _, err := r.col.InsertOne(ctx, toBulletinDoc(b, oid)); err != nil {
		return translate(err)
	}
	b.ID = oid.Hex()
	return nil
}

func (r *Bulletins) Update(ctx context.Context, b *models.Bulletin) error {
	oid, err := objectID(b.ID)
	if err != nil {
		return err
	}
	b.UpdatedAt = r.now()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": oid}, toBulletinDoc(b, oid))
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Bulletins) Claim(ctx context.Context, id string, staleBefore time.Time) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	res, err := r.col.UpdateOne(ctx, claimFilter(oid, staleBefore), bson.M{
		"$set": bson.M{"status": string(models.BulletinSending), "updatedAt": r.now()},
	})
	if err != nil {
		return false, translate(err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func claimFilter(oid primitive.ObjectID, staleBefore time.Time) bson.M {
	return bson.M{
		"_id": oid,
		"$or": bson.A{
			bson.M{"status": bson.M{"$in": bson.A{string(models.BulletinDraft), string(models.BulletinFailed)}}},
			bson.M{"status": string(models.BulletinSending), "updatedAt": bson.M{"$lt": staleBefore}},
		},
	}
}

func (r *Bulletins) IncrementStat(ctx context.Context, id, stat string, n int64) error {
	if !models.ValidStat(stat) {
		return fmt.Errorf("%w: stat %q", models.ErrInvalidInput, stat)
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.col.UpdateByID(ctx, oid, bson.M{
		"$inc": bson.M{"stats." + stat: n},
		"$set": bson.M{"updatedAt": r.now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Bulletins) List(ctx context.Context, site string, skip, limit int) ([]models.Bulletin, int64, error) {
	f := bson.M{}
	if site != "" {
		f["site"] = site
	}
	total, err := r.col.CountDocuments(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("count bulletins: %w", err)
	}
	opts := paged(skip, limit).
		SetSort(bson.D{{Key: "publishDate", Value: -1}, {Key: "type", Value: 1}}).
		SetProjection(bson.M{"content": 0})
	cur, err := r.col.Find(ctx, f, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list bulletins: %w", err)
	}
	var docs []bulletinDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]models.Bulletin, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, total, nil
}
