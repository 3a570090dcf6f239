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

type preferencesDoc struct {
	Morning bool `bson:"morning"`
	Evening bool `bson:"evening"`
	Weekly  bool `bson:"weekly"`
	Sports  bool `bson:"sports"`
}

// subscriberDoc omits the confirmation token pair entirely once cleared so
// the sparse index stays small.
type subscriberDoc struct {
	ID                       primitive.ObjectID `bson:"_id"`
	Site                     string             `bson:"site"`
	Email                    string             `bson:"email"`
	Name                     string             `bson:"name,omitempty"`
	Preferences              preferencesDoc     `bson:"preferences"`
	Source                   string             `bson:"source,omitempty"`
	IsActive                 bool               `bson:"isActive"`
	IsConfirmed              bool               `bson:"isConfirmed"`
	ConfirmedAt              *time.Time         `bson:"confirmedAt,omitempty"`
	SubscribedAt             time.Time          `bson:"subscribedAt"`
	UnsubscribedAt           *time.Time         `bson:"unsubscribedAt,omitempty"`
	UnsubscribeReason        string             `bson:"unsubscribeReason,omitempty"`
	UnsubscribeToken         string             `bson:"unsubscribeToken"`
	ConfirmationToken        *string            `bson:"confirmationToken,omitempty"`
	ConfirmationTokenExpires *time.Time         `bson:"confirmationTokenExpires,omitempty"`
	CreatedAt                time.Time          `bson:"createdAt"`
	UpdatedAt                time.Time          `bson:"updatedAt"`
}

func toSubscriberDoc(s *models.Subscriber, oid primitive.ObjectID) subscriberDoc {
	return subscriberDoc{
		ID:    oid,
		Site:  s.Site,
		Email: s.Email,
		Name:  s.Name,
		Preferences: preferencesDoc{
			Morning: s.Preferences.Morning,
			Evening: s.Preferences.Evening,
			Weekly:  s.Preferences.Weekly,
			Sports:  s.Preferences.Sports,
		},
		Source:                   s.Source,
		IsActive:                 s.IsActive,
		IsConfirmed:              s.IsConfirmed,
		ConfirmedAt:              s.ConfirmedAt,
		SubscribedAt:             s.SubscribedAt,
		UnsubscribedAt:           s.UnsubscribedAt,
		UnsubscribeReason:        s.UnsubscribeReason,
		UnsubscribeToken:         s.UnsubscribeToken,
		ConfirmationToken:        s.ConfirmationToken,
		ConfirmationTokenExpires: s.ConfirmationTokenExpires,
		CreatedAt:                s.CreatedAt,
		UpdatedAt:                s.UpdatedAt,
	}
}

func (d subscriberDoc) model() models.Subscriber {
	return models.Subscriber{
		ID:    d.ID.Hex(),
		Site:  d.Site,
		Email: d.Email,
		Name:  d.Name,
		Preferences: models.Preferences{
			Morning: d.Preferences.Morning,
			Evening: d.Preferences.Evening,
			Weekly:  d.Preferences.Weekly,
			Sports:  d.Preferences.Sports,
		},
		Source:                   d.Source,
		IsActive:                 d.IsActive,
		IsConfirmed:              d.IsConfirmed,
		ConfirmedAt:              d.ConfirmedAt,
		SubscribedAt:             d.SubscribedAt,
		UnsubscribedAt:           d.UnsubscribedAt,
		UnsubscribeReason:        d.UnsubscribeReason,
		UnsubscribeToken:         d.UnsubscribeToken,
		ConfirmationToken:        d.ConfirmationToken,
		ConfirmationTokenExpires: d.ConfirmationTokenExpires,
		CreatedAt:                d.CreatedAt,
		UpdatedAt:                d.UpdatedAt,
	}
}

type Subscribers struct {
	col *mongo.Collection
	now func() time.Time
}

func (r *Subscribers) findOne(ctx context.Context, filter bson.M) (*models.Subscriber, error) {
	var d subscriberDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translate(err)
	}
	s := d.model()
	return &s, nil
}

func (r *Subscribers) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Subscriber, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find subscribers: %w", err)
	}
	var docs []subscriberDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode subscribers: %w", err)
	}
	out := make([]models.Subscriber, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

func (r *Subscribers) GetByEmail(ctx context.Context, site, email string) (*models.Subscriber, error) {
	return r.findOne(ctx, bson.M{"site": site, "email": email})
}

func (r *Subscribers) GetByConfirmationToken(ctx context.Context, token string, now time.Time) (*models.Subscriber, error) {
	return r.findOne(ctx, bson.M{
		"confirmationToken":        token,
		"confirmationTokenExpires": bson.M{"$gt": now},
	})
}

func (r *Subscribers) GetByUnsubscribeToken(ctx context.Context, token string) (*models.Subscriber, error) {
	return r.findOne(ctx, bson.M{"unsubscribeToken": token})
}

func (r *Subscribers) Create(ctx context.Context, s *models.Subscriber) error {
	oid := primitive.NewObjectID()
	now := r.now()
	s.CreatedAt, s.UpdatedAt = now, now
	if _, err := r.col.InsertOne(ctx, toSubscriberDoc(s, oid)); err != nil {
		return translate(err)
	}
	s.ID = oid.Hex()
	return nil
}

func (r *Subscribers) Update(ctx context.Context, s *models.Subscriber) error {
	oid, err := objectID(s.ID)
	if err != nil {
		return err
	}
	s.UpdatedAt = r.now()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": oid}, toSubscriberDoc(s, oid))
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Subscribers) ListRecipients(ctx context.Context, site string, t models.BulletinType) ([]models.Subscriber, error) {
	filter := bson.M{
		"site":                     site,
		"isActive":                 true,
		"isConfirmed":              true,
		"preferences." + string(t): true,
	}
	return r.findMany(ctx, filter, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
}

func subscriberFilter(q models.SubscriberQuery) bson.M {
	f := bson.M{}
	if q.Site != "" {
		f["site"] = q.Site
	}
	if q.Active != nil {
		f["isActive"] = *q.Active
	}
	if q.Confirmed != nil {
		f["isConfirmed"] = *q.Confirmed
	}
	return f
}

func (r *Subscribers) List(ctx context.Context, q models.SubscriberQuery) ([]models.Subscriber, int64, error) {
	f := subscriberFilter(q)
	total, err := r.col.CountDocuments(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("count subscribers: %w", err)
	}
	opts := paged(q.Skip, q.Limit).SetSort(bson.D{{Key: "subscribedAt", Value: -1}, {Key: "email", Value: 1}})
	items, err := r.findMany(ctx, f, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Stats computes every counter in a single $facet pass.
func (r *Subscribers) Stats(ctx context.Context, site string) (*models.SubscriberStats, error) {
	match := bson.M{}
	if site != "" {
		match["site"] = site
	}
	reachable := bson.M{"isActive": true, "isConfirmed": true}
	facets := bson.M{
		"total":       bson.A{bson.M{"$count": "n"}},
		"active":      bson.A{bson.M{"$match": bson.M{"isActive": true}}, bson.M{"$count": "n"}},
		"confirmed":   bson.A{bson.M{"$match": bson.M{"isConfirmed": true}}, bson.M{"$count": "n"}},
		"unconfirmed": bson.A{bson.M{"$match": bson.M{"isConfirmed": false}}, bson.M{"$count": "n"}},
	}
	for _, t := range models.BulletinTypes {
		m := bson.M{"preferences." + string(t): true}
		for k, v := range reachable {
			m[k] = v
		}
		facets[string(t)] = bson.A{bson.M{"$match": m}, bson.M{"$count": "n"}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: facets}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("subscriber stats: %w", err)
	}
	var rows []map[string][]struct {
		N int64 `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	count := func(name string) int64 {
		if len(rows) == 0 || len(rows[0][name]) == 0 {
			return 0
		}
		return rows[0][name][0].N
	}
	st := &models.SubscriberStats{
		Total:       count("total"),
		Active:      count("active"),
		Confirmed:   count("confirmed"),
		Unconfirmed: count("unconfirmed"),
		ByType:      map[models.BulletinType]int64{},
	}
	for _, t := range models.BulletinTypes {
		st.ByType[t] = count(string(t))
	}
	return st, nil
}
