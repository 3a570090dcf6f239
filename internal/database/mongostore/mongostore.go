// Package mongostore is the MongoDB backend.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noticias/core/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names.
const (
	colArticles    = "noticias"
	colCategories  = "categories"
	colSubscribers = "subscribers"
	colBulletins   = "boletines"
	colContacts    = "contacts"
)

// Store owns the client and exposes one view per collection.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
	logger *zap.Logger
}

// Connect dials uri and verifies connectivity.
func Connect(ctx context.Context, uri, name string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName("noticias-core"))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Store{
		client: client,
		db:     client.Database(name),
		now:    time.Now,
		logger: logger.Named("MongoStore"),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

func (s *Store) Articles() *Articles     { return &Articles{col: s.db.Collection(colArticles)} }
func (s *Store) Categories() *Categories { return &Categories{col: s.db.Collection(colCategories)} }
func (s *Store) Subscribers() *Subscribers {
	return &Subscribers{col: s.db.Collection(colSubscribers), now: s.now}
}
func (s *Store) Bulletins() *Bulletins {
	return &Bulletins{col: s.db.Collection(colBulletins), now: s.now}
}
func (s *Store) Contacts() *Contacts { return &Contacts{col: s.db.Collection(colContacts), now: s.now} }

// EnsureIndexes creates the indexes the queries rely on, including the
// weighted Spanish text index used by search.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colArticles: {
			{
				Keys: bson.D{{Key: "title", Value: "text"}, {Key: "summary", Value: "text"}, {Key: "tags", Value: "text"}, {Key: "content", Value: "text"}},
				Options: options.Index().
					SetName("article_text").
					SetDefaultLanguage("spanish").
					SetWeights(bson.D{{Key: "title", Value: 10}, {Key: "summary", Value: 5}, {Key: "tags", Value: 5}, {Key: "content", Value: 1}}),
			},
			{Keys: bson.D{{Key: "site", Value: 1}, {Key: "status", Value: 1}, {Key: "publishedAt", Value: -1}}},
			{Keys: bson.D{{Key: "site", Value: 1}, {Key: "slug", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		colCategories: {
			{Keys: bson.D{{Key: "site", Value: 1}, {Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colSubscribers: {
			{Keys: bson.D{{Key: "site", Value: 1}, {Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "unsubscribeToken", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "confirmationToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		colBulletins: {
			{Keys: bson.D{{Key: "site", Value: 1}, {Key: "type", Value: 1}, {Key: "publishDate", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colContacts: {
			{Keys: bson.D{{Key: "site", Value: 1}, {Key: "email", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for col, idx := range specs {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	s.logger.Info("indexes ensured")
	return nil
}

// translate maps driver errors to the domain sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return models.ErrDuplicate
	}
	return err
}

func objectID(hex string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, models.ErrNotFound
	}
	return oid, nil
}

func paged(skip, limit int) *options.FindOptions {
	opts := options.Find()
	if skip > 0 {
		opts.SetSkip(int64(skip))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}
