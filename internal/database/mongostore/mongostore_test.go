package mongostore

import (
	"errors"
	"testing"
	"time"

	"github.com/noticias/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestArticleFilterDefaultsToPublished(t *testing.T) {
	f, err := articleFilter(models.ArticleQuery{})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"status": "published"}, f)
}

func TestArticleFilterCategoryByID(t *testing.T) {
	oid := primitive.NewObjectID()
	f, err := articleFilter(models.ArticleQuery{Site: "hidalgo", Category: models.ByCategoryID(oid.Hex())})
	require.NoError(t, err)
	assert.Equal(t, oid, f["category"])
	assert.Equal(t, "hidalgo", f["site"])
}

func TestArticleFilterRejectsMalformedCategoryID(t *testing.T) {
	_, err := articleFilter(models.ArticleQuery{Category: models.ByCategoryID("nope")})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestArticleFilterLegacyAndPatterns(t *testing.T) {
	q := models.ArticleQuery{
		Category:      models.ByLegacyCategory(`^\s*deportes\s*$`),
		TagPattern:    "futbol",
		AuthorPattern: "juan",
		AnyTerms:      []string{"a", "b"},
		Text:          "lluvia",
	}
	f, err := articleFilter(q)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$regex": `^\s*deportes\s*$`, "$options": "i"}, f["category"])
	assert.Equal(t, bson.M{"$regex": "futbol", "$options": "i"}, f["tags"])
	assert.Equal(t, bson.M{"$regex": "juan", "$options": "i"}, f["author"])
	assert.Equal(t, bson.M{"$search": "lluvia"}, f["$text"])
	assert.Len(t, f["$or"], 2)
}

func TestArticleFilterDateRange(t *testing.T) {
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)
	f, err := articleFilter(models.ArticleQuery{PublishedSince: since, PublishedUntil: until})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$gte": since, "$lt": until}, f["publishedAt"])
}

func TestArticleSort(t *testing.T) {
	assert.Equal(t, "publishedAt", articleSort(models.ArticleQuery{})[0].Key)
	assert.Equal(t, "views", articleSort(models.ArticleQuery{Sort: models.SortByViews})[0].Key)
	assert.Equal(t, "publishedAt", articleSort(models.ArticleQuery{Sort: models.SortByRelevance})[0].Key)
	assert.Equal(t, "score", articleSort(models.ArticleQuery{Sort: models.SortByRelevance, Text: "x"})[0].Key)
}

func TestArticleDocCategoryShapes(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{"_id": primitive.NewObjectID(), "category": oid})
	require.NoError(t, err)
	var d articleDoc
	require.NoError(t, bson.Unmarshal(raw, &d))
	a := d.model()
	assert.Equal(t, oid.Hex(), a.CategoryID)
	assert.Empty(t, a.CategoryName)

	raw, err = bson.Marshal(bson.M{"_id": primitive.NewObjectID(), "category": "Política"})
	require.NoError(t, err)
	d = articleDoc{}
	require.NoError(t, bson.Unmarshal(raw, &d))
	a = d.model()
	assert.Empty(t, a.CategoryID)
	assert.Equal(t, "Política", a.CategoryName)
}

func TestSubscriberDocRoundTripKeepsTokenAbsence(t *testing.T) {
	s := &models.Subscriber{Email: "a@b.mx", UnsubscribeToken: "u"}
	raw, err := bson.Marshal(toSubscriberDoc(s, primitive.NewObjectID()))
	require.NoError(t, err)
	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	_, has := m["confirmationToken"]
	assert.False(t, has)

	s.SetConfirmationToken("tok", time.Now())
	raw, err = bson.Marshal(toSubscriberDoc(s, primitive.NewObjectID()))
	require.NoError(t, err)
	m = bson.M{}
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "tok", m["confirmationToken"])
}

func TestSubscriberFilter(t *testing.T) {
	yes := true
	assert.Equal(t, bson.M{"site": "s", "isActive": true}, subscriberFilter(models.SubscriberQuery{Site: "s", Active: &yes}))
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(mongo.ErrNoDocuments), models.ErrNotFound)
	assert.NoError(t, translate(nil))
	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}

func TestClaimFilter(t *testing.T) {
	oid := primitive.NewObjectID()
	stale := time.Date(2026, 5, 4, 5, 0, 0, 0, time.UTC)
	f := claimFilter(oid, stale)
	assert.Equal(t, oid, f["_id"])
	assert.Equal(t, bson.A{
		bson.M{"status": bson.M{"$in": bson.A{"draft", "failed"}}},
		bson.M{"status": "sending", "updatedAt": bson.M{"$lt": stale}},
	}, f["$or"])
}
