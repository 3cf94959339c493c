package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestHomePageContentKeepsObjectIDAcrossSaves(t *testing.T) {
	id := primitive.NewObjectID()
	stored, err := bson.Marshal(bson.D{
		{Key: "_id", Value: id},
		{Key: "school_id", Value: "school-1"},
		{Key: "sliders", Value: bson.A{bson.D{{Key: "id", Value: "s1"}, {Key: "order", Value: 0}, {Key: "title", Value: "Welcome"}}}},
	})
	require.NoError(t, err)

	var loaded models.HomePageContent
	require.NoError(t, bson.Unmarshal(stored, &loaded))
	assert.Equal(t, id, loaded.ID)
	require.Len(t, loaded.Sliders, 1)
	assert.Equal(t, "Welcome", loaded.Sliders[0].Title)

	replacement := models.HomePageContent{ID: loaded.ID, SchoolID: "school-1", Header: models.Header{SchoolName: "SMA 1"}}
	raw, err := bson.Marshal(replacement)
	require.NoError(t, err)
	value := bson.Raw(raw).Lookup("_id")
	assert.Equal(t, bsontype.ObjectID, value.Type)
	assert.Equal(t, id, value.ObjectID())

	out, err := json.Marshal(loaded)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id":"`+id.Hex()+`"`)
}

func TestHomePageContentWithoutIDOmitsIt(t *testing.T) {
	raw, err := bson.Marshal(models.HomePageContent{SchoolID: "school-1"})
	require.NoError(t, err)

	_, err = bson.Raw(raw).LookupErr("_id")
	assert.Error(t, err)
	assert.Equal(t, "school-1", bson.Raw(raw).Lookup("school_id").StringValue())
}

func TestHomePageSetFieldUpdate(t *testing.T) {
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	update := setFieldUpdate("header", models.Header{SchoolName: "SMA 1", SocialLinks: models.SocialLinks{Facebook: "fb/sma1"}}, "user-1", now)

	raw, err := bson.Marshal(update)
	require.NoError(t, err)
	doc := bson.Raw(raw)
	assert.Equal(t, "SMA 1", doc.Lookup("$set", "header", "school_name").StringValue())
	assert.Equal(t, "fb/sma1", doc.Lookup("$set", "header", "social_links", "facebook").StringValue())
	assert.Equal(t, "user-1", doc.Lookup("$set", "updated_by").StringValue())
	assert.Equal(t, now, doc.Lookup("$set", "updated_at").Time().UTC())
	assert.Equal(t, bson.M{"school_id": "school-1"}, schoolFilter("school-1"))
}

func TestHomePagePullItemQuery(t *testing.T) {
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	filter, update := pullItemQuery("school-1", "why_choose_us", "item-2", "user-1", now)

	assert.Equal(t, bson.M{"school_id": "school-1", "why_choose_us.id": "item-2"}, filter)

	raw, err := bson.Marshal(update)
	require.NoError(t, err)
	doc := bson.Raw(raw)
	assert.Equal(t, "item-2", doc.Lookup("$pull", "why_choose_us", "id").StringValue())
	assert.Equal(t, "user-1", doc.Lookup("$set", "updated_by").StringValue())
	_, err = doc.LookupErr("$set", "why_choose_us")
	assert.Error(t, err, "pull leaves the rest of the list alone")
}
