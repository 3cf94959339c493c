package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const homePageCollection = "home_page_contents"

// ErrDocumentNotFound is returned when no home page document exists for a school.
var ErrDocumentNotFound = errors.New("document not found")

// HomePageRepository stores one content document per school in MongoDB.
type HomePageRepository struct {
	coll *mongo.Collection
}

func NewHomePageRepository(db *mongo.Database) *HomePageRepository {
	return &HomePageRepository{coll: db.Collection(homePageCollection)}
}

// EnsureIndexes creates the unique school_id index backing the one-document-per-school rule.
func (r *HomePageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "school_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uq_home_page_school"),
	})
	if err != nil {
		return fmt.Errorf("create home page index: %w", err)
	}
	return nil
}

func (r *HomePageRepository) FindBySchool(ctx context.Context, schoolID string) (*models.HomePageContent, error) {
	var content models.HomePageContent
	if err := r.coll.FindOne(ctx, schoolFilter(schoolID)).Decode(&content); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("find home page content: %w", err)
	}
	return &content, nil
}

// Save replaces the school's document, inserting it when absent. A new
// document takes the _id generated by the upsert.
func (r *HomePageRepository) Save(ctx context.Context, content *models.HomePageContent) error {
	content.UpdatedAt = time.Now().UTC()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = content.UpdatedAt
	}
	opts := options.Replace().SetUpsert(true)
	res, err := r.coll.ReplaceOne(ctx, schoolFilter(content.SchoolID), content, opts)
	if err != nil {
		return fmt.Errorf("save home page content: %w", err)
	}
	if id, ok := res.UpsertedID.(primitive.ObjectID); ok && content.ID.IsZero() {
		content.ID = id
	}
	return nil
}

// SetField overwrites one top-level field of an existing document.
func (r *HomePageRepository) SetField(ctx context.Context, schoolID, field string, value interface{}, updatedBy string) error {
	res, err := r.coll.UpdateOne(ctx, schoolFilter(schoolID), setFieldUpdate(field, value, updatedBy, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("update home page %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// PullItem removes the list item with itemID from field, leaving the rest in place.
func (r *HomePageRepository) PullItem(ctx context.Context, schoolID, field, itemID, updatedBy string) (bool, error) {
	filter, update := pullItemQuery(schoolID, field, itemID, updatedBy, time.Now().UTC())
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("remove home page %s item: %w", field, err)
	}
	return res.ModifiedCount > 0, nil
}

func schoolFilter(schoolID string) bson.M {
	return bson.M{"school_id": schoolID}
}

func setFieldUpdate(field string, value interface{}, updatedBy string, now time.Time) bson.M {
	return bson.M{"$set": bson.M{
		field:        value,
		"updated_at": now,
		"updated_by": updatedBy,
	}}
}

// pullItemQuery only matches documents that hold the item, so a missing id
// reports zero modifications.
func pullItemQuery(schoolID, field, itemID, updatedBy string, now time.Time) (bson.M, bson.M) {
	filter := bson.M{"school_id": schoolID, field + ".id": itemID}
	update := bson.M{
		"$pull": bson.M{field: bson.M{"id": itemID}},
		"$set":  bson.M{"updated_at": now, "updated_by": updatedBy},
	}
	return filter, update
}

// Delete removes and returns the school's document.
func (r *HomePageRepository) Delete(ctx context.Context, schoolID string) (*models.HomePageContent, error) {
	var content models.HomePageContent
	if err := r.coll.FindOneAndDelete(ctx, schoolFilter(schoolID)).Decode(&content); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("delete home page content: %w", err)
	}
	return &content, nil
}
