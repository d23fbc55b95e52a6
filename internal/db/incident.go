package db

import (
	"context"
	"math"
	"time"

	"github.com/skynetdev/incidentes-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IncidentPage is one page of a filtered listing.
type IncidentPage struct {
	Items []models.Incident
	Total int64
	Pages int
}

// IncidentCollection defines the interface for incident database operations.
// Lookups of a well-formed but absent id return (nil, nil), never an error.
type IncidentCollection interface {
	List(ctx context.Context, page, limit int, keyword string) (*IncidentPage, error)
	Find(ctx context.Context, filter bson.M) ([]models.Incident, error)
	FindByID(ctx context.Context, id string) (*models.Incident, error)
	Insert(ctx context.Context, incident models.Incident) (*models.Incident, error)
	Update(ctx context.Context, id string, update models.IncidentUpdate) (*models.Incident, error)
	Delete(ctx context.Context, id string) (*models.Incident, error)
}

// MongoIncidentCollection implements IncidentCollection for MongoDB.
type MongoIncidentCollection struct {
	Collection *mongo.Collection
}

var incidentSort = bson.D{{Key: "fecha", Value: 1}, {Key: "hora", Value: 1}}

// KeywordOr builds the case-insensitive substring match over the searchable
// text fields, combined with logical OR.
func KeywordOr(keyword string) []bson.M {
	or := make([]bson.M, 0, len(models.KeywordFields))
	for _, field := range models.KeywordFields {
		or = append(or, bson.M{field: bson.M{"$regex": keyword, "$options": "i"}})
	}
	return or
}

// List returns one page of incidents sorted by (fecha, hora), with the total
// count and the computed page count.
func (c *MongoIncidentCollection) List(ctx context.Context, page, limit int, keyword string) (*IncidentPage, error) {
	filter := bson.M{}
	if keyword != "" {
		filter["$or"] = KeywordOr(keyword)
	}

	skip := int64((page - 1) * limit)
	opts := options.Find().
		SetSort(incidentSort).
		SetSkip(skip).
		SetLimit(int64(limit))

	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	items := []models.Incident{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}

	total, err := c.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &IncidentPage{
		Items: items,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// Find returns every incident matching filter, sorted by (fecha, hora).
// Report generation buffers the whole result set; there is no cap here.
func (c *MongoIncidentCollection) Find(ctx context.Context, filter bson.M) ([]models.Incident, error) {
	cursor, err := c.Collection.Find(ctx, filter, options.Find().SetSort(incidentSort))
	if err != nil {
		return nil, err
	}
	items := []models.Incident{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// FindByID finds an incident by its hex id.
func (c *MongoIncidentCollection) FindByID(ctx context.Context, id string) (*models.Incident, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var incident models.Incident
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&incident)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

// Insert stores a new incident and returns it with its generated id.
func (c *MongoIncidentCollection) Insert(ctx context.Context, incident models.Incident) (*models.Incident, error) {
	now := time.Now()
	incident.ID = primitive.NewObjectID()
	incident.CreatedAt = now
	incident.UpdatedAt = now

	if _, err := c.Collection.InsertOne(ctx, incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

// Update applies a partial update and returns the updated document, or
// (nil, nil) when the id does not exist.
func (c *MongoIncidentCollection) Update(ctx context.Context, id string, update models.IncidentUpdate) (*models.Incident, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Incident
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": update.SetDocument(time.Now())},
		opts,
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an incident and returns the deleted document, or (nil, nil)
// when the id does not exist. The caller uses the returned document to clean
// up the associated image file.
func (c *MongoIncidentCollection) Delete(ctx context.Context, id string) (*models.Incident, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var deleted models.Incident
	err = c.Collection.FindOneAndDelete(ctx, bson.M{"_id": objectID}).Decode(&deleted)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}
