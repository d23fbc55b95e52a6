package db

import (
	"context"
	"time"

	"github.com/skynetdev/incidentes-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserCollection defines the interface for user database operations.
// Lookups of an absent user return (nil, nil), never an error.
type UserCollection interface {
	Insert(ctx context.Context, user models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	RecordFailedLogin(ctx context.Context, id string, attempts int, lockUntil *time.Time) error
	ResetLoginState(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// IsDuplicate reports whether err is a Mongo duplicate-key error. The caller
// converts it into a tagged error at the service boundary.
func IsDuplicate(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// MongoUserCollection implements UserCollection for MongoDB.
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// Insert stores a new user and returns it with its generated id.
func (c *MongoUserCollection) Insert(ctx context.Context, user models.User) (*models.User, error) {
	now := time.Now()
	user.ID = primitive.NewObjectID()
	user.IsActive = true
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := c.Collection.InsertOne(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID finds a user by their hex id.
func (c *MongoUserCollection) FindByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by their normalized username.
func (c *MongoUserCollection) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := c.Collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RecordFailedLogin stores the incremented attempt counter and, when the
// threshold was reached, the lockout deadline.
func (c *MongoUserCollection) RecordFailedLogin(ctx context.Context, id string, attempts int, lockUntil *time.Time) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	set := bson.M{"loginAttempts": attempts, "updatedAt": time.Now()}
	if lockUntil != nil {
		set["lockUntil"] = *lockUntil
	}
	_, err = c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	return err
}

// ResetLoginState clears the attempt counter and any lockout deadline after
// a successful login.
func (c *MongoUserCollection) ResetLoginState(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set":   bson.M{"loginAttempts": 0, "updatedAt": time.Now()},
		"$unset": bson.M{"lockUntil": ""},
	})
	return err
}

// UpdatePassword replaces the stored password hash.
func (c *MongoUserCollection) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{"passwordHash": passwordHash, "updatedAt": time.Now()},
	})
	return err
}
