package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DB is the handle owning the Mongo client and the application collections.
// It is constructed once in main and injected; nothing else opens connections.
type DB struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect opens a client, verifies the connection with a ping and returns
// the database handle.
func Connect(ctx context.Context, uri, database string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}

	return &DB{
		client:   client,
		database: client.Database(database),
	}, nil
}

// Close disconnects the underlying client.
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// Incidents returns the Mongo-backed incident collection.
func (d *DB) Incidents() *MongoIncidentCollection {
	return &MongoIncidentCollection{Collection: d.database.Collection("incidentes")}
}

// Users returns the Mongo-backed user collection.
func (d *DB) Users() *MongoUserCollection {
	return &MongoUserCollection{Collection: d.database.Collection("users")}
}

// EnsureIndexes creates the indexes the application relies on. The unique
// username index is what turns duplicate registrations into duplicate-key
// errors instead of silent double accounts.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	_, err := d.database.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating username index: %w", err)
	}

	_, err = d.database.Collection("incidentes").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "fecha", Value: 1}, {Key: "hora", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating incident sort index: %w", err)
	}
	return nil
}
