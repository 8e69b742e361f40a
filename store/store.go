// Package store is the durable position repository backed by MongoDB.
// Position reports are append-only with upsert-by-(vehicle, timestamp);
// tracking sessions record who was driving what and when.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("store: not found")

const (
	positionsCollection = "vehicle_positions"
	sessionsCollection  = "tracking_sessions"
)

// Connection wraps the Mongo client and database handles.
type Connection struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect opens the Mongo connection and ensures the indexes the feed
// queries rely on. A failed ping is returned to the caller; the repositories
// themselves retry per operation.
func Connect(ctx context.Context, connectionString, database string) (*Connection, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, err
	}

	conn := &Connection{
		Client:   client,
		Database: client.Database(database),
	}

	if err := client.Ping(ctx, nil); err != nil {
		return conn, err
	}

	conn.createIndexes(ctx)

	return conn, nil
}

func (c *Connection) createIndexes(ctx context.Context) {
	positions := c.Database.Collection(positionsCollection)
	_, _ = positions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "vehicleref", Value: 1}, {Key: "recordedat", Value: -1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "recordedat", Value: -1}},
		},
	})

	sessions := c.Database.Collection(sessionsCollection)
	_, _ = sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "vehicleref", Value: 1}, {Key: "active", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "starttime", Value: -1}},
		},
	})
}

// Positions returns the position repository.
func (c *Connection) Positions() *PositionRepository {
	return &PositionRepository{collection: c.Database.Collection(positionsCollection)}
}

// Sessions returns the tracking-session repository.
func (c *Connection) Sessions() *SessionRepository {
	return &SessionRepository{collection: c.Database.Collection(sessionsCollection)}
}

// Disconnect closes the underlying client.
func (c *Connection) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.Client.Disconnect(ctx)
}
