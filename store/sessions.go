package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Session is one tracking session: the period a device reported positions
// for a vehicle.
type Session struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	VehicleRef string             `bson:"vehicleref"`
	StartTime  time.Time          `bson:"starttime"`
	EndTime    *time.Time         `bson:"endtime,omitempty"`
	Active     bool               `bson:"active"`
}

// SessionRepository stores tracking sessions.
type SessionRepository struct {
	collection *mongo.Collection
}

// Start opens a session for the vehicle, ending any session still active for
// it first.
func (r *SessionRepository) Start(ctx context.Context, vehicleRef string, at time.Time) (Session, error) {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"vehicleref": vehicleRef, "active": true},
		bson.M{"$set": bson.M{"active": false, "endtime": at}},
	)
	if err != nil {
		return Session{}, fmt.Errorf("store: end active sessions: %w", err)
	}

	session := Session{
		VehicleRef: vehicleRef,
		StartTime:  at,
		Active:     true,
	}
	res, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return Session{}, fmt.Errorf("store: start session: %w", err)
	}
	session.ID = res.InsertedID.(primitive.ObjectID)
	return session, nil
}

// Stop ends a session. ErrNotFound if the session does not exist.
func (r *SessionRepository) Stop(ctx context.Context, id string, at time.Time) (Session, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Session{}, ErrNotFound
	}

	var session Session
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"active": false, "endtime": at}},
	).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("store: stop session: %w", err)
	}
	session.Active = false
	session.EndTime = &at
	return session, nil
}

// Get fetches a session by id. ErrNotFound if absent.
func (r *SessionRepository) Get(ctx context.Context, id string) (Session, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Session{}, ErrNotFound
	}

	var session Session
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("store: get session: %w", err)
	}
	return session, nil
}

// Delete removes a session by id.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStartedBefore ages out sessions older than cutoff, optionally
// narrowed to one vehicle, and returns the removed count.
func (r *SessionRepository) DeleteStartedBefore(ctx context.Context, cutoff time.Time, vehicleRef string) (int64, error) {
	query := bson.M{"starttime": bson.M{"$lt": cutoff}}
	if vehicleRef != "" {
		query["vehicleref"] = vehicleRef
	}
	res, err := r.collection.DeleteMany(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("store: delete sessions: %w", err)
	}
	return res.DeletedCount, nil
}
