package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/midlandbus/siri-vm-feed/vehicle"
)

// PositionRepository stores vehicle position reports keyed by
// (vehicleref, recordedat).
type PositionRepository struct {
	collection *mongo.Collection
}

// Upsert appends a position report. A second report for the same vehicle and
// timestamp overwrites the mutable fields: last write for a given timestamp
// wins.
func (r *PositionRepository) Upsert(ctx context.Context, s vehicle.State) error {
	filter := bson.M{"vehicleref": s.VehicleRef, "recordedat": s.RecordedAt}
	update := bson.M{
		"$set": bson.M{
			"location":   s.Location,
			"bearing":    s.Bearing,
			"velocity":   s.Velocity,
			"occupancy":  s.Occupancy,
			"validuntil": s.ValidUntil,
		},
		"$setOnInsert": bson.M{
			"lineref":                 s.LineRef,
			"directionref":            s.DirectionRef,
			"publishedlinename":       s.PublishedLineName,
			"operatorref":             s.OperatorRef,
			"originref":               s.OriginRef,
			"originname":              s.OriginName,
			"destinationref":          s.DestinationRef,
			"destinationname":         s.DestinationName,
			"originaimeddeparture":    s.OriginAimedDeparture,
			"destinationaimedarrival": s.DestinationAimedArrival,
			"blockref":                s.BlockRef,
			"vehiclejourneyref":       s.VehicleJourneyRef,
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store: upsert position: %w", err)
	}
	return nil
}

// Recent returns every report recorded after since, newest first. Reports
// sharing a RecordedAt come back in reverse insertion order so the last
// arrival wins any dedup done by the caller.
func (r *PositionRepository) Recent(ctx context.Context, since time.Time) ([]vehicle.State, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "recordedat", Value: -1},
		{Key: "_id", Value: -1},
	})
	cursor, err := r.collection.Find(ctx, bson.M{"recordedat": bson.M{"$gt": since}}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: query positions: %w", err)
	}
	defer cursor.Close(ctx)

	var states []vehicle.State
	for cursor.Next(ctx) {
		var s vehicle.State
		if err := cursor.Decode(&s); err != nil {
			return nil, fmt.Errorf("store: decode position: %w", err)
		}
		states = append(states, s)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate positions: %w", err)
	}
	return states, nil
}

// DeleteFilter narrows a maintenance delete. Zero values impose no
// constraint.
type DeleteFilter struct {
	VehicleRef  string
	OperatorRef string
	Before      *time.Time
}

// Delete removes matching position reports and returns the removed count.
func (r *PositionRepository) Delete(ctx context.Context, f DeleteFilter) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, deleteQuery(f))
	if err != nil {
		return 0, fmt.Errorf("store: delete positions: %w", err)
	}
	return res.DeletedCount, nil
}

// DeleteRange removes a vehicle's reports recorded within [from, to].
func (r *PositionRepository) DeleteRange(ctx context.Context, vehicleRef string, from, to time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"vehicleref": vehicleRef,
		"recordedat": bson.M{"$gte": from, "$lte": to},
	})
	if err != nil {
		return 0, fmt.Errorf("store: delete position range: %w", err)
	}
	return res.DeletedCount, nil
}

func deleteQuery(f DeleteFilter) bson.M {
	query := bson.M{}
	if f.VehicleRef != "" {
		query["vehicleref"] = f.VehicleRef
	}
	if f.OperatorRef != "" {
		query["operatorref"] = f.OperatorRef
	}
	if f.Before != nil {
		query["recordedat"] = bson.M{"$lt": *f.Before}
	}
	return query
}
