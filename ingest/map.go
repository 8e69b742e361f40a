package ingest

import (
	"fmt"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/midlandbus/siri-vm-feed/vehicle"
)

// reportValidity stamps how long an ingested position stays servable.
const reportValidity = 5 * time.Minute

// mapVehiclePosition converts one GTFS-RT vehicle entity into a vehicle
// state. Entities without a vehicle id or a position are skipped (ok=false).
// GTFS-RT carries no origin/destination stop names, so those fields get
// placeholder values the feed can still serve.
func mapVehiclePosition(e *gtfsrtpb.FeedEntity, operatorRef string, now time.Time) (vehicle.State, bool) {
	vp := e.GetVehicle()
	if vp == nil || vp.GetVehicle().GetId() == "" || vp.Position == nil {
		return vehicle.State{}, false
	}

	trip := vp.GetTrip()
	routeID := trip.GetRouteId()
	if routeID == "" {
		return vehicle.State{}, false
	}

	vehicleRef := vp.GetVehicle().GetId()

	journeyRef := trip.GetTripId()
	if journeyRef == "" {
		journeyRef = "journey_" + vehicleRef
	}

	recordedAt := now
	if vp.Timestamp != nil {
		recordedAt = time.Unix(int64(vp.GetTimestamp()), 0).UTC()
	}

	state := vehicle.State{
		VehicleRef:        vehicleRef,
		LineRef:           routeID,
		DirectionRef:      mapDirection(trip),
		PublishedLineName: routeID,
		OperatorRef:       operatorRef,
		OriginRef:         "UNKNOWN",
		OriginName:        "Unknown",
		DestinationRef:    "UNKNOWN",
		Location: vehicle.Location{
			Longitude: float64(vp.Position.GetLongitude()),
			Latitude:  float64(vp.Position.GetLatitude()),
		},
		Occupancy:         mapOccupancy(vp),
		BlockRef:          blockRef(trip, vehicleRef),
		VehicleJourneyRef: journeyRef,
		RecordedAt:        recordedAt,
		ValidUntil:        recordedAt.Add(reportValidity),
	}

	if vp.Position.Bearing != nil {
		b := float64(vp.Position.GetBearing())
		state.Bearing = &b
	}
	if vp.Position.Speed != nil {
		v := float64(vp.Position.GetSpeed())
		state.Velocity = &v
	}

	return state, true
}

// mapDirection folds GTFS direction_id onto the SIRI vocabulary: 0 is
// outbound, 1 is inbound.
func mapDirection(trip *gtfsrtpb.TripDescriptor) vehicle.Direction {
	if trip != nil && trip.GetDirectionId() == 1 {
		return vehicle.DirectionInbound
	}
	return vehicle.DirectionOutbound
}

func mapOccupancy(vp *gtfsrtpb.VehiclePosition) vehicle.Occupancy {
	if vp.OccupancyStatus == nil {
		return vehicle.OccupancyUnset
	}
	switch vp.GetOccupancyStatus() {
	case gtfsrtpb.VehiclePosition_EMPTY,
		gtfsrtpb.VehiclePosition_MANY_SEATS_AVAILABLE,
		gtfsrtpb.VehiclePosition_FEW_SEATS_AVAILABLE:
		return vehicle.OccupancySeatsAvailable
	case gtfsrtpb.VehiclePosition_STANDING_ROOM_ONLY,
		gtfsrtpb.VehiclePosition_CRUSHED_STANDING_ROOM_ONLY:
		return vehicle.OccupancyStandingAvailable
	case gtfsrtpb.VehiclePosition_FULL,
		gtfsrtpb.VehiclePosition_NOT_ACCEPTING_PASSENGERS:
		return vehicle.OccupancyFull
	}
	return vehicle.OccupancyUnset
}

func blockRef(trip *gtfsrtpb.TripDescriptor, vehicleRef string) string {
	if trip.GetTripId() != "" {
		return fmt.Sprintf("block_%s", trip.GetTripId())
	}
	return fmt.Sprintf("block_%s", vehicleRef)
}
