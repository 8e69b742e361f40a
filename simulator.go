package sirivmfeed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/midlandbus/siri-vm-feed/vehicle"
)

// simRoute is a predefined route a simulated vehicle is bound to. Times are
// clock times applied to the current date.
type simRoute struct {
	lineRef            string
	publishedLineName  string
	direction          vehicle.Direction
	operatorRef        string
	originRef          string
	originName         string
	destinationRef     string
	destinationName    string
	originDeparture    string
	destinationArrival string
}

var simRoutes = []simRoute{
	{
		lineRef:            "1",
		publishedLineName:  "1 - Birmingham to Dudley",
		direction:          vehicle.DirectionOutbound,
		operatorRef:        "MIDL",
		originRef:          "430003002",
		originName:         "Birmingham Moor Street",
		destinationRef:     "430008001",
		destinationName:    "Dudley Bus Station",
		originDeparture:    "08:00",
		destinationArrival: "09:30",
	},
	{
		lineRef:            "45",
		publishedLineName:  "45 - Walsall to Birmingham",
		direction:          vehicle.DirectionInbound,
		operatorRef:        "MIDL",
		originRef:          "430007001",
		originName:         "Walsall Bus Station",
		destinationRef:     "430003002",
		destinationName:    "Birmingham Moor Street",
		originDeparture:    "07:30",
		destinationArrival: "09:00",
	},
	{
		lineRef:            "47",
		publishedLineName:  "47 - West Bromwich to Birmingham",
		direction:          vehicle.DirectionOutbound,
		operatorRef:        "MIDL",
		originRef:          "430009001",
		originName:         "West Bromwich Bus Station",
		destinationRef:     "430003002",
		destinationName:    "Birmingham Moor Street",
		originDeparture:    "08:15",
		destinationArrival: "09:45",
	},
}

// seedPositions are starting points along the simulated routes.
var seedPositions = []struct {
	lat, lon, bearing float64
}{
	{52.4786, -1.8945, 45.0},  // Birmingham area
	{52.4855, -1.9020, 90.0},  // Near New Street
	{52.4920, -1.9180, 135.0}, // Handsworth
	{52.5010, -1.9350, 180.0}, // Smethwick
	{52.5100, -1.9520, 225.0}, // West Bromwich
	{52.5180, -1.9700, 270.0}, // Dudley area
	{52.5250, -1.9880, 315.0}, // Walsall area
}

var simOccupancies = []vehicle.Occupancy{
	vehicle.OccupancySeatsAvailable,
	vehicle.OccupancyStandingAvailable,
	vehicle.OccupancyFull,
	vehicle.OccupancyUnset,
}

type simVehicle struct {
	vehicleRef string
	blockRef   string
	route      simRoute
	lat        float64
	lon        float64
	bearing    float64
}

// Simulator is the synthetic snapshot provider used for demo feeds and BODS
// compliance testing. The roster is fixed at construction; every Snapshot
// call nudges each vehicle a little and stamps fresh validity. Roster
// mutation is serialized so concurrent requests never observe a
// half-updated vehicle.
type Simulator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	validity time.Duration
	vehicles []*simVehicle
}

// NewSimulator builds a roster of size vehicles bound to random routes and
// seed positions. Pass a seeded rng for deterministic positions in tests;
// nil uses a time-seeded source.
func NewSimulator(size int, validity time.Duration, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Simulator{
		rng:      rng,
		validity: validity,
		vehicles: make([]*simVehicle, 0, size),
	}
	for i := 0; i < size; i++ {
		route := simRoutes[rng.Intn(len(simRoutes))]
		pos := seedPositions[rng.Intn(len(seedPositions))]
		s.vehicles = append(s.vehicles, &simVehicle{
			vehicleRef: fmt.Sprintf("MIDL_%d", 1000+i),
			blockRef:   fmt.Sprintf("BLOCK_%d", i%3+1),
			route:      route,
			lat:        pos.lat,
			lon:        pos.lon,
			bearing:    pos.bearing,
		})
	}
	return s
}

// Snapshot advances every vehicle and returns its current state. The roster
// never grows or shrinks.
func (s *Simulator) Snapshot(_ context.Context, now time.Time) []vehicle.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]vehicle.State, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		v.lat += s.rng.Float64()*0.002 - 0.001
		v.lon += s.rng.Float64()*0.002 - 0.001
		v.bearing = math.Mod(v.bearing+s.rng.Float64()*20-10+360, 360)

		bearing := math.Round(v.bearing*10) / 10
		if bearing >= 360 {
			bearing -= 360
		}
		velocity := s.rng.Float64() * 25
		occupancy := simOccupancies[s.rng.Intn(len(simOccupancies))]
		departure := clockTimeToday(v.route.originDeparture, now)
		arrival := clockTimeToday(v.route.destinationArrival, now)
		destinationName := v.route.destinationName

		states = append(states, vehicle.State{
			VehicleRef:              v.vehicleRef,
			LineRef:                 v.route.lineRef,
			DirectionRef:            v.route.direction,
			PublishedLineName:       v.route.publishedLineName,
			OperatorRef:             v.route.operatorRef,
			OriginRef:               v.route.originRef,
			OriginName:              v.route.originName,
			DestinationRef:          v.route.destinationRef,
			DestinationName:         &destinationName,
			OriginAimedDeparture:    &departure,
			DestinationAimedArrival: &arrival,
			Location:                vehicle.Location{Longitude: v.lon, Latitude: v.lat},
			Bearing:                 &bearing,
			Velocity:                &velocity,
			Occupancy:               occupancy,
			BlockRef:                v.blockRef,
			VehicleJourneyRef:       fmt.Sprintf("JOURNEY_%s_%s", v.vehicleRef, now.UTC().Format("20060102")),
			RecordedAt:              now,
			ValidUntil:              now.Add(s.validity),
		})
	}
	return states
}

// clockTimeToday maps an "HH:MM" route time onto the date of now, in UTC.
func clockTimeToday(clock string, now time.Time) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return now
	}
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, time.UTC)
}
