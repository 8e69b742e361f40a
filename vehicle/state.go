package vehicle

import "time"

// Direction is the direction of travel along a line.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Occupancy describes how full a vehicle is. The empty value means the
// operator reported nothing, in which case the element is omitted from the
// published feed.
type Occupancy string

const (
	OccupancyUnset             Occupancy = ""
	OccupancySeatsAvailable    Occupancy = "seatsAvailable"
	OccupancyStandingAvailable Occupancy = "standingAvailable"
	OccupancyFull              Occupancy = "full"
)

// Location is a WGS84 position in decimal degrees.
type Location struct {
	Longitude float64 `bson:"longitude" json:"longitude"`
	Latitude  float64 `bson:"latitude" json:"latitude"`
}

// State is one vehicle's latest known journey and position. Optional fields
// are pointers (or the Occupancy zero value) so that "is set" drives
// serialization presence; a velocity of 0 is still a reported velocity.
type State struct {
	VehicleRef        string    `bson:"vehicleref"`
	LineRef           string    `bson:"lineref"`
	DirectionRef      Direction `bson:"directionref"`
	PublishedLineName string    `bson:"publishedlinename"`
	OperatorRef       string    `bson:"operatorref"`
	OriginRef         string    `bson:"originref"`
	OriginName        string    `bson:"originname"`
	DestinationRef    string    `bson:"destinationref"`

	DestinationName         *string    `bson:"destinationname,omitempty"`
	OriginAimedDeparture    *time.Time `bson:"originaimeddeparture,omitempty"`
	DestinationAimedArrival *time.Time `bson:"destinationaimedarrival,omitempty"`

	Location Location `bson:"location"`

	Bearing   *float64  `bson:"bearing,omitempty"`
	Velocity  *float64  `bson:"velocity,omitempty"`
	Occupancy Occupancy `bson:"occupancy,omitempty"`

	BlockRef          string `bson:"blockref"`
	VehicleJourneyRef string `bson:"vehiclejourneyref"`

	RecordedAt time.Time `bson:"recordedat"`
	ValidUntil time.Time `bson:"validuntil"`
}

// Expired reports whether the state is no longer current at the given time.
func (s State) Expired(now time.Time) bool {
	return now.After(s.ValidUntil)
}
