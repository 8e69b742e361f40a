package siri

import (
	"strconv"
	"strings"
	"time"

	"github.com/midlandbus/siri-vm-feed/vehicle"
)

// Document is the decoded form of a SIRI-VM response. Field names match the
// element vocabulary so encoding/xml can unmarshal without tags; leaf values
// stay strings to preserve the wire text.
type Document struct {
	Version         string          `xml:"version,attr"`
	ServiceDelivery ServiceDelivery `xml:"ServiceDelivery"`
}

type ServiceDelivery struct {
	ResponseTimestamp         string
	ProducerRef               string
	VehicleMonitoringDelivery VehicleMonitoringDelivery
}

type VehicleMonitoringDelivery struct {
	ResponseTimestamp string
	ProducerRef       string
	ValidUntilTime    string
	VehicleActivity   []VehicleActivity
}

type VehicleActivity struct {
	RecordedAtTime          string
	ValidUntilTime          string
	ItemIdentifier          string
	MonitoredVehicleJourney MonitoredVehicleJourney
}

type MonitoredVehicleJourney struct {
	LineRef                     string
	DirectionRef                string
	PublishedLineName           string
	OperatorRef                 string
	OriginRef                   string
	OriginName                  string
	DestinationRef              string
	DestinationName             string
	OriginAimedDepartureTime    string
	DestinationAimedArrivalTime string
	VehicleLocation             VehicleLocation
	Bearing                     string
	Velocity                    string
	Occupancy                   string
	BlockRef                    string
	VehicleJourneyRef           string
	VehicleRef                  string
}

type VehicleLocation struct {
	Longitude string
	Latitude  string
}

// State converts a decoded activity back into the vehicle data model.
func (a VehicleActivity) State() (vehicle.State, error) {
	mvj := a.MonitoredVehicleJourney

	s := vehicle.State{
		VehicleRef:        mvj.VehicleRef,
		LineRef:           mvj.LineRef,
		DirectionRef:      vehicle.Direction(mvj.DirectionRef),
		PublishedLineName: mvj.PublishedLineName,
		OperatorRef:       mvj.OperatorRef,
		OriginRef:         mvj.OriginRef,
		OriginName:        mvj.OriginName,
		DestinationRef:    mvj.DestinationRef,
		Occupancy:         vehicle.Occupancy(mvj.Occupancy),
		BlockRef:          mvj.BlockRef,
		VehicleJourneyRef: mvj.VehicleJourneyRef,
	}

	if mvj.DestinationName != "" {
		name := mvj.DestinationName
		s.DestinationName = &name
	}

	var err error
	if s.RecordedAt, err = ParseTime(strings.TrimSpace(a.RecordedAtTime)); err != nil {
		return vehicle.State{}, err
	}
	if s.ValidUntil, err = ParseTime(strings.TrimSpace(a.ValidUntilTime)); err != nil {
		return vehicle.State{}, err
	}
	if mvj.OriginAimedDepartureTime != "" {
		t, err := ParseTime(strings.TrimSpace(mvj.OriginAimedDepartureTime))
		if err != nil {
			return vehicle.State{}, err
		}
		s.OriginAimedDeparture = &t
	}
	if mvj.DestinationAimedArrivalTime != "" {
		t, err := ParseTime(strings.TrimSpace(mvj.DestinationAimedArrivalTime))
		if err != nil {
			return vehicle.State{}, err
		}
		s.DestinationAimedArrival = &t
	}

	if s.Location.Longitude, err = parseCoordinate(mvj.VehicleLocation.Longitude); err != nil {
		return vehicle.State{}, err
	}
	if s.Location.Latitude, err = parseCoordinate(mvj.VehicleLocation.Latitude); err != nil {
		return vehicle.State{}, err
	}

	if mvj.Bearing != "" {
		b, err := strconv.ParseFloat(strings.TrimSpace(mvj.Bearing), 64)
		if err != nil {
			return vehicle.State{}, err
		}
		s.Bearing = &b
	}
	if mvj.Velocity != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(mvj.Velocity), 64)
		if err != nil {
			return vehicle.State{}, err
		}
		s.Velocity = &v
	}

	return s, nil
}

func parseCoordinate(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Times of the delivery envelope, parsed. Used by consumers that need the
// encode-time stamps rather than per-vehicle times.
func (d Document) ResponseTime() (time.Time, error) {
	return ParseTime(strings.TrimSpace(d.ServiceDelivery.ResponseTimestamp))
}
