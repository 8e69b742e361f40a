package siri

import (
	"encoding/xml"
	"fmt"

	"github.com/midlandbus/siri-vm-feed/vehicle"
)

// Decode parses a SIRI-VM document produced by EncodeVehicleMonitoring (or a
// compatible upstream feed) into the document model.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("siri: decode: %w", err)
	}
	return &doc, nil
}

// DecodeStates parses a document and converts every activity back into the
// vehicle data model, preserving document order.
func DecodeStates(data []byte) ([]vehicle.State, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	activities := doc.ServiceDelivery.VehicleMonitoringDelivery.VehicleActivity
	states := make([]vehicle.State, 0, len(activities))
	for i, a := range activities {
		s, err := a.State()
		if err != nil {
			return nil, fmt.Errorf("siri: activity %d: %w", i, err)
		}
		states = append(states, s)
	}
	return states, nil
}
