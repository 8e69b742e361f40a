package sirivmfeed

import "github.com/midlandbus/siri-vm-feed/vehicle"

// Criteria narrows a snapshot before encoding. Empty string fields impose no
// constraint; MaxVehicles < 0 means unlimited.
type Criteria struct {
	LineRef     string
	OperatorRef string
	VehicleRef  string
	MaxVehicles int
}

// NoCriteria matches every vehicle.
var NoCriteria = Criteria{MaxVehicles: -1}

// Apply filters the snapshot with exact-match predicates in the order
// line, operator, vehicle, preserving relative input order, then truncates
// to MaxVehicles surviving entries. Applying the same criteria twice is a
// no-op.
func (c Criteria) Apply(states []vehicle.State) []vehicle.State {
	out := make([]vehicle.State, 0, len(states))
	for _, s := range states {
		if c.LineRef != "" && s.LineRef != c.LineRef {
			continue
		}
		if c.OperatorRef != "" && s.OperatorRef != c.OperatorRef {
			continue
		}
		if c.VehicleRef != "" && s.VehicleRef != c.VehicleRef {
			continue
		}
		out = append(out, s)
	}
	if c.MaxVehicles >= 0 && len(out) > c.MaxVehicles {
		out = out[:c.MaxVehicles]
	}
	return out
}
