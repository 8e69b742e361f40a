package siri

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/midlandbus/siri-vm-feed/vehicle"
)

func TestDecode_RoundTrip(t *testing.T) {
	original := testState()
	now := time.Date(2024, 3, 15, 8, 45, 32, 0, time.UTC)

	encoded, err := EncodeVehicleMonitoring([]vehicle.State{original}, "MIDLANDBUS", now)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	doc, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if doc.Version != "2.0" {
		t.Errorf("expected version 2.0, got %q", doc.Version)
	}
	if doc.ServiceDelivery.ProducerRef != "MIDLANDBUS" {
		t.Errorf("expected producer MIDLANDBUS, got %q", doc.ServiceDelivery.ProducerRef)
	}

	responseTime, err := doc.ResponseTime()
	if err != nil {
		t.Fatalf("response time: %v", err)
	}
	if !responseTime.Equal(now) {
		t.Errorf("response time = %v, want %v", responseTime, now)
	}

	activities := doc.ServiceDelivery.VehicleMonitoringDelivery.VehicleActivity
	if len(activities) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(activities))
	}

	decoded, err := activities[0].State()
	if err != nil {
		t.Fatalf("activity to state: %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, original)
	}
}

func TestDecodeStates_OptionalFieldsAbsent(t *testing.T) {
	original := testState()
	original.DestinationName = nil
	original.OriginAimedDeparture = nil
	original.DestinationAimedArrival = nil
	original.Bearing = nil
	original.Velocity = nil
	original.Occupancy = vehicle.OccupancyUnset

	encoded, err := EncodeVehicleMonitoring([]vehicle.State{original}, "MIDLANDBUS", time.Date(2024, 3, 15, 8, 45, 32, 0, time.UTC))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	states, err := DecodeStates(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("expected 1 state, got %d", len(states))
	}

	got := states[0]
	if got.DestinationName != nil || got.Bearing != nil || got.Velocity != nil {
		t.Error("absent optional elements should decode to nil")
	}
	if got.Occupancy != vehicle.OccupancyUnset {
		t.Errorf("absent occupancy should decode unset, got %q", got.Occupancy)
	}
	if !reflect.DeepEqual(got, original) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, original)
	}
}

func TestDecode_InvalidXML(t *testing.T) {
	if _, err := Decode([]byte("<Siri><unterminated")); err == nil {
		t.Error("malformed XML should fail to decode")
	}
}

func TestDecodeStates_BadTimestamp(t *testing.T) {
	encoded, err := EncodeVehicleMonitoring([]vehicle.State{testState()}, "MIDLANDBUS", time.Now().UTC())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	broken := []byte(strings.Replace(string(encoded), "2024-03-15T08:45:30.000Z", "not-a-time", 1))
	if _, err := DecodeStates(broken); err == nil {
		t.Error("unparseable RecordedAtTime should surface an error")
	}
}

func TestParseTime_FormatsAccepted(t *testing.T) {
	parsed, err := ParseTime("2024-03-15T08:45:30.000Z")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := time.Date(2024, 3, 15, 8, 45, 30, 0, time.UTC)
	if !parsed.Equal(want) {
		t.Errorf("parsed %v, want %v", parsed, want)
	}

	formatted := FormatTime(want)
	if formatted != "2024-03-15T08:45:30.000Z" {
		t.Errorf("format = %q", formatted)
	}
}
