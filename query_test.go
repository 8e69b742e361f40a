package sirivmfeed

import (
	"errors"
	"testing"
)

func TestParseVehicleMonitoringQuery(t *testing.T) {
	criteria, err := parseVehicleMonitoringQuery(map[string]string{
		"LineRef":                 "45",
		"OperatorRef":             " MIDL ",
		"MaximumNumberOfVehicles": "5",
	})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if criteria.LineRef != "45" {
		t.Errorf("LineRef = %q", criteria.LineRef)
	}
	if criteria.OperatorRef != "MIDL" {
		t.Errorf("OperatorRef should be trimmed, got %q", criteria.OperatorRef)
	}
	if criteria.MaxVehicles != 5 {
		t.Errorf("MaxVehicles = %d", criteria.MaxVehicles)
	}
}

func TestParseVehicleMonitoringQuery_CaseInsensitiveNames(t *testing.T) {
	criteria, err := parseVehicleMonitoringQuery(map[string]string{
		"lineref":                 "1",
		"VEHICLEREF":              "MIDL_1000",
		"maximumNumberOfVehicles": "3",
	})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if criteria.LineRef != "1" || criteria.VehicleRef != "MIDL_1000" || criteria.MaxVehicles != 3 {
		t.Errorf("unexpected criteria: %+v", criteria)
	}
}

func TestParseVehicleMonitoringQuery_Defaults(t *testing.T) {
	criteria, err := parseVehicleMonitoringQuery(map[string]string{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if criteria.MaxVehicles != -1 {
		t.Errorf("absent maximum should mean unlimited, got %d", criteria.MaxVehicles)
	}
}

func TestParseVehicleMonitoringQuery_InvalidMaximum(t *testing.T) {
	for _, bad := range []string{"abc", "-3", "1.5"} {
		_, err := parseVehicleMonitoringQuery(map[string]string{
			"maximumnumberofvehicles": bad,
		})
		var qe *QueryError
		if !errors.As(err, &qe) {
			t.Errorf("value %q: expected QueryError, got %v", bad, err)
		}
	}
}

func TestParseVehicleMonitoringQuery_MaximumZero(t *testing.T) {
	criteria, err := parseVehicleMonitoringQuery(map[string]string{
		"maximumnumberofvehicles": "0",
	})
	if err != nil {
		t.Fatalf("zero is a legal maximum: %v", err)
	}
	if criteria.MaxVehicles != 0 {
		t.Errorf("MaxVehicles = %d, want 0", criteria.MaxVehicles)
	}
}
