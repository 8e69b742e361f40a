package sirivmfeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/midlandbus/siri-vm-feed/vehicle"
)

type failingSource struct{}

func (failingSource) Recent(context.Context, time.Time) ([]vehicle.State, error) {
	return nil, errors.New("connection refused")
}

func monitoringServer(provider Provider) *Server {
	feed := NewFeed(provider, "MIDLANDBUS")
	return NewServer(feed, &fakePositionStore{}, &fakeSessionStore{})
}

func TestHandleVehicleMonitoring_ServesXML(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 45, 32, 0, time.UTC)
	server := monitoringServer(&staticProvider{states: []vehicle.State{feedState("MIDL_1000", "1", now)}})

	req := httptest.NewRequest(http.MethodGet, "/vehicle-monitoring", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<VehicleRef>MIDL_1000</VehicleRef>") {
		t.Error("vehicle missing from response")
	}
}

func TestHandleVehicleMonitoring_AliasRoute(t *testing.T) {
	server := monitoringServer(&staticProvider{})

	req := httptest.NewRequest(http.MethodGet, "/siri-vm", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("/siri-vm should serve the same feed, got %d", rec.Code)
	}
}

func TestHandleVehicleMonitoring_DegradedStoreServes200(t *testing.T) {
	server := monitoringServer(NewLiveProvider(failingSource{}, 5*time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/vehicle-monitoring", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("a degraded store must not fail the feed, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<VehicleActivity>") {
		t.Error("degraded feed should carry zero activities")
	}
}

func TestHandleVehicleMonitoring_InvalidMaximum(t *testing.T) {
	server := monitoringServer(&staticProvider{})

	req := httptest.NewRequest(http.MethodGet, "/vehicle-monitoring?MaximumNumberOfVehicles=abc", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad maximum should be a 400, got %d", rec.Code)
	}
}

func TestHandleVehicleMonitoring_FilterParams(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 45, 32, 0, time.UTC)
	server := monitoringServer(&staticProvider{states: []vehicle.State{
		feedState("MIDL_1000", "1", now),
		feedState("MIDL_1001", "45", now),
	}})

	req := httptest.NewRequest(http.MethodGet, "/vehicle-monitoring?LineRef=45", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, "MIDL_1000") || !strings.Contains(body, "MIDL_1001") {
		t.Error("LineRef filter not applied")
	}
}

func TestHandleCheckStatus(t *testing.T) {
	server := monitoringServer(&staticProvider{})

	req := httptest.NewRequest(http.MethodGet, "/check-status", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<Status>true</Status>") {
		t.Error("check status should report true")
	}
}

func TestHandleHealth(t *testing.T) {
	server := monitoringServer(&staticProvider{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"healthy"`) {
		t.Errorf("unexpected health body: %s", rec.Body.String())
	}
}
