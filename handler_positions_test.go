package sirivmfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/midlandbus/siri-vm-feed/store"
	"github.com/midlandbus/siri-vm-feed/vehicle"
)

type fakePositionStore struct {
	upserted     []vehicle.State
	deleteFilter store.DeleteFilter
	deleted      int64
	rangeCalls   int
}

func (f *fakePositionStore) Upsert(_ context.Context, s vehicle.State) error {
	f.upserted = append(f.upserted, s)
	return nil
}

func (f *fakePositionStore) Delete(_ context.Context, filter store.DeleteFilter) (int64, error) {
	f.deleteFilter = filter
	return f.deleted, nil
}

func (f *fakePositionStore) DeleteRange(context.Context, string, time.Time, time.Time) (int64, error) {
	f.rangeCalls++
	return 3, nil
}

type fakeSessionStore struct {
	sessions map[string]store.Session
	deleted  []string
}

func (f *fakeSessionStore) Start(_ context.Context, vehicleRef string, at time.Time) (store.Session, error) {
	s := store.Session{ID: primitive.NewObjectID(), VehicleRef: vehicleRef, StartTime: at, Active: true}
	if f.sessions == nil {
		f.sessions = map[string]store.Session{}
	}
	f.sessions[s.ID.Hex()] = s
	return s, nil
}

func (f *fakeSessionStore) Stop(_ context.Context, id string, at time.Time) (store.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return store.Session{}, store.ErrNotFound
	}
	s.Active = false
	s.EndTime = &at
	f.sessions[id] = s
	return s, nil
}

func (f *fakeSessionStore) Get(_ context.Context, id string) (store.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return store.Session{}, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.sessions, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSessionStore) DeleteStartedBefore(context.Context, time.Time, string) (int64, error) {
	return 2, nil
}

func testServer() (*Server, *fakePositionStore, *fakeSessionStore) {
	positions := &fakePositionStore{}
	sessions := &fakeSessionStore{}
	feed := NewFeed(&staticProvider{}, "MIDLANDBUS")
	return NewServer(feed, positions, sessions), positions, sessions
}

const validReport = `{
	"vehicle_ref": "MIDL_1001",
	"line_ref": "45",
	"direction_ref": "inbound",
	"published_line_name": "45 - Walsall to Birmingham",
	"operator_ref": "MIDL",
	"origin_ref": "430007001",
	"origin_name": "Walsall Bus Station",
	"destination_ref": "430003002",
	"longitude": -1.89,
	"latitude": 52.47,
	"bearing": 45.0,
	"velocity": 12.5,
	"occupancy": "seatsAvailable",
	"block_ref": "BLOCK_1",
	"vehicle_journey_ref": "JOURNEY_MIDL_1001",
	"recorded_at_time": "2024-03-15T08:45:30Z"
}`

func TestHandleSubmitPosition(t *testing.T) {
	server, positions, _ := testServer()

	req := httptest.NewRequest(http.MethodPost, "/vehicle-position", strings.NewReader(validReport))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(positions.upserted) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(positions.upserted))
	}

	got := positions.upserted[0]
	if got.VehicleRef != "MIDL_1001" || got.DirectionRef != vehicle.DirectionInbound {
		t.Errorf("unexpected state: %+v", got)
	}
	// No valid_until_time in the body: default is recorded + 5 minutes.
	wantValid := time.Date(2024, 3, 15, 8, 50, 30, 0, time.UTC)
	if !got.ValidUntil.Equal(wantValid) {
		t.Errorf("ValidUntil = %v, want %v", got.ValidUntil, wantValid)
	}
	if got.Bearing == nil || *got.Bearing != 45.0 {
		t.Errorf("bearing not carried through: %v", got.Bearing)
	}
}

func TestHandleSubmitPosition_MissingRequiredField(t *testing.T) {
	server, positions, _ := testServer()
	body := strings.Replace(validReport, `"vehicle_ref": "MIDL_1001",`, "", 1)

	req := httptest.NewRequest(http.MethodPost, "/vehicle-position", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing vehicle_ref should be a 400, got %d", rec.Code)
	}
	if len(positions.upserted) != 0 {
		t.Error("invalid report must not be stored")
	}
}

func TestHandleSubmitPosition_InvalidDirection(t *testing.T) {
	server, _, _ := testServer()
	body := strings.Replace(validReport, `"inbound"`, `"northbound"`, 1)

	req := httptest.NewRequest(http.MethodPost, "/vehicle-position", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown direction should be a 400, got %d", rec.Code)
	}
}

func TestHandleSubmitPosition_ValidUntilBeforeRecorded(t *testing.T) {
	server, _, _ := testServer()
	body := strings.Replace(validReport,
		`"recorded_at_time": "2024-03-15T08:45:30Z"`,
		`"recorded_at_time": "2024-03-15T08:45:30Z", "valid_until_time": "2024-03-15T08:00:00Z"`, 1)

	req := httptest.NewRequest(http.MethodPost, "/vehicle-position", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("valid_until before recorded_at should be a 400, got %d", rec.Code)
	}
}

func TestHandleSubmitPosition_BadJSON(t *testing.T) {
	server, _, _ := testServer()

	req := httptest.NewRequest(http.MethodPost, "/vehicle-position", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body should be a 400, got %d", rec.Code)
	}
}

func TestHandleDeletePositions(t *testing.T) {
	server, positions, _ := testServer()
	positions.deleted = 7

	req := httptest.NewRequest(http.MethodDelete, "/vehicle-positions?vehicle_ref=MIDL_1001&before_timestamp=2024-03-15T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if positions.deleteFilter.VehicleRef != "MIDL_1001" {
		t.Errorf("vehicle filter not applied: %+v", positions.deleteFilter)
	}
	if positions.deleteFilter.Before == nil {
		t.Fatal("before filter not applied")
	}
	if !strings.Contains(rec.Body.String(), `"deleted":7`) {
		t.Errorf("deleted count missing from body: %s", rec.Body.String())
	}
}

func TestHandleDeletePositions_InvalidTimestamp(t *testing.T) {
	server, _, _ := testServer()

	req := httptest.NewRequest(http.MethodDelete, "/vehicle-positions?before_timestamp=yesterday", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad timestamp should be a 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid timestamp format") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandleDeletePositions_DaysOld(t *testing.T) {
	server, positions, _ := testServer()

	req := httptest.NewRequest(http.MethodDelete, "/vehicle-positions?days_old=7", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if positions.deleteFilter.Before == nil {
		t.Fatal("days_old should produce a cutoff")
	}
	wantAround := time.Now().UTC().AddDate(0, 0, -7)
	if diff := positions.deleteFilter.Before.Sub(wantAround); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff %v not near %v", positions.deleteFilter.Before, wantAround)
	}
}
