package sirivmfeed

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/midlandbus/siri-vm-feed/store"
)

type sessionResponse struct {
	ID         string     `json:"id"`
	VehicleRef string     `json:"vehicle_ref"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Active     bool       `json:"active"`
}

func toSessionResponse(s store.Session) sessionResponse {
	return sessionResponse{
		ID:         s.ID.Hex(),
		VehicleRef: s.VehicleRef,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Active:     s.Active,
	}
}

// handleStartSession opens a tracking session for a vehicle. Any session
// still active for the vehicle is closed first.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VehicleRef string `json:"vehicle_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.VehicleRef == "" {
		writeJSONError(w, http.StatusBadRequest, "vehicle_ref is required")
		return
	}

	session, err := s.sessions.Start(r.Context(), body.VehicleRef, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Str("vehicle_ref", body.VehicleRef).Msg("Session start failed")
		writeJSONError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"session": toSessionResponse(session),
	})
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Stop(r.Context(), r.PathValue("id"), time.Now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Session stop failed")
		writeJSONError(w, http.StatusInternalServerError, "failed to stop session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"session": toSessionResponse(session),
	})
}

// handleDeleteSession removes a session and the position reports recorded
// within its timeframe.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	session, err := s.sessions.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Session lookup failed")
		writeJSONError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	end := time.Now().UTC()
	if session.EndTime != nil {
		end = *session.EndTime
	}
	positions, err := s.positions.DeleteRange(r.Context(), session.VehicleRef, session.StartTime, end)
	if err != nil {
		log.Error().Err(err).Msg("Session position delete failed")
		writeJSONError(w, http.StatusInternalServerError, "failed to delete session positions")
		return
	}

	if err := s.sessions.Delete(r.Context(), id); err != nil {
		log.Error().Err(err).Msg("Session delete failed")
		writeJSONError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "success",
		"deleted_positions": positions,
	})
}

// handleBulkCleanup ages out old position reports and tracking sessions in
// one call. days_old defaults to 30; vehicle_ref narrows both deletes.
func (s *Server) handleBulkCleanup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	days := 30
	if daysStr := q.Get("days_old"); daysStr != "" {
		v, err := strconv.Atoi(daysStr)
		if err != nil || v < 0 {
			writeJSONError(w, http.StatusBadRequest, "days_old must be a non-negative integer")
			return
		}
		days = v
	}
	vehicleRef := q.Get("vehicle_ref")
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	positions, err := s.positions.Delete(r.Context(), store.DeleteFilter{
		VehicleRef:  vehicleRef,
		OperatorRef: q.Get("operator_ref"),
		Before:      &cutoff,
	})
	if err != nil {
		log.Error().Err(err).Msg("Bulk position cleanup failed")
		writeJSONError(w, http.StatusInternalServerError, "failed to clean up positions")
		return
	}

	sessions, err := s.sessions.DeleteStartedBefore(r.Context(), cutoff, vehicleRef)
	if err != nil {
		log.Error().Err(err).Msg("Bulk session cleanup failed")
		writeJSONError(w, http.StatusInternalServerError, "failed to clean up sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "success",
		"deleted_records":  positions,
		"deleted_sessions": sessions,
		"cutoff":           cutoff.Format(time.RFC3339),
	})
}
