package sirivmfeed

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/midlandbus/siri-vm-feed/store"
	"github.com/midlandbus/siri-vm-feed/vehicle"
)

var validate = validator.New()

// positionReport is the JSON body accepted by POST /vehicle-position.
type positionReport struct {
	VehicleRef              string     `json:"vehicle_ref" validate:"required"`
	LineRef                 string     `json:"line_ref" validate:"required"`
	DirectionRef            string     `json:"direction_ref" validate:"required,oneof=inbound outbound"`
	PublishedLineName       string     `json:"published_line_name" validate:"required"`
	OperatorRef             string     `json:"operator_ref" validate:"required"`
	OriginRef               string     `json:"origin_ref" validate:"required"`
	OriginName              string     `json:"origin_name" validate:"required"`
	DestinationRef          string     `json:"destination_ref" validate:"required"`
	DestinationName         *string    `json:"destination_name"`
	OriginAimedDeparture    *time.Time `json:"origin_aimed_departure_time"`
	DestinationAimedArrival *time.Time `json:"destination_aimed_arrival_time"`
	Longitude               *float64   `json:"longitude" validate:"required"`
	Latitude                *float64   `json:"latitude" validate:"required"`
	Bearing                 *float64   `json:"bearing" validate:"omitempty,gte=0,lte=360"`
	Velocity                *float64   `json:"velocity" validate:"omitempty,gte=0"`
	Occupancy               string     `json:"occupancy" validate:"omitempty,oneof=seatsAvailable standingAvailable full"`
	BlockRef                string     `json:"block_ref" validate:"required"`
	VehicleJourneyRef       string     `json:"vehicle_journey_ref" validate:"required"`
	RecordedAtTime          *time.Time `json:"recorded_at_time" validate:"required"`
	ValidUntilTime          *time.Time `json:"valid_until_time"`
}

// defaultReportValidity applies when a report carries no explicit
// valid_until_time.
const defaultReportValidity = 5 * time.Minute

func (p positionReport) state() vehicle.State {
	validUntil := p.RecordedAtTime.Add(defaultReportValidity)
	if p.ValidUntilTime != nil {
		validUntil = *p.ValidUntilTime
	}
	return vehicle.State{
		VehicleRef:              p.VehicleRef,
		LineRef:                 p.LineRef,
		DirectionRef:            vehicle.Direction(p.DirectionRef),
		PublishedLineName:       p.PublishedLineName,
		OperatorRef:             p.OperatorRef,
		OriginRef:               p.OriginRef,
		OriginName:              p.OriginName,
		DestinationRef:          p.DestinationRef,
		DestinationName:         p.DestinationName,
		OriginAimedDeparture:    p.OriginAimedDeparture,
		DestinationAimedArrival: p.DestinationAimedArrival,
		Location:                vehicle.Location{Longitude: *p.Longitude, Latitude: *p.Latitude},
		Bearing:                 p.Bearing,
		Velocity:                p.Velocity,
		Occupancy:               vehicle.Occupancy(p.Occupancy),
		BlockRef:                p.BlockRef,
		VehicleJourneyRef:       p.VehicleJourneyRef,
		RecordedAt:              p.RecordedAtTime.UTC(),
		ValidUntil:              validUntil.UTC(),
	}
}

// handleSubmitPosition accepts one position report and upserts it into the
// repository.
func (s *Server) handleSubmitPosition(w http.ResponseWriter, r *http.Request) {
	var report positionReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(report); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if report.ValidUntilTime != nil && report.ValidUntilTime.Before(*report.RecordedAtTime) {
		writeJSONError(w, http.StatusBadRequest, "valid_until_time must not precede recorded_at_time")
		return
	}

	state := report.state()
	if err := s.positions.Upsert(r.Context(), state); err != nil {
		log.Error().Err(err).Str("vehicle_ref", state.VehicleRef).Msg("Position upsert failed")
		writeJSONError(w, http.StatusInternalServerError, "failed to store position")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":      "success",
		"vehicle_ref": state.VehicleRef,
		"recorded_at": state.RecordedAt.Format(time.RFC3339),
	})
}

// handleDeletePositions removes stored reports matching the query
// parameters: vehicle_ref, operator_ref, before_timestamp (RFC 3339) and
// days_old.
func (s *Server) handleDeletePositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.DeleteFilter{
		VehicleRef:  q.Get("vehicle_ref"),
		OperatorRef: q.Get("operator_ref"),
	}

	if ts := q.Get("before_timestamp"); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid timestamp format")
			return
		}
		filter.Before = &t
	}
	if daysStr := q.Get("days_old"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days < 0 {
			writeJSONError(w, http.StatusBadRequest, "days_old must be a non-negative integer")
			return
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		filter.Before = &cutoff
	}

	deleted, err := s.positions.Delete(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Position delete failed")
		writeJSONError(w, http.StatusInternalServerError, "failed to delete positions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"deleted": deleted,
		"filters": map[string]string{
			"vehicle_ref":      q.Get("vehicle_ref"),
			"operator_ref":     q.Get("operator_ref"),
			"before_timestamp": q.Get("before_timestamp"),
			"days_old":         q.Get("days_old"),
		},
	})
}
