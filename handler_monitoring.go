package sirivmfeed

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// handleVehicleMonitoring serves the SIRI-VM document, narrowed by the
// request parameters.
func (s *Server) handleVehicleMonitoring(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseVehicleMonitoringQuery(queryParams(r))
	if err != nil {
		var qe *QueryError
		if errors.As(err, &qe) {
			http.Error(w, qe.Msg, http.StatusBadRequest)
			return
		}
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	body, err := s.feed.VehicleMonitoring(r.Context(), criteria)
	if err != nil {
		log.Error().Err(err).Msg("Vehicle monitoring encode failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
