package sirivmfeed

import (
	"net/http"
	"time"

	"github.com/midlandbus/siri-vm-feed/siri"
)

// handleCheckStatus serves the SIRI CheckStatus document BODS polls to
// confirm the feed is alive.
func (s *Server) handleCheckStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(siri.EncodeCheckStatus(s.startedAt))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
