package sirivmfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/midlandbus/siri-vm-feed/store"
	"github.com/midlandbus/siri-vm-feed/vehicle"
)

// PositionStore is the write and maintenance side of the position
// repository used by the HTTP surface.
type PositionStore interface {
	Upsert(ctx context.Context, s vehicle.State) error
	Delete(ctx context.Context, f store.DeleteFilter) (int64, error)
	DeleteRange(ctx context.Context, vehicleRef string, from, to time.Time) (int64, error)
}

// SessionStore manages tracking sessions.
type SessionStore interface {
	Start(ctx context.Context, vehicleRef string, at time.Time) (store.Session, error)
	Stop(ctx context.Context, id string, at time.Time) (store.Session, error)
	Get(ctx context.Context, id string) (store.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteStartedBefore(ctx context.Context, cutoff time.Time, vehicleRef string) (int64, error)
}

// Server is the HTTP surface: the SIRI-VM feed, the BODS check-status
// document, position ingestion and the maintenance endpoints.
type Server struct {
	feed      *Feed
	positions PositionStore
	sessions  SessionStore
	startedAt time.Time

	httpServer *http.Server
}

func NewServer(feed *Feed, positions PositionStore, sessions SessionStore) *Server {
	return &Server{
		feed:      feed,
		positions: positions,
		sessions:  sessions,
		startedAt: time.Now(),
	}
}

// Router wires every endpoint onto a fresh mux.
func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /vehicle-monitoring", s.handleVehicleMonitoring)
	mux.HandleFunc("GET /siri-vm", s.handleVehicleMonitoring)
	mux.HandleFunc("GET /check-status", s.handleCheckStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /vehicle-position", s.handleSubmitPosition)
	mux.HandleFunc("DELETE /vehicle-positions", s.handleDeletePositions)
	mux.HandleFunc("POST /tracking-sessions", s.handleStartSession)
	mux.HandleFunc("POST /tracking-sessions/{id}/stop", s.handleStopSession)
	mux.HandleFunc("DELETE /tracking-sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("DELETE /bulk-cleanup", s.handleBulkCleanup)
	return mux
}

// Start runs the server in the background; pair with
// HandleGracefulShutdown.
func (s *Server) Start(port int) {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("Server listening")
}

// HandleGracefulShutdown blocks until SIGINT/SIGTERM, then drains the
// server.
func (s *Server) HandleGracefulShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		} else {
			log.Info().Msg("Server shut down")
		}
	}
}

func queryParams(r *http.Request) map[string]string {
	params := map[string]string{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
