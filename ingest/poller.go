// Package ingest bridges a GTFS-RT vehicle positions feed into the position
// repository so the SIRI-VM surface can serve real operator data.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/proto"

	"github.com/midlandbus/siri-vm-feed/vehicle"
)

// PositionWriter receives the mapped states; in production this is the
// Mongo position repository.
type PositionWriter interface {
	Upsert(ctx context.Context, s vehicle.State) error
}

// Poller periodically reads a GTFS-RT vehicle positions feed and upserts
// every usable entity into the writer.
type Poller struct {
	url         string
	operatorRef string
	interval    time.Duration
	client      *http.Client
	writer      PositionWriter
}

func NewPoller(url, operatorRef string, interval, timeout time.Duration, writer PositionWriter) *Poller {
	return &Poller{
		url:         url,
		operatorRef: operatorRef,
		interval:    interval,
		client:      &http.Client{Timeout: timeout},
		writer:      writer,
	}
}

// fetch reads raw protobuf bytes from an HTTP URL or a local file path.
func (p *Poller) fetch(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(p.url, "http://") && !strings.HasPrefix(p.url, "https://") {
		return os.ReadFile(p.url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", p.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, p.url)
	}
	return io.ReadAll(resp.Body)
}

// PollOnce fetches and ingests the feed once, returning how many entities
// were stored.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	raw, err := p.fetch(ctx)
	if err != nil {
		return 0, err
	}

	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(raw, &fm); err != nil {
		return 0, fmt.Errorf("decode feed: %w", err)
	}

	now := time.Now().UTC()
	stored := 0
	for _, e := range fm.Entity {
		state, ok := mapVehiclePosition(e, p.operatorRef, now)
		if !ok {
			continue
		}
		if err := p.writer.Upsert(ctx, state); err != nil {
			return stored, fmt.Errorf("store %s: %w", state.VehicleRef, err)
		}
		stored++
	}
	return stored, nil
}

// Run polls until the context is cancelled. A failed cycle is logged and
// skipped; the next tick retries.
func (p *Poller) Run(ctx context.Context) {
	log.Info().Str("url", p.url).Dur("interval", p.interval).Msg("GTFS-RT ingest started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		n, err := p.PollOnce(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("GTFS-RT poll failed")
		} else {
			log.Debug().Int("positions", n).Msg("GTFS-RT poll complete")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("GTFS-RT ingest stopped")
			return
		case <-ticker.C:
		}
	}
}
