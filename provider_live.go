package sirivmfeed

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/midlandbus/siri-vm-feed/vehicle"
)

// PositionSource is the read side of the position repository. Recent returns
// every report recorded after since, most recent first; rows sharing a
// RecordedAt come back in reverse insertion order.
type PositionSource interface {
	Recent(ctx context.Context, since time.Time) ([]vehicle.State, error)
}

// LiveProvider snapshots the repository. Store failures degrade to an empty
// snapshot so the feed keeps answering; completeness is sacrificed, not
// availability.
type LiveProvider struct {
	source PositionSource
	window time.Duration
}

func NewLiveProvider(source PositionSource, window time.Duration) *LiveProvider {
	return &LiveProvider{source: source, window: window}
}

// Snapshot collapses the recent rows to at most one state per vehicle,
// keeping the first (most recent) occurrence, and drops states already past
// their ValidUntil.
func (p *LiveProvider) Snapshot(ctx context.Context, now time.Time) []vehicle.State {
	rows, err := p.source.Recent(ctx, now.Add(-p.window))
	if err != nil {
		log.Warn().Err(err).Msg("Position store unavailable, serving empty snapshot")
		return nil
	}

	seen := map[string]struct{}{}
	out := make([]vehicle.State, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.VehicleRef]; ok {
			continue
		}
		seen[row.VehicleRef] = struct{}{}
		if row.Expired(now) {
			continue
		}
		out = append(out, row)
	}
	return out
}
