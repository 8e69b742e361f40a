package sirivmfeed

import (
	"context"
	"time"

	"github.com/midlandbus/siri-vm-feed/siri"
	"github.com/midlandbus/siri-vm-feed/vehicle"
)

// Provider produces the current snapshot of active vehicle states. A
// provider never fails the feed: a degraded backend yields an empty
// snapshot instead of an error.
type Provider interface {
	Snapshot(ctx context.Context, now time.Time) []vehicle.State
}

// Feed orchestrates snapshot, filter and encode. One now value is captured
// per call so the envelope timestamps and the freshness decisions agree: a
// vehicle cannot expire between snapshot and encode.
type Feed struct {
	provider    Provider
	producerRef string
	clock       func() time.Time
}

func NewFeed(provider Provider, producerRef string) *Feed {
	return &Feed{
		provider:    provider,
		producerRef: producerRef,
		clock:       time.Now,
	}
}

// VehicleMonitoring renders the SIRI-VM document for the current snapshot
// narrowed by the given criteria.
func (f *Feed) VehicleMonitoring(ctx context.Context, criteria Criteria) ([]byte, error) {
	now := f.clock()
	snapshot := f.provider.Snapshot(ctx, now)
	filtered := criteria.Apply(snapshot)
	return siri.EncodeVehicleMonitoring(filtered, f.producerRef, now)
}
