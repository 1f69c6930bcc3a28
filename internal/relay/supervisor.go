package relay

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blacktop/skyrelay/internal/logutil"
)

// Supervisor runs one relay per configured account pair, concurrently and
// independently, for the lifetime of the process. Relays share nothing
// mutable; the only shared resource is the preview fetcher's HTTP client.
type Supervisor struct {
	pairs      []AccountPair
	dialSource SourceDialer
	dialDest   DestinationDialer
	preview    *Preview
	interval   time.Duration
}

// NewSupervisor wires the supervisor. A zero interval selects the relays'
// DefaultInterval.
func NewSupervisor(pairs []AccountPair, dialSource SourceDialer, dialDest DestinationDialer, preview *Preview, interval time.Duration) (*Supervisor, error) {
	if len(pairs) == 0 {
		return nil, errors.New("no account pairs configured")
	}
	return &Supervisor{
		pairs:      pairs,
		dialSource: dialSource,
		dialDest:   dialDest,
		preview:    preview,
		interval:   interval,
	}, nil
}

// Run starts every relay and blocks until all of them have stopped. A relay
// that fails (for example on login) is logged and abandoned without
// disturbing the others, so Run normally returns only after ctx is
// cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	for _, pair := range s.pairs {
		r := NewRelay(pair, s.dialSource, s.dialDest, s.preview, s.interval)
		group.Go(func() error {
			if err := r.Run(ctx); err != nil {
				logutil.Errorf("relay for %s stopped: %v", pair.SourceHandle, err)
			}
			return nil
		})
	}

	return group.Wait()
}
