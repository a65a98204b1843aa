package application

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/centauromax/prep-center-sub000/internal/domain"
)

// DedupGuard decides whether an incoming delivery is fresh or a redelivery.
// outbound.closed always passes: a re-close can carry a changed item set and
// reconciliation must re-run. Everything else is suppressed when the same
// (shipmentId, eventKind) pair was accepted inside the window.
type DedupGuard struct {
	store  domain.DedupStore
	window time.Duration
	clock  clockwork.Clock
}

func NewDedupGuard(store domain.DedupStore, window time.Duration, clock clockwork.Clock) *DedupGuard {
	if window <= 0 {
		window = domain.DefaultDedupWindow
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DedupGuard{
		store:  store,
		window: window,
		clock:  clock,
	}
}

// Check returns whether the delivery is accepted. On rejection it returns the
// record id of the event accepted earlier in the window. candidateEventID is
// the id the caller will append the event under if accepted.
func (g *DedupGuard) Check(ctx context.Context, shipmentID string, kind domain.EventKind, candidateEventID string) (bool, string, error) {
	if kind.BypassesDedup() {
		return true, "", nil
	}
	// Payloads without a shipment id cannot collide meaningfully.
	if shipmentID == "" {
		return true, "", nil
	}
	return g.store.TryAccept(ctx, shipmentID, kind, candidateEventID, g.clock.Now(), g.window)
}

// Release undoes an acceptance when the event could not be persisted, so the
// upstream retry of the same delivery is not suppressed as a duplicate of a
// record that was never stored.
func (g *DedupGuard) Release(ctx context.Context, shipmentID string, kind domain.EventKind, eventID string) error {
	if kind.BypassesDedup() || shipmentID == "" {
		// Check recorded nothing for these.
		return nil
	}
	return g.store.Release(ctx, shipmentID, kind, eventID)
}
