package reconciler

import "sync/atomic"

// RefreshGate signals that a reconciliation sweep is in progress.
type RefreshGate struct {
	active atomic.Bool
}

// NewRefreshGate returns a lowered gate.
func NewRefreshGate() *RefreshGate {
	return &RefreshGate{}
}

// Raise marks a sweep as in progress and returns the function that lowers
// the gate again. Callers defer the returned function.
func (g *RefreshGate) Raise() (lower func()) {
	g.active.Store(true)
	return func() { g.active.Store(false) }
}

// Active reports whether a sweep is in progress.
func (g *RefreshGate) Active() bool {
	return g.active.Load()
}
