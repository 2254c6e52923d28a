package app

import "sync/atomic"

// InFlightGuard admits one operation at a time. A second caller is turned
// away rather than queued.
type InFlightGuard struct {
	busy atomic.Bool
}

// TryAcquire claims the guard. When ok is false the guard is held by
// someone else and release is nil.
func (g *InFlightGuard) TryAcquire() (release func(), ok bool) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, false
	}
	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			g.busy.Store(false)
		}
	}, true
}

// InFlight reports whether an operation currently holds the guard.
func (g *InFlightGuard) InFlight() bool {
	return g.busy.Load()
}
