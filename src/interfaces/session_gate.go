package interfaces

import "time"

// -----------------------------------------------------------------------------
// ISessionGate is the aggregator's view of the session window: whether a
// window has ever been resolved, and whether a given wall-clock instant falls
// inside it. When Resolved() is false the aggregator fails open.
// -----------------------------------------------------------------------------

type ISessionGate interface {
	Resolved() bool
	Contains(t time.Time) bool
}
