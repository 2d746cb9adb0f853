// Package recorder implements the route recording session: the
// lifecycle from the "new route" dialog through active tracking to
// dismissal.
//
// A session moves through three states:
//
//	AwaitingRouteInfo -> Active -> Terminated
//
// Entering Active persists the route and starts a fixed-interval
// sampler that appends a tracked sample whenever a position fix is
// known. While Active, manual waypoints can be captured on demand.
// Ending the session stops the sampler synchronously; End is
// idempotent and cancelling before Active persists nothing.
//
// All state mutation is serialized through the session's single
// mutex-guarded path, so a sampler tick and a waypoint capture landing
// at the same instant append to the route's two disjoint collections
// without further coordination.
//
// Failure policy: a failed store write is logged and the session
// continues; an unknown position silently skips the dependent capture
// or tick. Neither aborts recording.
package recorder
