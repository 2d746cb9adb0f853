// Package remote talks to the hosted backend: a Supabase-style
// identity endpoint for credentials and a PostgREST-style data surface
// for publishing routes.
//
// The publish pipeline is intentionally non-atomic: the route row is
// created first, then its waypoints and samples are batch-inserted
// against the returned route ID. A failure after the first step leaves
// the remote route without some or all of its points and performs no
// compensating rollback. See Publish for the exact contract.
package remote
