// Package store provides the persisted route store: durable local
// storage for routes, manual waypoints, and tracked samples.
//
// Writes are append-only at the entity level - existing points are
// never mutated in place. The recording session appends to a route's
// two point collections while list views read concurrently; WAL mode
// allows those reads during writes.
//
// Deleting a route removes its owned points explicitly and
// synchronously in one transaction before the route row itself, rather
// than relying on foreign-key cascade behavior.
package store
