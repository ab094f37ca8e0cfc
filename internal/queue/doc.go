// Package queue persists not-yet-delivered citizen reports and worker
// resolutions in SQLite. Records are owned exclusively by the store: callers
// receive snapshots, and sync coordinators borrow records for the duration of
// one delivery attempt via short-lived claim leases.
package queue
