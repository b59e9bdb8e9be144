// Package availability implements the consistency engine around user
// schedules: the interval overlap detector over the projection store, the
// durable per-user lock manager that serializes schedule writes across
// processes, and the sweeper that reclaims abandoned locks.
package availability
