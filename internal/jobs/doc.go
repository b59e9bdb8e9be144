// Package jobs implements the asynchronous reconciliation pipeline: a
// persisted, recoverable job queue, a worker pool, and the availability
// rebuild job that keeps projection rows consistent with task state and
// releases the availability lock when done.
package jobs
