// Package jobs persists render job records in SQLite and provides the
// compare-and-swap guarded transition path the scheduler drives the job state
// machine through.
package jobs
