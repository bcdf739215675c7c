// Package daemon coordinates the long-running NovaStudio process.
//
// It wires configuration, the catalog and job stores, the render scheduler,
// and the HTTP API into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon focuses on startup, shutdown, and
// high level coordination; job execution lives in the scheduler and worker
// packages.
package daemon
