// Package notifications delivers job lifecycle events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when notifications are disabled. Per-event
// toggles let operators silence noisy events without turning the whole system
// off.
//
// Extend this package if you need alternative transports; the scheduler and
// daemon depend only on the Service interface.
package notifications
