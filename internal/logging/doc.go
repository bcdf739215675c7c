// Package logging centralizes slog construction and the structured attribute
// vocabulary shared across the daemon, scheduler, and CLI.
package logging
