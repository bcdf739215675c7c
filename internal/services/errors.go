package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrPersistence   = errors.New("persistence error")
	ErrQueueFull     = errors.New("queue full")
	ErrTimeout       = errors.New("timeout")
	ErrUpstream      = errors.New("upstream failure")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind names the taxonomy bucket an error belongs to. The zero value means the
// error carries no marker and is treated as transient.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindNotFound      Kind = "not_found"
	KindPersistence   Kind = "persistence"
	KindQueueFull     Kind = "queue_full"
	KindTimeout       Kind = "timeout"
	KindUpstream      Kind = "upstream"
	KindTransient     Kind = "transient"
)

// Classify maps an error to its taxonomy kind.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrQueueFull):
		return KindQueueFull
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	default:
		return KindTransient
	}
}

// Retryable reports whether an error represents a failure worth retrying.
// Validation, configuration, not-found, queue-full, and timeout failures are
// final; upstream, persistence, and untagged transient failures are retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch Classify(err) {
	case KindValidation, KindConfiguration, KindNotFound, KindQueueFull, KindTimeout:
		return false
	default:
		return true
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
