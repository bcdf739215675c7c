package main

import (
	"fmt"
	"strings"
	"time"
)

func truncate(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatProgress(status string, progress int) string {
	switch status {
	case "running":
		return fmt.Sprintf("%d%%", progress)
	case "completed":
		return "100%"
	default:
		return "-"
	}
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
