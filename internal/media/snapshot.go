package media

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is a frozen, independently-owned copy of a project's timeline,
// settings, and referenced media taken at job submission time. Later edits to
// the project cannot retroactively alter a running job.
type Snapshot struct {
	ProjectID    string           `json:"project_id"`
	ProjectTitle string           `json:"project_title"`
	Timeline     Timeline         `json:"timeline"`
	Settings     Settings         `json:"settings"`
	Media        map[string]Media `json:"media"`
	TakenAt      time.Time        `json:"taken_at"`
}

// NewSnapshot deep-copies the project timeline plus the referenced media.
// Only media actually referenced by timeline clips is captured; the assets map
// is keyed by media id.
func NewSnapshot(project *Project, assets []Media) Snapshot {
	referenced := make(map[string]struct{})
	for _, id := range project.Timeline.MediaIDs() {
		referenced[id] = struct{}{}
	}
	captured := make(map[string]Media, len(referenced))
	for _, asset := range assets {
		if _, ok := referenced[asset.ID]; ok {
			captured[asset.ID] = asset.Clone()
		}
	}
	return Snapshot{
		ProjectID:    project.ID,
		ProjectTitle: project.Title,
		Timeline:     project.Timeline.Clone(),
		Settings:     project.Settings.Clone(),
		Media:        captured,
		TakenAt:      time.Now().UTC(),
	}
}

// Encode serializes the snapshot for storage in a job record.
func (s Snapshot) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(data), nil
}

// DecodeSnapshot restores a snapshot persisted by Encode.
func DecodeSnapshot(raw string) (Snapshot, error) {
	var snap Snapshot
	if raw == "" {
		return snap, nil
	}
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}
