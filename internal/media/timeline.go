package media

import (
	"fmt"
	"strings"

	"novastudio/internal/services"
)

// TrackKind classifies a timeline track.
type TrackKind string

const (
	TrackVoiceover TrackKind = "voiceover"
	TrackSubtitles TrackKind = "subtitles"
	TrackVisuals   TrackKind = "visuals"
	TrackBRoll     TrackKind = "broll"
	TrackOther     TrackKind = "other"
)

var allTrackKinds = []TrackKind{TrackVoiceover, TrackSubtitles, TrackVisuals, TrackBRoll, TrackOther}

var trackKindSet = func() map[TrackKind]struct{} {
	set := make(map[TrackKind]struct{}, len(allTrackKinds))
	for _, kind := range allTrackKinds {
		set[kind] = struct{}{}
	}
	return set
}()

// ParseTrackKind converts a string into a known TrackKind.
func ParseTrackKind(value string) (TrackKind, bool) {
	normalized := TrackKind(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := trackKindSet[normalized]
	return normalized, ok
}

// Clip places a media reference on a track. Times are milliseconds from the
// start of the timeline; End is exclusive.
type Clip struct {
	StartMS int64             `json:"start_ms"`
	EndMS   int64             `json:"end_ms"`
	MediaID string            `json:"media_id"`
	Params  map[string]string `json:"params,omitempty"`
}

// Duration returns the clip length in milliseconds.
func (c Clip) Duration() int64 {
	return c.EndMS - c.StartMS
}

// Track is an ordered sequence of non-overlapping clips of one kind.
type Track struct {
	Kind  TrackKind `json:"kind"`
	Clips []Clip    `json:"clips"`
}

// Timeline is the ordered description of tracks composing a project's output.
type Timeline struct {
	Tracks []Track `json:"tracks"`
}

// IsEmpty reports whether the timeline carries no tracks.
func (t Timeline) IsEmpty() bool {
	return len(t.Tracks) == 0
}

// ValidateTimeline checks the timeline invariants against the set of media ids
// available on the owning project: every clip references a known media id,
// track kinds are recognized, and clip ranges within one track are ordered and
// non-overlapping. All violations are reported as validation errors so
// submissions fail fast without entering the job state machine.
func ValidateTimeline(tl Timeline, availableMediaIDs map[string]struct{}) error {
	for trackIdx, track := range tl.Tracks {
		if _, ok := trackKindSet[track.Kind]; !ok {
			return services.Wrap(services.ErrValidation, "timeline", "validate",
				fmt.Sprintf("track %d: unknown kind %q", trackIdx, track.Kind), nil)
		}
		var prevEnd int64 = -1
		for clipIdx, clip := range track.Clips {
			if clip.StartMS < 0 || clip.EndMS <= clip.StartMS {
				return services.Wrap(services.ErrValidation, "timeline", "validate",
					fmt.Sprintf("track %d clip %d: invalid range [%d, %d)", trackIdx, clipIdx, clip.StartMS, clip.EndMS), nil)
			}
			if clip.StartMS < prevEnd {
				return services.Wrap(services.ErrValidation, "timeline", "validate",
					fmt.Sprintf("track %d clip %d: overlaps previous clip", trackIdx, clipIdx), nil)
			}
			if strings.TrimSpace(clip.MediaID) == "" {
				return services.Wrap(services.ErrValidation, "timeline", "validate",
					fmt.Sprintf("track %d clip %d: missing media id", trackIdx, clipIdx), nil)
			}
			if _, ok := availableMediaIDs[clip.MediaID]; !ok {
				return services.Wrap(services.ErrValidation, "timeline", "validate",
					fmt.Sprintf("track %d clip %d: media %q not in project", trackIdx, clipIdx, clip.MediaID), nil)
			}
			prevEnd = clip.EndMS
		}
	}
	return nil
}

// Clone returns a deep copy of the timeline.
func (t Timeline) Clone() Timeline {
	cp := Timeline{Tracks: make([]Track, len(t.Tracks))}
	for i, track := range t.Tracks {
		clips := make([]Clip, len(track.Clips))
		for j, clip := range track.Clips {
			c := clip
			if clip.Params != nil {
				c.Params = make(map[string]string, len(clip.Params))
				for k, v := range clip.Params {
					c.Params[k] = v
				}
			}
			clips[j] = c
		}
		cp.Tracks[i] = Track{Kind: track.Kind, Clips: clips}
	}
	return cp
}

// MediaIDs returns the distinct media ids referenced by timeline clips, in
// first-reference order.
func (t Timeline) MediaIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, track := range t.Tracks {
		for _, clip := range track.Clips {
			if _, ok := seen[clip.MediaID]; ok {
				continue
			}
			seen[clip.MediaID] = struct{}{}
			ids = append(ids, clip.MediaID)
		}
	}
	return ids
}
