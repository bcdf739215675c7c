package media

import (
	"errors"
	"testing"

	"novastudio/internal/services"
)

func availSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func twoTrackTimeline() Timeline {
	return Timeline{Tracks: []Track{
		{Kind: TrackVoiceover, Clips: []Clip{
			{StartMS: 0, EndMS: 4000, MediaID: "m-voice"},
			{StartMS: 4000, EndMS: 9000, MediaID: "m-voice"},
		}},
		{Kind: TrackVisuals, Clips: []Clip{
			{StartMS: 0, EndMS: 9000, MediaID: "m-video"},
		}},
	}}
}

func TestValidateTimelineAccepts(t *testing.T) {
	if err := ValidateTimeline(twoTrackTimeline(), availSet("m-voice", "m-video")); err != nil {
		t.Fatalf("valid timeline rejected: %v", err)
	}
}

func TestValidateTimelineMissingMedia(t *testing.T) {
	err := ValidateTimeline(twoTrackTimeline(), availSet("m-voice"))
	if err == nil {
		t.Fatal("expected rejection for missing media")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateTimelineOverlap(t *testing.T) {
	tl := Timeline{Tracks: []Track{
		{Kind: TrackVisuals, Clips: []Clip{
			{StartMS: 0, EndMS: 5000, MediaID: "m1"},
			{StartMS: 4000, EndMS: 8000, MediaID: "m1"},
		}},
	}}
	if err := ValidateTimeline(tl, availSet("m1")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for overlap, got %v", err)
	}
}

func TestValidateTimelineUnknownTrackKind(t *testing.T) {
	tl := Timeline{Tracks: []Track{{Kind: TrackKind("holograms")}}}
	if err := ValidateTimeline(tl, availSet()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}
}

func TestValidateTimelineInvalidRange(t *testing.T) {
	tl := Timeline{Tracks: []Track{
		{Kind: TrackVisuals, Clips: []Clip{{StartMS: 200, EndMS: 200, MediaID: "m1"}}},
	}}
	if err := ValidateTimeline(tl, availSet("m1")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty range, got %v", err)
	}
}

func TestTimelineCloneIsIndependent(t *testing.T) {
	original := twoTrackTimeline()
	original.Tracks[0].Clips[0].Params = map[string]string{"style": "neutral"}
	cp := original.Clone()

	cp.Tracks[0].Clips[0].MediaID = "changed"
	cp.Tracks[0].Clips[0].Params["style"] = "excited"

	if original.Tracks[0].Clips[0].MediaID != "m-voice" {
		t.Error("clone mutation leaked into original media id")
	}
	if original.Tracks[0].Clips[0].Params["style"] != "neutral" {
		t.Error("clone mutation leaked into original params")
	}
}

func TestTimelineMediaIDsDistinctOrdered(t *testing.T) {
	ids := twoTrackTimeline().MediaIDs()
	want := []string{"m-voice", "m-video"}
	if len(ids) != len(want) {
		t.Fatalf("MediaIDs = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("MediaIDs = %v, want %v", ids, want)
		}
	}
}

func TestSettingsValidate(t *testing.T) {
	valid := DefaultSettings()
	if err := valid.Validate(); err != nil {
		t.Fatalf("default settings rejected: %v", err)
	}

	empty := DefaultSettings()
	empty.Platforms = nil
	if err := empty.Validate(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty platforms, got %v", err)
	}

	mismatch := DefaultSettings()
	mismatch.Aspect = AspectSquare
	mismatch.Resolution = Resolution4K
	if err := mismatch.Validate(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for 1:1 at 4k, got %v", err)
	}
}

func TestSnapshotIndependence(t *testing.T) {
	project := &Project{
		ID:       "p1",
		Title:    "Launch teaser",
		Timeline: twoTrackTimeline(),
		MediaIDs: []string{"m-voice", "m-video", "m-unused"},
		Settings: DefaultSettings(),
	}
	assets := []Media{
		{ID: "m-voice", Kind: KindAudio, Metadata: map[string]string{"voice": "neutral"}},
		{ID: "m-video", Kind: KindVideo},
		{ID: "m-unused", Kind: KindImage},
	}
	snap := NewSnapshot(project, assets)

	if len(snap.Media) != 2 {
		t.Fatalf("snapshot should only capture referenced media, got %d", len(snap.Media))
	}
	if _, ok := snap.Media["m-unused"]; ok {
		t.Error("unreferenced media captured in snapshot")
	}

	project.Timeline.Tracks[0].Clips[0].MediaID = "swapped"
	assets[0].Metadata["voice"] = "angry"
	if snap.Timeline.Tracks[0].Clips[0].MediaID != "m-voice" {
		t.Error("project edit leaked into snapshot timeline")
	}
	if snap.Media["m-voice"].Metadata["voice"] != "neutral" {
		t.Error("media edit leaked into snapshot")
	}
}

func TestSnapshotEncodeDecode(t *testing.T) {
	project := &Project{ID: "p1", Title: "T", Timeline: twoTrackTimeline(), Settings: DefaultSettings()}
	snap := NewSnapshot(project, []Media{{ID: "m-voice", Kind: KindAudio}, {ID: "m-video", Kind: KindVideo}})

	raw, err := snap.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	restored, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("DecodeSnapshot failed: %v", err)
	}
	if restored.ProjectID != "p1" || len(restored.Timeline.Tracks) != 2 || len(restored.Media) != 2 {
		t.Fatalf("snapshot did not survive round trip: %+v", restored)
	}
}
