package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"novastudio/internal/jobs"
	"novastudio/internal/logging"
	"novastudio/internal/media"
)

// ScriptToVideoResult pairs the generated project with its queued render job.
type ScriptToVideoResult struct {
	Project ProjectView `json:"project"`
	Job     JobView     `json:"job"`
}

// ScriptToVideo builds a project from a raw script and queues its render.
// The script becomes a voice asset, the timeline gets voiceover (and
// optionally subtitle) tracks sized from the script length, and the render
// job goes through the normal queue rather than completing instantly.
func (s *Service) ScriptToVideo(ctx context.Context, req ScriptToVideoRequest) (ScriptToVideoResult, error) {
	req.normalize()

	voice := &media.Media{
		ID:         uuid.NewString(),
		Kind:       media.KindVoice,
		Filename:   "narration.generated",
		Transcript: req.Script,
		Language:   req.Language,
		Metadata:   map[string]string{"voice_style": req.VoiceStyle},
	}
	if err := s.catalog.CreateMedia(ctx, voice); err != nil {
		return ScriptToVideoResult{}, err
	}

	durationMS := estimateNarrationMS(req.Script)
	tracks := []media.Track{
		{Kind: media.TrackVoiceover, Clips: []media.Clip{
			{StartMS: 0, EndMS: durationMS, MediaID: voice.ID},
		}},
	}
	mediaIDs := []string{voice.ID}

	if req.includeSubtitles() {
		subs := &media.Media{
			ID:         uuid.NewString(),
			Kind:       media.KindSubtitle,
			Filename:   "subtitles.generated",
			Transcript: req.Script,
			Language:   req.Language,
		}
		if err := s.catalog.CreateMedia(ctx, subs); err != nil {
			return ScriptToVideoResult{}, err
		}
		tracks = append(tracks, media.Track{Kind: media.TrackSubtitles, Clips: []media.Clip{
			{StartMS: 0, EndMS: durationMS, MediaID: subs.ID},
		}})
		mediaIDs = append(mediaIDs, subs.ID)
	}

	settings := media.Settings{
		Resolution: media.Resolution1080p,
		FPS:        30,
		Aspect:     media.AspectWide,
		Platforms:  []media.Platform{media.Platform(req.Platform)},
	}
	if req.Platform == string(media.PlatformTikTok) {
		settings.Aspect = media.AspectVertical
	}

	project := &media.Project{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: fmt.Sprintf("Auto-generated from script for %s", req.Platform),
		Timeline:    media.Timeline{Tracks: tracks},
		MediaIDs:    mediaIDs,
		Settings:    settings,
	}
	if err := project.Validate(); err != nil {
		return ScriptToVideoResult{}, err
	}
	if err := s.catalog.CreateProject(ctx, project); err != nil {
		return ScriptToVideoResult{}, err
	}

	params := fmt.Sprintf(`{"platform":%q,"language":%q}`, req.Platform, req.Language)
	job, err := s.sched.Submit(ctx, project.ID, jobs.TypeRender, []byte(params))
	if err != nil {
		return ScriptToVideoResult{}, err
	}

	s.logger.Info("script converted to project",
		logging.String(logging.FieldProjectID, project.ID),
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("script_words", wordCount(req.Script)))
	return ScriptToVideoResult{Project: NewProjectView(project), Job: NewJobView(job)}, nil
}

// estimateNarrationMS sizes the voiceover clip from the script length,
// assuming roughly 150 spoken words per minute.
func estimateNarrationMS(script string) int64 {
	words := wordCount(script)
	ms := int64(words) * 400
	if ms < 3000 {
		ms = 3000
	}
	return ms
}

func wordCount(script string) int {
	return len(strings.Fields(script))
}
