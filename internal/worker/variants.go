package worker

import (
	"fmt"
	"log/slog"
	"time"

	"novastudio/internal/artifacts"
	"novastudio/internal/jobs"
)

// DefaultStepDelay paces the simulated workers in production.
const DefaultStepDelay = 500 * time.Millisecond

// NewRenderWorker builds the render worker.
func NewRenderWorker(store artifacts.Store, logger *slog.Logger, stepDelay time.Duration) Worker {
	return newSimulated("render-worker", store, logger, stepDelay, func(req Request) (stepPlan, error) {
		params, err := paramsAs[*jobs.RenderParams](req)
		if err != nil {
			return stepPlan{}, err
		}
		steps := []string{"resolving media", "compositing timeline"}
		for _, track := range req.Snapshot.Timeline.Tracks {
			steps = append(steps, fmt.Sprintf("rendering %s track (%d clips)", track.Kind, len(track.Clips)))
		}
		steps = append(steps, "encoding output", "muxing container")
		return stepPlan{
			steps: steps,
			artifact: map[string]any{
				"kind":       "render",
				"platform":   params.Platform,
				"quality":    params.Quality,
				"resolution": string(req.Snapshot.Settings.Resolution),
				"fps":        req.Snapshot.Settings.FPS,
				"aspect":     string(req.Snapshot.Settings.Aspect),
				"tracks":     len(req.Snapshot.Timeline.Tracks),
			},
		}, nil
	})
}

// NewDubWorker builds the dubbing worker.
func NewDubWorker(store artifacts.Store, logger *slog.Logger, stepDelay time.Duration) Worker {
	return newSimulated("dub-worker", store, logger, stepDelay, func(req Request) (stepPlan, error) {
		params, err := paramsAs[*jobs.DubParams](req)
		if err != nil {
			return stepPlan{}, err
		}
		return stepPlan{
			steps: []string{
				"extracting voiceover",
				fmt.Sprintf("synthesizing %s voice (%s)", params.TargetLanguage, params.VoiceStyle),
				"aligning dub to timeline",
				"mixing audio",
			},
			artifact: map[string]any{
				"kind":            "dub",
				"target_language": params.TargetLanguage,
				"voice_style":     params.VoiceStyle,
				"voice_id":        params.VoiceID,
			},
		}, nil
	})
}

// NewSubtitlesWorker builds the subtitle generation worker.
func NewSubtitlesWorker(store artifacts.Store, logger *slog.Logger, stepDelay time.Duration) Worker {
	return newSimulated("subtitles-worker", store, logger, stepDelay, func(req Request) (stepPlan, error) {
		params, err := paramsAs[*jobs.SubtitlesParams](req)
		if err != nil {
			return stepPlan{}, err
		}
		steps := []string{"transcribing voiceover"}
		for _, lang := range params.Languages {
			steps = append(steps, fmt.Sprintf("generating %s subtitles", lang))
		}
		if params.BurnIn {
			steps = append(steps, "burning subtitles into video")
		}
		return stepPlan{
			steps: steps,
			artifact: map[string]any{
				"kind":      "subtitles",
				"languages": params.Languages,
				"burn_in":   params.BurnIn,
			},
		}, nil
	})
}

// NewTranslateWorker builds the timeline translation worker.
func NewTranslateWorker(store artifacts.Store, logger *slog.Logger, stepDelay time.Duration) Worker {
	return newSimulated("translate-worker", store, logger, stepDelay, func(req Request) (stepPlan, error) {
		params, err := paramsAs[*jobs.TranslateParams](req)
		if err != nil {
			return stepPlan{}, err
		}
		return stepPlan{
			steps: []string{
				"collecting transcripts",
				fmt.Sprintf("translating to %s", params.TargetLanguage),
				"rewriting timeline text",
			},
			artifact: map[string]any{
				"kind":            "translate",
				"target_language": params.TargetLanguage,
				"source_language": params.SourceLanguage,
			},
		}, nil
	})
}

// NewEditWorker builds the structured timeline edit worker.
func NewEditWorker(store artifacts.Store, logger *slog.Logger, stepDelay time.Duration) Worker {
	return newSimulated("edit-worker", store, logger, stepDelay, func(req Request) (stepPlan, error) {
		params, err := paramsAs[*jobs.EditParams](req)
		if err != nil {
			return stepPlan{}, err
		}
		steps := make([]string, 0, len(params.Actions)+1)
		for i, action := range params.Actions {
			switch action.Op {
			case "cut":
				steps = append(steps, fmt.Sprintf("action %d: cutting [%d, %d)", i, action.FromMS, action.ToMS))
			case "add_broll":
				steps = append(steps, fmt.Sprintf("action %d: inserting b-roll for %q", i, action.Query))
			case "color":
				steps = append(steps, fmt.Sprintf("action %d: color grading (%s)", i, action.Mode))
			default:
				steps = append(steps, fmt.Sprintf("action %d: %s", i, action.Op))
			}
		}
		steps = append(steps, "rebalancing timeline")
		return stepPlan{
			steps: steps,
			artifact: map[string]any{
				"kind":    "edit",
				"actions": len(params.Actions),
			},
		}, nil
	})
}

// NewAvatarWorker builds the talking-avatar worker.
func NewAvatarWorker(store artifacts.Store, logger *slog.Logger, stepDelay time.Duration) Worker {
	return newSimulated("avatar-worker", store, logger, stepDelay, func(req Request) (stepPlan, error) {
		params, err := paramsAs[*jobs.AvatarParams](req)
		if err != nil {
			return stepPlan{}, err
		}
		return stepPlan{
			steps: []string{
				fmt.Sprintf("modeling avatar %q (%s)", params.Name, params.Style),
				"rigging facial animation",
				fmt.Sprintf("rendering %d emotion passes", len(params.Emotions)),
				"compositing avatar clip",
			},
			artifact: map[string]any{
				"kind":     "avatar",
				"name":     params.Name,
				"style":    params.Style,
				"emotions": params.Emotions,
			},
		}, nil
	})
}

// DefaultRegistry wires every job type to its simulated worker.
func DefaultRegistry(store artifacts.Store, logger *slog.Logger, stepDelay time.Duration) *Registry {
	registry := NewRegistry()
	registry.Register(jobs.TypeRender, NewRenderWorker(store, logger, stepDelay))
	registry.Register(jobs.TypeDub, NewDubWorker(store, logger, stepDelay))
	registry.Register(jobs.TypeSubtitles, NewSubtitlesWorker(store, logger, stepDelay))
	registry.Register(jobs.TypeTranslate, NewTranslateWorker(store, logger, stepDelay))
	registry.Register(jobs.TypeEdit, NewEditWorker(store, logger, stepDelay))
	registry.Register(jobs.TypeAvatar, NewAvatarWorker(store, logger, stepDelay))
	return registry
}

func paramsAs[T jobs.Params](req Request) (T, error) {
	params, ok := req.Params.(T)
	if !ok {
		var zero T
		return zero, NewFailure(jobs.ErrorKindValidation,
			fmt.Sprintf("unexpected params type %T for %s job", req.Params, req.Type), false, nil)
	}
	return params, nil
}
