package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"novastudio/internal/services"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Params is implemented by the per-type job parameter variants. Normalize
// canonicalizes free-text fields (language tags notably) after decoding.
type Params interface {
	Normalize() error
}

// RenderParams configures a render job.
type RenderParams struct {
	Platform string `json:"platform,omitempty" validate:"omitempty,oneof=youtube tiktok instagram"`
	Language string `json:"language,omitempty"`
	Quality  string `json:"quality,omitempty" validate:"omitempty,oneof=draft standard high"`
}

func (p *RenderParams) Normalize() error {
	if p.Quality == "" {
		p.Quality = "standard"
	}
	return canonicalizeLanguage(&p.Language, false)
}

// DubParams configures an AI dubbing job.
type DubParams struct {
	TargetLanguage string `json:"target_language" validate:"required"`
	VoiceStyle     string `json:"voice_style,omitempty" validate:"omitempty,oneof=neutral warm energetic"`
	VoiceID        string `json:"voice_id,omitempty"`
}

func (p *DubParams) Normalize() error {
	if p.VoiceStyle == "" {
		p.VoiceStyle = "neutral"
	}
	return canonicalizeLanguage(&p.TargetLanguage, true)
}

// SubtitlesParams configures subtitle generation.
type SubtitlesParams struct {
	Languages []string `json:"languages" validate:"min=1,dive,required"`
	BurnIn    bool     `json:"burn_in,omitempty"`
}

func (p *SubtitlesParams) Normalize() error {
	for i := range p.Languages {
		if err := canonicalizeLanguage(&p.Languages[i], true); err != nil {
			return err
		}
	}
	return nil
}

// TranslateParams configures timeline translation/localization.
type TranslateParams struct {
	TargetLanguage string `json:"target_language" validate:"required"`
	SourceLanguage string `json:"source_language,omitempty"`
}

func (p *TranslateParams) Normalize() error {
	if err := canonicalizeLanguage(&p.TargetLanguage, true); err != nil {
		return err
	}
	return canonicalizeLanguage(&p.SourceLanguage, false)
}

// EditAction is one structured edit operation. Free-form natural-language
// commands are parsed by an external collaborator; the core only accepts the
// structured form.
type EditAction struct {
	Op     string `json:"op" validate:"required,oneof=cut add_broll color"`
	FromMS int64  `json:"from_ms,omitempty" validate:"gte=0"`
	ToMS   int64  `json:"to_ms,omitempty" validate:"gte=0"`
	Query  string `json:"query,omitempty"`
	Mode   string `json:"mode,omitempty" validate:"omitempty,oneof=auto-correct cinematic vivid"`
}

// EditParams configures a structured timeline edit job.
type EditParams struct {
	Actions  []EditAction `json:"actions" validate:"min=1,dive"`
	Language string       `json:"language,omitempty"`
}

func (p *EditParams) Normalize() error {
	for i, action := range p.Actions {
		if action.Op == "cut" && action.ToMS <= action.FromMS {
			return services.Wrap(services.ErrValidation, "params", "edit",
				fmt.Sprintf("action %d: cut range [%d, %d) is empty", i, action.FromMS, action.ToMS), nil)
		}
	}
	return canonicalizeLanguage(&p.Language, false)
}

// AvatarParams configures talking-avatar generation.
type AvatarParams struct {
	Name     string   `json:"name" validate:"required"`
	Style    string   `json:"style,omitempty" validate:"omitempty,oneof=ultra-realistic toon photoreal"`
	Emotions []string `json:"emotions,omitempty" validate:"dive,required"`
}

func (p *AvatarParams) Normalize() error {
	if p.Style == "" {
		p.Style = "ultra-realistic"
	}
	if len(p.Emotions) == 0 {
		p.Emotions = []string{"neutral"}
	}
	return nil
}

// ParseParams decodes and validates the raw params payload for a job type.
// Unknown fields are rejected rather than silently accepted, and language
// fields are canonicalized to BCP 47 tags.
func ParseParams(jobType Type, raw json.RawMessage) (Params, error) {
	var params Params
	switch jobType {
	case TypeRender:
		params = &RenderParams{}
	case TypeDub:
		params = &DubParams{}
	case TypeSubtitles:
		params = &SubtitlesParams{}
	case TypeTranslate:
		params = &TranslateParams{}
	case TypeEdit:
		params = &EditParams{}
	case TypeAvatar:
		params = &AvatarParams{}
	default:
		return nil, services.Wrap(services.ErrValidation, "params", "parse",
			fmt.Sprintf("unknown job type %q", jobType), nil)
	}

	if len(raw) > 0 {
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(params); err != nil {
			return nil, services.Wrap(services.ErrValidation, "params", "decode",
				fmt.Sprintf("invalid %s params", jobType), err)
		}
	}

	if err := validate.Struct(params); err != nil {
		return nil, services.Wrap(services.ErrValidation, "params", "validate",
			fmt.Sprintf("invalid %s params", jobType), err)
	}
	if err := params.Normalize(); err != nil {
		return nil, err
	}
	return params, nil
}

// EncodeParams serializes validated params for storage in a job record.
func EncodeParams(params Params) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

// canonicalizeLanguage rewrites a language field to its canonical BCP 47 form.
// Required fields must parse; optional fields may be empty.
func canonicalizeLanguage(field *string, required bool) error {
	if field == nil || *field == "" {
		if required {
			return services.Wrap(services.ErrValidation, "params", "language", "language must not be empty", nil)
		}
		return nil
	}
	tag, err := language.Parse(*field)
	if err != nil {
		return services.Wrap(services.ErrValidation, "params", "language",
			fmt.Sprintf("unrecognized language %q", *field), err)
	}
	*field = tag.String()
	return nil
}
