package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"novastudio/internal/media"
	"novastudio/internal/services"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeRequest strictly decodes and validates a JSON request body.
// Unknown fields are rejected.
func DecodeRequest(r io.Reader, dst any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return services.Wrap(services.ErrValidation, "api", "decode", "invalid request body", err)
	}
	if err := validate.Struct(dst); err != nil {
		return services.Wrap(services.ErrValidation, "api", "validate", "invalid request", err)
	}
	return nil
}

// DecodeRequestBytes is DecodeRequest over a byte slice.
func DecodeRequestBytes(data []byte, dst any) error {
	return DecodeRequest(bytes.NewReader(data), dst)
}

// CreateProjectRequest creates a project in the catalog.
type CreateProjectRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description,omitempty"`
	BrandID     string          `json:"brand_id,omitempty"`
	TemplateID  string          `json:"template_id,omitempty"`
	Timeline    media.Timeline  `json:"timeline,omitempty"`
	MediaIDs    []string        `json:"media_ids,omitempty"`
	Settings    *media.Settings `json:"settings,omitempty"`
}

// UpdateProjectRequest replaces a project's mutable fields.
type UpdateProjectRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description,omitempty"`
	BrandID     string          `json:"brand_id,omitempty"`
	TemplateID  string          `json:"template_id,omitempty"`
	Timeline    media.Timeline  `json:"timeline,omitempty"`
	MediaIDs    []string        `json:"media_ids,omitempty"`
	Settings    *media.Settings `json:"settings,omitempty"`
}

// CreateMediaRequest registers a media asset.
type CreateMediaRequest struct {
	Kind       string            `json:"kind" validate:"required"`
	SourceURL  string            `json:"source_url,omitempty" validate:"omitempty,url"`
	Filename   string            `json:"filename,omitempty"`
	Transcript string            `json:"transcript,omitempty"`
	Language   string            `json:"language,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// CreateBrandRequest registers a brand.
type CreateBrandRequest struct {
	Name           string `json:"name" validate:"required"`
	PrimaryColor   string `json:"primary_color,omitempty" validate:"omitempty,hexcolor"`
	SecondaryColor string `json:"secondary_color,omitempty" validate:"omitempty,hexcolor"`
	FontFamily     string `json:"font_family,omitempty"`
	LogoURL        string `json:"logo_url,omitempty" validate:"omitempty,url"`
}

// CreateTemplateRequest registers a template.
type CreateTemplateRequest struct {
	Name        string `json:"name" validate:"required"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Aspect      string `json:"aspect,omitempty" validate:"omitempty,oneof=16:9 9:16 1:1"`
}

// SubmitJobRequest enqueues a render job.
type SubmitJobRequest struct {
	ProjectID string          `json:"project_id" validate:"required"`
	Type      string          `json:"type" validate:"required"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// ScriptToVideoRequest creates a project from a script and queues its render.
type ScriptToVideoRequest struct {
	Title            string `json:"title" validate:"required"`
	Script           string `json:"script" validate:"required,min=10"`
	Language         string `json:"language,omitempty"`
	Platform         string `json:"platform,omitempty" validate:"omitempty,oneof=youtube tiktok instagram"`
	VoiceStyle       string `json:"voice_style,omitempty" validate:"omitempty,oneof=neutral warm energetic"`
	IncludeSubtitles *bool  `json:"include_subtitles,omitempty"`
}

func (r *ScriptToVideoRequest) normalize() {
	if r.Language == "" {
		r.Language = "en"
	}
	if r.Platform == "" {
		r.Platform = "youtube"
	}
	if r.VoiceStyle == "" {
		r.VoiceStyle = "neutral"
	}
}

func (r *ScriptToVideoRequest) includeSubtitles() bool {
	if r.IncludeSubtitles == nil {
		return true
	}
	return *r.IncludeSubtitles
}

func invalidField(field, reason string) error {
	return services.Wrap(services.ErrValidation, "api", "validate",
		fmt.Sprintf("%s: %s", field, reason), nil)
}
