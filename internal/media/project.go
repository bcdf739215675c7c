package media

import (
	"fmt"
	"strings"
	"time"

	"novastudio/internal/services"
)

// Platform identifies a distribution target.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
)

var allPlatforms = []Platform{PlatformYouTube, PlatformTikTok, PlatformInstagram}

// Resolution is a closed set of output resolutions.
type Resolution string

const (
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
	Resolution4K    Resolution = "4k"
)

// Aspect is a closed set of output aspect ratios.
type Aspect string

const (
	AspectWide     Aspect = "16:9"
	AspectVertical Aspect = "9:16"
	AspectSquare   Aspect = "1:1"
)

// validAspectResolutions enumerates the supported aspect/resolution pairs.
// Square output is only rendered at 1080p.
var validAspectResolutions = map[Aspect]map[Resolution]struct{}{
	AspectWide:     {Resolution720p: {}, Resolution1080p: {}, Resolution4K: {}},
	AspectVertical: {Resolution720p: {}, Resolution1080p: {}},
	AspectSquare:   {Resolution1080p: {}},
}

// ParsePlatform converts a string into a known Platform.
func ParsePlatform(value string) (Platform, bool) {
	normalized := Platform(strings.ToLower(strings.TrimSpace(value)))
	for _, p := range allPlatforms {
		if p == normalized {
			return normalized, true
		}
	}
	return "", false
}

// AllPlatforms returns the ordered list of known platforms.
func AllPlatforms() []Platform {
	cp := make([]Platform, len(allPlatforms))
	copy(cp, allPlatforms)
	return cp
}

// Settings holds project output parameters.
type Settings struct {
	Resolution Resolution `json:"resolution"`
	FPS        int        `json:"fps"`
	Aspect     Aspect     `json:"aspect"`
	Platforms  []Platform `json:"platforms"`
}

// DefaultSettings mirrors the platform defaults applied to new projects when a
// client omits settings.
func DefaultSettings() Settings {
	return Settings{
		Resolution: Resolution1080p,
		FPS:        30,
		Aspect:     AspectWide,
		Platforms:  []Platform{PlatformYouTube, PlatformTikTok, PlatformInstagram},
	}
}

// Validate enforces the settings invariants: a non-empty platform list, known
// platform names, and a supported aspect/resolution combination.
func (s Settings) Validate() error {
	if len(s.Platforms) == 0 {
		return services.Wrap(services.ErrValidation, "project", "settings", "platforms must not be empty", nil)
	}
	for _, p := range s.Platforms {
		if _, ok := ParsePlatform(string(p)); !ok {
			return services.Wrap(services.ErrValidation, "project", "settings",
				fmt.Sprintf("unknown platform %q", p), nil)
		}
	}
	resolutions, ok := validAspectResolutions[s.Aspect]
	if !ok {
		return services.Wrap(services.ErrValidation, "project", "settings",
			fmt.Sprintf("unknown aspect %q", s.Aspect), nil)
	}
	if _, ok := resolutions[s.Resolution]; !ok {
		return services.Wrap(services.ErrValidation, "project", "settings",
			fmt.Sprintf("resolution %q not supported for aspect %q", s.Resolution, s.Aspect), nil)
	}
	if s.FPS <= 0 || s.FPS > 120 {
		return services.Wrap(services.ErrValidation, "project", "settings",
			fmt.Sprintf("fps %d out of range", s.FPS), nil)
	}
	return nil
}

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	cp := s
	cp.Platforms = append([]Platform(nil), s.Platforms...)
	return cp
}

// Project is a video-production project: a timeline of media references plus
// output settings. Projects are mutated only by explicit update operations,
// never by jobs, and are never auto-deleted.
type Project struct {
	ID          string
	Title       string
	Description string
	BrandID     string
	TemplateID  string
	Timeline    Timeline
	MediaIDs    []string
	Settings    Settings
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate enforces project invariants ahead of persistence.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return services.Wrap(services.ErrValidation, "project", "validate", "title must not be empty", nil)
	}
	if err := p.Settings.Validate(); err != nil {
		return err
	}
	return nil
}

// MediaIDSet returns the project's media references as a lookup set.
func (p *Project) MediaIDSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.MediaIDs))
	for _, id := range p.MediaIDs {
		set[id] = struct{}{}
	}
	return set
}
