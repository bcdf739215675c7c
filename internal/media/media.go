package media

import (
	"strings"
	"time"
)

// Kind classifies a media asset.
type Kind string

const (
	KindVideo    Kind = "video"
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindSubtitle Kind = "subtitle"
	KindAvatar   Kind = "avatar"
	KindVoice    Kind = "voice"
)

var allKinds = []Kind{KindVideo, KindImage, KindAudio, KindSubtitle, KindAvatar, KindVoice}

var kindSet = func() map[Kind]struct{} {
	set := make(map[Kind]struct{}, len(allKinds))
	for _, kind := range allKinds {
		set[kind] = struct{}{}
	}
	return set
}()

// AllKinds returns the ordered list of known media kinds.
func AllKinds() []Kind {
	cp := make([]Kind, len(allKinds))
	copy(cp, allKinds)
	return cp
}

// ParseKind converts a string into a known media Kind.
func ParseKind(value string) (Kind, bool) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := kindSet[normalized]
	return normalized, ok
}

// Media describes an asset referenced by project timelines. Assets are
// referenced, never owned: projects and timeline snapshots point at them by id.
type Media struct {
	ID         string
	Kind       Kind
	SourceURL  string
	Filename   string
	Transcript string
	Language   string
	Metadata   map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone returns a deep copy safe for use after the original mutates.
func (m Media) Clone() Media {
	cp := m
	if m.Metadata != nil {
		cp.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}
