package domain

import "time"

// ProjectType enumerates supported media-processing tools.
type ProjectType string

const (
	ProjectTypeVideoCompress ProjectType = "video_compress"
	ProjectTypeVideoCaption  ProjectType = "video_caption"
	ProjectTypePostGenerate  ProjectType = "post_generate"
	ProjectTypeImageResize   ProjectType = "image_resize"
)

// ProjectStatus enumerates project lifecycle states.
type ProjectStatus string

const (
	ProjectStatusQueued     ProjectStatus = "queued"
	ProjectStatusProcessing ProjectStatus = "processing"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusFailed     ProjectStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusFailed
}

// Project encapsulates one user-initiated media-processing job and its result.
// Exactly one output group is ever populated, matching Type.
type Project struct {
	ID        string
	UserID    string
	Type      ProjectType
	Status    ProjectStatus
	SourceKey string

	CompressedURL string
	CaptionText   string
	CaptionSRT    string
	Posts         map[string]string
	ResizedURL    string

	// Options captured at creation time.
	Width      int
	Height     int
	Platforms  []string
	ChainPosts bool
	Locale     string

	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidType reports whether t is one of the supported project types.
func ValidType(t ProjectType) bool {
	switch t {
	case ProjectTypeVideoCompress, ProjectTypeVideoCaption, ProjectTypePostGenerate, ProjectTypeImageResize:
		return true
	}
	return false
}

// Asynchronous reports whether the type resolves via a later callback rather
// than synchronously at submission time.
func (t ProjectType) Asynchronous() bool {
	return t == ProjectTypeVideoCaption || t == ProjectTypePostGenerate
}

// KnownPlatforms lists the social platforms posts can be generated for.
var KnownPlatforms = []string{"x", "instagram", "linkedin", "tiktok"}

// NormalizePlatforms expands the "all" alias and drops unknown entries.
func NormalizePlatforms(requested []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range requested {
		if p == "all" {
			return append([]string(nil), KnownPlatforms...)
		}
		for _, known := range KnownPlatforms {
			if p == known && !seen[p] {
				out = append(out, p)
				seen[p] = true
			}
		}
	}
	return out
}
