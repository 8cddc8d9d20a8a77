// Package media classifies uploaded works as audio or video from their
// declared file type and file URL.
package media

import "strings"

// Type is the media kind of a work.
type Type string

// Media types.
const (
	Video   Type = "video"
	Audio   Type = "audio"
	Unknown Type = "unknown"
)

var (
	videoExtensions = []string{"mp4", "avi", "mov", "wmv", "flv", "webm", "mkv", "mpeg", "mpg", "m4v", "3gp"}
	audioExtensions = []string{"mp3", "wav", "m4a", "aac", "ogg", "flac", "wma", "aiff"}
)

// Detect returns the media type of a work. Extensions are checked against
// the file type and the URL before the generic "video"/"audio" hints, and
// video wins over audio.
func Detect(fileType, fileURL string) Type {
	kind := strings.ToLower(strings.TrimSpace(fileType))
	url := strings.ToLower(strings.TrimSpace(fileURL))
	if kind == "" && url == "" {
		return Unknown
	}

	if matchesExtension(kind, url, videoExtensions) {
		return Video
	}
	if matchesExtension(kind, url, audioExtensions) {
		return Audio
	}

	switch {
	case strings.HasPrefix(kind, "video") || strings.Contains(url, "video"):
		return Video
	case strings.HasPrefix(kind, "audio") || strings.Contains(url, "audio"):
		return Audio
	}

	return Unknown
}

// Label returns the display label of t.
func (t Type) Label() string {
	switch t {
	case Video:
		return "Video"
	case Audio:
		return "Audio"
	default:
		return "Unknown"
	}
}

func matchesExtension(kind, url string, extensions []string) bool {
	for _, ext := range extensions {
		if kind != "" && strings.Contains(kind, ext) {
			return true
		}
		if url != "" && strings.Contains(url, "."+ext) {
			return true
		}
	}
	return false
}
