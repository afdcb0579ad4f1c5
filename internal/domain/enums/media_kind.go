package enums

import "strings"

type MediaKind string

const (
	MediaKindPhoto MediaKind = "photo"
	MediaKindVideo MediaKind = "video"
)

// ParseMediaKind normalizes a client-supplied media type. An empty value
// defaults to photo, matching the mobile client contract.
func ParseMediaKind(value string) (MediaKind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(MediaKindPhoto):
		return MediaKindPhoto, true
	case string(MediaKindVideo):
		return MediaKindVideo, true
	default:
		return "", false
	}
}
