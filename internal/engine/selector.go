package engine

import (
	"net/url"
	"strings"
)

// Select classifies a media URL into the engine type that should play it.
// Pure and case-insensitive: "dash" anywhere or a path ending in .mpd means
// DASH, "hls" anywhere or a path ending in .m3u8 means HLS, anything else
// is handled by the native engine.
func Select(rawURL string) Type {
	lower := strings.ToLower(rawURL)

	// Suffix checks apply to the path only, so query strings and fragments
	// do not defeat them.
	path := lower
	if u, err := url.Parse(lower); err == nil && u.Path != "" {
		path = u.Path
	}

	switch {
	case strings.Contains(lower, "dash"), strings.HasSuffix(path, ".mpd"):
		return TypeDASH
	case strings.Contains(lower, "hls"), strings.HasSuffix(path, ".m3u8"):
		return TypeHLS
	default:
		return TypeNative
	}
}
