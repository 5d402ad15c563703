package conversation

import (
	"regexp"
	"strings"
)

type MediaKind string

const (
	MediaNone    MediaKind = ""
	MediaImage   MediaKind = "image"
	MediaYouTube MediaKind = "youtube"
)

// Media tells a renderer how a response can be shown.
type Media struct {
	Kind MediaKind
	// URL is the image location or the embeddable video URL.
	URL     string
	VideoID string
}

var (
	imagePattern   = regexp.MustCompile(`(?i)\.(jpeg|jpg|gif|png|webp|bmp|svg)$`)
	youtubePattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/shorts/)([a-zA-Z0-9_-]+)`)
)

// DetectMedia checks whether content is an image link or mentions a YouTube
// video.
func DetectMedia(content string) Media {
	content = strings.TrimSpace(content)
	if content == "" {
		return Media{}
	}

	if imagePattern.MatchString(content) {
		return Media{Kind: MediaImage, URL: content}
	}

	if match := youtubePattern.FindStringSubmatch(content); len(match) == 2 {
		return Media{
			Kind:    MediaYouTube,
			URL:     "https://www.youtube.com/embed/" + match[1],
			VideoID: match[1],
		}
	}

	return Media{}
}
