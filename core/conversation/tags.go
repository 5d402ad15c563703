package conversation

import "strings"

// Tags forwarded to the generation service after the prompt text.
const (
	TagWebSearch = "websearch"
	TagImage     = "show me an image"
	TagVideo     = "show me a video"
)

var tagKeywords = []struct {
	tag      string
	keywords []string
}{
	{tag: TagVideo, keywords: []string{"video", "youtube", "clip"}},
	{tag: TagImage, keywords: []string{"image", "picture", "photo", "what does", "look like"}},
	{tag: TagWebSearch, keywords: []string{"search", "latest", "news", "today", "current", "weather", "price"}},
}

// ClassifyTag guesses a tag from keywords in text. It returns "" when nothing
// matches.
func ClassifyTag(text string) string {
	lowered := strings.ToLower(text)
	for _, candidate := range tagKeywords {
		for _, keyword := range candidate.keywords {
			if strings.Contains(lowered, keyword) {
				return candidate.tag
			}
		}
	}
	return ""
}

// IsKnownTag reports whether tag is one of the overlay toggles.
func IsKnownTag(tag string) bool {
	switch tag {
	case TagWebSearch, TagImage, TagVideo:
		return true
	}
	return false
}
