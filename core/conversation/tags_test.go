package conversation

import "testing"

func TestClassifyTag(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "Show me a YouTube clip of cats", want: TagVideo},
		{text: "what does a quokka look like", want: TagImage},
		{text: "latest news about the election", want: TagWebSearch},
		{text: "tell me a joke", want: ""},
	}

	for _, tt := range tests {
		if got := ClassifyTag(tt.text); got != tt.want {
			t.Fatalf("ClassifyTag(%q): expected %q, got %q", tt.text, tt.want, got)
		}
	}
}

func TestDetectMedia(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Media
	}{
		{name: "image", content: " https://example.com/cat.PNG ", want: Media{Kind: MediaImage, URL: "https://example.com/cat.PNG"}},
		{name: "youtube watch", content: "Here: https://www.youtube.com/watch?v=dQw4w9WgXcQ enjoy", want: Media{Kind: MediaYouTube, URL: "https://www.youtube.com/embed/dQw4w9WgXcQ", VideoID: "dQw4w9WgXcQ"}},
		{name: "youtu.be", content: "youtu.be/abc_123", want: Media{Kind: MediaYouTube, URL: "https://www.youtube.com/embed/abc_123", VideoID: "abc_123"}},
		{name: "text", content: "just words", want: Media{}},
		{name: "image mid sentence", content: "see cat.png for details", want: Media{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMedia(tt.content); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
