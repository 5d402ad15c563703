package speechtotext

import (
	"context"

	"github.com/kkkz76/askvox/core/audio"
)

// Transcriber turns one finalized utterance into text. It is request/response,
// not streamed.
type Transcriber interface {
	TranscribeAudio(ctx context.Context, blob audio.Blob) (string, error)
}

type TranscriberFunc func(ctx context.Context, blob audio.Blob) (string, error)

func (f TranscriberFunc) TranscribeAudio(ctx context.Context, blob audio.Blob) (string, error) {
	return f(ctx, blob)
}

type TranscriptionOptions struct {
	Model       string
	Language    string
	SmartFormat bool
	Endpoint    string
}

func DefaultTranscriptionOptions() TranscriptionOptions {
	return TranscriptionOptions{
		Model:       "nova-3",
		Language:    "en-US",
		SmartFormat: true,
	}
}

type TranscriptionOption func(*TranscriptionOptions)

func WithModel(model string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Model = model
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}

func WithSmartFormat(enabled bool) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SmartFormat = enabled
	}
}

// WithEndpoint overrides the service URL, mostly for tests.
func WithEndpoint(endpoint string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Endpoint = endpoint
	}
}
