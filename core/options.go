package overlay

import (
	"time"

	"github.com/kkkz76/askvox/core/capture"
	"github.com/kkkz76/askvox/core/conversation"
	"github.com/kkkz76/askvox/core/llms"
	"github.com/kkkz76/askvox/core/speechtotext"
	"github.com/kkkz76/askvox/core/vad"
)

const DefaultSleepDelay = 3 * time.Second

type OverlayOption func(*Overlay)

func WithCaptureDevice(device capture.Device) OverlayOption {
	return func(o *Overlay) { o.device = device }
}

func WithTranscriber(transcriber speechtotext.Transcriber) OverlayOption {
	return func(o *Overlay) { o.transcriber = transcriber }
}

// WithGenerator sets the generation service. It takes precedence over
// [WithStreamingLLM].
func WithGenerator(generator llms.Generator) OverlayOption {
	return func(o *Overlay) { o.generator = generator }
}

// WithStreamingLLM wraps a streaming model client in [llms.NewGenerator].
func WithStreamingLLM(client llms.StreamingLLM) OverlayOption {
	return func(o *Overlay) {
		if o.generator == nil {
			o.generator = llms.NewGenerator(client)
		}
	}
}

func WithVADOptions(opts ...vad.Option) OverlayOption {
	return func(o *Overlay) { o.vadOptions = append(o.vadOptions, opts...) }
}

// WithScheduler replaces wall clock timers, mostly for tests.
func WithScheduler(scheduler vad.Scheduler) OverlayOption {
	return func(o *Overlay) {
		if scheduler != nil {
			o.scheduler = scheduler
		}
	}
}

// WithSleepDelay sets how long the avatar stays awake after a response ends.
func WithSleepDelay(delay time.Duration) OverlayOption {
	return func(o *Overlay) { o.sleepDelay = delay }
}

func WithConversationOptions(opts ...conversation.SessionOption) OverlayOption {
	return func(o *Overlay) { o.conversationOptions = append(o.conversationOptions, opts...) }
}

type RunOptions struct {
	onConversationChanged func(log conversation.Log, state conversation.State)
	onAvatarChanged       func(avatar Avatar)
	onMicrophoneChanged   func(inUse bool)
	onTranscription       func(transcript string)
	onResponse            func(segment string)
	onResponseEnd         func()
	onError               func(err error)
}

type RunOption func(*RunOptions)

// WithConversationCallback is called with a snapshot after every change to the
// conversation log.
func WithConversationCallback(callback func(log conversation.Log, state conversation.State)) RunOption {
	return func(o *RunOptions) {
		o.onConversationChanged = callback
	}
}

func WithAvatarCallback(callback func(avatar Avatar)) RunOption {
	return func(o *RunOptions) {
		o.onAvatarChanged = callback
	}
}

// WithMicrophoneCallback mirrors the mic-in-use indicator.
func WithMicrophoneCallback(callback func(inUse bool)) RunOption {
	return func(o *RunOptions) {
		o.onMicrophoneChanged = callback
	}
}

// WithTranscriptionCallback receives transcripts of finalized utterances
// before they are submitted.
func WithTranscriptionCallback(callback func(transcript string)) RunOption {
	return func(o *RunOptions) {
		o.onTranscription = callback
	}
}

func WithResponseCallback(callback func(segment string)) RunOption {
	return func(o *RunOptions) {
		o.onResponse = callback
	}
}

func WithResponseEndCallback(callback func()) RunOption {
	return func(o *RunOptions) {
		o.onResponseEnd = callback
	}
}

// WithErrorCallback receives capture, transcription and generation errors.
func WithErrorCallback(callback func(err error)) RunOption {
	return func(o *RunOptions) {
		o.onError = callback
	}
}
