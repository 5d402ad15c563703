package overlay

import "github.com/kkkz76/askvox/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts RunOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.UserCaptureFailed:
			if opts.onError != nil {
				opts.onError(typedEvent.Err)
			}
		case events.UserTranscriptFinal:
			if opts.onTranscription != nil {
				opts.onTranscription(typedEvent.Transcript)
			}
		case events.AssistantResponseSegment:
			if opts.onResponse != nil {
				opts.onResponse(typedEvent.Segment)
			}
		case events.AssistantResponseFinal:
			if opts.onResponseEnd != nil {
				opts.onResponseEnd()
			}
		case events.AssistantResponseFailed:
			if opts.onError != nil {
				opts.onError(typedEvent.Err)
			}
		case events.AvatarUpdated:
			if opts.onAvatarChanged != nil {
				opts.onAvatarChanged(Avatar{
					Awake:    typedEvent.Awake,
					Thinking: typedEvent.Thinking,
					Visible:  typedEvent.Visible,
				})
			}
		}
	}
}
