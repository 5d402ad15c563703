package events

const (
	// KindUserCaptureStarted identifies an opened microphone session.
	KindUserCaptureStarted Kind = "user_input.capture_started"
	// KindUserCaptureFailed identifies a microphone failure.
	KindUserCaptureFailed Kind = "user_input.capture_failed"
	// KindUserSpeechStarted identifies start of user speech activity.
	KindUserSpeechStarted Kind = "user_input.speech_started"
	// KindUserSpeechEnded identifies end of a capture session.
	KindUserSpeechEnded Kind = "user_input.speech_ended"
	// KindUserUtteranceDiscarded identifies a session that produced no request.
	KindUserUtteranceDiscarded Kind = "user_input.utterance_discarded"
	// KindUserTranscriptFinal identifies the final transcript for the utterance.
	KindUserTranscriptFinal Kind = "user_input.transcript_final"
)

// UserCaptureStarted marks an opened microphone session.
type UserCaptureStarted struct {
	Base
	Generation uint64
}

// NewUserCaptureStarted creates a capture started event.
func NewUserCaptureStarted(generation uint64) UserCaptureStarted {
	return UserCaptureStarted{Base: NewBase(KindUserCaptureStarted), Generation: generation}
}

func (e UserCaptureStarted) CaptureGeneration() uint64 { return e.Generation }

// UserCaptureFailed carries a microphone error.
type UserCaptureFailed struct {
	Base
	Err error
}

// NewUserCaptureFailed creates a capture failed event.
func NewUserCaptureFailed(err error) UserCaptureFailed {
	return UserCaptureFailed{Base: NewBase(KindUserCaptureFailed), Err: err}
}

// UserSpeechStarted marks the first voiced tick of a session.
type UserSpeechStarted struct {
	Base
	Generation uint64
}

// NewUserSpeechStarted creates a user speech started event.
func NewUserSpeechStarted(generation uint64) UserSpeechStarted {
	return UserSpeechStarted{Base: NewBase(KindUserSpeechStarted), Generation: generation}
}

func (e UserSpeechStarted) CaptureGeneration() uint64 { return e.Generation }

// UserSpeechEnded marks a stopped capture session.
type UserSpeechEnded struct {
	Base
	Generation uint64
	Reason     string
}

// NewUserSpeechEnded creates a user speech ended event.
func NewUserSpeechEnded(generation uint64, reason string) UserSpeechEnded {
	return UserSpeechEnded{Base: NewBase(KindUserSpeechEnded), Generation: generation, Reason: reason}
}

func (e UserSpeechEnded) CaptureGeneration() uint64 { return e.Generation }

// UserUtteranceDiscarded marks a session that was dropped without a request.
type UserUtteranceDiscarded struct {
	Base
	Generation uint64
	Reason     string
}

// NewUserUtteranceDiscarded creates an utterance discarded event.
func NewUserUtteranceDiscarded(generation uint64, reason string) UserUtteranceDiscarded {
	return UserUtteranceDiscarded{Base: NewBase(KindUserUtteranceDiscarded), Generation: generation, Reason: reason}
}

func (e UserUtteranceDiscarded) CaptureGeneration() uint64 { return e.Generation }

// UserTranscriptFinal carries the transcript of a finalized utterance.
type UserTranscriptFinal struct {
	Base
	Generation uint64
	Transcript string
}

// NewUserTranscriptFinal creates a user transcript final event.
func NewUserTranscriptFinal(generation uint64, transcript string) UserTranscriptFinal {
	return UserTranscriptFinal{Base: NewBase(KindUserTranscriptFinal), Generation: generation, Transcript: transcript}
}

func (e UserTranscriptFinal) CaptureGeneration() uint64 { return e.Generation }
