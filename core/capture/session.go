package capture

import (
	"sync"
	"time"

	"github.com/kkkz76/askvox/core/audio"
)

type StopReason string

const (
	StopReasonExplicit       StopReason = "explicit"
	StopReasonEndOfUtterance StopReason = "end_of_utterance"
	StopReasonNoSpeech       StopReason = "no_speech"
	StopReasonSuperseded     StopReason = "superseded"
	StopReasonCancelled      StopReason = "cancelled"
)

// Session is one microphone recording. It is created by [Capture.Start] and
// becomes inert once stopped; late frames are dropped.
type Session struct {
	// Generation increases with every started session and is used to detect
	// callbacks that outlived their session.
	Generation uint64
	StartedAt  time.Time
	Encoding   audio.EncodingInfo

	mu     sync.Mutex
	frames [][]byte
	voiced bool
	closed bool
}

func newSession(generation uint64, encoding audio.EncodingInfo) *Session {
	return &Session{
		Generation: generation,
		StartedAt:  time.Now(),
		Encoding:   encoding,
	}
}

// MarkVoiced records that at least one voiced tick was observed.
func (s *Session) MarkVoiced() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.voiced = true
	}
}

func (s *Session) VoicedObserved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiced
}

func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// buffer stores a copy of frame, reporting false when the session is closed.
func (s *Session) buffer(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	s.frames = append(s.frames, append([]byte(nil), frame...))
	return true
}

// close hands the buffered frames over to the caller exactly once.
func (s *Session) close() (frames [][]byte, voiced bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, false
	}

	s.closed = true
	frames, s.frames = s.frames, nil
	return frames, s.voiced, true
}

// Recording is the immutable result of a stopped session.
type Recording struct {
	Generation     uint64
	Frames         [][]byte
	VoicedObserved bool
	Encoding       audio.EncodingInfo
	Reason         StopReason
	Duration       time.Duration
}

func (r Recording) Bytes() int {
	total := 0
	for _, frame := range r.Frames {
		total += len(frame)
	}
	return total
}
