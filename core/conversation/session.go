package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kkkz76/askvox/core/events"
	"github.com/kkkz76/askvox/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultGreeting     = "Hello! How can I assist you today?"
	ErrorMessage        = "Error processing your request."
	DefaultHistoryLimit = 10
)

var (
	ErrEmptyInput               = errors.New("empty input")
	ErrResponseInProgress       = errors.New("a response is already in progress")
	ErrGenerationRequestFailure = errors.New("generation request failed")
	ErrNoGenerator              = errors.New("no generator attached")
	// ErrStaleEvent is returned for events that belong to no active exchange.
	// It is expected during normal operation and never shown to the user.
	ErrStaleEvent = errors.New("stale event")
)

type ChangeHandler func(log Log, state State)

// Session owns the message log and the single outstanding exchange.
//
// All transitions are meant to run on one goroutine. The mutex only protects
// readers such as Snapshot that run elsewhere.
type Session struct {
	mu sync.Mutex

	log        Log
	state      State
	exchangeID string
	tag        string

	generator llms.Generator
	registry  *events.Registry
	dispatch  func(func())

	historyLimit int
	newID        func() string

	onChange  []ChangeHandler
	observers []events.Handler
}

type SessionOption func(*Session)

// WithGreeting seeds the log with an assistant greeting. An empty greeting
// leaves the log empty.
func WithGreeting(greeting string) SessionOption {
	return func(s *Session) {
		s.log.Messages = nil
		if greeting != "" {
			s.log.Messages = []Message{{ID: s.newID(), Role: RoleAssistant, Content: greeting}}
		}
	}
}

// WithDispatcher decides where generator events are handled. The default
// handles them on the emitting goroutine.
func WithDispatcher(dispatch func(func())) SessionOption {
	return func(s *Session) { s.dispatch = dispatch }
}

// WithHistoryLimit caps how many earlier messages go out with a request.
// Zero sends none.
func WithHistoryLimit(limit int) SessionOption {
	return func(s *Session) { s.historyLimit = limit }
}

func WithIDGenerator(newID func() string) SessionOption {
	return func(s *Session) { s.newID = newID }
}

func WithChangeHandler(handler ChangeHandler) SessionOption {
	return func(s *Session) { s.onChange = append(s.onChange, handler) }
}

// WithEventObserver is called with every generation event the session
// accepted, after it was applied. Stale events are not observed.
func WithEventObserver(handler events.Handler) SessionOption {
	return func(s *Session) { s.observers = append(s.observers, handler) }
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		registry:     events.NewRegistry(),
		dispatch:     func(fn func()) { fn() },
		historyLimit: DefaultHistoryLimit,
		newID:        uuid.NewString,
	}
	s.log.Messages = []Message{{ID: s.newID(), Role: RoleAssistant, Content: DefaultGreeting}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach subscribes to every stream event kind of generator, replacing any
// earlier subscription, so each kind has exactly one handler.
func (s *Session) Attach(generator llms.Generator) {
	s.mu.Lock()
	s.generator = generator
	s.mu.Unlock()

	for _, kind := range events.AssistantResponseKinds {
		s.registry.Register(generator, kind, func(event events.Event) {
			s.dispatch(func() {
				if err := s.HandleEvent(event); err != nil {
					return
				}
				for _, observe := range s.observers {
					observe(event)
				}
			})
		})
	}
}

// Close drops every generator subscription.
func (s *Session) Close() {
	s.registry.Clear()
}

// Submit appends the user message and dispatches the request. It is only
// accepted while idle; otherwise [ErrResponseInProgress] is returned and the
// log is left untouched.
func (s *Session) Submit(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "submit text")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		span.SetAttributes(attribute.String("conversation.state", state.String()))
		return ErrResponseInProgress
	}

	tag := s.tag
	if tag == "" {
		tag = ClassifyTag(text)
	}
	exchangeID := s.newID()
	request := llms.Request{
		ExchangeID: exchangeID,
		Text:       text,
		Tag:        tag,
		History:    s.log.History(s.historyLimit),
	}
	s.log.Messages = append(s.log.Messages, Message{
		ID:         s.newID(),
		Role:       RoleUser,
		Content:    text,
		ExchangeID: exchangeID,
		Tag:        tag,
	})
	s.state = StateAwaitingResponse
	s.exchangeID = exchangeID
	generator := s.generator
	s.mu.Unlock()
	s.notify()

	span.SetAttributes(
		attribute.String("exchange.id", exchangeID),
		attribute.String("request.tag", tag),
	)

	var err error
	if generator == nil {
		err = ErrNoGenerator
	} else {
		err = generator.SubmitText(ctx, request)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrGenerationRequestFailure, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.failExchange(exchangeID, err)
		return err
	}

	return nil
}

// HandleEvent applies one generation event. Events for another exchange, or
// arriving while idle, are ignored and reported as [ErrStaleEvent].
func (s *Session) HandleEvent(event events.Event) error {
	exchanged, ok := event.(events.Exchanged)
	if !ok {
		return nil
	}

	s.mu.Lock()
	if s.state == StateIdle || exchanged.Exchange() != s.exchangeID {
		state, current := s.state, s.exchangeID
		s.mu.Unlock()
		logger.Debug("ignoring stale stream event",
			"kind", string(event.Kind()),
			"exchange_id", exchanged.Exchange(),
			"active_exchange_id", current,
			"state", state.String())
		return ErrStaleEvent
	}

	switch event := event.(type) {
	case events.AssistantResponseStarted:
		s.startStreamLocked(event.ExchangeID)

	case events.AssistantResponseSegment:
		// A segment that overtakes its start event still opens the stream.
		s.startStreamLocked(event.ExchangeID)
		s.log = Reduce(s.log, event)

	case events.AssistantResponseFinal:
		s.startStreamLocked(event.ExchangeID)
		if last, ok := s.log.Last(); ok && event.FullText != "" && event.FullText != last.Content {
			logger.Warn("final text differs from streamed segments, keeping segments",
				"exchange_id", event.ExchangeID,
				"streamed_length", len(last.Content),
				"final_length", len(event.FullText))
		}
		s.log = Reduce(s.log, event)
		s.state = StateIdle
		s.exchangeID = ""

	case events.AssistantResponseFailed:
		s.mu.Unlock()
		logger.Warn("response stream failed", "exchange_id", event.ExchangeID, "error", event.Err)
		s.failExchange(event.ExchangeID, event.Err)
		return nil
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Session) startStreamLocked(exchangeID string) {
	if s.state != StateAwaitingResponse {
		return
	}
	s.log = Reduce(s.log, events.NewAssistantResponseStarted(exchangeID))
	s.state = StateStreaming
}

// failExchange keeps any partial text, appends the visible error entry and
// returns to idle. It does nothing if exchangeID is no longer active.
func (s *Session) failExchange(exchangeID string, err error) {
	s.mu.Lock()
	if s.state == StateIdle || s.exchangeID != exchangeID {
		s.mu.Unlock()
		return
	}

	s.log.InProgress = false
	s.log.Messages = append(s.log.Messages, Message{
		ID:         s.newID(),
		Role:       RoleAssistant,
		Content:    ErrorMessage,
		ExchangeID: exchangeID,
		Error:      true,
	})
	s.state = StateIdle
	s.exchangeID = ""
	s.mu.Unlock()

	logger.Error("exchange failed", "exchange_id", exchangeID, "error", err)
	s.notify()
}

// ReportFailure records a failure outside any exchange, such as a microphone
// or transcription error, as one visible entry. While a response streams the
// entry is skipped so the streaming message stays last.
func (s *Session) ReportFailure(err error) bool {
	s.mu.Lock()
	if s.log.InProgress {
		s.mu.Unlock()
		logger.Warn("failure not recorded while a response is streaming", "error", err)
		return false
	}
	s.log.Messages = append(s.log.Messages, Message{
		ID:      s.newID(),
		Role:    RoleAssistant,
		Content: ErrorMessage,
		Error:   true,
	})
	s.mu.Unlock()

	logger.Error("failure reported to conversation", "error", err)
	s.notify()
	return true
}

// SetTag sets a sticky tag used for every submission until cleared with "".
func (s *Session) SetTag(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tag = strings.TrimSpace(tag)
}

func (s *Session) Tag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tag
}

func (s *Session) Snapshot() Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Clone()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) LatestAssistant() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.LatestAssistant()
}

func (s *Session) notify() {
	s.mu.Lock()
	log, state := s.log.Clone(), s.state
	handlers := append([]ChangeHandler(nil), s.onChange...)
	s.mu.Unlock()

	for _, handler := range handlers {
		handler(log, state)
	}
}
