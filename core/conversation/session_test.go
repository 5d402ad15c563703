package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kkkz76/askvox/core/events"
	"github.com/kkkz76/askvox/core/llms"
)

func TestSessionHelloScenario(t *testing.T) {
	generator := &fakeGenerator{}
	session := newTestSession(WithGreeting(""))
	session.Attach(generator)

	if err := session.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	if session.State() != StateAwaitingResponse {
		t.Fatalf("expected awaiting response, got %s", session.State())
	}

	id := generator.lastRequest().ExchangeID
	generator.emit(events.NewAssistantResponseStarted(id))
	if session.State() != StateStreaming {
		t.Fatalf("expected streaming, got %s", session.State())
	}
	generator.emit(events.NewAssistantResponseSegment(id, "Hi"))
	generator.emit(events.NewAssistantResponseSegment(id, " there"))
	generator.emit(events.NewAssistantResponseFinal(id, "Hi there"))

	log := session.Snapshot()
	want := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "Hi there"},
	}
	assertMessages(t, log, want)
	if log.InProgress {
		t.Fatalf("expected no message in progress")
	}
	if session.State() != StateIdle {
		t.Fatalf("expected idle, got %s", session.State())
	}
}

func TestSessionSeedsGreeting(t *testing.T) {
	session := newTestSession()

	latest, ok := session.LatestAssistant()
	if !ok || latest.Content != DefaultGreeting {
		t.Fatalf("expected greeting, got %+v", latest)
	}
}

func TestSessionRejectsSubmitWhileBusy(t *testing.T) {
	generator := &fakeGenerator{}
	session := newTestSession(WithGreeting(""))
	session.Attach(generator)

	if err := session.Submit(context.Background(), "first"); err != nil {
		t.Fatalf("expected first submit to succeed, got %v", err)
	}
	before := session.Snapshot()

	if err := session.Submit(context.Background(), "second"); !errors.Is(err, ErrResponseInProgress) {
		t.Fatalf("expected ErrResponseInProgress, got %v", err)
	}
	if got := len(generator.requests); got != 1 {
		t.Fatalf("expected one dispatched request, got %d", got)
	}
	if after := session.Snapshot(); after.Len() != before.Len() {
		t.Fatalf("expected rejected submit not to touch the log")
	}
}

func TestSessionRejectsEmptyInput(t *testing.T) {
	session := newTestSession()
	session.Attach(&fakeGenerator{})

	if err := session.Submit(context.Background(), "   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if session.State() != StateIdle {
		t.Fatalf("expected idle, got %s", session.State())
	}
}

func TestSessionIgnoresStaleEvents(t *testing.T) {
	generator := &fakeGenerator{}
	session := newTestSession(WithGreeting(""))
	session.Attach(generator)

	if err := session.HandleEvent(events.NewAssistantResponseSegment("nobody", "x")); !errors.Is(err, ErrStaleEvent) {
		t.Fatalf("expected idle event to be stale, got %v", err)
	}

	_ = session.Submit(context.Background(), "hello")
	id := generator.lastRequest().ExchangeID
	generator.emit(events.NewAssistantResponseStarted(id))

	if err := session.HandleEvent(events.NewAssistantResponseSegment("old", "stale")); !errors.Is(err, ErrStaleEvent) {
		t.Fatalf("expected other exchange to be stale, got %v", err)
	}
	generator.emit(events.NewAssistantResponseSegment(id, "fresh"))

	latest, _ := session.LatestAssistant()
	if latest.Content != "fresh" {
		t.Fatalf("expected only the fresh segment, got %q", latest.Content)
	}
}

func TestSessionSegmentBeforeStartOpensStream(t *testing.T) {
	generator := &fakeGenerator{}
	session := newTestSession(WithGreeting(""))
	session.Attach(generator)

	_ = session.Submit(context.Background(), "hello")
	id := generator.lastRequest().ExchangeID
	generator.emit(events.NewAssistantResponseSegment(id, "Hi"))
	generator.emit(events.NewAssistantResponseStarted(id))
	generator.emit(events.NewAssistantResponseSegment(id, "!"))
	generator.emit(events.NewAssistantResponseFinal(id, ""))

	assertMessages(t, session.Snapshot(), []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "Hi!"},
	})
}

func TestSessionKeepsPartialTextOnStreamFailure(t *testing.T) {
	generator := &fakeGenerator{}
	session := newTestSession(WithGreeting(""))
	session.Attach(generator)

	_ = session.Submit(context.Background(), "hello")
	id := generator.lastRequest().ExchangeID
	generator.emit(events.NewAssistantResponseStarted(id))
	generator.emit(events.NewAssistantResponseSegment(id, "Partial"))
	generator.emit(events.NewAssistantResponseFailed(id, errors.New("reset")))

	log := session.Snapshot()
	assertMessages(t, log, []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "Partial"},
		{Role: RoleAssistant, Content: ErrorMessage},
	})
	if last, _ := log.Last(); !last.Error {
		t.Fatalf("expected error entry to be flagged")
	}
	if log.InProgress || session.State() != StateIdle {
		t.Fatalf("expected idle with nothing in progress")
	}

	if err := session.Submit(context.Background(), "again"); err != nil {
		t.Fatalf("expected session to accept new input after failure, got %v", err)
	}
}

func TestSessionDispatchFailureAppendsError(t *testing.T) {
	generator := &fakeGenerator{submitErr: errors.New("offline")}
	session := newTestSession(WithGreeting(""))
	session.Attach(generator)

	err := session.Submit(context.Background(), "hello")
	if !errors.Is(err, ErrGenerationRequestFailure) {
		t.Fatalf("expected ErrGenerationRequestFailure, got %v", err)
	}

	assertMessages(t, session.Snapshot(), []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: ErrorMessage},
	})
	if session.State() != StateIdle {
		t.Fatalf("expected idle, got %s", session.State())
	}
}

func TestSessionWithoutGeneratorFails(t *testing.T) {
	session := newTestSession(WithGreeting(""))

	if err := session.Submit(context.Background(), "hello"); !errors.Is(err, ErrNoGenerator) {
		t.Fatalf("expected ErrNoGenerator, got %v", err)
	}
}

func TestSessionForwardsTagsAndHistory(t *testing.T) {
	generator := &fakeGenerator{}
	session := newTestSession(WithHistoryLimit(1))
	session.Attach(generator)

	_ = session.Submit(context.Background(), "find the latest news")
	request := generator.lastRequest()
	if request.Tag != TagWebSearch {
		t.Fatalf("expected keyword tag %q, got %q", TagWebSearch, request.Tag)
	}
	if len(request.History) != 1 || request.History[0].Content != DefaultGreeting {
		t.Fatalf("expected greeting as history, got %+v", request.History)
	}
	generator.emit(events.NewAssistantResponseFinal(request.ExchangeID, ""))

	session.SetTag(TagVideo)
	_ = session.Submit(context.Background(), "cats")
	if got := generator.lastRequest().Tag; got != TagVideo {
		t.Fatalf("expected sticky tag %q, got %q", TagVideo, got)
	}
	if got := generator.lastRequest().Prompt(); got != "cats show me a video" {
		t.Fatalf("expected tagged prompt, got %q", got)
	}

	log := session.Snapshot()
	if last, _ := log.Last(); last.Content != "cats" || last.Tag != TagVideo {
		t.Fatalf("expected raw text with tag metadata in the log, got %+v", last)
	}
}

func TestSessionAttachReplacesSubscriptions(t *testing.T) {
	first := &fakeGenerator{}
	second := &fakeGenerator{}
	session := newTestSession()

	session.Attach(first)
	session.Attach(first)
	for _, kind := range events.AssistantResponseKinds {
		if got := first.ListenerCount(kind); got != 1 {
			t.Fatalf("expected one listener for %s, got %d", kind, got)
		}
	}

	session.Attach(second)
	for _, kind := range events.AssistantResponseKinds {
		if got := first.ListenerCount(kind); got != 0 {
			t.Fatalf("expected old generator to be unsubscribed from %s, got %d", kind, got)
		}
	}

	session.Close()
	for _, kind := range events.AssistantResponseKinds {
		if got := second.ListenerCount(kind); got != 0 {
			t.Fatalf("expected close to unsubscribe %s, got %d", kind, got)
		}
	}
}

func TestSessionDispatcherReceivesGeneratorEvents(t *testing.T) {
	var queued []func()
	generator := &fakeGenerator{}
	session := newTestSession(WithGreeting(""), WithDispatcher(func(fn func()) { queued = append(queued, fn) }))
	session.Attach(generator)

	_ = session.Submit(context.Background(), "hello")
	generator.emit(events.NewAssistantResponseStarted(generator.lastRequest().ExchangeID))

	if session.State() != StateAwaitingResponse {
		t.Fatalf("expected event to wait for the dispatcher, got %s", session.State())
	}
	for _, fn := range queued {
		fn()
	}
	if session.State() != StateStreaming {
		t.Fatalf("expected dispatched event to start the stream, got %s", session.State())
	}
}

func TestSessionObserversSkipStaleEvents(t *testing.T) {
	var observed []events.Kind
	generator := &fakeGenerator{}
	session := newTestSession(WithGreeting(""), WithEventObserver(func(event events.Event) {
		observed = append(observed, event.Kind())
	}))
	session.Attach(generator)

	generator.emit(events.NewAssistantResponseSegment("nobody", "x"))
	_ = session.Submit(context.Background(), "hello")
	id := generator.lastRequest().ExchangeID
	generator.emit(events.NewAssistantResponseSegment(id, "Hi"))
	generator.emit(events.NewAssistantResponseFinal(id, "Hi"))
	generator.emit(events.NewAssistantResponseSegment(id, "late"))

	want := []events.Kind{events.KindAssistantResponseSegment, events.KindAssistantResponseFinal}
	if len(observed) != len(want) {
		t.Fatalf("expected observed kinds %v, got %v", want, observed)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Fatalf("expected observed kinds %v, got %v", want, observed)
		}
	}
}

func TestSessionReportFailure(t *testing.T) {
	generator := &fakeGenerator{}
	session := newTestSession(WithGreeting(""))
	session.Attach(generator)

	if !session.ReportFailure(errors.New("mic denied")) {
		t.Fatalf("expected failure to be recorded while idle")
	}

	_ = session.Submit(context.Background(), "hello")
	generator.emit(events.NewAssistantResponseStarted(generator.lastRequest().ExchangeID))
	if session.ReportFailure(errors.New("late")) {
		t.Fatalf("expected failure not to be recorded mid-stream")
	}

	log := session.Snapshot()
	if log.Messages[0].Content != ErrorMessage || !log.Messages[0].Error {
		t.Fatalf("expected visible error entry, got %+v", log.Messages[0])
	}
	if !log.InProgress {
		t.Fatalf("expected streaming message to remain last and in progress")
	}
}

func TestSessionNotifiesChanges(t *testing.T) {
	var states []State
	generator := &fakeGenerator{}
	session := newTestSession(WithGreeting(""), WithChangeHandler(func(_ Log, state State) {
		states = append(states, state)
	}))
	session.Attach(generator)

	_ = session.Submit(context.Background(), "hello")
	id := generator.lastRequest().ExchangeID
	generator.emit(events.NewAssistantResponseStarted(id))
	generator.emit(events.NewAssistantResponseFinal(id, ""))

	want := []State{StateAwaitingResponse, StateStreaming, StateIdle}
	if len(states) != len(want) {
		t.Fatalf("expected states %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("expected states %v, got %v", want, states)
		}
	}
}

func newTestSession(opts ...SessionOption) *Session {
	next := 0
	ids := WithIDGenerator(func() string {
		next++
		return fmt.Sprintf("id-%d", next)
	})
	return NewSession(append([]SessionOption{ids}, opts...)...)
}

type fakeGenerator struct {
	events.Emitter

	requests  []llms.Request
	submitErr error
}

func (g *fakeGenerator) SubmitText(_ context.Context, request llms.Request) error {
	if g.submitErr != nil {
		return g.submitErr
	}
	g.requests = append(g.requests, request)
	return nil
}

func (g *fakeGenerator) lastRequest() llms.Request {
	if len(g.requests) == 0 {
		return llms.Request{}
	}
	return g.requests[len(g.requests)-1]
}

func (g *fakeGenerator) emit(event events.Event) { g.Emit(event) }

func assertMessages(t *testing.T, log Log, want []Message) {
	t.Helper()
	if len(log.Messages) != len(want) {
		t.Fatalf("expected %d messages, got %+v", len(want), log.Messages)
	}
	for i, msg := range want {
		got := log.Messages[i]
		if got.Role != msg.Role || got.Content != msg.Content {
			t.Fatalf("expected message %d to be %s %q, got %s %q", i, msg.Role, msg.Content, got.Role, got.Content)
		}
	}
}
