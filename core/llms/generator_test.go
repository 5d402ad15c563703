package llms

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kkkz76/askvox/core/events"
)

func TestGeneratorRelaysStreamAsEvents(t *testing.T) {
	var gotRequest Request
	generator := NewGenerator(StreamingLLMFunc(func(_ context.Context, request Request) Stream {
		gotRequest = request
		return chunkStream(contentChunk("Hi"), usageChunk{}, contentChunk(""), contentChunk(" there"))
	}))
	recorder := recordEvents(generator)

	err := generator.SubmitText(context.Background(), Request{ExchangeID: "ex-1", Text: "hello", Tag: "websearch"})
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	generator.Wait()

	if gotRequest.Prompt() != "hello websearch" {
		t.Fatalf("expected tagged prompt, got %q", gotRequest.Prompt())
	}

	got := recorder.snapshot()
	want := []string{
		"assistant_response.started:ex-1",
		"assistant_response.segment:ex-1:Hi",
		"assistant_response.segment:ex-1: there",
		"assistant_response.final:ex-1:Hi there",
	}
	assertEventLog(t, got, want)
}

func TestGeneratorEmitsStartedAndFinalForEmptyStream(t *testing.T) {
	generator := NewGenerator(StreamingLLMFunc(func(context.Context, Request) Stream {
		return chunkStream()
	}))
	recorder := recordEvents(generator)

	if err := generator.SubmitText(context.Background(), Request{ExchangeID: "ex-2"}); err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	generator.Wait()

	assertEventLog(t, recorder.snapshot(), []string{
		"assistant_response.started:ex-2",
		"assistant_response.final:ex-2:",
	})
}

func TestGeneratorEmitsFailureMidStream(t *testing.T) {
	upstream := errors.New("connection reset")
	generator := NewGenerator(StreamingLLMFunc(func(context.Context, Request) Stream {
		return StreamFunc(func(context.Context) func(func(StreamChunk, error) bool) {
			return func(yield func(StreamChunk, error) bool) {
				if !yield(contentChunk("partial"), nil) {
					return
				}
				yield(nil, upstream)
			}
		})
	}))
	recorder := recordEvents(generator)

	if err := generator.SubmitText(context.Background(), Request{ExchangeID: "ex-3"}); err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	generator.Wait()

	assertEventLog(t, recorder.snapshot(), []string{
		"assistant_response.started:ex-3",
		"assistant_response.segment:ex-3:partial",
		"assistant_response.failed:ex-3",
	})
	if !errors.Is(recorder.lastErr(), upstream) {
		t.Fatalf("expected failure to carry upstream error, got %v", recorder.lastErr())
	}
}

func TestGeneratorRecoversFromPanickingStream(t *testing.T) {
	generator := NewGenerator(StreamingLLMFunc(func(context.Context, Request) Stream {
		return StreamFunc(func(context.Context) func(func(StreamChunk, error) bool) {
			return func(func(StreamChunk, error) bool) { panic("boom") }
		})
	}))
	recorder := recordEvents(generator)

	if err := generator.SubmitText(context.Background(), Request{ExchangeID: "ex-4"}); err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	generator.Wait()

	assertEventLog(t, recorder.snapshot(), []string{"assistant_response.failed:ex-4"})
}

func TestGeneratorRejectsInvalidSubmissions(t *testing.T) {
	if err := NewGenerator(nil).SubmitText(context.Background(), Request{ExchangeID: "x"}); !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel, got %v", err)
	}

	generator := NewGenerator(StreamingLLMFunc(func(context.Context, Request) Stream { return nil }))
	if err := generator.SubmitText(context.Background(), Request{}); !errors.Is(err, ErrMissingExchangeID) {
		t.Fatalf("expected ErrMissingExchangeID, got %v", err)
	}
	if err := generator.SubmitText(context.Background(), Request{ExchangeID: "x"}); !errors.Is(err, ErrNoStream) {
		t.Fatalf("expected ErrNoStream, got %v", err)
	}
}

func TestRequestPromptWithoutTag(t *testing.T) {
	if got := (Request{Text: "hello", Tag: "  "}).Prompt(); got != "hello" {
		t.Fatalf("expected untagged prompt, got %q", got)
	}
}

type contentChunk string

func (c contentChunk) FinishReason() *string { return nil }
func (c contentChunk) Content() string       { return string(c) }

type usageChunk struct{}

func (usageChunk) FinishReason() *string { return nil }
func (usageChunk) Usage() Usage          { return Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5} }

func chunkStream(chunks ...StreamChunk) Stream {
	return StreamFunc(func(context.Context) func(func(StreamChunk, error) bool) {
		return func(yield func(StreamChunk, error) bool) {
			for _, chunk := range chunks {
				if !yield(chunk, nil) {
					return
				}
			}
		}
	})
}

type eventRecorder struct {
	mu     sync.Mutex
	log    []string
	failed error
}

func recordEvents(generator *StreamGenerator) *eventRecorder {
	recorder := &eventRecorder{}
	for _, kind := range events.AssistantResponseKinds {
		generator.Listen(kind, recorder.record)
	}
	return recorder
}

func (r *eventRecorder) record(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := string(event.Kind())
	switch event := event.(type) {
	case events.AssistantResponseStarted:
		entry += ":" + event.ExchangeID
	case events.AssistantResponseSegment:
		entry += ":" + event.ExchangeID + ":" + event.Segment
	case events.AssistantResponseFinal:
		entry += ":" + event.ExchangeID + ":" + event.FullText
	case events.AssistantResponseFailed:
		entry += ":" + event.ExchangeID
		r.failed = event.Err
	}
	r.log = append(r.log, entry)
}

func (r *eventRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

func (r *eventRecorder) lastErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

func assertEventLog(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected events %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %q, got %q", want, got)
		}
	}
}
