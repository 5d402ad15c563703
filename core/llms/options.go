package llms

import (
	"context"
	"strings"

	"github.com/kkkz76/askvox/core/events"
)

// Request is one outbound submission. Tag is routing metadata the service
// receives appended to the text; it is never parsed here.
type Request struct {
	ExchangeID string
	Text       string
	Tag        string
	History    []Message
}

// Prompt is the text actually sent to the service.
func (r Request) Prompt() string {
	tag := strings.TrimSpace(r.Tag)
	if tag == "" {
		return r.Text
	}
	return r.Text + " " + tag
}

// Generator is an external generation service. SubmitText returns once the
// request is dispatched; the response arrives as assistant_response events
// carrying the request's ExchangeID.
type Generator interface {
	SubmitText(ctx context.Context, request Request) error
	Listen(kind events.Kind, handler events.Handler) (unsubscribe func())
}

// StreamingLLM is a model client that answers with a chunk stream.
type StreamingLLM interface {
	PromptWithStream(ctx context.Context, request Request) Stream
}

type StreamingLLMFunc func(ctx context.Context, request Request) Stream

func (f StreamingLLMFunc) PromptWithStream(ctx context.Context, request Request) Stream {
	return f(ctx, request)
}
