package llms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kkkz76/askvox/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrNoModel           = errors.New("no language model configured")
	ErrMissingExchangeID = errors.New("request has no exchange id")
	ErrNoStream          = errors.New("language model returned no stream")
)

// StreamGenerator turns a [StreamingLLM] into a [Generator]. Every submission
// is relayed on its own goroutine: started once the first chunk (or the end)
// arrives, one segment per non-empty content chunk, then final or failed.
type StreamGenerator struct {
	llm     StreamingLLM
	emitter events.Emitter
	wg      sync.WaitGroup
}

func NewGenerator(llm StreamingLLM) *StreamGenerator {
	return &StreamGenerator{llm: llm}
}

func (g *StreamGenerator) Listen(kind events.Kind, handler events.Handler) func() {
	return g.emitter.Listen(kind, handler)
}

func (g *StreamGenerator) SubmitText(ctx context.Context, request Request) error {
	if g == nil || g.llm == nil {
		return ErrNoModel
	}
	if request.ExchangeID == "" {
		return ErrMissingExchangeID
	}

	stream := g.llm.PromptWithStream(ctx, request)
	if stream == nil {
		return ErrNoStream
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.relay(ctx, request.ExchangeID, stream)
	}()
	return nil
}

// Wait blocks until every relayed stream has finished.
func (g *StreamGenerator) Wait() {
	if g == nil {
		return
	}
	g.wg.Wait()
}

func (g *StreamGenerator) relay(ctx context.Context, exchangeID string, stream Stream) {
	ctx, span := tracer.Start(ctx, "relay response stream")
	defer span.End()
	span.SetAttributes(attribute.String("exchange.id", exchangeID))

	fail := func(err error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.emitter.Emit(events.NewAssistantResponseFailed(exchangeID, err))
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			fail(fmt.Errorf("response stream panicked: %v", recovered))
		}
	}()

	started := false
	start := func() {
		if !started {
			started = true
			g.emitter.Emit(events.NewAssistantResponseStarted(exchangeID))
		}
	}

	var full strings.Builder
	segments := 0
	for chunk, err := range stream.Chunks(ctx) {
		if err != nil {
			fail(err)
			return
		}

		start()
		switch chunk := chunk.(type) {
		case StreamContentChunk:
			content := chunk.Content()
			if content == "" {
				continue
			}
			full.WriteString(content)
			segments++
			g.emitter.Emit(events.NewAssistantResponseSegment(exchangeID, content))
		case StreamUsageChunk:
			usage := chunk.Usage()
			span.SetAttributes(
				attribute.Int("usage.input", usage.InputTokens),
				attribute.Int("usage.output", usage.OutputTokens),
				attribute.Int("usage.total", usage.TotalTokens),
			)
		}
	}

	if err := ctx.Err(); err != nil {
		fail(fmt.Errorf("response stream interrupted: %w", err))
		return
	}

	start()
	span.SetAttributes(attribute.Int("response.segments", segments))
	logger.DebugContext(ctx, "response stream finished", "exchange_id", exchangeID, "segments", segments)
	g.emitter.Emit(events.NewAssistantResponseFinal(exchangeID, full.String()))
}
