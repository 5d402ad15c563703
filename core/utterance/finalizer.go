// Package utterance turns a finished capture session into text.
package utterance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kkkz76/askvox/core/audio"
	"github.com/kkkz76/askvox/core/capture"
	"github.com/kkkz76/askvox/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrEncodingFailure      = errors.New("failed to encode utterance")
	ErrTranscriptionFailure = errors.New("failed to transcribe utterance")
)

type DiscardReason string

const (
	DiscardSilent          DiscardReason = "silent"
	DiscardEmptyTranscript DiscardReason = "empty_transcript"
)

// Outcome is the result of finalizing one recording. A discarded outcome is
// normal and carries no transcript.
type Outcome struct {
	Generation    uint64
	Discarded     bool
	DiscardReason DiscardReason
	Transcript    string
}

type Finalizer struct {
	transcriber speechtotext.Transcriber
	encode      func(audio.EncodingInfo, [][]byte) (audio.Blob, error)
}

type Option func(*Finalizer)

// WithEncoder replaces the WAV container encoder.
func WithEncoder(encode func(audio.EncodingInfo, [][]byte) (audio.Blob, error)) Option {
	return func(f *Finalizer) { f.encode = encode }
}

func NewFinalizer(transcriber speechtotext.Transcriber, opts ...Option) *Finalizer {
	f := &Finalizer{
		transcriber: transcriber,
		encode:      audio.EncodeWAV,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize discards recordings without a voiced tick. Otherwise the frames
// are packaged and handed to the transcriber. The recording is never retried.
func (f *Finalizer) Finalize(ctx context.Context, recording capture.Recording) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "finalize utterance")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("capture.generation", int64(recording.Generation)),
		attribute.String("capture.stop_reason", string(recording.Reason)),
		attribute.Bool("capture.voiced", recording.VoicedObserved),
		attribute.Int("capture.bytes", recording.Bytes()),
	)

	outcome := Outcome{Generation: recording.Generation}
	if !recording.VoicedObserved {
		outcome.Discarded = true
		outcome.DiscardReason = DiscardSilent
		return outcome, nil
	}

	blob, err := f.encode(recording.Encoding, recording.Frames)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrEncodingFailure, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "dropping utterance", "generation", recording.Generation, "error", err)
		return outcome, err
	}

	if f.transcriber == nil {
		err := fmt.Errorf("%w: no transcriber configured", ErrTranscriptionFailure)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return outcome, err
	}

	transcript, err := f.transcriber.TranscribeAudio(ctx, blob)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrTranscriptionFailure, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return outcome, err
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		outcome.Discarded = true
		outcome.DiscardReason = DiscardEmptyTranscript
		logger.DebugContext(ctx, "transcript empty, discarding utterance", "generation", recording.Generation)
		return outcome, nil
	}

	outcome.Transcript = transcript
	return outcome, nil
}
