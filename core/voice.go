package overlay

import (
	"context"
	"errors"
	"time"

	"github.com/kkkz76/askvox/core/audio"
	"github.com/kkkz76/askvox/core/capture"
	"github.com/kkkz76/askvox/core/conversation"
	"github.com/kkkz76/askvox/core/events"
	"github.com/kkkz76/askvox/core/utterance"
	"github.com/kkkz76/askvox/core/vad"
)

// startCapture replaces the active session, if any, with a fresh one and
// attaches a new detector to it. The replaced recording is discarded.
func (o *Overlay) startCapture() error {
	o.stopCapture(capture.StopReasonSuperseded)

	session, err := o.capture.Start(o.ctx, o.onFrame)
	if err != nil {
		o.publish(events.NewUserCaptureFailed(err))
		o.conversation.ReportFailure(err)
		return err
	}

	o.session = session
	o.detector = vad.NewDetector(o.loopScheduler("utterance timer"), func(end vad.End) {
		o.onUtteranceEnd(session, end)
	}, o.vadOptions...)
	o.detector.Start()

	o.publish(events.NewUserCaptureStarted(session.Generation))
	return nil
}

// onFrame runs on the device goroutine and must not block. A tick that does
// not fit the queue is dropped; the frame itself is already buffered and a
// voiced frame still marks the session.
func (o *Overlay) onFrame(session *capture.Session, frame []byte) {
	at := time.Now()
	volume := vad.Volume(audio.Int16Samples(frame))
	if o.voice.IsVoiced(volume) {
		session.MarkVoiced()
	}
	if !o.runtime.tryPost("capture tick", func() { o.onTick(session, at, volume) }) {
		logger.Debug("capture tick dropped", "generation", session.Generation)
	}
}

func (o *Overlay) onTick(session *capture.Session, at time.Time, volume float64) {
	if o.session != session || o.detector == nil {
		return
	}

	firstVoiced := !o.detector.VoicedObserved()
	if o.detector.Observe(at, volume) != vad.Voiced {
		return
	}
	if firstVoiced {
		o.publish(events.NewUserSpeechStarted(session.Generation))
	}
}

func (o *Overlay) onUtteranceEnd(session *capture.Session, end vad.End) {
	if o.session != session {
		return
	}

	reason := capture.StopReasonEndOfUtterance
	if end.Reason == vad.EndNoSpeech {
		reason = capture.StopReasonNoSpeech
	}
	o.stopCapture(reason)
}

// stopCapture ends the active session. Explicit stops and detected ends are
// finalized; every other reason discards the recording.
func (o *Overlay) stopCapture(reason capture.StopReason) {
	session := o.session
	if session == nil {
		return
	}
	o.session = nil
	if o.detector != nil {
		o.detector.Stop()
		o.detector = nil
	}

	recording, err := o.capture.Stop(session, reason)
	if errors.Is(err, capture.ErrSessionClosed) {
		return
	}
	if err != nil {
		logger.Warn("capture did not stop cleanly", "generation", session.Generation, "error", err)
	}
	o.publish(events.NewUserSpeechEnded(session.Generation, string(reason)))

	switch reason {
	case capture.StopReasonExplicit, capture.StopReasonEndOfUtterance:
		o.finalize(recording)
	default:
		o.publish(events.NewUserUtteranceDiscarded(session.Generation, string(reason)))
	}
}

// finalize transcribes off the loop and posts the outcome back.
func (o *Overlay) finalize(recording capture.Recording) {
	run := panicSafeNamedWorker("finalize utterance", func(ctx context.Context) error {
		outcome, err := o.finalizer.Finalize(ctx, recording)
		o.runtime.post("utterance finalized", func() { o.onFinalized(outcome, err) })
		return nil
	})

	o.workers.Add(1)
	go func() {
		defer o.workers.Done()
		if err := run(o.ctx); err != nil {
			logger.Error("utterance finalization failed", "generation", recording.Generation, "error", err)
		}
	}()
}

func (o *Overlay) onFinalized(outcome utterance.Outcome, err error) {
	if err != nil {
		o.reportFailure(err)
		return
	}
	if outcome.Discarded {
		o.publish(events.NewUserUtteranceDiscarded(outcome.Generation, string(outcome.DiscardReason)))
		return
	}

	o.publish(events.NewUserTranscriptFinal(outcome.Generation, outcome.Transcript))
	if err := o.conversation.Submit(o.ctx, outcome.Transcript); err != nil {
		if errors.Is(err, conversation.ErrResponseInProgress) {
			logger.Warn("transcript dropped while a response is outstanding", "generation", outcome.Generation)
			return
		}
		logger.Error("transcript submission failed", "generation", outcome.Generation, "error", err)
	}
}
