// Package overlay wires microphone capture, end-of-utterance detection,
// transcription and the conversation session into one always-listening
// assistant.
//
// Every state transition runs on a single run loop. Device ticks, timer
// firings, generation events and calls from the front-end are posted onto it,
// so no two transitions ever run concurrently.
package overlay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kkkz76/askvox/core/capture"
	"github.com/kkkz76/askvox/core/conversation"
	"github.com/kkkz76/askvox/core/events"
	"github.com/kkkz76/askvox/core/llms"
	"github.com/kkkz76/askvox/core/speechtotext"
	"github.com/kkkz76/askvox/core/utterance"
	"github.com/kkkz76/askvox/core/vad"
)

var (
	ErrNotRunning     = errors.New("overlay is not running")
	ErrAlreadyRunning = errors.New("overlay is already running")
)

type Overlay struct {
	device              capture.Device
	transcriber         speechtotext.Transcriber
	generator           llms.Generator
	vadOptions          []vad.Option
	voice               vad.Config
	scheduler           vad.Scheduler
	sleepDelay          time.Duration
	conversationOptions []conversation.SessionOption

	runtime      *runtime
	capture      *capture.Capture
	finalizer    *utterance.Finalizer
	conversation *conversation.Session
	emitter      events.Emitter

	// ctx bounds transcription and generation requests. It ends on Close.
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup

	running   atomic.Bool
	closeOnce sync.Once

	runOptions    RunOptions
	emitCallbacks eventEmitter

	// Owned by the run loop.
	session   *capture.Session
	detector  *vad.Detector
	sleep     sleepTimer
	lastState conversation.State

	avatarMu sync.RWMutex
	avatar   Avatar
}

func New(opts ...OverlayOption) *Overlay {
	o := &Overlay{
		scheduler:     vad.WallClock,
		sleepDelay:    DefaultSleepDelay,
		runtime:       newRuntime(),
		emitCallbacks: noopEventEmitter,
		avatar:        Avatar{Awake: true},
	}
	for _, opt := range opts {
		opt(o)
	}

	o.voice = vad.NewConfig(o.vadOptions...)
	o.ctx, o.cancel = context.WithCancel(context.Background())
	o.capture = capture.New(o.device, capture.WithStateChangeCallback(o.onMicrophoneChanged))
	o.finalizer = utterance.NewFinalizer(o.transcriber)

	sessionOptions := append([]conversation.SessionOption{
		conversation.WithDispatcher(func(fn func()) { o.runtime.post("generation event", fn) }),
		conversation.WithEventObserver(o.publish),
		conversation.WithChangeHandler(o.onConversationChanged),
	}, o.conversationOptions...)
	o.conversation = conversation.NewSession(sessionOptions...)
	if o.generator != nil {
		o.conversation.Attach(o.generator)
	}

	return o
}

// Run starts the run loop and blocks until ctx is done or the overlay is
// closed. Callbacks passed here are invoked on the run loop.
func (o *Overlay) Run(ctx context.Context, opts ...RunOption) error {
	if o.runtime.isClosed() {
		return ErrClosed
	}
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	runOptions := RunOptions{}
	for _, opt := range opts {
		opt(&runOptions)
	}
	o.runOptions = runOptions
	o.emitCallbacks = newCallbackEventEmitter(runOptions)

	if !o.runtime.start(ctx) {
		return ErrClosed
	}
	o.runtime.post("initial state", func() {
		o.publishAvatar()
		o.onConversationChanged(o.conversation.Snapshot(), o.conversation.State())
	})

	select {
	case <-ctx.Done():
	case <-o.runtime.closeCh:
	}
	return o.Close()
}

// Close stops any capture in progress, cancels outstanding requests and ends
// the run loop. It is safe to call more than once.
func (o *Overlay) Close() error {
	var err error
	o.closeOnce.Do(func() {
		if o.runtime.started.Load() {
			doErr := o.runtime.do(context.Background(), "shutdown", func() error {
				err = o.shutdown()
				return nil
			})
			if doErr != nil && !errors.Is(doErr, ErrClosed) {
				err = errors.Join(err, doErr)
			}
		} else {
			err = o.shutdown()
		}

		o.runtime.end()
		o.runtime.waitUntilEnded()
		o.cancel()
		o.conversation.Close()
		o.workers.Wait()
	})
	return err
}

func (o *Overlay) shutdown() error {
	o.sleep.stop()
	if o.detector != nil {
		o.detector.Stop()
		o.detector = nil
	}
	o.session = nil
	return o.capture.Close()
}

// Listen subscribes to overlay events: capture lifecycle, transcripts,
// accepted response events and avatar updates. Handlers run on the loop.
func (o *Overlay) Listen(kind events.Kind, handler events.Handler) func() {
	return o.emitter.Listen(kind, handler)
}

// Submit sends typed text as a new exchange. It fails with
// [conversation.ErrResponseInProgress] while a response is outstanding.
func (o *Overlay) Submit(ctx context.Context, text string) error {
	if !o.running.Load() {
		return ErrNotRunning
	}
	return o.runtime.do(ctx, "submit text", func() error {
		return o.conversation.Submit(o.ctx, text)
	})
}

// StartListening opens a new capture session, superseding any active one.
func (o *Overlay) StartListening(ctx context.Context) error {
	if !o.running.Load() {
		return ErrNotRunning
	}
	return o.runtime.do(ctx, "start listening", o.startCapture)
}

// StopListening ends the active capture session and finalizes its utterance.
// Without an active session it does nothing.
func (o *Overlay) StopListening(ctx context.Context) error {
	if !o.running.Load() {
		return ErrNotRunning
	}
	return o.runtime.do(ctx, "stop listening", func() error {
		o.stopCapture(capture.StopReasonExplicit)
		return nil
	})
}

// OnWake shows the overlay, wakes the avatar and starts listening.
func (o *Overlay) OnWake() {
	o.runtime.post("wake", o.wake)
}

func (o *Overlay) OnToggleVisibility() {
	o.runtime.post("toggle visibility", o.toggleVisibility)
}

// SetTag sets a sticky tag for later submissions. An empty tag restores
// keyword classification.
func (o *Overlay) SetTag(tag string) {
	o.conversation.SetTag(tag)
}

func (o *Overlay) Tag() string { return o.conversation.Tag() }

func (o *Overlay) Snapshot() conversation.Log { return o.conversation.Snapshot() }

func (o *Overlay) State() conversation.State { return o.conversation.State() }

// LatestAssistant returns the newest assistant message together with the
// media it links to, if any.
func (o *Overlay) LatestAssistant() (conversation.Message, conversation.Media, bool) {
	message, ok := o.conversation.LatestAssistant()
	if !ok {
		return conversation.Message{}, conversation.Media{}, false
	}
	return message, conversation.DetectMedia(message.Content), true
}

func (o *Overlay) MicrophoneInUse() bool { return o.capture.InUse() }

// publish fans event out to listeners and run callbacks. Loop only.
func (o *Overlay) publish(event events.Event) {
	if generational, ok := event.(events.Generational); ok {
		logger.Debug("capture event", "kind", event.Kind(), "generation", generational.CaptureGeneration())
	}
	o.emitter.Emit(event)
	o.emitCallbacks(event)
}

func (o *Overlay) onMicrophoneChanged(inUse bool) {
	if o.runOptions.onMicrophoneChanged != nil {
		o.runOptions.onMicrophoneChanged(inUse)
	}
}

func (o *Overlay) onConversationChanged(log conversation.Log, state conversation.State) {
	o.updateThinking(state)
	if o.runOptions.onConversationChanged != nil {
		o.runOptions.onConversationChanged(log, state)
	}
}

// reportFailure records a failure that belongs to no exchange.
func (o *Overlay) reportFailure(err error) {
	o.conversation.ReportFailure(err)
	if o.runOptions.onError != nil {
		o.runOptions.onError(err)
	}
}
