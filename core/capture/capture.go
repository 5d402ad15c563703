package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kkkz76/askvox/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"
)

var (
	ErrDeviceUnavailable = errors.New("microphone unavailable")
	ErrSessionClosed     = errors.New("capture session already closed")
	ErrNoDevice          = errors.New("no capture device configured")
)

// Device is a microphone that can be opened for one recording at a time.
//
// Open must return once the device is streaming; onFrame is then called for
// every captured period until Close returns. Close must not return before
// the last onFrame call has finished.
type Device interface {
	EncodingInfo() audio.EncodingInfo
	Open(ctx context.Context, onFrame func(frame []byte)) error
	Close() error
}

// FrameHandler receives every frame captured for a session, on the device's
// goroutine. It should not block.
type FrameHandler func(session *Session, frame []byte)

// Capture owns the microphone. At most one session holds the device permit
// at any time; starting a new session stops the previous one first.
type Capture struct {
	device Device
	permit *semaphore.Weighted

	// lifecycle serialises Start and Stop, including device teardown.
	lifecycle sync.Mutex

	mu     sync.RWMutex
	active *Session

	generation atomic.Uint64

	onStateChange func(inUse bool)
}

type Option func(*Capture)

// WithStateChangeCallback is invoked whenever the microphone goes in or out of
// use.
func WithStateChangeCallback(callback func(inUse bool)) Option {
	return func(c *Capture) { c.onStateChange = callback }
}

func New(device Device, opts ...Option) *Capture {
	c := &Capture{
		device: device,
		permit: semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens the microphone and begins buffering. An active session is
// superseded: it is stopped, its recording discarded and its device handle
// released before the new session acquires the device.
func (c *Capture) Start(ctx context.Context, onFrame FrameHandler) (*Session, error) {
	ctx, span := tracer.Start(ctx, "start capture")
	defer span.End()

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.device == nil {
		span.RecordError(ErrNoDevice)
		span.SetStatus(codes.Error, ErrNoDevice.Error())
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, ErrNoDevice)
	}

	if previous := c.Active(); previous != nil {
		if _, err := c.stopLocked(previous, StopReasonSuperseded); err != nil {
			logger.WarnContext(ctx, "superseded session did not stop cleanly",
				"generation", previous.Generation, "error", err)
		}
	}

	if err := c.permit.Acquire(ctx, 1); err != nil {
		err = fmt.Errorf("%w: waiting for device: %w", ErrDeviceUnavailable, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	session := newSession(c.generation.Add(1), c.device.EncodingInfo())
	span.SetAttributes(attribute.Int64("capture.generation", int64(session.Generation)))

	deliver := func(frame []byte) {
		if !session.buffer(frame) {
			return
		}
		if onFrame != nil {
			onFrame(session, frame)
		}
	}

	if err := c.device.Open(ctx, deliver); err != nil {
		session.close()
		c.permit.Release(1)
		err = fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.mu.Lock()
	c.active = session
	c.mu.Unlock()
	c.notify(true)

	logger.DebugContext(ctx, "capture started", "generation", session.Generation)
	return session, nil
}

// Stop ends the session, releases the microphone and returns the recording.
// Stopping an already stopped session returns [ErrSessionClosed].
func (c *Capture) Stop(session *Session, reason StopReason) (Recording, error) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	return c.stopLocked(session, reason)
}

func (c *Capture) stopLocked(session *Session, reason StopReason) (Recording, error) {
	if session == nil {
		return Recording{}, ErrSessionClosed
	}

	frames, voiced, ok := session.close()
	if !ok {
		return Recording{}, ErrSessionClosed
	}

	var errs error
	c.mu.Lock()
	owned := c.active == session
	if owned {
		c.active = nil
	}
	c.mu.Unlock()

	if owned {
		if err := c.device.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to close capture device: %w", err))
		}
		c.permit.Release(1)
		c.notify(false)
	}

	recording := Recording{
		Generation:     session.Generation,
		Frames:         frames,
		VoicedObserved: voiced,
		Encoding:       session.Encoding,
		Reason:         reason,
		Duration:       time.Since(session.StartedAt),
	}

	logger.Debug("capture stopped",
		"generation", session.Generation,
		"reason", string(reason),
		"frames", len(frames),
		"voiced", voiced)
	return recording, errs
}

// Close stops the active session, if any, discarding its recording.
func (c *Capture) Close() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	active := c.Active()
	if active == nil {
		return nil
	}

	_, err := c.stopLocked(active, StopReasonCancelled)
	return err
}

func (c *Capture) Active() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// IsCurrent reports whether generation belongs to the session that is
// currently recording.
func (c *Capture) IsCurrent(generation uint64) bool {
	active := c.Active()
	return active != nil && active.Generation == generation
}

// InUse mirrors the microphone-in-use indicator.
func (c *Capture) InUse() bool { return c.Active() != nil }

func (c *Capture) EncodingInfo() audio.EncodingInfo {
	if c == nil || c.device == nil {
		return audio.GetDefaultEncodingInfo()
	}
	return c.device.EncodingInfo()
}

func (c *Capture) notify(inUse bool) {
	if c.onStateChange != nil {
		c.onStateChange(inUse)
	}
}
