// Package vad classifies capture ticks as voiced or silent and decides when an
// utterance has ended.
//
// A Detector is not safe for concurrent use. Ticks and timer firings must be
// delivered from a single goroutine; the overlay does this by routing both
// through its run loop.
package vad

import (
	"time"
)

const (
	DefaultThreshold       = 10.0
	DefaultTrailingSilence = 5 * time.Second
)

type Classification int

const (
	Silent Classification = iota
	Voiced
)

func (c Classification) String() string {
	switch c {
	case Silent:
		return "silent"
	case Voiced:
		return "voiced"
	default:
		return "unknown"
	}
}

type EndReason string

const (
	// EndOfUtterance is raised after the trailing silence window that follows
	// at least one voiced tick.
	EndOfUtterance EndReason = "end_of_utterance"
	// EndNoSpeech is raised when the optional no-speech timeout expires before
	// any voiced tick.
	EndNoSpeech EndReason = "no_speech"
)

type End struct {
	Reason       EndReason
	LastVoicedAt time.Time
}

// Scheduler arms one-shot timers. The returned cancel func must be safe to
// call after the timer fired.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

type SchedulerFunc func(d time.Duration, fn func()) (cancel func())

func (f SchedulerFunc) AfterFunc(d time.Duration, fn func()) func() { return f(d, fn) }

// WallClock schedules on real timers. Firings run on their own goroutine.
var WallClock Scheduler = SchedulerFunc(func(d time.Duration, fn func()) func() {
	timer := time.AfterFunc(d, fn)
	return func() { timer.Stop() }
})

type Config struct {
	// Threshold is the volume above which a tick counts as voiced.
	Threshold float64
	// TrailingSilence is how long silence must last, measured from the last
	// voiced tick, before the utterance ends.
	TrailingSilence time.Duration
	// NoSpeechTimeout ends a session that never heard speech. Zero disables it.
	NoSpeechTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, TrailingSilence: DefaultTrailingSilence}
}

type Option func(*Config)

// NewConfig applies opts over [DefaultConfig].
func NewConfig(opts ...Option) Config {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return config
}

// IsVoiced reports whether volume is above the threshold.
func (c Config) IsVoiced(volume float64) bool { return volume > c.Threshold }

func WithThreshold(threshold float64) Option {
	return func(c *Config) { c.Threshold = threshold }
}

func WithTrailingSilence(d time.Duration) Option {
	return func(c *Config) { c.TrailingSilence = d }
}

func WithNoSpeechTimeout(d time.Duration) Option {
	return func(c *Config) { c.NoSpeechTimeout = d }
}

type Detector struct {
	config    Config
	scheduler Scheduler
	onEnd     func(End)

	voicedObserved bool
	lastTickVoiced bool
	lastVoicedAt   time.Time

	// token invalidates timer firings that were already in flight when their
	// timer got cancelled.
	token          uint64
	cancelTrailing func()
	cancelNoSpeech func()

	ended   bool
	stopped bool
}

func NewDetector(scheduler Scheduler, onEnd func(End), opts ...Option) *Detector {
	config := NewConfig(opts...)
	if scheduler == nil {
		scheduler = WallClock
	}
	if onEnd == nil {
		onEnd = func(End) {}
	}

	return &Detector{config: config, scheduler: scheduler, onEnd: onEnd}
}

// Start arms the no-speech timeout, if configured.
func (d *Detector) Start() {
	if d.done() || d.config.NoSpeechTimeout <= 0 || d.cancelNoSpeech != nil {
		return
	}

	token := d.nextToken()
	d.cancelNoSpeech = d.scheduler.AfterFunc(d.config.NoSpeechTimeout, func() {
		d.fireNoSpeech(token)
	})
}

// Observe classifies one tick. Ticks after the utterance ended are classified
// but have no effect.
func (d *Detector) Observe(at time.Time, volume float64) Classification {
	classification := Silent
	if d.config.IsVoiced(volume) {
		classification = Voiced
	}

	if d.done() {
		return classification
	}

	if classification == Voiced {
		d.disarm()
		d.voicedObserved = true
		d.lastTickVoiced = true
		d.lastVoicedAt = at
		return classification
	}

	d.lastTickVoiced = false
	if !d.voicedObserved || d.cancelTrailing != nil {
		return classification
	}

	wait := d.config.TrailingSilence - at.Sub(d.lastVoicedAt)
	if wait <= 0 {
		d.finish(EndOfUtterance)
		return classification
	}

	token := d.nextToken()
	d.cancelTrailing = d.scheduler.AfterFunc(wait, func() { d.fireTrailing(token) })
	return classification
}

// Stop cancels every armed timer. Later ticks and firings are ignored.
func (d *Detector) Stop() {
	d.stopped = true
	d.disarm()
}

func (d *Detector) VoicedObserved() bool    { return d.voicedObserved }
func (d *Detector) TimerArmed() bool        { return d.cancelTrailing != nil }
func (d *Detector) LastVoicedAt() time.Time { return d.lastVoicedAt }
func (d *Detector) Ended() bool             { return d.ended }

func (d *Detector) done() bool { return d.ended || d.stopped }

func (d *Detector) nextToken() uint64 {
	d.token++
	return d.token
}

func (d *Detector) disarm() {
	if d.cancelTrailing == nil && d.cancelNoSpeech == nil {
		return
	}

	if d.cancelTrailing != nil {
		d.cancelTrailing()
		d.cancelTrailing = nil
	}
	if d.cancelNoSpeech != nil {
		d.cancelNoSpeech()
		d.cancelNoSpeech = nil
	}
	d.nextToken()
}

func (d *Detector) fireTrailing(token uint64) {
	if d.done() || token != d.token || d.cancelTrailing == nil {
		return
	}

	d.cancelTrailing = nil
	d.finish(EndOfUtterance)
}

func (d *Detector) fireNoSpeech(token uint64) {
	if d.done() || token != d.token || d.cancelNoSpeech == nil || d.voicedObserved {
		return
	}

	d.cancelNoSpeech = nil
	d.finish(EndNoSpeech)
}

func (d *Detector) finish(reason EndReason) {
	d.ended = true
	d.disarm()
	d.onEnd(End{Reason: reason, LastVoicedAt: d.lastVoicedAt})
}
