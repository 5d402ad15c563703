// Package miniaudio captures microphone audio through miniaudio.
package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/kkkz76/askvox/core/audio"
)

const defaultPeriodSizeInFrames = 480

var ErrAlreadyOpen = errors.New("capture device already open")

// Device is a [capture.Device] on the system default input.
//
// [capture.Device]: github.com/kkkz76/askvox/core/capture.Device
type Device struct {
	sampleRate         uint32
	periodSizeInFrames uint32

	// audioContext is owned by the Device and released by Terminate.
	audioContext *malgo.AllocatedContext

	mu      sync.Mutex
	device  *malgo.Device
	onFrame atomic.Pointer[func([]byte)]
}

type Option func(*Device)

func WithSampleRate(sampleRate int) Option {
	return func(d *Device) { d.sampleRate = uint32(sampleRate) }
}

// WithPeriodSize sets how many frames each capture callback carries.
func WithPeriodSize(frames int) Option {
	return func(d *Device) { d.periodSizeInFrames = uint32(frames) }
}

func NewDevice(opts ...Option) (*Device, error) {
	d := &Device{
		sampleRate:         audio.DefaultSampleRate,
		periodSizeInFrames: defaultPeriodSizeInFrames,
	}
	for _, opt := range opts {
		opt(d)
	}

	audioContext, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	d.audioContext = audioContext

	return d, nil
}

func (d *Device) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: int(d.sampleRate),
		Channels:   audio.DefaultChannels,
		Format:     audio.EncodingLinear16,
	}
}

// Open initializes and starts the input device. Frames are delivered on the
// audio thread.
func (d *Device) Open(_ context.Context, onFrame func(frame []byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		return ErrAlreadyOpen
	}

	format := malgo.FormatS16
	channels := audio.DefaultChannels
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = d.sampleRate
	config.Capture.Format = format
	config.Capture.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = d.periodSizeInFrames
	config.Periods = 3

	d.onFrame.Store(&onFrame)
	device, err := malgo.InitDevice(d.audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if n == 0 || len(input) < n {
				return
			}
			if handler := d.onFrame.Load(); handler != nil && *handler != nil {
				(*handler)(input[:n])
			}
		},
	})
	if err != nil {
		d.onFrame.Store(nil)
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		d.onFrame.Store(nil)
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	d.device = device
	return nil
}

// Close stops the device. The audio thread has delivered its last frame by
// the time it returns.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return nil
	}

	var err error
	if d.device.IsStarted() {
		if stopErr := d.device.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop capture device: %w", stopErr)
		}
	}
	d.onFrame.Store(nil)
	d.device.Uninit()
	d.device = nil

	return err
}

// Terminate closes the device and releases the audio context.
func (d *Device) Terminate() error {
	err := d.Close()
	if d.audioContext != nil {
		err = errors.Join(err, d.audioContext.Uninit())
		d.audioContext.Free()
		d.audioContext = nil
	}
	return err
}
