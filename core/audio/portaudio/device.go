// Package portaudio captures microphone audio through PortAudio.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/kkkz76/askvox/core/audio"
)

const DefaultFramesPerBuffer = 1024

var ErrAlreadyOpen = errors.New("capture device already open")

// Device reads the default input stream on its own goroutine.
type Device struct {
	framesPerBuffer int
	sampleRate      int

	mu     sync.Mutex
	stream *portaudio.Stream
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDevice initializes PortAudio. Call Terminate once the device is no
// longer needed.
func NewDevice(framesPerBuffer int) (*Device, error) {
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	return &Device{
		framesPerBuffer: framesPerBuffer,
		sampleRate:      audio.DefaultSampleRate,
	}, nil
}

func (d *Device) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: d.sampleRate,
		Channels:   audio.DefaultChannels,
		Format:     audio.EncodingLinear16,
	}
}

func (d *Device) Open(ctx context.Context, onFrame func(frame []byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream != nil {
		return ErrAlreadyOpen
	}

	in := make([]int16, d.framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(audio.DefaultChannels, 0, float64(d.sampleRate), d.framesPerBuffer, in)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	readCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-readCtx.Done():
				return
			default:
			}

			if err := stream.Read(); err != nil {
				if errors.Is(err, portaudio.InputOverflowed) {
					continue
				}
				logger.Warn("failed to read from input stream", "error", err)
				return
			}
			onFrame(audio.Int16Bytes(in))
		}
	}()

	d.stream, d.cancel, d.done = stream, cancel, done
	return nil
}

// Close waits for the reader goroutine to deliver its last frame, then stops
// the stream.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return nil
	}

	d.cancel()
	<-d.done

	var errs error
	if err := d.stream.Stop(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to stop input stream: %w", err))
	}
	if err := d.stream.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to close input stream: %w", err))
	}
	d.stream, d.cancel, d.done = nil, nil, nil

	return errs
}

func (d *Device) Terminate() error {
	return errors.Join(d.Close(), portaudio.Terminate())
}
