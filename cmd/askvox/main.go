// Command askvox runs the overlay core behind a terminal front-end.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	overlay "github.com/kkkz76/askvox/core"
	"github.com/kkkz76/askvox/core/audio/miniaudio"
	"github.com/kkkz76/askvox/core/audio/portaudio"
	"github.com/kkkz76/askvox/core/capture"
	"github.com/kkkz76/askvox/core/conversation"
	"github.com/kkkz76/askvox/core/llms/groq"
	"github.com/kkkz76/askvox/core/speechtotext"
	"github.com/kkkz76/askvox/core/speechtotext/deepgram"
	"github.com/kkkz76/askvox/core/vad"
	"github.com/kkkz76/askvox/internal/config"
	"golang.org/x/sync/errgroup"
)

var (
	_ capture.Device = (*miniaudio.Device)(nil)
	_ capture.Device = (*portaudio.Device)(nil)
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "askvox:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	device, release, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer release()

	transcriber := deepgram.NewClient(cfg.DeepgramAPIKey,
		speechtotext.WithModel(cfg.DeepgramModel),
		speechtotext.WithLanguage(cfg.Language),
	)

	groqOptions := []groq.ClientOption{groq.WithModel(cfg.GroqModel)}
	if cfg.GroqEndpoint != "" {
		groqOptions = append(groqOptions, groq.WithEndpoint(cfg.GroqEndpoint))
	}
	llm := groq.NewClient(cfg.GroqAPIKey, groqOptions...)

	vadOptions := []vad.Option{
		vad.WithThreshold(cfg.VADThreshold),
		vad.WithTrailingSilence(cfg.TrailingSilence),
	}
	if cfg.NoSpeechTimeout > 0 {
		vadOptions = append(vadOptions, vad.WithNoSpeechTimeout(cfg.NoSpeechTimeout))
	}

	o := overlay.New(
		overlay.WithCaptureDevice(device),
		overlay.WithTranscriber(transcriber),
		overlay.WithStreamingLLM(llm),
		overlay.WithVADOptions(vadOptions...),
		overlay.WithSleepDelay(cfg.SleepDelay),
		overlay.WithConversationOptions(
			conversation.WithGreeting(cfg.Greeting),
			conversation.WithHistoryLimit(cfg.HistoryLimit),
		),
	)
	o.SetTag(cfg.Tag)
	if cfg.ListenOnStart {
		// Queued until the run loop starts.
		o.OnWake()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(newModel(ctx, o), tea.WithAltScreen(), tea.WithContext(ctx))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return o.Run(ctx,
			overlay.WithConversationCallback(func(log conversation.Log, state conversation.State) {
				program.Send(conversationMsg{log: log, state: state})
			}),
			overlay.WithAvatarCallback(func(avatar overlay.Avatar) {
				program.Send(avatarMsg(avatar))
			}),
			overlay.WithMicrophoneCallback(func(inUse bool) {
				program.Send(microphoneMsg(inUse))
			}),
			overlay.WithTranscriptionCallback(func(transcript string) {
				program.Send(transcriptMsg(transcript))
			}),
			overlay.WithErrorCallback(func(err error) {
				program.Send(errMsg{err: err})
			}),
		)
	})
	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("terminal front-end failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func openDevice(cfg *config.Config) (capture.Device, func(), error) {
	switch cfg.AudioBackend {
	case config.AudioBackendPortaudio:
		device, err := portaudio.NewDevice(portaudio.DefaultFramesPerBuffer)
		if err != nil {
			return nil, nil, err
		}
		return device, func() { _ = device.Terminate() }, nil
	default:
		device, err := miniaudio.NewDevice(miniaudio.WithSampleRate(cfg.SampleRate))
		if err != nil {
			return nil, nil, err
		}
		return device, func() { _ = device.Terminate() }, nil
	}
}
