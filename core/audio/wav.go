package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

const (
	MimeTypeWAV = "audio/wav"

	wavFormatPCM = 1
)

var (
	ErrNoAudio           = errors.New("no audio frames")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Blob is a finalized, container-wrapped recording ready for upload.
type Blob struct {
	Data     []byte
	MimeType string
	Encoding EncodingInfo
}

// EncodeWAV wraps linear16 frames in a RIFF/WAVE container.
func EncodeWAV(encoding EncodingInfo, frames [][]byte) (Blob, error) {
	if encoding.Format != EncodingLinear16 {
		return Blob{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, encoding.Format.Name())
	}
	if encoding.SampleRate <= 0 {
		return Blob{}, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, encoding.SampleRate)
	}

	total := 0
	for _, frame := range frames {
		total += len(frame)
	}
	if total == 0 {
		return Blob{}, ErrNoAudio
	}
	if total%encoding.BytesPerFrame() != 0 {
		return Blob{}, fmt.Errorf("%d bytes is not a whole number of %d byte frames", total, encoding.BytesPerFrame())
	}

	data := make([]int, 0, total/2)
	for _, frame := range frames {
		for _, sample := range Int16Samples(frame) {
			data = append(data, int(sample))
		}
	}

	channels := encoding.ChannelCount()
	buffer := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: encoding.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	out := &writerseeker.WriterSeeker{}
	encoder := wav.NewEncoder(out, encoding.SampleRate, 16, channels, wavFormatPCM)
	if err := encoder.Write(buffer); err != nil {
		return Blob{}, fmt.Errorf("failed to write wav samples: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return Blob{}, fmt.Errorf("failed to finalise wav container: %w", err)
	}

	encoded, err := io.ReadAll(out.Reader())
	if err != nil {
		return Blob{}, fmt.Errorf("failed to read wav container: %w", err)
	}

	return Blob{Data: encoded, MimeType: MimeTypeWAV, Encoding: encoding}, nil
}
