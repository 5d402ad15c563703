package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/kkkz76/askvox/core/audio"
	"github.com/kkkz76/askvox/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultListenURL = "wss://api.deepgram.com/v1/listen"

	// chunkSize keeps individual websocket frames small; deepgram accepts any
	// split of a containerized upload.
	chunkSize = 8 * 1024

	typeMetadataResponse api.TypeResponse = "Metadata"
)

var (
	ErrMissingAPIKey = errors.New("deepgram api key not set")
	ErrEmptyAudio    = errors.New("no audio to transcribe")
)

type Client struct {
	apiKey  string
	options speechtotext.TranscriptionOptions
	dialer  *websocket.Dialer
}

func NewClient(apiKey string, opts ...speechtotext.TranscriptionOption) *Client {
	options := speechtotext.DefaultTranscriptionOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		apiKey:  apiKey,
		options: options,
		dialer:  websocket.DefaultDialer,
	}
}

// TranscribeAudio uploads one finalized blob over the live websocket API,
// closes the stream and returns every final segment joined with spaces.
func (c *Client) TranscribeAudio(ctx context.Context, blob audio.Blob) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe audio")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", c.options.Model),
		attribute.Int("request.bytes", len(blob.Data)),
		attribute.String("request.mime_type", blob.MimeType),
	)

	transcript, err := c.transcribe(ctx, blob)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int("response.length", len(transcript)))
	return transcript, nil
}

func (c *Client) transcribe(ctx context.Context, blob audio.Blob) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if len(blob.Data) == 0 {
		return "", ErrEmptyAudio
	}

	target, err := c.listenURL(blob)
	if err != nil {
		return "", err
	}

	conn, _, err := c.dialer.DialContext(ctx, target,
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return "", fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	defer conn.Close()

	done := withContextCancelHook(ctx, func() { conn.Close() })
	defer close(done)

	for offset := 0; offset < len(blob.Data); offset += chunkSize {
		end := min(offset+chunkSize, len(blob.Data))
		if err := conn.WriteMessage(websocket.BinaryMessage, blob.Data[offset:end]); err != nil {
			return "", fmt.Errorf("failed to write to deepgram client: %w", contextErr(ctx, err))
		}
	}

	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return "", fmt.Errorf("failed to close deepgram stream: %w", contextErr(ctx, err))
	}

	var segments []string
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return "", fmt.Errorf("failed to read deepgram websocket message: %w", contextErr(ctx, err))
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		segment, final, err := parseTranscriptMessage(msg)
		if err != nil {
			logger.WarnContext(ctx, "failed to parse deepgram message", "error", err)
			continue
		}
		if final {
			break
		}
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	return strings.Join(segments, " "), nil
}

func (c *Client) listenURL(blob audio.Blob) (string, error) {
	endpoint := c.options.Endpoint
	if endpoint == "" {
		endpoint = defaultListenURL
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid deepgram endpoint: %w", err)
	}

	queryParams := u.Query()
	queryParams.Set("model", c.options.Model)
	if c.options.Language != "" {
		queryParams.Set("language", c.options.Language)
	}
	if c.options.SmartFormat {
		queryParams.Set("smart_format", "true")
	}
	// Containerized audio carries its own header, raw PCM has to be described.
	if blob.MimeType != audio.MimeTypeWAV && blob.Encoding.Format == audio.EncodingLinear16 {
		queryParams.Set("encoding", blob.Encoding.Format.Name())
		queryParams.Set("sample_rate", fmt.Sprint(blob.Encoding.SampleRate))
		queryParams.Set("channels", fmt.Sprint(blob.Encoding.ChannelCount()))
	}

	u.RawQuery = queryParams.Encode()
	return u.String(), nil
}

// parseTranscriptMessage returns the final transcript carried by msg, if any,
// and whether msg marks the end of the upload.
func parseTranscriptMessage(msg []byte) (transcript string, end bool, err error) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal deepgram message: %w", err)
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			return "", false, fmt.Errorf("failed to unmarshal deepgram results: %w", err)
		}
		if !msgResp.IsFinal || len(msgResp.Channel.Alternatives) == 0 {
			return "", false, nil
		}
		return strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript), false, nil

	case typeMetadataResponse:
		return "", true, nil
	}

	return "", false, nil
}

func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func withContextCancelHook(ctx context.Context, onContextDone func()) chan struct{} {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			onContextDone()
		case <-done:
		}
	}()
	return done
}
