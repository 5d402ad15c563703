package groq

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultModel = "llama-3.1-8b-instant"
	// DefaultSystemPrompt keeps answers short enough to read in an overlay.
	DefaultSystemPrompt = "You are a helpful desktop assistant. Answer briefly and plainly."

	defaultURL = "https://api.groq.com/openai/v1/chat/completions"
)

// Client talks to any OpenAI-compatible chat completions endpoint; the
// default is Groq.
type Client struct {
	apiKey       string
	model        string
	systemPrompt string
	url          string
	httpClient   *http.Client
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) { c.systemPrompt = prompt }
}

func WithEndpoint(url string) ClientOption {
	return func(c *Client) { c.url = url }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:       apiKey,
		model:        DefaultModel,
		systemPrompt: DefaultSystemPrompt,
		url:          defaultURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)}
	}
	return c
}
