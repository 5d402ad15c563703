package events

const (
	// KindAssistantResponseStarted identifies the opening of a response stream.
	KindAssistantResponseStarted Kind = "assistant_response.started"
	// KindAssistantResponseSegment identifies streamed assistant response text.
	KindAssistantResponseSegment Kind = "assistant_response.segment"
	// KindAssistantResponseFinal identifies assistant response stream completion.
	KindAssistantResponseFinal Kind = "assistant_response.final"
	// KindAssistantResponseFailed identifies a failed request or stream.
	KindAssistantResponseFailed Kind = "assistant_response.failed"
)

// AssistantResponseKinds lists every kind a generation service emits.
var AssistantResponseKinds = []Kind{
	KindAssistantResponseStarted,
	KindAssistantResponseSegment,
	KindAssistantResponseFinal,
	KindAssistantResponseFailed,
}

// AssistantResponseStarted marks the start of the response stream.
type AssistantResponseStarted struct {
	Base
	ExchangeID string
}

// NewAssistantResponseStarted creates an assistant response started event.
func NewAssistantResponseStarted(exchangeID string) AssistantResponseStarted {
	return AssistantResponseStarted{Base: NewBase(KindAssistantResponseStarted), ExchangeID: exchangeID}
}

func (e AssistantResponseStarted) Exchange() string { return e.ExchangeID }

// AssistantResponseSegment carries a streamed assistant response text segment.
type AssistantResponseSegment struct {
	Base
	ExchangeID string
	Segment    string
}

// NewAssistantResponseSegment creates an assistant response segment event.
func NewAssistantResponseSegment(exchangeID, segment string) AssistantResponseSegment {
	return AssistantResponseSegment{Base: NewBase(KindAssistantResponseSegment), ExchangeID: exchangeID, Segment: segment}
}

func (e AssistantResponseSegment) Exchange() string { return e.ExchangeID }

// AssistantResponseFinal marks assistant response stream completion.
type AssistantResponseFinal struct {
	Base
	ExchangeID string
	// FullText is what the service believes it sent. The conversation keeps
	// its own concatenation of segments.
	FullText string
}

// NewAssistantResponseFinal creates an assistant response final event.
func NewAssistantResponseFinal(exchangeID, fullText string) AssistantResponseFinal {
	return AssistantResponseFinal{Base: NewBase(KindAssistantResponseFinal), ExchangeID: exchangeID, FullText: fullText}
}

func (e AssistantResponseFinal) Exchange() string { return e.ExchangeID }

// AssistantResponseFailed marks a request that could not be sent or a stream
// that ended abnormally.
type AssistantResponseFailed struct {
	Base
	ExchangeID string
	Err        error
}

// NewAssistantResponseFailed creates an assistant response failed event.
func NewAssistantResponseFailed(exchangeID string, err error) AssistantResponseFailed {
	return AssistantResponseFailed{Base: NewBase(KindAssistantResponseFailed), ExchangeID: exchangeID, Err: err}
}

func (e AssistantResponseFailed) Exchange() string { return e.ExchangeID }
