package conversation

import (
	"slices"

	"github.com/kkkz76/askvox/core/llms"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID         string
	Role       Role
	Content    string
	ExchangeID string
	Tag        string
	// Error marks an assistant message that reports a failure rather than a
	// response.
	Error bool
}

// Log is the ordered conversation. When InProgress is set the last message is
// the assistant message still being streamed; every other message is final.
type Log struct {
	Messages   []Message
	InProgress bool
}

func (l Log) Clone() Log {
	return Log{Messages: slices.Clone(l.Messages), InProgress: l.InProgress}
}

func (l Log) Len() int { return len(l.Messages) }

func (l Log) Last() (Message, bool) {
	if len(l.Messages) == 0 {
		return Message{}, false
	}
	return l.Messages[len(l.Messages)-1], true
}

// LatestAssistant returns the newest assistant message, finished or not.
func (l Log) LatestAssistant() (Message, bool) {
	for i := len(l.Messages) - 1; i >= 0; i-- {
		if l.Messages[i].Role == RoleAssistant {
			return l.Messages[i], true
		}
	}
	return Message{}, false
}

// History converts the last limit finished messages into request history.
// Error entries are left out.
func (l Log) History(limit int) []llms.Message {
	messages := l.Messages
	if l.InProgress && len(messages) > 0 {
		messages = messages[:len(messages)-1]
	}

	var history []llms.Message
	for _, msg := range messages {
		if msg.Error || msg.Content == "" {
			continue
		}
		role := llms.MessageRoleUser
		if msg.Role == RoleAssistant {
			role = llms.MessageRoleAssistant
		}
		history = append(history, llms.Message{Role: role, Content: msg.Content})
	}

	if limit >= 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}
