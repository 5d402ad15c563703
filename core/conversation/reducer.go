package conversation

import "github.com/kkkz76/askvox/core/events"

// Reduce folds one stream event into log and returns the next log. It never
// mutates its input. Only started, segment and final events change the log:
//
//   - started appends an empty in-progress assistant message, unless one is
//     already in progress.
//   - segment appends its text to the in-progress message of the same
//     exchange.
//   - final freezes the in-progress message of the same exchange.
//
// Anything else returns an equal log.
func Reduce(log Log, event events.Event) Log {
	next := log.Clone()

	switch event := event.(type) {
	case events.AssistantResponseStarted:
		if next.InProgress {
			return next
		}
		next.Messages = append(next.Messages, Message{
			ID:         event.ExchangeID,
			Role:       RoleAssistant,
			ExchangeID: event.ExchangeID,
		})
		next.InProgress = true

	case events.AssistantResponseSegment:
		last, ok := inProgress(next, event.ExchangeID)
		if !ok {
			return next
		}
		next.Messages[last].Content += event.Segment

	case events.AssistantResponseFinal:
		if _, ok := inProgress(next, event.ExchangeID); !ok {
			return next
		}
		next.InProgress = false
	}

	return next
}

func inProgress(log Log, exchangeID string) (int, bool) {
	if !log.InProgress || len(log.Messages) == 0 {
		return 0, false
	}
	last := len(log.Messages) - 1
	if log.Messages[last].ExchangeID != exchangeID {
		return 0, false
	}
	return last, true
}
