package events

import "time"

type Kind string

type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

// Exchanged is implemented by events that belong to one request/response
// exchange.
type Exchanged interface {
	Event
	Exchange() string
}

// Generational is implemented by events that belong to one capture session.
type Generational interface {
	Event
	CaptureGeneration() uint64
}
