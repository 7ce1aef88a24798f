package events

// Event is a structured ledger state change.
type Event interface {
	EventType() string
}

// Emitter receives events as an operation produces them.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards everything.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}

// Buffer holds events until the surrounding transaction commits, so
// subscribers never observe effects that were rolled back.
type Buffer struct {
	events []Event
}

func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Drain returns the buffered events in emission order and empties the buffer.
func (b *Buffer) Drain() []Event {
	out := b.events
	b.events = nil
	return out
}
