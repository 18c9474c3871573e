package eventlog

import "github.com/obsremote/obsrelay/internal/event"

// Sink accepts enriched events. Implementations must not block and must
// swallow their own errors.
type Sink interface {
	Append(ev event.Event)
}

// Nop discards every event.
type Nop struct{}

// Append does nothing.
func (Nop) Append(event.Event) {}

// Multi appends every event to each sink in order.
type Multi []Sink

// Append forwards ev to every sink.
func (m Multi) Append(ev event.Event) {
	for _, s := range m {
		s.Append(ev)
	}
}
