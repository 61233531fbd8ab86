package nodes

import "github.com/matzehuels/pingraph/pkg/nodegraph"

// Event is something delivered to a node through an [EventPin].
type Event interface {
	// Sender is the pin the event was fired from.
	Sender() nodegraph.Pin
	// Name identifies the event kind.
	Name() string
}

// Receiver is implemented by nodes that handle events arriving on their
// event pins. The returned value is passed back to whoever fired the event.
type Receiver interface {
	OnEvent(ev Event) any
}

// TickEvent is fired by a [TickNode] every time its counter wraps.
type TickEvent struct {
	From nodegraph.Pin
}

func (e TickEvent) Sender() nodegraph.Pin { return e.From }
func (e TickEvent) Name() string          { return "tick" }
