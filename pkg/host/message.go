package host

import (
	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// Kind tells a receiving host what a [Message] carries.
type Kind string

const (
	KindGraph   Kind = "graph"
	KindNode    Kind = "node"
	KindRequest Kind = "request"
)

// Message is the unit a [Transport] moves between hosts.
type Message struct {
	ID     string         `json:"id"`
	Kind   Kind           `json:"kind"`
	Scope  string         `json:"scope"`
	Origin string         `json:"origin"` // sending host's ID
	From   nodegraph.Side `json:"from"`
	Format string         `json:"format,omitempty"`
	Data   []byte         `json:"data,omitempty"`
}
