package nodegraph

import (
	"fmt"
	"slices"
	"sync"
)

// NodeFactory builds an unattached node of one variant.
type NodeFactory func() Node

// PinFactory builds an unattached pin of one variant.
type PinFactory func() Pin

// Registry maps type tags to constructors so that decoding can rebuild the
// right variant for every record. The base [NodeType] and [PinType] tags are
// always registered.
//
// Registries are safe for concurrent use. They are normally filled once from
// init functions and only read afterwards.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]NodeFactory
	pins  map[string]PinFactory
}

// DefaultRegistry is used by graphs built with a nil registry. Variant
// packages register themselves here from init.
var DefaultRegistry = NewRegistry()

// NewRegistry returns a registry holding only the base node and pin types.
func NewRegistry() *Registry {
	r := &Registry{
		nodes: make(map[string]NodeFactory),
		pins:  make(map[string]PinFactory),
	}
	r.nodes[NodeType] = func() Node { return NewNode("") }
	r.pins[PinType] = func() Pin { return NewPin("", None, KindFlow) }
	return r
}

// RegisterNode adds a node constructor under tag.
func (r *Registry) RegisterNode(tag string, f NodeFactory) error {
	if tag == "" || f == nil {
		return fmt.Errorf("node %q: %w", tag, ErrInvalidType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[tag]; ok {
		return fmt.Errorf("node %q: %w", tag, ErrDuplicateType)
	}
	r.nodes[tag] = f
	return nil
}

// RegisterPin adds a pin constructor under tag.
func (r *Registry) RegisterPin(tag string, f PinFactory) error {
	if tag == "" || f == nil {
		return fmt.Errorf("pin %q: %w", tag, ErrInvalidType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pins[tag]; ok {
		return fmt.Errorf("pin %q: %w", tag, ErrDuplicateType)
	}
	r.pins[tag] = f
	return nil
}

// MustRegisterNode is like RegisterNode but panics on error. It is meant
// for init functions.
func (r *Registry) MustRegisterNode(tag string, f NodeFactory) {
	if err := r.RegisterNode(tag, f); err != nil {
		panic(err)
	}
}

// MustRegisterPin is like RegisterPin but panics on error.
func (r *Registry) MustRegisterPin(tag string, f PinFactory) {
	if err := r.RegisterPin(tag, f); err != nil {
		panic(err)
	}
}

// NewNode builds a node for tag. An empty tag means [NodeType].
func (r *Registry) NewNode(tag string) (Node, error) {
	if tag == "" {
		tag = NodeType
	}
	r.mu.RLock()
	f, ok := r.nodes[tag]
	r.mu.RUnlock()
	if !ok {
		return EmptyNode, fmt.Errorf("node %q: %w", tag, ErrUnknownType)
	}
	n := f()
	if n.TypeTag() != tag {
		return EmptyNode, fmt.Errorf("node %q: factory built %q: %w", tag, n.TypeTag(), ErrInvalidType)
	}
	return n, nil
}

// NewPin builds a pin for tag. An empty tag means [PinType].
func (r *Registry) NewPin(tag string) (Pin, error) {
	if tag == "" {
		tag = PinType
	}
	r.mu.RLock()
	f, ok := r.pins[tag]
	r.mu.RUnlock()
	if !ok {
		return EmptyPin, fmt.Errorf("pin %q: %w", tag, ErrUnknownType)
	}
	p := f()
	if p.TypeTag() != tag {
		return EmptyPin, fmt.Errorf("pin %q: factory built %q: %w", tag, p.TypeTag(), ErrInvalidType)
	}
	return p, nil
}

// NodeTypes returns the registered node tags, sorted.
func (r *Registry) NodeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.nodes))
	for tag := range r.nodes {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// PinTypes returns the registered pin tags, sorted.
func (r *Registry) PinTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.pins))
	for tag := range r.pins {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// RegisterNode adds a node constructor to [DefaultRegistry].
func RegisterNode(tag string, f NodeFactory) error { return DefaultRegistry.RegisterNode(tag, f) }

// RegisterPin adds a pin constructor to [DefaultRegistry].
func RegisterPin(tag string, f PinFactory) error { return DefaultRegistry.RegisterPin(tag, f) }
