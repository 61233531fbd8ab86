package nodegraph

import "errors"

var (
	// ErrUnknownType is returned when a record names a node or pin type that
	// is not registered. Decoding stops at the first unknown type and leaves
	// the target graph untouched.
	ErrUnknownType = errors.New("unknown type")

	// ErrDuplicateType is returned by [Registry.RegisterNode] and
	// [Registry.RegisterPin] when the tag is already taken.
	ErrDuplicateType = errors.New("duplicate type")

	// ErrInvalidType is returned when a type tag is empty or a factory is nil.
	ErrInvalidType = errors.New("invalid type")

	// ErrUnsupported is returned by [NodeBase.PushUpdate] when the node has no
	// graph, the graph has no owner to push through, or the graph side is
	// [Neither].
	ErrUnsupported = errors.New("unsupported operation")

	// ErrEmptyTarget is returned when decoding into a sentinel.
	ErrEmptyTarget = errors.New("cannot decode into empty sentinel")

	// ErrInvalidID is returned by [Graph.ApplyNode] for a negative node id.
	ErrInvalidID = errors.New("invalid id")

	// ErrDuplicateID is returned by [Graph.Decode] and [Graph.ApplyNode] when
	// a record reuses a node or pin id.
	ErrDuplicateID = errors.New("duplicate id")
)
