package nodegraph

import (
	"fmt"
	"math"
	"strings"
)

// Unset marks a canvas coordinate that has never been placed. Editors treat
// a node at (Unset, Unset) as "auto-position on first draw".
const Unset float32 = -math.MaxFloat32

// NoID is the identifier carried by unattached nodes and pins and by the
// [EmptyNode] and [EmptyPin] sentinels. Assigned identifiers are never negative.
const NoID = -1

// IO is the direction of a pin.
type IO int

const (
	// None is a pin with no direction. It only appears on sentinels and on
	// pins that never take part in link traversal.
	None IO = iota
	// Input pins receive links.
	Input
	// Output pins originate links.
	Output
)

var ioNames = [...]string{None: "none", Input: "input", Output: "output"}

// String returns the lower-case name of the direction.
func (io IO) String() string {
	if io < 0 || int(io) >= len(ioNames) {
		return fmt.Sprintf("IO(%d)", int(io))
	}
	return ioNames[io]
}

// MarshalText encodes the direction by name so documents stay readable.
func (io IO) MarshalText() ([]byte, error) {
	if io < 0 || int(io) >= len(ioNames) {
		return nil, fmt.Errorf("invalid pin io %d", int(io))
	}
	return []byte(ioNames[io]), nil
}

// UnmarshalText decodes a direction name. Matching is case-insensitive.
func (io *IO) UnmarshalText(b []byte) error {
	v, err := ParseIO(string(b))
	if err != nil {
		return err
	}
	*io = v
	return nil
}

// ParseIO parses a direction name.
func ParseIO(s string) (IO, error) {
	for i, name := range ioNames {
		if strings.EqualFold(s, name) {
			return IO(i), nil
		}
	}
	return None, fmt.Errorf("unknown pin io %q", s)
}

// PinKind is the value category a pin carries. Editors use it to pick a pin
// shape and to refuse links between incompatible kinds.
type PinKind int

const (
	// KindFlow carries execution order rather than data.
	KindFlow PinKind = iota
	// KindBool carries a boolean.
	KindBool
	// KindInt carries an integer.
	KindInt
	// KindFloat carries a floating point number.
	KindFloat
	// KindString carries text.
	KindString
	// KindVector carries a 2 or 3 component vector.
	KindVector
	// KindObject carries an opaque reference.
	KindObject
)

var kindNames = [...]string{
	KindFlow:   "flow",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindVector: "vector",
	KindObject: "object",
}

// String returns the lower-case name of the kind.
func (k PinKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("PinKind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name.
func (k PinKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("invalid pin kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a kind name. Matching is case-insensitive.
func (k *PinKind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if strings.EqualFold(string(b), name) {
			*k = PinKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown pin kind %q", string(b))
}

// Side tells a graph which end of a client/server split it lives on.
// Only graphs on a [Client] or [Server] side can push updates.
type Side int

const (
	// Neither is a graph with no remote peer, such as one loaded from disk
	// by a command line tool.
	Neither Side = iota
	// Client is the editing end.
	Client
	// Server is the authoritative end.
	Server
)

var sideNames = [...]string{Neither: "neither", Client: "client", Server: "server"}

// String returns the lower-case name of the side.
func (s Side) String() string {
	if s < 0 || int(s) >= len(sideNames) {
		return fmt.Sprintf("Side(%d)", int(s))
	}
	return sideNames[s]
}

// ParseSide parses a side name. Matching is case-insensitive.
func ParseSide(s string) (Side, error) {
	for i, name := range sideNames {
		if strings.EqualFold(s, name) {
			return Side(i), nil
		}
	}
	return Neither, fmt.Errorf("unknown side %q", s)
}

// MarshalText encodes the side by name.
func (s Side) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(sideNames) {
		return nil, fmt.Errorf("invalid side %d", int(s))
	}
	return []byte(sideNames[s]), nil
}

// UnmarshalText decodes a side name.
func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Opposite returns the peer side. Neither has no peer and maps to itself.
func (s Side) Opposite() Side {
	switch s {
	case Client:
		return Server
	case Server:
		return Client
	default:
		return Neither
	}
}

// Color is a packed 0xRRGGBBAA colour.
type Color uint32

// Default pin colours.
const (
	DefaultLabelColor Color = 0xFFFFFFFF
	DefaultBaseColor  Color = 0xCCCCCCFF
	DefaultInnerColor Color = 0x212121FF
)

// Default node header colours, as CSS hex strings.
const (
	DefaultTitleColor  = "#ffffff"
	DefaultHeaderColor = "#8c8c8c"
)

// Hex formats the colour as #rrggbbaa.
func (c Color) Hex() string {
	return fmt.Sprintf("#%08x", uint32(c))
}

// RGBA splits the colour into its components.
func (c Color) RGBA() (r, g, b, a uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}
