package nodegraph

import "maps"

// GraphRecord is the codec-neutral form of a [Graph]. Codecs in
// pkg/codec turn it into JSON, YAML or TOML; the host ships it between
// sides as an update tag.
type GraphRecord struct {
	Nodes  []NodeRecord `json:"nodes" yaml:"nodes" toml:"nodes"`
	Center [2]float32   `json:"center" yaml:"center" toml:"center"`
}

// NodeRecord is the codec-neutral form of a [Node]. Type selects the
// constructor in a [Registry]; Props carries variant-specific fields.
type NodeRecord struct {
	Type  string         `json:"type" yaml:"type" toml:"type"`
	ID    int            `json:"node_id" yaml:"node_id" toml:"node_id"`
	X     float32        `json:"x" yaml:"x" toml:"x"`
	Y     float32        `json:"y" yaml:"y" toml:"y"`
	Title string         `json:"title" yaml:"title" toml:"title"`
	Pins  []PinRecord    `json:"pins" yaml:"pins" toml:"pins"`
	Props map[string]any `json:"props,omitempty" yaml:"props,omitempty" toml:"props,omitempty"`
}

// PinRecord is the codec-neutral form of a [Pin].
type PinRecord struct {
	Type       string         `json:"type" yaml:"type" toml:"type"`
	NodeID     int            `json:"node_id" yaml:"node_id" toml:"node_id"`
	PinID      int            `json:"pin_id" yaml:"pin_id" toml:"pin_id"`
	Label      string         `json:"label" yaml:"label" toml:"label"`
	Kind       PinKind        `json:"kind" yaml:"kind" toml:"kind"`
	IO         IO             `json:"io" yaml:"io" toml:"io"`
	LabelColor Color          `json:"label_color" yaml:"label_color" toml:"label_color"`
	BaseColor  Color          `json:"base_color" yaml:"base_color" toml:"base_color"`
	InnerColor Color          `json:"inner_color" yaml:"inner_color" toml:"inner_color"`
	ToLinks    []int          `json:"to_links" yaml:"to_links" toml:"to_links"`
	FromLinks  []int          `json:"from_links" yaml:"from_links" toml:"from_links"`
	Props      map[string]any `json:"props,omitempty" yaml:"props,omitempty" toml:"props,omitempty"`
}

// Clone returns a deep copy of the record. Props values are copied shallowly.
func (r GraphRecord) Clone() GraphRecord {
	out := GraphRecord{Center: r.Center, Nodes: make([]NodeRecord, len(r.Nodes))}
	for i, n := range r.Nodes {
		out.Nodes[i] = n.Clone()
	}
	return out
}

// Clone returns a deep copy of the record.
func (r NodeRecord) Clone() NodeRecord {
	out := r
	out.Props = maps.Clone(r.Props)
	out.Pins = make([]PinRecord, len(r.Pins))
	for i, p := range r.Pins {
		out.Pins[i] = p.Clone()
	}
	return out
}

// Clone returns a deep copy of the record.
func (r PinRecord) Clone() PinRecord {
	out := r
	out.ToLinks = append([]int{}, r.ToLinks...)
	out.FromLinks = append([]int{}, r.FromLinks...)
	out.Props = maps.Clone(r.Props)
	return out
}

// Prop reads a variant property, converting numeric types that codecs
// widen on the way back (JSON gives float64, TOML gives int64).
func Prop[T any](props map[string]any, key string) (T, bool) {
	var zero T
	v, ok := props[key]
	if !ok {
		return zero, false
	}
	if t, ok := v.(T); ok {
		return t, true
	}
	switch any(zero).(type) {
	case int:
		if n, ok := Number(v); ok {
			return any(int(n)).(T), true
		}
	case float32:
		if n, ok := Number(v); ok {
			return any(float32(n)).(T), true
		}
	case float64:
		if n, ok := Number(v); ok {
			return any(n).(T), true
		}
	}
	return zero, false
}

// Number converts any Go numeric type to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
