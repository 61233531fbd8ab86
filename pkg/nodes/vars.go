package nodes

import (
	"fmt"
	"strings"

	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// VarType is the value type held by a [VarNode] and expected by a [VarRefPin].
type VarType int

const (
	VarBool VarType = iota
	VarInt
	VarFloat
	VarVec2
	VarVec3
	VarBlockPos
	VarFace
	VarColor
)

var varTypeNames = [...]string{
	VarBool:     "bool",
	VarInt:      "int",
	VarFloat:    "float",
	VarVec2:     "vec2",
	VarVec3:     "vec3",
	VarBlockPos: "block_pos",
	VarFace:     "face",
	VarColor:    "color",
}

// VarTypes lists every variable type in declaration order.
func VarTypes() []VarType {
	out := make([]VarType, len(varTypeNames))
	for i := range varTypeNames {
		out[i] = VarType(i)
	}
	return out
}

func (t VarType) String() string {
	if t < 0 || int(t) >= len(varTypeNames) {
		return fmt.Sprintf("VarType(%d)", int(t))
	}
	return varTypeNames[t]
}

// ParseVarType parses a type name. Matching is case-insensitive.
func ParseVarType(s string) (VarType, error) {
	for i, name := range varTypeNames {
		if strings.EqualFold(s, name) {
			return VarType(i), nil
		}
	}
	return VarBool, fmt.Errorf("unknown var type %q", s)
}

// MarshalText encodes the type by name.
func (t VarType) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(varTypeNames) {
		return nil, fmt.Errorf("invalid var type %d", int(t))
	}
	return []byte(varTypeNames[t]), nil
}

// UnmarshalText decodes a type name.
func (t *VarType) UnmarshalText(b []byte) error {
	v, err := ParseVarType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Kind returns the pin kind that carries values of this type.
func (t VarType) Kind() nodegraph.PinKind {
	switch t {
	case VarBool:
		return nodegraph.KindBool
	case VarInt:
		return nodegraph.KindInt
	case VarFloat:
		return nodegraph.KindFloat
	case VarVec2, VarVec3, VarBlockPos:
		return nodegraph.KindVector
	case VarFace:
		return nodegraph.KindString
	default:
		return nodegraph.KindObject
	}
}

// Faces are the valid values of a [VarFace] variable.
var Faces = []string{"down", "up", "north", "south", "west", "east"}

// VarData is the value of a variable. Only the field matching Type is
// meaningful; the others keep whatever they held before a type change.
type VarData struct {
	Type  VarType
	Bool  bool
	Int   int
	Float float32
	Vec   [3]float32 // Vec2 uses the first two components
	Pos   [3]int
	Face  string
	Color nodegraph.Color
}

// Value returns the field selected by Type.
func (d VarData) Value() any {
	switch d.Type {
	case VarBool:
		return d.Bool
	case VarInt:
		return d.Int
	case VarFloat:
		return d.Float
	case VarVec2:
		return [2]float32{d.Vec[0], d.Vec[1]}
	case VarVec3:
		return d.Vec
	case VarBlockPos:
		return d.Pos
	case VarFace:
		return d.Face
	case VarColor:
		return d.Color
	}
	return nil
}

// Set parses s into the field selected by Type. Vectors and positions take
// comma separated components; colours take #rrggbb or #rrggbbaa.
func (d *VarData) Set(s string) error {
	s = strings.TrimSpace(s)
	switch d.Type {
	case VarBool:
		switch strings.ToLower(s) {
		case "true", "1", "on", "yes":
			d.Bool = true
		case "false", "0", "off", "no":
			d.Bool = false
		default:
			return fmt.Errorf("invalid bool %q", s)
		}
	case VarInt:
		if _, err := fmt.Sscan(s, &d.Int); err != nil {
			return fmt.Errorf("invalid int %q", s)
		}
	case VarFloat:
		if _, err := fmt.Sscan(s, &d.Float); err != nil {
			return fmt.Errorf("invalid float %q", s)
		}
	case VarVec2, VarVec3:
		want := 2
		if d.Type == VarVec3 {
			want = 3
		}
		parts := strings.Split(s, ",")
		if len(parts) != want {
			return fmt.Errorf("%s needs %d components, got %d", d.Type, want, len(parts))
		}
		for i, p := range parts {
			if _, err := fmt.Sscan(strings.TrimSpace(p), &d.Vec[i]); err != nil {
				return fmt.Errorf("invalid component %q", p)
			}
		}
	case VarBlockPos:
		parts := strings.Split(s, ",")
		if len(parts) != 3 {
			return fmt.Errorf("block_pos needs 3 components, got %d", len(parts))
		}
		for i, p := range parts {
			if _, err := fmt.Sscan(strings.TrimSpace(p), &d.Pos[i]); err != nil {
				return fmt.Errorf("invalid component %q", p)
			}
		}
	case VarFace:
		f := strings.ToLower(s)
		for _, valid := range Faces {
			if f == valid {
				d.Face = f
				return nil
			}
		}
		return fmt.Errorf("invalid face %q", s)
	case VarColor:
		c, err := parseColor(s)
		if err != nil {
			return err
		}
		d.Color = c
	}
	return nil
}

func parseColor(s string) (nodegraph.Color, error) {
	hex := strings.TrimPrefix(s, "#")
	var v uint32
	switch len(hex) {
	case 6:
		if _, err := fmt.Sscanf(hex, "%06x", &v); err != nil {
			return 0, fmt.Errorf("invalid colour %q", s)
		}
		v = v<<8 | 0xFF
	case 8:
		if _, err := fmt.Sscanf(hex, "%08x", &v); err != nil {
			return 0, fmt.Errorf("invalid colour %q", s)
		}
	default:
		return 0, fmt.Errorf("invalid colour %q", s)
	}
	return nodegraph.Color(v), nil
}

func (d VarData) props() map[string]any {
	return map[string]any{
		"type":  d.Type.String(),
		"bool":  d.Bool,
		"int":   d.Int,
		"float": d.Float,
		"vec":   []float32{d.Vec[0], d.Vec[1], d.Vec[2]},
		"pos":   []int{d.Pos[0], d.Pos[1], d.Pos[2]},
		"face":  d.Face,
		"color": uint32(d.Color),
	}
}

func (d *VarData) fromProps(m map[string]any) error {
	if m == nil {
		return nil
	}
	if name, ok := nodegraph.Prop[string](m, "type"); ok {
		t, err := ParseVarType(name)
		if err != nil {
			return err
		}
		d.Type = t
	}
	d.Bool, _ = nodegraph.Prop[bool](m, "bool")
	d.Int, _ = nodegraph.Prop[int](m, "int")
	d.Float, _ = nodegraph.Prop[float32](m, "float")
	d.Face, _ = nodegraph.Prop[string](m, "face")
	if c, ok := nodegraph.Prop[float64](m, "color"); ok {
		d.Color = nodegraph.Color(uint32(c))
	}
	for i, v := range numbers(m["vec"]) {
		if i < 3 {
			d.Vec[i] = float32(v)
		}
	}
	for i, v := range numbers(m["pos"]) {
		if i < 3 {
			d.Pos[i] = int(v)
		}
	}
	return nil
}

// numbers flattens a numeric list as it comes back from any codec.
func numbers(v any) []float64 {
	switch s := v.(type) {
	case []float32:
		out := make([]float64, len(s))
		for i, f := range s {
			out[i] = float64(f)
		}
		return out
	case []float64:
		return s
	case []int:
		out := make([]float64, len(s))
		for i, n := range s {
			out[i] = float64(n)
		}
		return out
	case []any:
		out := make([]float64, 0, len(s))
		for _, e := range s {
			if f, ok := nodegraph.Number(e); ok {
				out = append(out, f)
			}
		}
		return out
	}
	return nil
}

// propMap reads a nested property map.
func propMap(props map[string]any, key string) map[string]any {
	m, _ := props[key].(map[string]any)
	return m
}
