package codec

import (
	"io"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// TOMLCodec reads and writes TOML snapshots.
type TOMLCodec struct{}

// NewTOMLCodec creates a new TOML codec.
func NewTOMLCodec() *TOMLCodec {
	return &TOMLCodec{}
}

// Format returns "toml".
func (c *TOMLCodec) Format() string {
	return "toml"
}

// tomlGraph widens positions to float64. TOML writes float32 values in
// their shortest decimal form, which for [nodegraph.Unset] parses back
// just past the float32 range.
type tomlGraph struct {
	Center [2]float64 `toml:"center"`
	Nodes  []tomlNode `toml:"nodes"`
}

type tomlNode struct {
	Type  string                `toml:"type"`
	ID    int                   `toml:"node_id"`
	X     float64               `toml:"x"`
	Y     float64               `toml:"y"`
	Title string                `toml:"title"`
	Props map[string]any        `toml:"props,omitempty"`
	Pins  []nodegraph.PinRecord `toml:"pins"`
}

func (c *TOMLCodec) Write(w io.Writer, rec nodegraph.GraphRecord) error {
	tg := tomlGraph{
		Center: [2]float64{float64(rec.Center[0]), float64(rec.Center[1])},
		Nodes:  make([]tomlNode, len(rec.Nodes)),
	}
	for i, n := range rec.Nodes {
		tg.Nodes[i] = tomlNode{
			Type:  n.Type,
			ID:    n.ID,
			X:     float64(n.X),
			Y:     float64(n.Y),
			Title: n.Title,
			Props: n.Props,
			Pins:  n.Pins,
		}
	}
	if err := toml.NewEncoder(w).Encode(tg); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "encode toml")
	}
	return nil
}

func (c *TOMLCodec) Read(r io.Reader) (nodegraph.GraphRecord, error) {
	var tg tomlGraph
	if _, err := toml.NewDecoder(r).Decode(&tg); err != nil {
		return nodegraph.GraphRecord{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse toml")
	}
	rec := nodegraph.GraphRecord{
		Center: [2]float32{float32(tg.Center[0]), float32(tg.Center[1])},
		Nodes:  make([]nodegraph.NodeRecord, len(tg.Nodes)),
	}
	for i, n := range tg.Nodes {
		pins := n.Pins
		if pins == nil {
			pins = []nodegraph.PinRecord{}
		}
		rec.Nodes[i] = nodegraph.NodeRecord{
			Type:  n.Type,
			ID:    n.ID,
			X:     float32(n.X),
			Y:     float32(n.Y),
			Title: n.Title,
			Props: n.Props,
			Pins:  pins,
		}
	}
	return rec, nil
}
