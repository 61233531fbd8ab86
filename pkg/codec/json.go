package codec

import (
	"encoding/json"
	"io"

	"github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// JSONCodec reads and writes indented JSON snapshots.
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns "json".
func (c *JSONCodec) Format() string {
	return "json"
}

func (c *JSONCodec) Write(w io.Writer, rec nodegraph.GraphRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "encode json")
	}
	return nil
}

func (c *JSONCodec) Read(r io.Reader) (nodegraph.GraphRecord, error) {
	var rec nodegraph.GraphRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nodegraph.GraphRecord{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse json")
	}
	return rec, nil
}
