package codec

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// YAMLCodec reads and writes YAML snapshots.
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns "yaml".
func (c *YAMLCodec) Format() string {
	return "yaml"
}

func (c *YAMLCodec) Write(w io.Writer, rec nodegraph.GraphRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "encode yaml")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "encode yaml")
	}
	return nil
}

func (c *YAMLCodec) Read(r io.Reader) (nodegraph.GraphRecord, error) {
	var rec nodegraph.GraphRecord
	if err := yaml.NewDecoder(r).Decode(&rec); err != nil {
		return nodegraph.GraphRecord{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse yaml")
	}
	return rec, nil
}
