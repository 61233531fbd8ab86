package codec

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// Codec encodes and decodes graph snapshots in one format.
type Codec interface {
	// Format returns the format name, also used as file extension.
	Format() string
	// Write encodes rec to w.
	Write(w io.Writer, rec nodegraph.GraphRecord) error
	// Read decodes a snapshot from r.
	Read(r io.Reader) (nodegraph.GraphRecord, error)
}

var codecs = map[string]Codec{
	"json": NewJSONCodec(),
	"yaml": NewYAMLCodec(),
	"toml": NewTOMLCodec(),
}

// Default is the codec used when none is configured.
var Default Codec = codecs["json"]

// Formats lists the available format names in sorted order.
func Formats() []string {
	out := make([]string, 0, len(codecs))
	for name := range codecs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ByName returns the codec for a format name. "yml" is accepted for yaml.
func ByName(name string) (Codec, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "yml" {
		name = "yaml"
	}
	if c, ok := codecs[name]; ok {
		return c, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want one of %s)", name, strings.Join(Formats(), ", "))
}

// ForPath picks a codec from a file extension.
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "cannot tell format of %q without an extension", path)
	}
	return ByName(ext)
}

// Marshal encodes rec with c into a byte slice.
func Marshal(c Codec, rec nodegraph.GraphRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Write(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data with c.
func Unmarshal(c Codec, data []byte) (nodegraph.GraphRecord, error) {
	return c.Read(bytes.NewReader(data))
}

// EncodeGraph snapshots g and encodes it with c.
func EncodeGraph(c Codec, g *nodegraph.Graph) ([]byte, error) {
	return Marshal(c, g.Encode())
}

// DecodeGraph decodes data with c and replaces g's content with it.
// Errors from the graph itself, such as an unregistered type, are returned
// with code UNKNOWN_TYPE or INVALID_FORMAT.
func DecodeGraph(c Codec, data []byte, g *nodegraph.Graph) error {
	rec, err := Unmarshal(c, data)
	if err != nil {
		return err
	}
	return classify(g.Decode(rec))
}

// ReadFile decodes the snapshot at path, picking the codec from its
// extension, into a new graph built on reg.
func ReadFile(path string, reg *nodegraph.Registry) (*nodegraph.Graph, error) {
	c, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	g := nodegraph.New(reg)
	if err := DecodeGraph(c, data, g); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// WriteFile encodes g to path, picking the codec from its extension.
func WriteFile(path string, g *nodegraph.Graph) error {
	c, err := ForPath(path)
	if err != nil {
		return err
	}
	data, err := EncodeGraph(c, g)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

var graphCodes = map[error]errors.Code{
	nodegraph.ErrUnknownType: errors.ErrCodeUnknownType,
	nodegraph.ErrInvalidType: errors.ErrCodeUnknownType,
	nodegraph.ErrDuplicateID: errors.ErrCodeInvalidFormat,
	nodegraph.ErrInvalidID:   errors.ErrCodeInvalidFormat,
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	code := errors.CodeOf(err, graphCodes, errors.ErrCodeInvalidFormat)
	return errors.Wrap(code, err, "decode graph")
}
