// Package codec converts node graph snapshots to and from bytes.
//
// A [Codec] works on [nodegraph.GraphRecord] values, the codec-neutral form
// produced by [nodegraph.Graph.Encode]. Three formats ship with the
// package:
//
//	json  encoding/json, indented, the wire format of the host and server
//	yaml  gopkg.in/yaml.v3, two-space indent
//	toml  github.com/BurntSushi/toml, nodes as [[nodes]] tables
//
// All three keep node and pin ids, link lists, colours and variant props,
// so a snapshot written in one format and read back restores the same
// graph. Numbers inside variant props come back widened (float64 from
// JSON, int64 from TOML); [nodegraph.Prop] undoes that.
//
// # Choosing a codec
//
//	c, err := codec.ByName("yaml")
//	c, err := codec.ForPath("factory.toml")
//
// Decoding failures are reported as errors with code INVALID_FORMAT from
// pkg/errors.
package codec
