// Package store persists graph snapshots as documents.
//
// A [Document] holds one encoded snapshot plus bookkeeping: a stable id, a
// display name, the codec format of the bytes, their hash and timestamps.
// The [Store] interface has five implementations:
//   - memory: in-process map, for tests and throwaway servers
//   - file: one JSON file per document, the CLI default
//   - sqlite: a single-file database through modernc.org/sqlite
//   - redis: documents as Redis strings plus an id set
//   - mongo: one MongoDB document per graph
//
// # Usage
//
//	s, err := store.Open(ctx, store.Config{Backend: "sqlite", Path: "graphs.db"})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	doc, err := store.NewDocument("factory", codec.Default, g)
//	if err != nil {
//	    return err
//	}
//	if err := s.Put(ctx, doc); err != nil {
//	    return err
//	}
//	doc, err = s.Get(ctx, doc.ID)
//
// Stores returned by [Open] report every load, save and delete to
// [observability.StoreHooks].
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/pingraph/pkg/cache"
	"github.com/matzehuels/pingraph/pkg/codec"
	pgerrors "github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("graph not found")

// Document is a stored graph snapshot.
type Document struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Format    string    `json:"format" bson:"format"`
	Data      []byte    `json:"data,omitempty" bson:"data,omitempty"`
	Hash      string    `json:"hash" bson:"hash"`
	Nodes     int       `json:"nodes" bson:"nodes"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Store is implemented by every document backend.
type Store interface {
	// Get returns the document with id, or an error wrapping [ErrNotFound].
	Get(ctx context.Context, id string) (*Document, error)

	// Put creates or replaces a document. An empty ID is filled with a new
	// UUID. Hash and UpdatedAt are recomputed; CreatedAt keeps the value of
	// the document being replaced. The fields are written back into doc.
	Put(ctx context.Context, doc *Document) error

	// Delete removes a document, or returns an error wrapping [ErrNotFound].
	Delete(ctx context.Context, id string) error

	// List returns every document ordered by id, without Data.
	List(ctx context.Context) ([]Document, error)

	// Close releases the backend's connections.
	Close() error
}

// NewDocument encodes g with c into a new, unsaved document.
func NewDocument(name string, c codec.Codec, g *nodegraph.Graph) (*Document, error) {
	data, err := codec.EncodeGraph(c, g)
	if err != nil {
		return nil, err
	}
	return &Document{Name: name, Format: c.Format(), Data: data, Nodes: g.Len()}, nil
}

// Graph decodes the document into a new graph built on reg.
func (d *Document) Graph(reg *nodegraph.Registry) (*nodegraph.Graph, error) {
	c, err := codec.ByName(d.Format)
	if err != nil {
		return nil, err
	}
	g := nodegraph.New(reg)
	if err := codec.DecodeGraph(c, d.Data, g); err != nil {
		return nil, fmt.Errorf("graph %s: %w", d.ID, err)
	}
	return g, nil
}

// Summary returns a copy of d without Data.
func (d Document) Summary() Document {
	d.Data = nil
	return d
}

// prepare fills the derived fields of doc before a write. created is the
// CreatedAt of the document being replaced, zero when there is none.
func prepare(doc *Document, created time.Time) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if err := pgerrors.ValidateGraphID(doc.ID); err != nil {
		return err
	}
	if doc.Format == "" {
		doc.Format = codec.Default.Format()
	}
	now := time.Now().UTC()
	doc.Hash = cache.Hash(doc.Data)
	doc.UpdatedAt = now
	switch {
	case !created.IsZero():
		doc.CreatedAt = created
	case doc.CreatedAt.IsZero():
		doc.CreatedAt = now
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("%s: %w", id, ErrNotFound)
}
