package store

import (
	"context"
	"time"

	"github.com/matzehuels/pingraph/pkg/observability"
)

// instrumented reports every operation of a backend to the store hooks.
type instrumented struct {
	Store
	backend string
}

// Instrument wraps s so that loads, saves and deletes reach
// [observability.Store] tagged with backend.
func Instrument(s Store, backend string) Store {
	return &instrumented{Store: s, backend: backend}
}

func (s *instrumented) Get(ctx context.Context, id string) (*Document, error) {
	start := time.Now()
	doc, err := s.Store.Get(ctx, id)
	observability.Store().OnLoad(ctx, s.backend, time.Since(start), err)
	return doc, err
}

func (s *instrumented) Put(ctx context.Context, doc *Document) error {
	start := time.Now()
	err := s.Store.Put(ctx, doc)
	observability.Store().OnSave(ctx, s.backend, len(doc.Data), time.Since(start), err)
	return err
}

func (s *instrumented) Delete(ctx context.Context, id string) error {
	err := s.Store.Delete(ctx, id)
	observability.Store().OnDelete(ctx, s.backend, err)
	return err
}
