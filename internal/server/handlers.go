package server

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/pingraph/pkg/codec"
	pgerrors "github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
	"github.com/matzehuels/pingraph/pkg/render/dot"
	"github.com/matzehuels/pingraph/pkg/store"
)

// listGraphs handles GET /graphs.
func (s *Server) listGraphs(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.List(r.Context())
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	respondJSON(w, http.StatusOK, docs)
}

// getGraph handles GET /graphs/{id}. Without ?format the stored bytes are
// returned as is; otherwise the snapshot is re-encoded.
func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, s.logger, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" || format == doc.Format {
		respondBytes(w, contentType(doc.Format), doc.Data)
		return
	}
	c, err := codec.ByName(format)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	g, err := doc.Graph(s.registry)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	data, err := codec.EncodeGraph(c, g)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	respondBytes(w, contentType(c.Format()), data)
}

// putGraph handles PUT /graphs/{id}. The body is decoded before it is
// stored, so only snapshots the registry understands are accepted. It
// answers 201 for a new document and 200 for a replacement.
func (s *Server) putGraph(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := pgerrors.ValidateGraphID(id); err != nil {
		respondError(w, s.logger, err)
		return
	}

	c, err := requestCodec(r)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		respondError(w, s.logger, pgerrors.Wrap(pgerrors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	g := nodegraph.New(s.registry)
	if err := codec.DecodeGraph(c, body, g); err != nil {
		respondError(w, s.logger, err)
		return
	}

	name := r.URL.Query().Get("name")
	created := true
	existing, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		created = false
		if name == "" {
			name = existing.Name
		}
	case pgerrors.CodeOf(err, sentinelCodes, "") != pgerrors.ErrCodeNotFound:
		respondError(w, s.logger, err)
		return
	}
	if name == "" {
		name = id
	}

	doc := &store.Document{ID: id, Name: name, Format: c.Format(), Data: body, Nodes: g.Len()}
	if err := s.store.Put(ctx, doc); err != nil {
		respondError(w, s.logger, err)
		return
	}
	s.logger.Info("stored graph", "id", id, "nodes", doc.Nodes, "format", doc.Format)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, doc.Summary())
}

// requestCodec picks the snapshot codec from ?format, then Content-Type,
// then the default.
func requestCodec(r *http.Request) (codec.Codec, error) {
	if format := r.URL.Query().Get("format"); format != "" {
		return codec.ByName(format)
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err == nil {
			if format := formatOf(mt); format != "" {
				return codec.ByName(format)
			}
		}
	}
	return codec.Default, nil
}

// deleteGraph handles DELETE /graphs/{id}.
func (s *Server) deleteGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		respondError(w, s.logger, err)
		return
	}
	s.logger.Info("deleted graph", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// getNode handles GET /graphs/{id}/nodes/{nodeID}.
func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := strconv.Atoi(chi.URLParam(r, "nodeID"))
	if err != nil {
		respondError(w, s.logger, pgerrors.New(pgerrors.ErrCodeInvalidInput, "node id must be an integer"))
		return
	}
	g, err := s.loadGraph(r)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	n := g.FindNode(nodeID)
	if n.IsEmpty() {
		respondError(w, s.logger, pgerrors.New(pgerrors.ErrCodeNotFound, "node %d not found", nodeID))
		return
	}
	respondJSON(w, http.StatusOK, nodegraph.EncodeNode(n))
}

// renderGraph handles GET /graphs/{id}/render.{format}.
func (s *Server) renderGraph(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	q := r.URL.Query()
	opts := dot.Options{Rankdir: q.Get("rankdir")}
	if v := q.Get("pins"); v != "" {
		pins, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, s.logger, pgerrors.New(pgerrors.ErrCodeInvalidInput, "pins must be a boolean"))
			return
		}
		opts.ShowPins = pins
	}

	g, err := s.loadGraph(r)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	data, cached, err := s.renderer.Render(r.Context(), g, format, opts)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	if cached {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	respondBytes(w, contentType(format), data)
}

func (s *Server) loadGraph(r *http.Request) (*nodegraph.Graph, error) {
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	return doc.Graph(s.registry)
}
