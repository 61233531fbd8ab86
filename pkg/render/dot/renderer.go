package dot

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pingraph/pkg/cache"
	"github.com/matzehuels/pingraph/pkg/codec"
	pgerrors "github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
	"github.com/matzehuels/pingraph/pkg/render"
)

// Output formats a [Renderer] produces.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// Formats lists every output format.
var Formats = []string{FormatDOT, FormatSVG, FormatPNG, FormatPDF}

// TTLArtifact is how long a rendered artifact stays cached.
const TTLArtifact = 7 * 24 * time.Hour

// Renderer renders graphs with artifact caching.
type Renderer struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	Scale  float64 // PNG scale factor; zero means 2
}

// NewRenderer creates a renderer. A nil cache disables caching; a nil keyer
// means the default keyer.
func NewRenderer(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Renderer {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Renderer{Cache: c, Keyer: keyer, Logger: logger, Scale: 2}
}

// Render produces g in format and reports whether the artifact came from
// the cache.
func (r *Renderer) Render(ctx context.Context, g *nodegraph.Graph, format string, opts Options) ([]byte, bool, error) {
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}
	if !validFormat(format) {
		return nil, false, pgerrors.New(pgerrors.ErrCodeInvalidFormat, "unsupported render format %q", format)
	}

	snapshot, err := codec.EncodeGraph(codec.Default, g)
	if err != nil {
		return nil, false, fmt.Errorf("serialize graph for cache key: %w", err)
	}
	key := r.Keyer.ArtifactKey(cache.Hash(snapshot), cache.ArtifactKeyOpts{
		Format:   format,
		Rankdir:  opts.Rankdir,
		ShowPins: opts.ShowPins,
	})
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		r.Logger.Debug("render cache hit", "format", format)
		return data, true, nil
	}

	start := time.Now()
	data, err := r.render(ctx, g, format, opts)
	if err != nil {
		return nil, false, err
	}
	if err := r.Cache.Set(ctx, key, data, TTLArtifact); err != nil {
		r.Logger.Warn("render cache write failed", "err", err)
	}
	r.Logger.Debug("rendered graph", "format", format, "nodes", g.Len(), "bytes", len(data), "duration", time.Since(start))
	return data, false, nil
}

func (r *Renderer) render(ctx context.Context, g *nodegraph.Graph, format string, opts Options) ([]byte, error) {
	src := ToDOT(g, opts)
	if format == FormatDOT {
		return []byte(src), nil
	}
	svg, err := RenderSVG(ctx, src)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatPNG:
		scale := r.Scale
		if scale <= 0 {
			scale = 2
		}
		return render.ToPNG(ctx, svg, scale)
	case FormatPDF:
		return render.ToPDF(ctx, svg)
	}
	return svg, nil
}

func validFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}
