// Package resolve turns text into an embedding by trying, in order, the
// offline pattern index, the exact-match cache and the remote provider.
package resolve

import (
	"context"

	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/embeddings/cache"
	"github.com/papercomputeco/nook/pkg/embeddings/pattern"
	"github.com/papercomputeco/nook/pkg/embeddings/provider"
	"github.com/papercomputeco/nook/pkg/metrics"
	"github.com/papercomputeco/nook/pkg/vector"
)

// Source names the tier that produced an embedding.
type Source string

const (
	SourcePattern     Source = "pattern"
	SourceCache       Source = "cache"
	SourceProvider    Source = "provider"
	SourceUnavailable Source = "unavailable"
)

// Resolution is the outcome of resolving one text.
type Resolution struct {
	// Values is the embedding, or a zero vector when Source is
	// SourceUnavailable.
	Values []float32
	Source Source

	// Score is the pattern similarity when Source is SourcePattern.
	Score float64
}

// OK reports whether a usable embedding was produced.
func (r Resolution) OK() bool {
	return r.Source != SourceUnavailable
}

// Resolver runs the resolution chain. The pattern index and cache are
// optional.
type Resolver struct {
	patterns *pattern.Index
	cache    *cache.Cache
	provider *provider.Provider
	logger   *zap.Logger
}

// New creates a resolver.
func New(patterns *pattern.Index, c *cache.Cache, p *provider.Provider, logger *zap.Logger) *Resolver {
	return &Resolver{patterns: patterns, cache: c, provider: p, logger: logger}
}

// Dimensions returns the embedding length produced by the chain.
func (r *Resolver) Dimensions() int {
	return r.provider.Dimensions()
}

// Resolve returns an embedding for text. Each call records the text with
// the pattern tracker.
func (r *Resolver) Resolve(ctx context.Context, text string) Resolution {
	res := r.resolve(ctx, text)
	metrics.EmbeddingResolutions.WithLabelValues(string(res.Source)).Inc()

	if r.patterns != nil {
		var emb []float32
		if res.OK() {
			emb = res.Values
		}
		r.patterns.Track(ctx, text, emb)
	}

	r.logger.Debug("embedding resolved",
		zap.String("source", string(res.Source)),
		zap.Float64("pattern_score", res.Score),
	)
	return res
}

func (r *Resolver) resolve(ctx context.Context, text string) Resolution {
	dim := r.provider.Dimensions()

	if r.patterns != nil {
		if p, score, ok := r.patterns.FindClosest(ctx, text); ok && len(p.Embedding) == dim {
			return Resolution{Values: p.Embedding, Source: SourcePattern, Score: score}
		}
	}

	if r.cache != nil {
		if emb, ok := r.cache.Get(ctx, text); ok && len(emb) == dim {
			return Resolution{Values: emb, Source: SourceCache}
		}
	}

	result := r.provider.Embed(ctx, text)
	if !result.OK {
		return Resolution{Values: vector.Zero(dim), Source: SourceUnavailable}
	}

	if r.cache != nil {
		r.cache.Set(ctx, text, result.Values)
	}
	return Resolution{Values: result.Values, Source: SourceProvider}
}
