// Package provider wraps a remote embeddings.Embedder with input truncation,
// a per-call timeout and a circuit breaker. It never returns an error: a
// failed call yields a zero vector with OK set to false.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/embeddings"
	"github.com/papercomputeco/nook/pkg/metrics"
	"github.com/papercomputeco/nook/pkg/utils"
	"github.com/papercomputeco/nook/pkg/vector"
)

const (
	DefaultMaxChars         = 8000
	DefaultRequestTimeout   = 15 * time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerTimeout   = 30 * time.Second
)

// Config holds configuration for the provider.
type Config struct {
	// Dimensions is the required embedding length. Required.
	Dimensions int

	// MaxChars truncates input to this many runes before sending it.
	MaxChars int

	// RequestTimeout bounds every remote call.
	RequestTimeout time.Duration

	// BreakerThreshold is the number of consecutive failures that open the
	// circuit.
	BreakerThreshold int

	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration
}

// Result is the outcome of one embedding call. When OK is false Values is a
// zero vector of the configured dimension.
type Result struct {
	Values []float32
	OK     bool
}

// Provider produces embeddings or a zero-vector fallback.
type Provider struct {
	embedder embeddings.Embedder
	breaker  circuitbreaker.CircuitBreaker[[]float32]
	config   Config
	logger   *zap.Logger
}

// New creates a provider. A nil embedder is allowed and makes every call
// unavailable.
func New(embedder embeddings.Embedder, c Config, logger *zap.Logger) (*Provider, error) {
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be configured, got %d", c.Dimensions)
	}
	if c.MaxChars <= 0 {
		c.MaxChars = DefaultMaxChars
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = DefaultBreakerThreshold
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = DefaultBreakerTimeout
	}

	threshold := uint32(c.BreakerThreshold) // #nosec G115 -- validated positive above

	return &Provider{
		embedder: embedder,
		breaker: circuitbreaker.New[[]float32](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    c.BreakerTimeout,
			Timeout:     c.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
		config: c,
		logger: logger,
	}, nil
}

// Dimensions returns the embedding length.
func (p *Provider) Dimensions() int {
	return p.config.Dimensions
}

// Available reports whether a remote embedder is configured.
func (p *Provider) Available() bool {
	return p.embedder != nil
}

// BreakerState returns the circuit breaker state for diagnostics.
func (p *Provider) BreakerState() string {
	return p.breaker.State().String()
}

// Embed calls the remote embedder. It never fails; check Result.OK.
func (p *Provider) Embed(ctx context.Context, text string) Result {
	if p.embedder == nil || strings.TrimSpace(text) == "" {
		return p.unavailable()
	}

	input := utils.TruncateRunes(text, p.config.MaxChars)
	name := p.embedder.Name()
	start := time.Now()

	values, err := p.breaker.Execute(ctx, func(ctx context.Context) ([]float32, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
		defer cancel()

		values, err := p.embedder.Embed(callCtx, input)
		if err != nil {
			return nil, err
		}
		if len(values) != p.config.Dimensions {
			return nil, fmt.Errorf("%w: provider returned %d dimensions, want %d",
				vector.ErrDimensionMismatch, len(values), p.config.Dimensions)
		}
		return values, nil
	})
	metrics.ProviderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderRequests.WithLabelValues(name, "error").Inc()
		p.logger.Warn("embedding provider failed, using zero vector",
			zap.String("provider", name),
			zap.String("breaker", p.BreakerState()),
			zap.Error(err),
		)
		return p.unavailable()
	}

	metrics.ProviderRequests.WithLabelValues(name, "ok").Inc()
	return Result{Values: values, OK: true}
}

func (p *Provider) unavailable() Result {
	return Result{Values: vector.Zero(p.config.Dimensions), OK: false}
}

// Close releases the embedder.
func (p *Provider) Close() error {
	if p.embedder == nil {
		return nil
	}
	return p.embedder.Close()
}
