package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"papertalk/internal/domain"
	"papertalk/internal/logger"
	"papertalk/internal/port"
)

// PoolConfig tunes how a Pool spreads work over the underlying embedder.
type PoolConfig struct {
	// BatchSize is the number of texts sent per request.
	BatchSize int
	// Workers bounds the number of requests in flight.
	Workers int
	// RequestsPerSecond throttles requests. Zero means unlimited.
	RequestsPerSecond float64
	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration
}

// Pool wraps an Embedder with batching, bounded concurrency, rate limiting
// and per-request timeouts. Output order always matches input order and
// every vector is checked against the embedder's dimension.
type Pool struct {
	embedder port.Embedder
	cfg      PoolConfig
	limiter  *rate.Limiter
}

// NewPool creates a pool around embedder.
func NewPool(embedder port.Embedder, cfg PoolConfig) *Pool {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Workers)
	}
	return &Pool{embedder: embedder, cfg: cfg, limiter: limiter}
}

// Embed embeds texts. Any failed batch fails the whole call; no partial
// result or placeholder vector is ever returned.
func (p *Pool) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	defer logger.Timed(fmt.Sprintf("embed %d texts", len(texts)))()

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for start := 0; start < len(texts); start += p.cfg.BatchSize {
		start := start
		end := min(start+p.cfg.BatchSize, len(texts))
		g.Go(func() error {
			if err := p.limiter.Wait(gctx); err != nil {
				return classify(err)
			}
			vecs, err := p.embedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pool) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	vecs, err := p.embedder.Embed(ctx, batch)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, classify(err)
	}
	if len(vecs) != len(batch) {
		return nil, domain.Errorf(domain.ErrEmbeddingUnavailable, "embed", "expected %d vectors, got %d", len(batch), len(vecs))
	}

	dim := p.embedder.Dimension()
	for i, v := range vecs {
		if len(v) != dim {
			return nil, domain.Errorf(domain.ErrEmbeddingUnavailable, "embed", "vector %d has dimension %d, expected %d", i, len(v), dim)
		}
		for _, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return nil, domain.Errorf(domain.ErrEmbeddingUnavailable, "embed", "vector %d contains non-finite values", i)
			}
		}
	}
	return vecs, nil
}

func (p *Pool) Dimension() int {
	return p.embedder.Dimension()
}

func (p *Pool) ModelName() string {
	return p.embedder.ModelName()
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.E(domain.ErrTimeout, "embed", err)
	}
	return domain.Classify(domain.ErrEmbeddingUnavailable, "embed", err)
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e port.Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, domain.Errorf(domain.ErrEmbeddingUnavailable, "embed", "expected 1 vector, got %d", len(vecs))
	}
	return vecs[0], nil
}
