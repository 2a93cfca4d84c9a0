package engine

import (
	"context"
	"io"
	"sync"

	"papertalk/config"
	"papertalk/internal/domain"
	"papertalk/internal/port"
)

// lazyGenerator defers building the configured generation client until the
// first Generate, so commands that never ask do not need its credentials.
type lazyGenerator struct {
	cfg config.GenerationConfig

	once sync.Once
	mu   sync.Mutex
	gen  port.Generator
	err  error
}

func newLazyGenerator(cfg config.GenerationConfig) *lazyGenerator {
	return &lazyGenerator{cfg: cfg}
}

func (l *lazyGenerator) build(ctx context.Context) (port.Generator, error) {
	l.once.Do(func() {
		gen, err := newGenerator(context.WithoutCancel(ctx), l.cfg)
		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.err = domain.E(domain.ErrInvalidConfiguration, "generator", err)
			return
		}
		l.gen = gen
	})
	return l.gen, l.err
}

func (l *lazyGenerator) Generate(ctx context.Context, prompt string, opts port.GenerateOptions) (string, error) {
	gen, err := l.build(ctx)
	if err != nil {
		return "", err
	}
	if gen == nil {
		return "", domain.Errorf(domain.ErrInvalidConfiguration, "generator", "provider %q cannot generate", l.cfg.Provider)
	}
	return gen.Generate(ctx, prompt, opts)
}

func (l *lazyGenerator) ModelName() string {
	if l.cfg.Model == "" {
		return l.cfg.Provider
	}
	return l.cfg.Model
}

// Close releases the client if one was built.
func (l *lazyGenerator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.gen.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
