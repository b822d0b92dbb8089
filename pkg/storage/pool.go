package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Pool creates backends on first use and keeps them for the rest of a run
type Pool struct {
	factory *Factory
	configs map[string]Config
	logger  zerolog.Logger

	mu       sync.Mutex
	backends map[string]Backend
	order    []string
}

// NewPool creates a pool over the given backend configurations
func NewPool(configs []Config, logger zerolog.Logger) *Pool {
	byName := make(map[string]Config, len(configs))
	for _, cfg := range configs {
		byName[cfg.Name] = cfg
	}
	return &Pool{
		factory:  NewFactory(),
		configs:  byName,
		logger:   logger,
		backends: make(map[string]Backend),
	}
}

// Config returns the configuration of a named, enabled destination
func (p *Pool) Config(name string) (Config, bool) {
	cfg, ok := p.configs[name]
	if !ok || !cfg.Enabled {
		return Config{}, false
	}
	return cfg, true
}

// Get returns the backend for a destination name, creating it if needed
func (p *Pool) Get(ctx context.Context, name string) (Backend, error) {
	cfg, ok := p.Config(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown or disabled destination %q", ErrInvalidConfig, name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.backends[name]; ok {
		return b, nil
	}

	b, err := p.factory.Create(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend %s: %w", name, err)
	}

	p.logger.Info().
		Str("backend", name).
		Str("type", cfg.Type).
		Msg("initialized storage backend")

	p.backends[name] = b
	p.order = append(p.order, name)
	return b, nil
}

// Close closes every backend created so far
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for _, name := range p.order {
		if err := p.backends[name].Close(); err != nil {
			p.logger.Warn().Err(err).Str("backend", name).Msg("failed to close storage backend")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	p.backends = make(map[string]Backend)
	p.order = nil
	return firstErr
}
