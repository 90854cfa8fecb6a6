// internal/browser/pool.go
package browser

import (
	"context"
	"fmt"
	"sync"
)

// Factory creates a renderer; the pool calls it lazily up to capacity.
type Factory func() (Renderer, error)

// Pool is a fixed-capacity renderer pool. Capacity equals the worker-pool
// bound, so the number of concurrently in-flight renders can never exceed
// it: a worker without a pooled renderer blocks in Get. Renderers are
// created lazily and handed out exclusively; Put returns them for reuse.
type Pool struct {
	factory   Factory
	renderers chan Renderer
	capacity  int

	mu      sync.Mutex
	created int
	closed  bool
}

// NewPool creates a pool of the given capacity backed by factory.
func NewPool(capacity int, factory Factory) (*Pool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("pool capacity must be positive, got %d", capacity)
	}
	if factory == nil {
		return nil, fmt.Errorf("pool factory is required")
	}
	return &Pool{
		factory:   factory,
		renderers: make(chan Renderer, capacity),
		capacity:  capacity,
	}, nil
}

// NewChromePool creates a pool of Chrome renderers sized from config.
func NewChromePool(config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	size := config.PoolSize
	if size <= 0 {
		size = DefaultConfig().PoolSize
	}
	return NewPool(size, func() (Renderer, error) {
		return NewChromeRenderer(config)
	})
}

// Get acquires a renderer, creating one if the pool is under capacity, or
// blocking until a renderer is returned or ctx is done.
func (p *Pool) Get(ctx context.Context) (Renderer, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("renderer pool is closed")
	}
	p.mu.Unlock()

	select {
	case r := <-p.renderers:
		return r, nil
	default:
	}

	p.mu.Lock()
	if p.created < p.capacity {
		p.created++
		p.mu.Unlock()

		r, err := p.factory()
		if err != nil {
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
			return nil, fmt.Errorf("failed to create renderer: %w", err)
		}
		return r, nil
	}
	p.mu.Unlock()

	select {
	case r := <-p.renderers:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns a renderer to the pool. Renderers handed back after Close are
// shut down instead.
func (p *Pool) Put(r Renderer) {
	if r == nil {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		r.Close()
		return
	}

	select {
	case p.renderers <- r:
	default:
		// More returns than capacity means a caller double-released; drop
		// the extra renderer.
		r.Close()
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
	}
}

// Discard removes a renderer from circulation without returning it, used
// when a render left the browser in a bad state.
func (p *Pool) Discard(r Renderer) {
	if r == nil {
		return
	}
	r.Close()
	p.mu.Lock()
	p.created--
	p.mu.Unlock()
}

// Capacity returns the configured maximum number of renderers.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Idle returns the number of renderers currently available without waiting.
func (p *Pool) Idle() int {
	return len(p.renderers)
}

// Close shuts down all pooled renderers. Renderers currently checked out
// are closed when returned.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case r := <-p.renderers:
			r.Close()
		default:
			return nil
		}
	}
}
