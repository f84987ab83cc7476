// Package toggle serialises user-triggered mutations per entity id and keeps
// a local cache consistent with the confirmed backend state.
//
// Each id moves Idle -> InFlight -> Idle. A second request for an id that is
// already in flight is skipped, not queued and not failed.
package toggle

import (
	"context"
	"sync"
)

// State is the per-id coordinator state.
type State int

const (
	Idle State = iota
	InFlight
)

func (s State) String() string {
	if s == InFlight {
		return "in_flight"
	}
	return "idle"
}

// Kind tags an Outcome.
type Kind int

const (
	Ok Kind = iota
	Err
	Skipped
)

func (k Kind) String() string {
	switch k {
	case Ok:
		return "ok"
	case Err:
		return "err"
	default:
		return "skipped"
	}
}

// Outcome is the tagged result of Run. Value holds the confirmed value for
// Ok and the restored prior value for Err.
type Outcome[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// Cache is the local state patched by a Coordinator.
type Cache[T any] interface {
	Get(id string) (T, bool)
	Put(id string, value T)
}

// Coordinator guards mutations per id and patches Cache with their results.
type Coordinator[T any] struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	cache    Cache[T]
}

// New returns a coordinator patching cache. cache may be nil.
func New[T any](cache Cache[T]) *Coordinator[T] {
	return &Coordinator[T]{inFlight: make(map[string]struct{}), cache: cache}
}

// Begin marks id in flight. It reports false when id already is.
func (c *Coordinator[T]) Begin(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[id]; busy {
		return false
	}
	c.inFlight[id] = struct{}{}
	return true
}

// Complete returns id to Idle.
func (c *Coordinator[T]) Complete(id string) {
	c.mu.Lock()
	delete(c.inFlight, id)
	c.mu.Unlock()
}

// State reports the current state of id.
func (c *Coordinator[T]) State(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[id]; busy {
		return InFlight
	}
	return Idle
}

// Run executes mutate for id unless a mutation for id is already in flight.
// On success the cache holds the confirmed value; on failure the prior value
// is restored. The in-flight marker is cleared on every path, including a
// panicking mutate.
func (c *Coordinator[T]) Run(ctx context.Context, id string, mutate func(ctx context.Context, prior T) (T, error)) Outcome[T] {
	return c.RunOptimistic(ctx, id, nil, mutate)
}

// RunOptimistic is Run with an optimistic patch applied to the cache before
// mutate is called. The patch is reverted when mutate fails or panics; a
// panic is re-raised after the revert.
func (c *Coordinator[T]) RunOptimistic(ctx context.Context, id string, optimistic func(T) T, mutate func(ctx context.Context, prior T) (T, error)) Outcome[T] {
	if !c.Begin(id) {
		var zero T
		return Outcome[T]{Kind: Skipped, Value: zero}
	}
	defer c.Complete(id)

	var (
		prior   T
		patched bool
	)
	if c.cache != nil {
		prior, _ = c.cache.Get(id)
		if optimistic != nil {
			c.cache.Put(id, optimistic(prior))
			patched = true
		}
	}
	defer func() {
		if r := recover(); r != nil {
			if patched {
				c.cache.Put(id, prior)
			}
			panic(r)
		}
	}()
	confirmed, err := mutate(ctx, prior)
	if err != nil {
		if patched {
			c.cache.Put(id, prior)
		}
		return Outcome[T]{Kind: Err, Value: prior, Err: err}
	}
	if c.cache != nil {
		c.cache.Put(id, confirmed)
	}
	return Outcome[T]{Kind: Ok, Value: confirmed}
}

// Map is a concurrency-safe Cache backed by a map.
type Map[T any] struct {
	mu     sync.RWMutex
	values map[string]T
}

// NewMap returns an empty Map.
func NewMap[T any]() *Map[T] {
	return &Map[T]{values: make(map[string]T)}
}

// Get implements Cache.
func (m *Map[T]) Get(id string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[id]
	return v, ok
}

// Put implements Cache.
func (m *Map[T]) Put(id string, value T) {
	m.mu.Lock()
	m.values[id] = value
	m.mu.Unlock()
}
