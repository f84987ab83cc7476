// Package views holds the screen-lifetime local lists (rooms, students,
// payments) an owner client works against. A view fetches on Refresh, keeps
// its list until the next Refresh, patches it through a toggle.Coordinator
// and drops any response that arrives after Close.
package views

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"staytrack/internal/core"
)

// ErrClosed is returned by operations on a closed view.
var ErrClosed = errors.New("view closed")

// base carries the lifetime context and refresh generation shared by views.
type base struct {
	svc    *core.Service
	sess   core.Session
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu  sync.RWMutex
	gen uint64
}

func (b *base) init(parent context.Context, svc *core.Service, sess core.Session, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b.svc, b.sess, b.logger = svc, sess, logger
	b.ctx, b.cancel = context.WithCancel(parent)
}

// Close cancels in-flight fetches; later results are discarded.
func (b *base) Close() {
	b.cancel()
}

// Closed reports whether Close was called.
func (b *base) Closed() bool {
	return b.ctx.Err() != nil
}

// startFetch returns the context and generation for a new fetch.
func (b *base) startFetch() (context.Context, uint64, error) {
	if b.Closed() {
		return nil, 0, ErrClosed
	}
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.mu.Unlock()
	return b.ctx, gen, nil
}

// apply runs fn under the write lock when gen is still the newest fetch and
// the view is open. It reports whether fn ran.
func (b *base) apply(gen uint64, fn func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen || b.Closed() {
		b.logger.Debug("discarding stale view result", zap.Uint64("generation", gen))
		return false
	}
	fn()
	return true
}

func (b *base) live() error {
	if b.Closed() {
		return ErrClosed
	}
	return nil
}
