// Package live fans committed mess menu changes out to subscribers. A Hub
// delivers in process; a RedisRelay forwards changes between processes.
package live

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"staytrack/pkg/domain"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 16

// Relay forwards a locally committed entry to other processes.
type Relay interface {
	Publish(ctx context.Context, entry domain.MenuEntry) error
}

// Hub keeps per-owner subscriptions.
type Hub struct {
	logger *zap.Logger

	mu    sync.Mutex
	subs  map[string]map[*Subscription]struct{}
	relay Relay
}

// NewHub returns an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{logger: logger.Named("live"), subs: make(map[string]map[*Subscription]struct{})}
}

// SetRelay installs r for cross-process delivery.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

// Subscribe registers a subscription for ownerID's menu changes. The caller
// must Dispose it.
func (h *Hub) Subscribe(ownerID string) *Subscription {
	sub := &Subscription{hub: h, ownerID: ownerID, ch: make(chan domain.MenuEntry, DefaultBuffer)}
	h.mu.Lock()
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[*Subscription]struct{})
	}
	h.subs[ownerID][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Subscribers returns the number of live subscriptions for ownerID.
func (h *Hub) Subscribers(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[ownerID])
}

// PublishMenu delivers entry locally and forwards it through the relay.
func (h *Hub) PublishMenu(ctx context.Context, entry domain.MenuEntry) {
	h.Deliver(entry)
	h.mu.Lock()
	relay := h.relay
	h.mu.Unlock()
	if relay == nil {
		return
	}
	if err := relay.Publish(ctx, entry); err != nil {
		h.logger.Warn("relay publish failed", zap.String("owner_id", entry.OwnerID), zap.Error(err))
	}
}

// Deliver hands entry to every local subscriber of its owner. Slow
// subscribers whose buffer is full miss the update.
func (h *Hub) Deliver(entry domain.MenuEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[entry.OwnerID] {
		select {
		case sub.ch <- entry:
		default:
			h.logger.Warn("dropping menu update for slow subscriber", zap.String("owner_id", entry.OwnerID))
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.subs[sub.ownerID]; set != nil {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.ownerID)
		}
	}
	close(sub.ch)
}

// Subscription is a disposable stream of menu entries.
type Subscription struct {
	hub     *Hub
	ownerID string
	ch      chan domain.MenuEntry
	once    sync.Once
}

// Updates returns the entry stream. It is closed by Dispose.
func (s *Subscription) Updates() <-chan domain.MenuEntry { return s.ch }

// Dispose unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Dispose() {
	s.once.Do(func() { s.hub.remove(s) })
}
