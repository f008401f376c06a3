// Package hub fans rendered packets out to live subscribers. Each subscriber
// owns a bounded backlog; a slow subscriber is never dropped and never blocks
// the publisher — overflow evicts its oldest unread packets and surfaces the
// skipped count as an explicit lag event.
package hub

import (
	"sync"

	"github.com/zhound420/sonicticker/internal/audio"
	"github.com/zhound420/sonicticker/internal/market"
	"github.com/zhound420/sonicticker/internal/music"
)

// DefaultBacklog is the per-subscriber packet buffer size.
const DefaultBacklog = 32

// Packet is the immutable unit published per pipeline tick. It is shared
// read-only across every subscriber of one broadcast.
type Packet struct {
	Asset   string         `json:"asset"`
	Metrics market.Metrics `json:"metrics"`
	Params  music.Params   `json:"params"`
	Chunk   *audio.Chunk   `json:"-"`
}

// Hub is the per-asset broadcast registry. Topics are created lazily on first
// subscribe; publishing to an asset with no subscribers is a no-op.
type Hub struct {
	mu      sync.RWMutex
	backlog int
	topics  map[string]*topic
}

type topic struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// New builds a hub whose subscribers buffer up to backlog packets.
func New(backlog int) *Hub {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Hub{backlog: backlog, topics: make(map[string]*topic)}
}

// Provision pre-creates the topic for an asset so configured assets do not pay
// the lazy-creation lock on first subscribe.
func (h *Hub) Provision(asset string) {
	h.getOrCreate(asset)
}

// Subscribe attaches a new subscriber to the asset's stream. The handle
// receives every packet published after this call.
func (h *Hub) Subscribe(asset string) *Subscription {
	t := h.getOrCreate(asset)
	sub := &Subscription{
		topic:   t,
		backlog: h.backlog,
		notify:  make(chan struct{}, 1),
	}
	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()
	return sub
}

// Publish delivers the packet to every current subscriber of its asset.
// It never blocks on a slow subscriber.
func (h *Hub) Publish(p *Packet) {
	h.mu.RLock()
	t := h.topics[p.Asset]
	h.mu.RUnlock()
	if t == nil {
		return
	}

	t.mu.Lock()
	for sub := range t.subs {
		sub.push(p)
	}
	t.mu.Unlock()
}

// Subscribers reports the number of live subscriptions for an asset.
func (h *Hub) Subscribers(asset string) int {
	h.mu.RLock()
	t := h.topics[asset]
	h.mu.RUnlock()
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// getOrCreate is the single synchronization point for lazy topic creation, so
// two concurrent first-subscribers resolve to the same topic.
func (h *Hub) getOrCreate(asset string) *topic {
	h.mu.RLock()
	t := h.topics[asset]
	h.mu.RUnlock()
	if t != nil {
		return t
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if t = h.topics[asset]; t == nil {
		t = &topic{subs: make(map[*Subscription]struct{})}
		h.topics[asset] = t
	}
	return t
}
