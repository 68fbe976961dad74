package server

import (
	"sync"

	"github.com/gogpu/glowmap"
	"github.com/gogpu/glowmap/internal/host"
)

// Hub fans snapshots and cell touches out to every connected viewer and
// remembers the latest snapshot for new ones.
type Hub struct {
	mu       sync.Mutex
	latest   *glowmap.Snapshot
	loading  bool
	sessions map[string]*session
}

// NewHub returns an empty hub. Until the first snapshot arrives viewers
// show the loading placeholder.
func NewHub() *Hub {
	return &Hub{loading: true, sessions: make(map[string]*session)}
}

// SetSnapshot publishes s to all viewers.
func (h *Hub) SetSnapshot(s *glowmap.Snapshot) {
	h.mu.Lock()
	h.latest = s
	h.loading = false
	sessions := h.list()
	h.mu.Unlock()

	for _, sess := range sessions {
		sess.deliver("loading", sess.loop.SetLoading(false))
		sess.deliver("snapshot", sess.loop.SetSnapshot(s))
	}
}

// Touch notifies all viewers that a cell's counts changed.
func (h *Hub) Touch(period, tier int) {
	h.mu.Lock()
	sessions := h.list()
	h.mu.Unlock()

	for _, sess := range sessions {
		sess.deliver("touch", sess.loop.Touch(host.Touch{Period: period, Tier: tier}))
	}
}

// Latest returns the latest snapshot, or nil.
func (h *Hub) Latest() *glowmap.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Len returns the number of connected viewers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// CloseAll disconnects every viewer.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := h.list()
	h.mu.Unlock()
	for _, sess := range sessions {
		sess.close()
	}
}

// add registers sess and primes its loop with the current state.
func (h *Hub) add(sess *session) {
	h.mu.Lock()
	h.sessions[sess.id] = sess
	latest, loading := h.latest, h.loading
	h.mu.Unlock()

	sess.deliver("loading", sess.loop.SetLoading(loading))
	if latest != nil {
		sess.deliver("snapshot", sess.loop.SetSnapshot(latest))
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// list must be called with h.mu held.
func (h *Hub) list() []*session {
	out := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// deliver logs a failed hand-off to a session's loop. The loop only
// refuses events once it has stopped, which happens while the session
// is shutting down.
func (sess *session) deliver(event string, err error) {
	if err != nil {
		glowmap.Logger().Debug("server: event not delivered", "session", sess.id, "event", event, "err", err)
	}
}
