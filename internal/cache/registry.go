package cache

import "sync"

// registry tracks the views holding dirty bytes. Membership is a strong
// reference: a dirty view stays reachable until it is flushed, truncated to
// empty or closed.
type registry struct {
	mu     sync.Mutex
	views  map[*View]struct{}
	closed bool
}

func newRegistry() *registry {
	return &registry{views: make(map[*View]struct{})}
}

// add registers v and reports whether the registry still accepts views.
func (r *registry) add(v *View) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.views[v] = struct{}{}
	return true
}

func (r *registry) remove(v *View) {
	r.mu.Lock()
	delete(r.views, v)
	r.mu.Unlock()
}

func (r *registry) snapshot() []*View {
	r.mu.Lock()
	defer r.mu.Unlock()

	views := make([]*View, 0, len(r.views))
	for v := range r.views {
		views = append(views, v)
	}
	return views
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// close marks the registry closed and reports whether it was open.
func (r *registry) close() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.closed = true
	return true
}

func (r *registry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
