package session

import (
	"sync"

	"github.com/aussiebroadwan/authsession/pkg/idx"
)

// Listener observes authentication transitions. audience is the audience the
// change concerns; it is "" for the default slot and on sign-out.
type Listener func(authenticated bool, audience string)

type subscription struct {
	id idx.ID
	fn Listener
}

// registry stores listeners under monotonic handles so iteration follows
// registration order and a handle is never reused.
type registry struct {
	mu   sync.Mutex
	gen  *idx.Generator
	subs []subscription
}

func newRegistry(gen *idx.Generator) *registry {
	return &registry{gen: gen}
}

func (r *registry) add(fn Listener) idx.ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.gen.New()
	r.subs = append(r.subs, subscription{id: id, fn: fn})
	return id
}

func (r *registry) remove(id idx.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.subs {
		if s.id == id {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (r *registry) snapshot() []subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]subscription, len(r.subs))
	copy(out, r.subs)
	return out
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
