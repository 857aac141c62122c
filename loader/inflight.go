package loader

import (
	"sync"
	"time"

	"github.com/zipix/zipix/cache"
)

// flight tracks one in-progress decode and every task waiting on it.
// Flights are keyed by the full-resolution key: all variants of a
// member share one decode.
type flight struct {
	created time.Time
	waiters []*Task
}

// inflightRegistry prevents duplicate decode work for a key. The first
// task for an absent key becomes the leader and runs the decode; later
// tasks attach as waiters and are completed from the leader's result.
type inflightRegistry struct {
	mu      sync.Mutex
	flights map[cache.Key]*flight
}

func newInflightRegistry() *inflightRegistry {
	return &inflightRegistry{flights: make(map[cache.Key]*flight)}
}

// begin registers t under key. It reports whether t is the leader.
func (r *inflightRegistry) begin(key cache.Key, t *Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.flights[key]; ok {
		f.waiters = append(f.waiters, t)
		return false
	}
	r.flights[key] = &flight{created: time.Now(), waiters: []*Task{t}}
	return true
}

// take removes the flight for key and returns every attached task.
// Tasks that attach after take starts a fresh flight; a racing
// duplicate decode is idempotent, so the overlap is only wasted work.
func (r *inflightRegistry) take(key cache.Key) []*Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.flights[key]
	if !ok {
		return nil
	}
	delete(r.flights, key)
	return f.waiters
}

// fullyCanceled reports whether every waiter of the flight for key has
// been canceled. One live waiter keeps the decode worthwhile.
func (r *inflightRegistry) fullyCanceled(key cache.Key, leader *Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.flights[key]
	if !ok {
		return leader.canceled.Load()
	}
	for _, w := range f.waiters {
		if !w.canceled.Load() {
			return false
		}
	}
	return true
}

// contains reports whether a decode for key is in progress.
func (r *inflightRegistry) contains(key cache.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.flights[key]
	return ok
}

func (r *inflightRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flights)
}
