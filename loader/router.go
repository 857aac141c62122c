package loader

import (
	"sync"

	"github.com/zipix/zipix/cache"
	"github.com/zipix/zipix/log"
)

// Consumer is one UI surface's view of the result stream: a cursor
// naming the key it currently expects and a buffered channel of
// matching results. Everything not matching the cursor is dropped
// before it reaches the channel.
type Consumer struct {
	name string

	mu       sync.Mutex
	expected *cache.Key

	ch chan Result
}

// Name returns the consumer label.
func (c *Consumer) Name() string { return c.name }

// Expect declares the key the surface is now waiting for. Results for
// any other key become stale for this consumer.
func (c *Consumer) Expect(key cache.Key) {
	c.mu.Lock()
	k := key
	c.expected = &k
	c.mu.Unlock()
}

// ExpectNone declares that the surface awaits nothing, dropping every
// result until the next Expect.
func (c *Consumer) ExpectNone() {
	c.mu.Lock()
	c.expected = nil
	c.mu.Unlock()
}

// Expecting reports whether key matches the cursor.
func (c *Consumer) Expecting(key cache.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expected != nil && *c.expected == key
}

// Results is the surface's delivery channel. The surface owns how it
// drains it: blocking receive, select loop or periodic poll.
func (c *Consumer) Results() <-chan Result { return c.ch }

func (c *Consumer) offer(res Result) {
	for {
		select {
		case c.ch <- res:
			return
		default:
		}
		// Channel full: the surface stopped draining. Shed the oldest
		// pending result, which its cursor has outlived anyway.
		select {
		case old := <-c.ch:
			log.Debugf("router: consumer %q backlogged, shed result for %s", c.name, old.Key)
		default:
		}
	}
}

// Router fans completed loads out to whichever consumers still expect
// their key. A result nobody expects is dropped with no effect beyond
// having warmed the cache.
type Router struct {
	mu        sync.RWMutex
	consumers map[string]*Consumer
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{consumers: make(map[string]*Consumer)}
}

// Register adds a consumer with the given delivery buffer.
func (r *Router) Register(name string, buffer int) *Consumer {
	if buffer <= 0 {
		buffer = 4
	}
	c := &Consumer{name: name, ch: make(chan Result, buffer)}

	r.mu.Lock()
	r.consumers[name] = c
	r.mu.Unlock()
	return c
}

// Unregister removes a consumer. Its channel is left open; pending
// results drain and the channel is garbage collected with it.
func (r *Router) Unregister(name string) {
	r.mu.Lock()
	delete(r.consumers, name)
	r.mu.Unlock()
}

// Deliver routes one result to every consumer whose cursor matches its
// key. Matching is by key, not by requesting consumer, so a preview
// panel and a viewer window waiting on the same member both get it.
func (r *Router) Deliver(res Result) {
	r.mu.RLock()
	targets := make([]*Consumer, 0, len(r.consumers))
	for _, c := range r.consumers {
		if c.Expecting(res.Key) {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		staleDrops.Inc()
		log.Debugf("router: dropping stale result for %s", res.Key)
		return
	}
	for _, c := range targets {
		c.offer(res)
	}
}
