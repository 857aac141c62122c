package archive

import (
	"container/list"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zipix/zipix/cache"
	"github.com/zipix/zipix/log"
)

// DefaultMaxOpen bounds simultaneously open archives when the pool is
// constructed with a non-positive limit.
const DefaultMaxOpen = 10

var openHandles = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "archive_open_handles",
	Help: "Number of archives currently held open by the pool",
})

func init() {
	prometheus.MustRegister(openHandles)
}

// Pool keeps up to maxOpen archives open, evicting the least recently
// used handle when the bound is exceeded. Failed opens are never
// cached; the next Acquire retries from scratch.
type Pool struct {
	mu      sync.Mutex
	maxOpen int
	ll      *list.List               // front = most recently used
	items   map[string]*list.Element // value = *Handle
	closed  bool
}

// NewPool constructs a pool holding at most maxOpen open archives.
func NewPool(maxOpen int) *Pool {
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpen
	}
	return &Pool{
		maxOpen: maxOpen,
		ll:      list.New(),
		items:   make(map[string]*list.Element, maxOpen),
	}
}

// Acquire returns a handle for the archive at path, opening it if
// absent and evicting the least recently used handle when the pool is
// full. The caller must Release the handle when done with it.
func (p *Pool) Acquire(path string) (*Handle, error) {
	path = cache.NormalizePath(path)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if el, ok := p.items[path]; ok {
		p.ll.MoveToFront(el)
		h := el.Value.(*Handle)
		h.retain()
		p.mu.Unlock()
		return h, nil
	}
	p.mu.Unlock()

	// Open outside the lock; zip central directory parsing is I/O.
	h, err := openHandle(path)
	if err != nil {
		log.Errorf("archive pool: %s", err)
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		h.discard()
		return nil, ErrPoolClosed
	}
	if el, ok := p.items[path]; ok {
		// Lost a race with a concurrent open of the same archive.
		// Keep the pooled one.
		p.ll.MoveToFront(el)
		pooled := el.Value.(*Handle)
		pooled.retain()
		p.mu.Unlock()
		h.discard()
		return pooled, nil
	}

	var evicted []*Handle
	for len(p.items) >= p.maxOpen {
		el := p.ll.Back()
		if el == nil {
			break
		}
		p.ll.Remove(el)
		old := el.Value.(*Handle)
		delete(p.items, old.path)
		evicted = append(evicted, old)
	}
	h.retain()
	p.items[path] = p.ll.PushFront(h)
	openHandles.Set(float64(len(p.items)))
	p.mu.Unlock()

	for _, old := range evicted {
		log.Debugf("archive pool: evicting %q", old.path)
		old.discard()
	}
	return h, nil
}

// Close explicitly removes and closes the handle for path, if pooled.
// In-progress reads finish first via refcounting.
func (p *Pool) Close(path string) {
	path = cache.NormalizePath(path)

	p.mu.Lock()
	el, ok := p.items[path]
	if ok {
		p.ll.Remove(el)
		delete(p.items, path)
		openHandles.Set(float64(len(p.items)))
	}
	p.mu.Unlock()

	if ok {
		el.Value.(*Handle).discard()
	}
}

// CloseAll closes every pooled handle. Used at shutdown and on
// cache-clear triggered reloads. The pool stays usable unless Shutdown
// was requested.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	handles := make([]*Handle, 0, len(p.items))
	for _, el := range p.items {
		handles = append(handles, el.Value.(*Handle))
	}
	p.ll.Init()
	p.items = make(map[string]*list.Element, p.maxOpen)
	openHandles.Set(0)
	p.mu.Unlock()

	for _, h := range handles {
		h.discard()
	}
}

// Shutdown closes every handle and refuses further Acquires.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.CloseAll()
}

// Len returns the number of currently pooled handles.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
