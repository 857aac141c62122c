package loader

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/zipix/zipix/archive"
	"github.com/zipix/zipix/cache"
	"github.com/zipix/zipix/imgcodec"
	"github.com/zipix/zipix/internal/counter"
	"github.com/zipix/zipix/log"
)

// Config constructs a Coordinator.
type Config struct {
	// Workers is the decode pool size. Zero means NumCPU+2.
	Workers int

	// QueueSize bounds each of the two dispatch queues.
	QueueSize int

	// FastResample selects nearest-neighbor variant production.
	FastResample bool
}

var (
	// ErrInvalidRequest reports a request violating its contract
	// (empty coordinates or non-positive MaxBytes).
	ErrInvalidRequest = errors.New("invalid load request")

	// ErrQueueFull is returned when the dispatch queue for the
	// request's priority cannot take more work.
	ErrQueueFull = errors.New("load queue is full")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("load coordinator is closed")
)

// Task is the caller's reference to a submitted request. It completes
// exactly once; cancellation succeeds only before decode work starts.
type Task struct {
	req Request
	key cache.Key

	canceled atomic.Bool
	started  atomic.Bool

	done   chan struct{}
	result Result
}

func newTask(req Request) *Task {
	return &Task{req: req, key: req.Key(), done: make(chan struct{})}
}

// Cancel marks the task as no longer wanted. It reports whether the
// cancellation landed before decode work started; a started decode
// runs to completion and its result is dropped by the router instead.
func (t *Task) Cancel() bool {
	if t.started.Load() {
		return false
	}
	t.canceled.Store(true)
	return true
}

// Done is closed when the task has a result.
func (t *Task) Done() <-chan struct{} { return t.done }

// Result returns the task outcome. Valid only after Done is closed.
func (t *Task) Result() Result { return t.result }

// Key returns the cache key the task answers to.
func (t *Task) Key() cache.Key { return t.key }

func (t *Task) complete(res Result) {
	t.result = res
	close(t.done)
}

// Coordinator owns the decode worker pool. It consults the cache,
// de-duplicates concurrent decodes per key, stores full-resolution
// results and derives requested variants.
type Coordinator struct {
	cfg    Config
	store  *cache.Store
	pool   *archive.Pool
	dec    imgcodec.Decoder
	router *Router

	normalQ  chan *Task
	preloadQ chan *Task

	inflight *inflightRegistry

	decodes counter.Counter

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New starts the worker pool. Callers must Close the coordinator to
// release it.
func New(cfg Config, store *cache.Store, pool *archive.Pool, dec imgcodec.Decoder, router *Router) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU() + 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}

	c := &Coordinator{
		cfg:      cfg,
		store:    store,
		pool:     pool,
		dec:      dec,
		router:   router,
		normalQ:  make(chan *Task, cfg.QueueSize),
		preloadQ: make(chan *Task, cfg.QueueSize),
		inflight: newInflightRegistry(),
		stopCh:   make(chan struct{}),
	}

	c.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go c.worker(i)
	}
	log.Debugf("loader: started %d decode workers", cfg.Workers)
	return c
}

// Submit accepts a load request. Cache hits complete synchronously;
// misses are dispatched to the worker pool. The returned task is
// always completed, successfully or not.
func (c *Coordinator) Submit(req Request) (*Task, error) {
	if req.Archive == "" || req.Member == "" || req.MaxBytes <= 0 {
		return nil, fmt.Errorf("%w: archive=%q member=%q max_bytes=%d",
			ErrInvalidRequest, req.Archive, req.Member, req.MaxBytes)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.mu.Unlock()

	loadsTotal.WithLabelValues(req.Priority.String()).Inc()
	t := newTask(req)

	if !req.ForceReload {
		// Exact-key hit: answer without touching the pool.
		if img, ok := c.store.Get(t.key); ok {
			c.finishTask(t, c.variantResult(t, img))
			return t, nil
		}
		// A cached full-resolution decode can answer variant requests
		// synchronously by resampling a copy.
		if t.req.Variant.Kind != cache.Original {
			if orig, ok := c.store.Get(t.req.originalKey()); ok {
				c.finishTask(t, c.deriveResult(t, orig))
				return t, nil
			}
		}
	}

	origKey := t.req.originalKey()
	if !c.inflight.begin(origKey, t) {
		// Another task is already decoding these bytes; this one gets
		// completed from the same result.
		coalescedLoads.Inc()
		log.Debugf("loader: coalesced request for %s", t.key)
		return t, nil
	}

	q := c.normalQ
	if req.Priority == Preload {
		q = c.preloadQ
	}

	// The enqueue happens under the same lock that Close takes to set
	// closed, so a task either lands before Close drains the queues or
	// fails here with ErrClosed. It can never sit in a dead queue.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.failFlight(origKey, ErrClosed)
		return nil, ErrClosed
	}
	select {
	case q <- t:
		c.mu.Unlock()
		return t, nil
	default:
		c.mu.Unlock()
		c.failFlight(origKey, fmt.Errorf("%w: %s", ErrQueueFull, req.Priority))
		return nil, ErrQueueFull
	}
}

// InFlight reports whether a decode for the member behind key is in
// progress.
func (c *Coordinator) InFlight(key cache.Key) bool {
	orig := key
	orig.Variant = cache.OriginalVariant()
	return c.inflight.contains(orig)
}

// DecodeCount returns the number of decode executions performed.
func (c *Coordinator) DecodeCount() int64 { return c.decodes.Load() }

// Close stops the workers. Queued tasks fail with ErrClosed; running
// decodes finish first.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stopCh)
	c.wg.Wait()

	for {
		select {
		case t := <-c.normalQ:
			c.failFlight(t.req.originalKey(), ErrClosed)
		case t := <-c.preloadQ:
			c.failFlight(t.req.originalKey(), ErrClosed)
		default:
			return
		}
	}
}

// worker drains the normal queue ahead of the preload queue so
// interactive loads are never starved by readahead.
func (c *Coordinator) worker(id int) {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopCh:
			return
		case t := <-c.normalQ:
			c.run(t)
		default:
		}
		select {
		case <-c.stopCh:
			return
		case t := <-c.normalQ:
			c.run(t)
		case t := <-c.preloadQ:
			c.run(t)
		}
	}
}

// run executes one flight. A panic in decode never kills the worker;
// it is converted into a failed result.
func (c *Coordinator) run(t *Task) {
	origKey := t.req.originalKey()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("loader: decode panic for %s: %v", origKey, r)
			c.failFlight(origKey, fmt.Errorf("decode panic: %v", r))
		}
	}()

	if t.canceled.Load() && c.inflight.fullyCanceled(origKey, t) {
		c.failFlight(origKey, errCanceled)
		return
	}
	t.started.Store(true)

	var orig *imgcodec.Image
	var err error
	if !t.req.ForceReload {
		if img, ok := c.store.Get(origKey); ok {
			orig = img
		}
	}
	if orig == nil {
		orig, err = c.decodeOriginal(t.req)
		if err == nil {
			if perr := c.store.Put(origKey, orig); perr != nil {
				err = perr
			}
		}
	}

	if err != nil {
		c.failFlight(origKey, err)
		return
	}
	c.completeFlight(origKey, orig)
}

// decodeOriginal reads the member bytes through the handle pool and
// decodes them at full resolution. No lock is held across this work.
func (c *Coordinator) decodeOriginal(req Request) (*imgcodec.Image, error) {
	h, err := c.pool.Acquire(req.Archive)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	data, err := h.ReadMember(req.Member, req.MaxBytes)
	if err != nil {
		return nil, err
	}

	c.decodes.Inc()
	return c.dec.Decode(data, imgcodec.DecodeOptions{MaxBytes: req.MaxBytes})
}

// completeFlight answers every waiter from one decoded original.
func (c *Coordinator) completeFlight(origKey cache.Key, orig *imgcodec.Image) {
	for _, w := range c.inflight.take(origKey) {
		c.finishTask(w, c.variantResultFromOriginal(w, orig))
	}
}

// failFlight answers every waiter with the same classified failure.
func (c *Coordinator) failFlight(origKey cache.Key, err error) {
	kind := classifyError(err)
	loadErrors.WithLabelValues(kind.String()).Inc()
	for _, w := range c.inflight.take(origKey) {
		c.finishTask(w, Result{Key: w.key, Consumer: w.req.Consumer, Err: err, Kind: kind})
	}
}

func (c *Coordinator) finishTask(t *Task, res Result) {
	t.complete(res)
	if c.router != nil {
		c.router.Deliver(res)
	}
}

// variantResult answers a request whose exact key was cached.
func (c *Coordinator) variantResult(t *Task, img *imgcodec.Image) Result {
	return Result{Key: t.key, Consumer: t.req.Consumer, Image: img}
}

// variantResultFromOriginal derives the requested representation from
// a full-resolution decode.
func (c *Coordinator) variantResultFromOriginal(t *Task, orig *imgcodec.Image) Result {
	if t.req.Variant.Kind == cache.Original {
		return Result{Key: t.key, Consumer: t.req.Consumer, Image: orig}
	}
	return c.deriveResult(t, orig)
}

// deriveResult resamples a copy of the original down to the variant
// bound. Thumbnails are first-class loads and get cached under their
// own key; one-off resizes are not, avoiding cache churn on every
// navigation step.
func (c *Coordinator) deriveResult(t *Task, orig *imgcodec.Image) Result {
	v := t.req.Variant
	derived := imgcodec.ResampleImage(orig, v.Width, v.Height, c.cfg.FastResample)
	if v.Kind == cache.Thumbnail {
		if err := c.store.Put(t.key, derived); err != nil {
			log.Errorf("loader: cannot cache thumbnail %s: %s", t.key, err)
		}
	}
	return Result{Key: t.key, Consumer: t.req.Consumer, Image: derived}
}
