package cache

import "container/list"

// lruStrategy keeps entries in access order: front of the list is the
// most recently touched, eviction takes from the back.
type lruStrategy struct {
	cap   int
	ll    *list.List
	items map[Key]*list.Element
}

func newLRU(capacity int) *lruStrategy {
	return &lruStrategy{
		cap:   capacity,
		ll:    list.New(),
		items: make(map[Key]*list.Element, capacity),
	}
}

func (s *lruStrategy) name() string { return "lru" }

func (s *lruStrategy) capacity() int { return s.cap }

func (s *lruStrategy) len() int { return len(s.items) }

func (s *lruStrategy) get(k Key) (*entry, bool) {
	el, ok := s.items[k]
	if !ok {
		return nil, false
	}
	s.ll.MoveToFront(el)
	return el.Value.(*entry), true
}

func (s *lruStrategy) contains(k Key) bool {
	_, ok := s.items[k]
	return ok
}

func (s *lruStrategy) peek(k Key) (*entry, bool) {
	el, ok := s.items[k]
	if !ok {
		return nil, false
	}
	return el.Value.(*entry), true
}

func (s *lruStrategy) put(e *entry) []*entry {
	if el, ok := s.items[e.key]; ok {
		el.Value = e
		s.ll.MoveToFront(el)
		return nil
	}
	var evicted []*entry
	for len(s.items) >= s.cap {
		ev := s.evictOldest()
		if ev == nil {
			break
		}
		evicted = append(evicted, ev)
	}
	s.items[e.key] = s.ll.PushFront(e)
	return evicted
}

func (s *lruStrategy) evictOldest() *entry {
	el := s.ll.Back()
	if el == nil {
		return nil
	}
	s.ll.Remove(el)
	e := el.Value.(*entry)
	delete(s.items, e.key)
	return e
}

func (s *lruStrategy) setCapacity(n int) []*entry {
	s.cap = n
	var evicted []*entry
	for len(s.items) > s.cap {
		ev := s.evictOldest()
		if ev == nil {
			break
		}
		evicted = append(evicted, ev)
	}
	return evicted
}

func (s *lruStrategy) entries() []*entry {
	// Oldest first, so re-inserting preserves relative recency.
	out := make([]*entry, 0, len(s.items))
	for el := s.ll.Back(); el != nil; el = el.Prev() {
		out = append(out, el.Value.(*entry))
	}
	return out
}

func (s *lruStrategy) clear() {
	s.ll.Init()
	s.items = make(map[Key]*list.Element, s.cap)
}

func (s *lruStrategy) observe(hitRate float64) {}
