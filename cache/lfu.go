package cache

import "container/list"

type lfuItem struct {
	e    *entry
	freq int
	el   *list.Element
}

// lfuStrategy evicts from the lowest non-empty frequency bucket,
// oldest-inserted-first within it. It additionally enforces a byte
// budget: insertions that would exceed it trigger evictions before the
// insert, independent of the count capacity.
type lfuStrategy struct {
	cap      int
	maxBytes int64

	items   map[Key]*lfuItem
	buckets map[int]*list.List
	minFreq int
	bytes   int64
}

func newLFU(capacity int, maxBytes int64) *lfuStrategy {
	return &lfuStrategy{
		cap:      capacity,
		maxBytes: maxBytes,
		items:    make(map[Key]*lfuItem, capacity),
		buckets:  make(map[int]*list.List),
	}
}

func (s *lfuStrategy) name() string { return "lfu" }

func (s *lfuStrategy) capacity() int { return s.cap }

func (s *lfuStrategy) len() int { return len(s.items) }

func (s *lfuStrategy) contains(k Key) bool {
	_, ok := s.items[k]
	return ok
}

func (s *lfuStrategy) peek(k Key) (*entry, bool) {
	it, ok := s.items[k]
	if !ok {
		return nil, false
	}
	return it.e, true
}

func (s *lfuStrategy) bucket(freq int) *list.List {
	b, ok := s.buckets[freq]
	if !ok {
		b = list.New()
		s.buckets[freq] = b
	}
	return b
}

func (s *lfuStrategy) bump(it *lfuItem) {
	b := s.buckets[it.freq]
	b.Remove(it.el)
	if b.Len() == 0 {
		delete(s.buckets, it.freq)
		if s.minFreq == it.freq {
			s.minFreq++
		}
	}
	it.freq++
	it.el = s.bucket(it.freq).PushBack(it)
}

func (s *lfuStrategy) get(k Key) (*entry, bool) {
	it, ok := s.items[k]
	if !ok {
		return nil, false
	}
	s.bump(it)
	return it.e, true
}

func (s *lfuStrategy) put(e *entry) []*entry {
	freq := 1
	if it, ok := s.items[e.key]; ok {
		// Replacement counts as an access: the entry re-enters at the
		// bumped frequency, but only after the budget is enforced, so
		// a larger image cannot smuggle bytes past the ceiling.
		freq = it.freq + 1
		s.removeItem(it)
	}

	var evicted []*entry
	if s.maxBytes > 0 {
		for s.bytes+e.size > s.maxBytes && len(s.items) > 0 {
			ev := s.evictLFU()
			if ev == nil {
				break
			}
			evicted = append(evicted, ev)
		}
	}
	for len(s.items) >= s.cap {
		ev := s.evictLFU()
		if ev == nil {
			break
		}
		evicted = append(evicted, ev)
	}

	it := &lfuItem{e: e, freq: freq}
	it.el = s.bucket(freq).PushBack(it)
	s.items[e.key] = it
	if freq < s.minFreq || len(s.items) == 1 {
		s.minFreq = freq
	}
	s.bytes += e.size
	return evicted
}

// removeItem detaches an item without treating it as an eviction.
func (s *lfuStrategy) removeItem(it *lfuItem) {
	b := s.buckets[it.freq]
	b.Remove(it.el)
	if b.Len() == 0 {
		delete(s.buckets, it.freq)
	}
	delete(s.items, it.e.key)
	s.bytes -= it.e.size
}

func (s *lfuStrategy) evictLFU() *entry {
	b, ok := s.buckets[s.minFreq]
	for !ok || b.Len() == 0 {
		// minFreq can lag after removals; walk up to the next
		// populated bucket.
		if len(s.items) == 0 {
			return nil
		}
		s.minFreq++
		b, ok = s.buckets[s.minFreq]
	}
	el := b.Front()
	b.Remove(el)
	if b.Len() == 0 {
		delete(s.buckets, s.minFreq)
	}
	it := el.Value.(*lfuItem)
	delete(s.items, it.e.key)
	s.bytes -= it.e.size
	return it.e
}

func (s *lfuStrategy) setCapacity(n int) []*entry {
	s.cap = n
	var evicted []*entry
	for len(s.items) > s.cap {
		ev := s.evictLFU()
		if ev == nil {
			break
		}
		evicted = append(evicted, ev)
	}
	return evicted
}

func (s *lfuStrategy) entries() []*entry {
	out := make([]*entry, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it.e)
	}
	return out
}

func (s *lfuStrategy) clear() {
	s.items = make(map[Key]*lfuItem, s.cap)
	s.buckets = make(map[int]*list.List)
	s.minFreq = 0
	s.bytes = 0
}

func (s *lfuStrategy) observe(hitRate float64) {}
