package cache

// adaptiveStrategy wraps lru with a small control loop: every
// adjustEvery puts it averages the last few hit-rate observations and
// grows capacity when the rate is low or shrinks it when the rate is
// very high, trading memory for hit rate within [minCap, maxCap].
type adaptiveStrategy struct {
	*lruStrategy

	minCap      int
	maxCap      int
	step        int
	adjustEvery int

	putCount     int
	observations []float64
}

const adaptiveWindow = 5

const (
	adaptiveGrowBelow   = 0.7
	adaptiveShrinkAbove = 0.9
)

func newAdaptive(capacity, minCap, maxCap, step, adjustEvery int) *adaptiveStrategy {
	if capacity < minCap {
		capacity = minCap
	}
	if capacity > maxCap {
		capacity = maxCap
	}
	return &adaptiveStrategy{
		lruStrategy: newLRU(capacity),
		minCap:      minCap,
		maxCap:      maxCap,
		step:        step,
		adjustEvery: adjustEvery,
	}
}

func (s *adaptiveStrategy) name() string { return "adaptive" }

func (s *adaptiveStrategy) observe(hitRate float64) {
	s.observations = append(s.observations, hitRate)
	if len(s.observations) > adaptiveWindow {
		s.observations = s.observations[len(s.observations)-adaptiveWindow:]
	}
}

func (s *adaptiveStrategy) put(e *entry) []*entry {
	s.putCount++
	evicted := s.lruStrategy.put(e)
	if s.putCount%s.adjustEvery == 0 {
		evicted = append(evicted, s.adjust()...)
	}
	return evicted
}

func (s *adaptiveStrategy) adjust() []*entry {
	if len(s.observations) < adaptiveWindow {
		return nil
	}
	var sum float64
	for _, r := range s.observations {
		sum += r
	}
	avg := sum / float64(len(s.observations))

	switch {
	case avg < adaptiveGrowBelow && s.cap < s.maxCap:
		next := s.cap + s.step
		if next > s.maxCap {
			next = s.maxCap
		}
		return s.lruStrategy.setCapacity(next)
	case avg > adaptiveShrinkAbove && s.cap > s.minCap:
		next := s.cap - s.step
		if next < s.minCap {
			next = s.minCap
		}
		return s.lruStrategy.setCapacity(next)
	}
	return nil
}
