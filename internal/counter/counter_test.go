package counter

import (
	"sync"
	"testing"
)

func TestCounter(t *testing.T) {
	var c Counter
	if c.Load() != 0 {
		t.Fatalf("unexpected initial value %d", c.Load())
	}

	c.Store(10)
	c.Inc()
	c.Add(5)
	c.Dec()
	if got := c.Load(); got != 15 {
		t.Fatalf("unexpected value %d; want 15", got)
	}
}

func TestCounterConcurrent(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()
	if got := c.Load(); got != 8000 {
		t.Fatalf("unexpected value %d; want 8000", got)
	}
}
