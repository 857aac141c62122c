// Package counter provides small atomic counters for bookkeeping that
// must stay consistent without a surrounding lock (pending tasks,
// decode totals, byte tallies).
package counter

import "sync/atomic"

type Counter struct {
	value atomic.Int64
}

func (c *Counter) Store(n int64) { c.value.Store(n) }

func (c *Counter) Load() int64 { return c.value.Load() }

func (c *Counter) Add(n int64) int64 { return c.value.Add(n) }

func (c *Counter) Inc() int64 { return c.value.Add(1) }

func (c *Counter) Dec() { c.value.Add(-1) }
