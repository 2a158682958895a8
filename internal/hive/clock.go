package hive

import (
	"sync/atomic"
	"time"
)

// Clock supplies wall time for task and consensus timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// seqClock is a monotonic logical counter stamping submissions. Equal
// priorities dispatch in stamp order.
type seqClock struct {
	seq atomic.Int64
}

func (c *seqClock) Next() int64 {
	return c.seq.Add(1)
}
