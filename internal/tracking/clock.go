package tracking

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ServerClock reports time as the server sees it. Each poll response carries
// the server's UTC time and Observe records the offset from the local clock.
type ServerClock struct {
	local Clock

	mu     sync.RWMutex
	offset time.Duration
}

func NewServerClock(local Clock) *ServerClock {
	if local == nil {
		local = SystemClock{}
	}
	return &ServerClock{local: local}
}

// Observe records server minus local time from a server timestamp in
// milliseconds since the epoch.
func (c *ServerClock) Observe(serverUTCMillis int64) {
	if serverUTCMillis <= 0 {
		return
	}
	offset := time.UnixMilli(serverUTCMillis).Sub(c.local.Now())
	c.mu.Lock()
	c.offset = offset
	c.mu.Unlock()
}

func (c *ServerClock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

func (c *ServerClock) Now() time.Time {
	return c.local.Now().Add(c.Offset()).UTC()
}
