package input

import (
	"sync"
	"sync/atomic"
)

// Levels is the number of button levels held by a Capture.
const Levels = 4

// Capture holds the raw input state shared between the handlers and the
// main loop: the encoder step counter and the four matrix levels.
//
// Only Encoder and Matrix write to a Capture.
type Capture struct {
	count  atomic.Int32
	levels [Levels]atomic.Bool
}

var (
	defaultCapture *Capture
	defaultOnce    sync.Once
)

// Default returns the process-wide Capture.
func Default() *Capture {
	defaultOnce.Do(func() {
		defaultCapture = NewCapture()
	})
	return defaultCapture
}

// NewCapture returns a zeroed Capture, independent from Default.
func NewCapture() *Capture {
	return &Capture{}
}

// Count returns the raw encoder step counter; four steps make one detent.
// It wraps around on overflow.
func (c *Capture) Count() int32 {
	return c.count.Load()
}

// Level returns the last scanned level of matrix position i.
//
// Positions 0 and 1 are rows 0 and 1 of column 0, 2 and 3 of column 1.
func (c *Capture) Level(i int) bool {
	return c.levels[i].Load()
}

func (c *Capture) add(n int32) {
	c.count.Add(n)
}

func (c *Capture) setLevel(i int, v bool) {
	c.levels[i].Store(v)
}
