// Package swapchain hands frames from a renderer to the display scanner
// without copying and without blocking either side.
//
// A Chain owns three image1bit frames. A renderer acquires a Target, draws
// into its frame and presents it; the scanner adopts the most recently
// presented frame on its next grid line. All bookkeeping runs under one
// mutex and touches indices only, never pixels.
//
// Presenting a frame while an older one is still pending returns the older
// one to the free list at once, even if the scanner never picked it up. With
// three frames the older one can then be acquired and overwritten while a
// slow scanner is still about to adopt it; this is a known hazard of the
// policy and is accepted.
package swapchain

import (
	"fmt"
	"image/color"
	"sync"

	"periph.io/x/devices/v3/mn12864k/image1bit"
	"tinygo.org/x/drivers"
)

// Len is the number of frames owned by a Chain.
const Len = 3

const none = -1

// Chain is a fixed pool of Len frames with a free list and one pending slot.
type Chain struct {
	frames [Len]image1bit.Frame

	mu      sync.Mutex
	free    [Len]int // none marks an empty slot
	pending int
}

// New returns a Chain with every frame free and nothing pending.
func New() *Chain {
	c := &Chain{pending: none}
	for i := range c.free {
		c.free[i] = i
	}
	return c
}

// Acquire hands out a free frame for writing.
//
// It returns false when every frame is in flight; the caller should skip
// rendering for this iteration.
func (c *Chain) Acquire() (*Target, bool) {
	c.mu.Lock()
	index := c.take()
	c.mu.Unlock()
	if index == none {
		return nil, false
	}
	return &Target{c: c, index: index}, true
}

// Collect takes the pending frame, leaving the pending slot empty.
func (c *Chain) Collect() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collect()
}

// Adopt performs the scanner's per-line refresh check.
//
// current is the index the scanner is showing, or -1. If a frame is pending
// it becomes the new current index and the old one, if any, is freed.
// Adopt returns the index to show, or -1 when no frame was ever presented.
func (c *Chain) Adopt(current int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, ok := c.collect()
	if !ok {
		return current
	}
	if current != none {
		c.release(current)
	}
	return next
}

// Free returns an index obtained from Collect to the free list.
func (c *Chain) Free(index int) {
	c.mu.Lock()
	c.release(index)
	c.mu.Unlock()
}

// View returns the frame at index for reading.
//
// Only the holder of index, as designated by Collect or Adopt, may read it.
func (c *Chain) View(index int) *image1bit.Frame {
	return &c.frames[index]
}

// Available returns the number of free frames.
func (c *Chain) Available() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, i := range c.free {
		if i != none {
			n++
		}
	}
	return n
}

// String returns a summary of the chain state.
func (c *Chain) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("swapchain.Chain{free: %v, pending: %d}", c.free, c.pending)
}

func (c *Chain) take() int {
	for i, index := range c.free {
		if index != none {
			c.free[i] = none
			return index
		}
	}
	return none
}

func (c *Chain) release(index int) {
	for i := range c.free {
		if c.free[i] == none {
			c.free[i] = index
			return
		}
	}
}

func (c *Chain) present(index int) {
	if c.pending != none {
		c.release(c.pending)
	}
	c.pending = index
}

func (c *Chain) collect() (int, bool) {
	index := c.pending
	c.pending = none
	return index, index != none
}

var _ drivers.Displayer = (*Target)(nil)

// Target is exclusive write access to one frame of a Chain.
//
// A Target must end with exactly one Present or Release; later calls to
// either are no-ops.
type Target struct {
	c     *Chain
	index int
	done  bool
}

// Frame returns the frame to draw into.
func (t *Target) Frame() *image1bit.Frame {
	return &t.c.frames[t.index]
}

// Index returns the chain index held by t.
func (t *Target) Index() int {
	return t.index
}

// Present publishes the frame as the next one to scan out.
func (t *Target) Present() {
	if t.done {
		return
	}
	t.c.mu.Lock()
	t.c.present(t.index)
	t.c.mu.Unlock()
	t.done = true
}

// Release abandons the frame, returning it to the free list.
func (t *Target) Release() {
	if t.done {
		return
	}
	t.c.mu.Lock()
	t.c.release(t.index)
	t.c.mu.Unlock()
	t.done = true
}

// Size returns the frame dimensions.
// It implements tinygo.org/x/drivers.Displayer.
func (t *Target) Size() (x, y int16) {
	return image1bit.Width, image1bit.Height
}

// SetPixel lights the pixel at (x, y) when c converts to image1bit.On.
// It implements tinygo.org/x/drivers.Displayer.
func (t *Target) SetPixel(x, y int16, c color.RGBA) {
	t.Frame().Set(int(x), int(y), c)
}

// Display presents the frame.
// It implements tinygo.org/x/drivers.Displayer.
func (t *Target) Display() error {
	t.Present()
	return nil
}
