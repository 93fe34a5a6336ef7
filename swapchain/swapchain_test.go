package swapchain

import (
	"image/color"
	"math/rand"
	"sync"
	"testing"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// checkOwnership verifies that every index is in exactly one place.
func checkOwnership(t *testing.T, c *Chain, held map[int]bool, current int) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	where := map[int]string{}
	mark := func(index int, place string) {
		if prev, ok := where[index]; ok {
			t.Fatalf("index %d is both %s and %s (%v, pending %d)", index, prev, place, c.free, c.pending)
		}
		where[index] = place
	}
	for _, i := range c.free {
		if i != none {
			mark(i, "free")
		}
	}
	if c.pending != none {
		mark(c.pending, "pending")
	}
	for i := range held {
		mark(i, "acquired")
	}
	if current != none {
		mark(current, "scanned")
	}
	if len(where) != Len {
		t.Fatalf("only %d of %d indices accounted for: %v", len(where), Len, where)
	}
}

func TestNew(t *testing.T) {
	c := New()
	if got := c.Available(); got != Len {
		t.Errorf("Available() = %d, want %d", got, Len)
	}
	if _, ok := c.Collect(); ok {
		t.Error("Collect() on a new chain reported a pending frame")
	}
	checkOwnership(t, c, nil, none)
}

func TestAcquireExhaustion(t *testing.T) {
	c := New()
	var targets []*Target
	for i := 0; i < Len; i++ {
		tgt, ok := c.Acquire()
		if !ok {
			t.Fatalf("Acquire() #%d failed", i)
		}
		targets = append(targets, tgt)
	}
	if _, ok := c.Acquire(); ok {
		t.Fatal("Acquire() succeeded with all frames in flight")
	}
	if c.Available() != 0 {
		t.Errorf("Available() = %d, want 0", c.Available())
	}

	targets[1].Release()
	if got := c.Available(); got != 1 {
		t.Errorf("Available() after Release = %d, want 1", got)
	}
	tgt, ok := c.Acquire()
	if !ok {
		t.Fatal("Acquire() failed after Release")
	}
	if tgt.Index() != targets[1].Index() {
		t.Errorf("Acquire() = index %d, want the released index %d", tgt.Index(), targets[1].Index())
	}
}

func TestPresentSupersedes(t *testing.T) {
	c := New()
	a, _ := c.Acquire()
	b, _ := c.Acquire()

	a.Present()
	if got := c.Available(); got != 1 {
		t.Fatalf("Available() after first Present = %d, want 1", got)
	}
	b.Present()
	// a was pending and never collected: it goes straight back to free.
	if got := c.Available(); got != 2 {
		t.Fatalf("Available() after superseding Present = %d, want 2", got)
	}
	index, ok := c.Collect()
	if !ok || index != b.Index() {
		t.Fatalf("Collect() = %d, %v, want %d, true", index, ok, b.Index())
	}
	if _, ok := c.Collect(); ok {
		t.Error("second Collect() reported a pending frame")
	}
}

func TestPresentTwiceIsNoop(t *testing.T) {
	c := New()
	a, _ := c.Acquire()
	a.Present()
	a.Present()
	a.Release()
	if got := c.Available(); got != Len-1 {
		t.Errorf("Available() = %d, want %d", got, Len-1)
	}
	checkOwnership(t, c, nil, none)
}

func TestReleaseTwiceIsNoop(t *testing.T) {
	c := New()
	a, _ := c.Acquire()
	a.Release()
	a.Release()
	a.Present()
	if got := c.Available(); got != Len {
		t.Errorf("Available() = %d, want %d", got, Len)
	}
	if _, ok := c.Collect(); ok {
		t.Error("Present after Release published a frame")
	}
}

func TestAdopt(t *testing.T) {
	c := New()
	if got := c.Adopt(none); got != none {
		t.Fatalf("Adopt(-1) with nothing presented = %d, want -1", got)
	}

	a, _ := c.Acquire()
	a.Present()
	current := c.Adopt(none)
	if current != a.Index() {
		t.Fatalf("Adopt(-1) = %d, want %d", current, a.Index())
	}
	// Nothing new: keep showing the same frame.
	if got := c.Adopt(current); got != current {
		t.Fatalf("Adopt(%d) without new frame = %d", current, got)
	}
	checkOwnership(t, c, nil, current)

	b, _ := c.Acquire()
	b.Present()
	next := c.Adopt(current)
	if next != b.Index() {
		t.Fatalf("Adopt(%d) = %d, want %d", current, next, b.Index())
	}
	if got := c.Available(); got != 2 {
		t.Errorf("Available() after Adopt = %d, want 2 (old frame freed)", got)
	}
	checkOwnership(t, c, nil, next)
}

func TestFree(t *testing.T) {
	c := New()
	a, _ := c.Acquire()
	a.Present()
	index, _ := c.Collect()
	if c.Available() != Len-1 {
		t.Fatalf("Available() = %d, want %d", c.Available(), Len-1)
	}
	c.Free(index)
	if c.Available() != Len {
		t.Fatalf("Available() after Free = %d, want %d", c.Available(), Len)
	}
}

func TestFramesAreDistinct(t *testing.T) {
	c := New()
	a, _ := c.Acquire()
	b, _ := c.Acquire()
	a.Frame().SetBit(1, 1, true)
	if b.Frame().BitAt(1, 1) {
		t.Error("two targets share a frame")
	}
	if c.View(a.Index()) != a.Frame() {
		t.Error("View does not return the target's frame")
	}
}

func TestRandomSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := New()
	held := map[int]*Target{}
	current := none

	for step := 0; step < 10000; step++ {
		switch rng.Intn(4) {
		case 0:
			before := c.Available()
			tgt, ok := c.Acquire()
			if ok != (before > 0) {
				t.Fatalf("step %d: Acquire() = %v with %d free", step, ok, before)
			}
			if ok {
				if _, dup := held[tgt.Index()]; dup {
					t.Fatalf("step %d: index %d handed out twice", step, tgt.Index())
				}
				held[tgt.Index()] = tgt
			}
		case 1:
			for i, tgt := range held {
				before := c.Available()
				tgt.Release()
				delete(held, i)
				if c.Available() != before+1 {
					t.Fatalf("step %d: Release freed %d indices", step, c.Available()-before)
				}
				break
			}
		case 2:
			for i, tgt := range held {
				tgt.Present()
				delete(held, i)
				break
			}
		case 3:
			current = c.Adopt(current)
		}

		indices := map[int]bool{}
		for i := range held {
			indices[i] = true
		}
		checkOwnership(t, c, indices, current)

		if len(held) == Len {
			if _, ok := c.Acquire(); ok {
				t.Fatalf("step %d: Acquire succeeded with %d frames held", step, Len)
			}
		}
	}
}

func TestConcurrentProducerScanner(t *testing.T) {
	c := New()
	const frames = 2000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 0; n < frames; {
			tgt, ok := c.Acquire()
			if !ok {
				continue
			}
			tgt.Frame().Clear(n%2 == 0)
			if n%7 == 0 {
				tgt.Release()
			} else {
				tgt.Present()
			}
			n++
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	current := none
	for {
		current = c.Adopt(current)
		select {
		case <-done:
			current = c.Adopt(current)
			free := c.Available()
			inUse := 0
			if current != none {
				inUse = 1
			}
			if free+inUse != Len {
				t.Fatalf("after producer finished: %d free + %d scanned != %d", free, inUse, Len)
			}
			return
		default:
		}
	}
}

func TestTargetDisplayer(t *testing.T) {
	c := New()
	tgt, _ := c.Acquire()

	w, h := tgt.Size()
	if w != 128 || h != 64 {
		t.Fatalf("Size() = %d, %d, want 128, 64", w, h)
	}

	tgt.SetPixel(2, 3, color.RGBA{0xFF, 0xFF, 0xFF, 0xFF})
	tgt.SetPixel(4, 3, color.RGBA{0x00, 0x00, 0x00, 0xFF})
	if !tgt.Frame().BitAt(2, 3) || tgt.Frame().BitAt(4, 3) {
		t.Error("SetPixel did not threshold colors")
	}

	tinyfont.WriteLine(tgt, &proggy.TinySZ8pt7b, 0, 20, "42", color.RGBA{0xFF, 0xFF, 0xFF, 0xFF})
	lit := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 128; x++ {
			if tgt.Frame().BitAt(x, y) {
				lit++
			}
		}
	}
	if lit <= 1 {
		t.Error("tinyfont.WriteLine drew nothing into the frame")
	}

	if err := tgt.Display(); err != nil {
		t.Fatalf("Display() = %v", err)
	}
	if index, ok := c.Collect(); !ok || index != tgt.Index() {
		t.Errorf("Display() did not present the frame")
	}
}
