package mn12864k_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/mn12864k"
	"periph.io/x/devices/v3/mn12864k/image1bit"
	"periph.io/x/devices/v3/mn12864k/mn12864ktest"
	"periph.io/x/devices/v3/mn12864k/swapchain"
)

func startScanner(t *testing.T, p *mn12864ktest.Panel, chain *swapchain.Chain) func() {
	t.Helper()
	opts := p.Opts()
	opts.Blanking = time.Microsecond
	opts.Settle = time.Nanosecond
	dev, err := mn12864k.NewSPI(p.Grid, p.Pixel, chain, opts)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dev.Run(ctx) }()
	return func() {
		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
		if err := dev.Halt(); err != nil {
			t.Errorf("Halt() = %v", err)
		}
	}
}

func checker(f *image1bit.Frame) {
	for y := 0; y < image1bit.Height; y++ {
		for x := 0; x < image1bit.Width; x++ {
			f.SetBit(x, y, (x+y)%3 == 0 || x == image1bit.Width-1)
		}
	}
}

func comparePanel(t *testing.T, got, want *image1bit.Frame) {
	t.Helper()
	bad := 0
	for y := 0; y < image1bit.Height; y++ {
		for x := 0; x < image1bit.Width; x++ {
			if got.BitAt(x, y) != want.BitAt(x, y) {
				if bad < 5 {
					t.Errorf("pixel (%d, %d) = %v, want %v", x, y, got.BitAt(x, y), want.BitAt(x, y))
				}
				bad++
			}
		}
	}
	if bad != 0 {
		t.Errorf("%d pixels differ", bad)
	}
}

func TestPanelShowsPresentedFrame(t *testing.T) {
	p := mn12864ktest.NewPanel()
	chain := swapchain.New()
	stop := startScanner(t, p, chain)
	defer stop()

	want := image1bit.NewFrame()
	checker(want)
	tgt, ok := chain.Acquire()
	if !ok {
		t.Fatal("Acquire() failed")
	}
	tgt.Frame().CopyFrom(want)
	tgt.Present()

	if !p.WaitLines(2*mn12864k.GridLines, 5*time.Second) {
		t.Fatalf("only %d grid lines shown", p.Lines())
	}
	comparePanel(t, p.Frame(), want)
	if v := p.Violations(); len(v) != 0 {
		t.Errorf("protocol violations: %v", v)
	}
}

func TestPanelFollowsNewFrames(t *testing.T) {
	p := mn12864ktest.NewPanel()
	chain := swapchain.New()
	stop := startScanner(t, p, chain)
	defer stop()

	for _, on := range []bool{true, false, true} {
		var tgt *swapchain.Target
		for {
			var ok bool
			if tgt, ok = chain.Acquire(); ok {
				break
			}
			time.Sleep(time.Millisecond)
		}
		tgt.Frame().Clear(on)
		tgt.Present()

		seen := p.Lines()
		if !p.WaitLines(seen+2*mn12864k.GridLines, 5*time.Second) {
			t.Fatalf("scanner stalled at %d lines", p.Lines())
		}
		want := image1bit.NewFrame()
		want.Clear(on)
		comparePanel(t, p.Frame(), want)
	}
}

func TestPanelNothingShownBeforePresent(t *testing.T) {
	p := mn12864ktest.NewPanel()
	stop := startScanner(t, p, swapchain.New())
	time.Sleep(10 * time.Millisecond)
	stop()
	if n := p.Lines(); n != 0 {
		t.Errorf("%d grid lines shown with no frame presented", n)
	}
}

func TestPanelChainConfig(t *testing.T) {
	p := mn12864ktest.NewPanel()
	if _, err := mn12864k.NewSPI(p.Grid, p.Pixel, swapchain.New(), p.Opts()); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*mn12864ktest.Chain{p.Grid, p.Pixel} {
		f, mode, bits := c.Config()
		if f != mn12864k.DefaultFreq || mode != spi.Mode1 || bits != 8 {
			t.Errorf("%s connected at %v, mode %v, %d bits", c, f, mode, bits)
		}
	}
}
