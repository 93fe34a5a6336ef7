package mn12864k

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"runtime"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/mn12864k/image1bit"
	"periph.io/x/devices/v3/mn12864k/swapchain"
)

const (
	// GridLines is the number of multiplexed grid lines of the module.
	GridLines = 43

	// PixelBytes is the length of the anode data shifted per grid line.
	PixelBytes = image1bit.GroupBytes
	// GridBytes is the length of the grid select word shifted per grid line.
	GridBytes = 6

	// DefaultFreq is the SPI clock of both chains.
	DefaultFreq = 4 * physic.MegaHertz
	// DefaultBlanking is the minimum period of one grid line cycle.
	DefaultBlanking = 5 * time.Microsecond
	// DefaultSettle is the separation between two control line edges.
	DefaultSettle = 100 * time.Nanosecond
)

// Opts is the configuration for the MN12864K display.
type Opts struct {
	// Control lines of the grid chain and the pixel (anode) chain.
	GLAT gpio.PinOut // Grid latch, latches on the rising edge
	GBLK gpio.PinOut // Grid blank, low blanks the outputs
	PLAT gpio.PinOut // Pixel latch, latches on the rising edge
	PBLK gpio.PinOut // Pixel blank, low blanks the outputs

	// Timing (zero values use the defaults)
	Freq     physic.Frequency // SPI clock of both chains (default: 4MHz)
	Blanking time.Duration    // Grid line period (default: 5µs)
	Settle   time.Duration    // Control line edge separation (default: 100ns)
}

// Dev is the device handle for the MN12864K display.
type Dev struct {
	// Communication
	gc conn.Conn // Grid chain
	pc conn.Conn // Pixel chain

	// Control lines
	glat, gblk gpio.PinOut
	plat, pblk gpio.PinOut

	// Frames
	chain   *swapchain.Chain
	current int // Index being scanned out, -1 before the first frame

	// Timing
	blanking time.Duration
	settle   time.Duration
	deadline time.Time // End of the running blanking window

	// Scan state
	g     int // Grid line in [1, GridLines]
	pixel [PixelBytes]byte
	grid  [GridBytes]byte

	// Drawing
	next   *image1bit.Frame // Canvas kept across Draw calls
	halted atomic.Bool
}

var _ display.Drawer = (*Dev)(nil)

// NewSPI creates a new MN12864K scanner with the grid chain on grid and the
// anode chain on pixel.
//
// Both ports are configured for 4MHz, Mode1 (CPOL=0, CPHA=1), 8-bit transfers
// unless opts.Freq says otherwise. The four control lines must be provided.
// Frames are taken from chain, which the caller keeps to render into.
func NewSPI(grid, pixel spi.Port, chain *swapchain.Chain, opts *Opts) (*Dev, error) {
	if chain == nil {
		return nil, errors.New("mn12864k: swap chain is required")
	}
	if opts == nil {
		return nil, errors.New("mn12864k: control pins are required")
	}
	if opts.GLAT == nil || opts.GBLK == nil || opts.PLAT == nil || opts.PBLK == nil {
		return nil, errors.New("mn12864k: GLAT, GBLK, PLAT and PBLK must all be set")
	}
	if opts.Freq < 0 || opts.Blanking < 0 || opts.Settle < 0 {
		return nil, errors.New("mn12864k: timing must not be negative")
	}

	freq := opts.Freq
	if freq == 0 {
		freq = DefaultFreq
	}

	gc, err := grid.Connect(freq, spi.Mode1, 8)
	if err != nil {
		return nil, fmt.Errorf("mn12864k: failed to connect grid chain: %w", err)
	}
	pc, err := pixel.Connect(freq, spi.Mode1, 8)
	if err != nil {
		return nil, fmt.Errorf("mn12864k: failed to connect pixel chain: %w", err)
	}

	d := &Dev{
		gc:       gc,
		pc:       pc,
		glat:     opts.GLAT,
		gblk:     opts.GBLK,
		plat:     opts.PLAT,
		pblk:     opts.PBLK,
		chain:    chain,
		current:  -1,
		blanking: opts.Blanking,
		settle:   opts.Settle,
		g:        1,
	}
	if d.blanking == 0 {
		d.blanking = DefaultBlanking
	}
	if d.settle == 0 {
		d.settle = DefaultSettle
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

// init drives the control lines to their power-on levels: both chains
// blanked, grid latch low, pixel latch high.
func (d *Dev) init() error {
	levels := []struct {
		name string
		pin  gpio.PinOut
		l    gpio.Level
	}{
		{"GLAT", d.glat, gpio.Low},
		{"GBLK", d.gblk, gpio.Low},
		{"PLAT", d.plat, gpio.High},
		{"PBLK", d.pblk, gpio.Low},
	}
	for _, p := range levels {
		if err := p.pin.Out(p.l); err != nil {
			return fmt.Errorf("mn12864k: failed to drive %s: %w", p.name, err)
		}
	}
	return nil
}

// Run scans the display until ctx is cancelled.
//
// Run locks its goroutine to an OS thread and never sleeps; it is meant to
// own a core. Frames become visible on the grid line after they are
// presented, so a new frame can take effect in the middle of a sweep.
// Transfer and pin errors are ignored: the next cycle re-sends everything.
func (d *Dev) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d.halted.Store(false)
	d.deadline = time.Now().Add(d.blanking)
	done := ctx.Done()
	for {
		select {
		case <-done:
			return ctx.Err()
		default:
		}
		if !d.step() {
			// Nothing presented yet.
			runtime.Gosched()
		}
	}
}

// step runs one grid line cycle. It reports false when there is no frame
// to show, in which case nothing is sent.
func (d *Dev) step() bool {
	d.current = d.chain.Adopt(d.current)
	if d.current < 0 {
		return false
	}

	fillPixels(d.pixel[:], d.chain.View(d.current), d.g)
	_ = d.pc.Tx(d.pixel[:], nil)
	fillGrid(d.grid[:], d.g)
	_ = d.gc.Tx(d.grid[:], nil)

	// Tx only returns once the bytes are shifted out, so both chains hold
	// the new data here.
	spinUntil(d.deadline)
	spin(d.settle)

	d.blank(gpio.Low)
	spin(d.settle)

	d.latch(gpio.Low)
	spin(d.settle)
	d.latch(gpio.High)
	spin(d.settle)

	d.blank(gpio.High)
	d.deadline = time.Now().Add(d.blanking)

	d.g = d.g%GridLines + 1
	return true
}

func (d *Dev) blank(l gpio.Level) {
	_ = d.gblk.Out(l)
	_ = d.pblk.Out(l)
}

func (d *Dev) latch(l gpio.Level) {
	_ = d.plat.Out(l)
	_ = d.glat.Out(l)
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, image1bit.Width, image1bit.Height)
}

// Write presents raw frame data in image1bit layout.
// The data must be exactly image1bit.Size bytes.
func (d *Dev) Write(pixels []byte) (int, error) {
	if d.halted.Load() {
		return 0, errors.New("mn12864k: halted")
	}
	if len(pixels) != image1bit.Size {
		return 0, errors.New("mn12864k: invalid buffer size")
	}
	t, ok := d.chain.Acquire()
	if !ok {
		return 0, errors.New("mn12864k: no free frame")
	}
	copy(t.Frame().Pix[:], pixels)
	t.Present()
	return len(pixels), nil
}

// Draw draws src onto the display and presents the result.
//
// Dev keeps its own canvas, so successive Draw calls accumulate. Draw must
// not be used from more than one goroutine, nor mixed with frames rendered
// directly through the chain.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted.Load() {
		return errors.New("mn12864k: halted")
	}
	dst = dst.Intersect(d.Bounds())
	if dst.Empty() {
		return nil
	}
	if d.next == nil {
		d.next = image1bit.NewFrame()
	}
	if f, ok := src.(*image1bit.Frame); ok && dst == d.Bounds() && sp == (image.Point{}) {
		d.next.CopyFrom(f)
	} else {
		draw.Draw(d.next, dst, src, sp, draw.Src)
	}

	t, ok := d.chain.Acquire()
	if !ok {
		return errors.New("mn12864k: no free frame")
	}
	t.Frame().CopyFrom(d.next)
	t.Present()
	return nil
}

// Halt blanks both chains.
//
// Call it after Run returned; the display stays dark and Draw and Write
// fail until Run is started again.
func (d *Dev) Halt() error {
	d.halted.Store(true)
	if err := d.gblk.Out(gpio.Low); err != nil {
		return fmt.Errorf("mn12864k: failed to blank grid chain: %w", err)
	}
	if err := d.pblk.Out(gpio.Low); err != nil {
		return fmt.Errorf("mn12864k: failed to blank pixel chain: %w", err)
	}
	return nil
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("mn12864k.Dev{%dx%d, %d grid lines}", image1bit.Width, image1bit.Height, GridLines)
}

// spin busy-waits for at least t. Sleeping is far too coarse for the
// sub-microsecond steps of the latch sequence.
func spin(t time.Duration) {
	spinUntil(time.Now().Add(t))
}

func spinUntil(deadline time.Time) {
	for time.Now().Before(deadline) {
	}
}
