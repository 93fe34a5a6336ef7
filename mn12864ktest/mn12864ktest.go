// Package mn12864ktest is meant to be used to test drivers talking to a
// MN12864K display without the hardware.
//
// Panel models the module's two shift-register chains, their latch and blank
// inputs, and the phosphor: every grid line that is latched and then shown is
// decoded back into an image1bit.Frame.
//
// Controls fake the encoder and button matrix lines for package input.
package mn12864ktest

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/mn12864k"
	"periph.io/x/devices/v3/mn12864k/image1bit"
)

type lineKind int

const (
	glat lineKind = iota
	gblk
	plat
	pblk
)

// Panel is a software MN12864K.
type Panel struct {
	// Inputs of the module. Hand them to mn12864k.NewSPI, or use Opts.
	Grid  *Chain
	Pixel *Chain
	GLAT  *Line
	GBLK  *Line
	PLAT  *Line
	PBLK  *Line

	mu         sync.Mutex
	gridShift  [mn12864k.GridBytes]byte
	pixelShift [mn12864k.PixelBytes]byte
	gridLatch  [mn12864k.GridBytes]byte
	pixelLatch [mn12864k.PixelBytes]byte
	levels     [4]gpio.Level
	frame      image1bit.Frame
	lines      int
	last       int
	violations []string
}

// NewPanel returns a blanked panel with nothing shown.
func NewPanel() *Panel {
	p := &Panel{}
	p.Grid = &Chain{name: "grid", p: p, reg: p.gridShift[:]}
	p.Pixel = &Chain{name: "pixel", p: p, reg: p.pixelShift[:]}
	p.GLAT = newLine(p, glat, "GLAT")
	p.GBLK = newLine(p, gblk, "GBLK")
	p.PLAT = newLine(p, plat, "PLAT")
	p.PBLK = newLine(p, pblk, "PBLK")
	for i := range p.gridLatch {
		p.gridLatch[i] = 0xFF
	}
	return p
}

// Opts returns driver options wired to the panel's control lines.
func (p *Panel) Opts() *mn12864k.Opts {
	return &mn12864k.Opts{GLAT: p.GLAT, GBLK: p.GBLK, PLAT: p.PLAT, PBLK: p.PBLK}
}

// Frame returns a copy of what the panel currently shows.
func (p *Panel) Frame() *image1bit.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.frame
	return &f
}

// Lines returns the number of grid lines shown so far.
func (p *Panel) Lines() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lines
}

// Last returns the last grid line shown, or 0.
func (p *Panel) Last() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Violations returns the protocol errors seen so far: latching while the
// outputs are enabled, and grid words that do not select one line pair.
func (p *Panel) Violations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.violations...)
}

// WaitLines blocks until at least n grid lines were shown or timeout expires.
func (p *Panel) WaitLines(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if p.Lines() >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// shift clocks w into reg, keeping the last len(reg) bytes.
func (p *Panel) shift(reg []byte, w []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(w) >= len(reg) {
		copy(reg, w[len(w)-len(reg):])
		return
	}
	copy(reg, reg[len(w):])
	copy(reg[len(reg)-len(w):], w)
}

func (p *Panel) edge(k lineKind, l gpio.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.levels[k]
	p.levels[k] = l
	if prev == l {
		return
	}
	switch k {
	case glat, plat:
		if l == gpio.High {
			if p.levels[gblk] == gpio.High || p.levels[pblk] == gpio.High {
				p.violations = append(p.violations, "latched while outputs enabled")
			}
			if k == glat {
				p.gridLatch = p.gridShift
			} else {
				p.pixelLatch = p.pixelShift
			}
		}
	case gblk, pblk:
		if l == gpio.High && p.levels[gblk] == gpio.High && p.levels[pblk] == gpio.High {
			p.show()
		}
	}
}

// show decodes the latched registers into the frame.
func (p *Panel) show() {
	g, err := selectedLine(p.gridLatch[:])
	if err != nil {
		p.violations = append(p.violations, err.Error())
		return
	}
	masks := [3]byte{0x55, 0x55, 0x55}
	switch {
	case g == mn12864k.GridLines:
		masks = [3]byte{0x45, 0x51, 0x14}
	case g%2 == 0:
		masks = [3]byte{0xAA, 0xAA, 0xAA}
	}
	col := p.frame.Column((g - 1) / 2)
	for i, b := range p.pixelLatch {
		m := masks[i%3]
		col[i] = col[i]&^m | bits.Reverse8(^b)&m
	}
	p.lines++
	p.last = g
}

// selectedLine returns g when the word selects exactly lines g-1 and g.
func selectedLine(word []byte) (int, error) {
	var sel []int
	for k := 0; k < len(word)*8; k++ {
		if word[k/8]&(0x80>>uint(k%8)) == 0 {
			sel = append(sel, k)
		}
	}
	if len(sel) != 2 || sel[1] != sel[0]+1 || sel[1] < 1 || sel[1] > mn12864k.GridLines {
		return 0, fmt.Errorf("grid word % X does not select one line pair", word)
	}
	return sel[1], nil
}

// Chain is one shift-register chain of the panel. It implements both
// spi.Port and spi.Conn; only writes are supported.
type Chain struct {
	name string
	p    *Panel
	reg  []byte

	mu   sync.Mutex
	freq physic.Frequency
	mode spi.Mode
	bits int
}

// String implements conn.Resource.
func (c *Chain) String() string {
	return "mn12864ktest." + c.name
}

// Connect implements spi.Port.
func (c *Chain) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, fmt.Errorf("mn12864ktest: %s chain is 8 bits per word, got %d", c.name, bits)
	}
	c.mu.Lock()
	c.freq, c.mode, c.bits = f, mode, bits
	c.mu.Unlock()
	return c, nil
}

// Config returns the parameters of the last Connect call.
func (c *Chain) Config() (physic.Frequency, spi.Mode, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freq, c.mode, c.bits
}

// Tx implements conn.Conn.
func (c *Chain) Tx(w, r []byte) error {
	if len(r) != 0 {
		return errors.New("mn12864ktest: the chain has no data output")
	}
	c.p.shift(c.reg, w)
	return nil
}

// TxPackets implements spi.Conn.
func (c *Chain) TxPackets(pkts []spi.Packet) error {
	for _, pkt := range pkts {
		if err := c.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

// Duplex implements conn.Conn.
func (c *Chain) Duplex() conn.Duplex {
	return conn.Half
}

// Line is a control input of the panel.
type Line struct {
	gpiotest.Pin
	p    *Panel
	kind lineKind
}

func newLine(p *Panel, k lineKind, name string) *Line {
	return &Line{Pin: gpiotest.Pin{N: name}, p: p, kind: k}
}

// Out implements gpio.PinOut.
func (l *Line) Out(level gpio.Level) error {
	l.Pin.Lock()
	l.Pin.L = level
	l.Pin.Unlock()
	l.p.edge(l.kind, level)
	return nil
}
