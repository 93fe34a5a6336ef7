package mn12864ktest

import (
	"sync"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// Key is a position of the button matrix.
type Key struct{ Col, Row int }

// Keys of the panel.
var (
	Button0 = Key{0, 1}
	Button1 = Key{0, 0}
	Button2 = Key{1, 0}
	Encoder = Key{1, 1}
)

// quadrature is one forward detent from rest, as (a, b) levels.
var quadrature = [4][2]gpio.Level{
	{gpio.Low, gpio.High},
	{gpio.High, gpio.High},
	{gpio.High, gpio.Low},
	{gpio.Low, gpio.Low},
}

type edge struct {
	pin   *gpiotest.Pin
	level gpio.Level
}

// Controls are fake encoder and button matrix lines of the panel.
//
// A and B raise edges through their EdgesChan, one queued edge per Tick.
// The rows read high while a pressed key connects them to a column driven
// high.
type Controls struct {
	A, B       *gpiotest.Pin
	Col0, Col1 *gpiotest.Pin
	Row0, Row1 *Row

	keys [2][2]atomic.Bool

	mu    sync.Mutex
	edges []edge
}

// NewControls returns the controls at rest: encoder lines low, no key held.
func NewControls() *Controls {
	c := &Controls{
		A:    &gpiotest.Pin{N: "ENC_A", EdgesChan: make(chan gpio.Level, 1)},
		B:    &gpiotest.Pin{N: "ENC_B", EdgesChan: make(chan gpio.Level, 1)},
		Col0: &gpiotest.Pin{N: "COL0"},
		Col1: &gpiotest.Pin{N: "COL1"},
	}
	c.Row0 = &Row{Pin: gpiotest.Pin{N: "ROW0"}, c: c, index: 0}
	c.Row1 = &Row{Pin: gpiotest.Pin{N: "ROW1"}, c: c, index: 1}
	return c
}

// Turn queues the edges of one detent, forward when dir > 0.
func (c *Controls) Turn(dir int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, b := gpio.Low, gpio.Low
	for _, s := range quadrature {
		if dir < 0 {
			// The reverse sequence is the forward one with the lines swapped.
			s = [2]gpio.Level{s[1], s[0]}
		}
		if s[0] != a {
			c.edges = append(c.edges, edge{c.A, s[0]})
		}
		if s[1] != b {
			c.edges = append(c.edges, edge{c.B, s[1]})
		}
		a, b = s[0], s[1]
	}
}

// Tick delivers the next queued edge unless its line still holds an
// undelivered one. It reports whether an edge was delivered.
//
// Call it at most once every few milliseconds so the encoder handles each
// edge before the next one.
func (c *Controls) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.edges) == 0 {
		return false
	}
	e := c.edges[0]
	select {
	case e.pin.EdgesChan <- e.level:
		c.edges = c.edges[1:]
		return true
	default:
		return false
	}
}

// Pending returns the number of queued edges.
func (c *Controls) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.edges)
}

// Press holds or releases k.
func (c *Controls) Press(k Key, down bool) {
	c.keys[k.Col][k.Row].Store(down)
}

// Row is a matrix row input.
type Row struct {
	gpiotest.Pin
	c     *Controls
	index int
}

// Read implements gpio.PinIn.
func (r *Row) Read() gpio.Level {
	for col, p := range []*gpiotest.Pin{r.c.Col0, r.c.Col1} {
		if p.Read() == gpio.High && r.c.keys[col][r.index].Load() {
			return gpio.High
		}
	}
	return gpio.Low
}
