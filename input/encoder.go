package input

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"
)

// DefaultSettle is the number of busy iterations an Encoder waits after an
// edge before sampling its lines.
const DefaultSettle = 5

// edgeTimeout bounds each WaitForEdge so Run notices cancellation.
const edgeTimeout = 50 * time.Millisecond

// steps is indexed by prev<<2 | cur, each state being a<<1 | b. Valid
// single-line transitions count +1 or -1; no change and skipped states
// count 0.
var steps = [16]int32{
	0b00_01: +1, 0b00_10: -1,
	0b01_00: -1, 0b01_11: +1,
	0b11_01: -1, 0b11_10: +1,
	0b10_11: -1, 0b10_00: +1,
}

// Encoder decodes a two line quadrature encoder into a Capture counter.
type Encoder struct {
	// Settle overrides DefaultSettle. Set it before the first edge.
	Settle int

	a, b gpio.PinIn
	c    *Capture

	mu    sync.Mutex
	state uint8
}

// NewEncoder configures a and b as floating inputs raising both edges and
// samples their initial state.
func NewEncoder(a, b gpio.PinIn, c *Capture) (*Encoder, error) {
	if a == nil || b == nil {
		return nil, errors.New("input: both encoder lines are required")
	}
	if c == nil {
		return nil, errors.New("input: capture is required")
	}
	if err := a.In(gpio.Float, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("input: failed to configure encoder line %s: %w", a, err)
	}
	if err := b.In(gpio.Float, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("input: failed to configure encoder line %s: %w", b, err)
	}
	e := &Encoder{Settle: DefaultSettle, a: a, b: b, c: c}
	e.state = e.sample()
	return e, nil
}

// HandleEdge processes one edge on either line.
//
// Calls are serialized. Bounce and missed edges show up as invalid
// transitions and are ignored.
func (e *Encoder) HandleEdge() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := 0; i < e.Settle; i++ {
	}
	cur := e.sample()
	if n := steps[e.state<<2|cur]; n != 0 {
		e.c.add(n)
	}
	e.state = cur
}

// Run calls HandleEdge on every edge of either line until ctx is cancelled.
func (e *Encoder) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range []gpio.PinIn{e.a, e.b} {
		p := p
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				if p.WaitForEdge(edgeTimeout) {
					e.HandleEdge()
				}
			}
		})
	}
	return g.Wait()
}

func (e *Encoder) sample() uint8 {
	var s uint8
	if e.a.Read() == gpio.High {
		s |= 0b10
	}
	if e.b.Read() == gpio.High {
		s |= 0b01
	}
	return s
}

// String returns a string representation of the encoder.
func (e *Encoder) String() string {
	return fmt.Sprintf("input.Encoder{%s, %s}", e.a, e.b)
}
