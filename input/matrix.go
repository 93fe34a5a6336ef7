package input

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// DefaultScanPeriod is the interval between two column scans.
const DefaultScanPeriod = 5 * time.Millisecond

// Matrix scans a 2x2 button matrix into a Capture, one column per call.
type Matrix struct {
	// Period overrides DefaultScanPeriod for Run.
	Period time.Duration

	col0, col1 gpio.PinOut
	row0, row1 gpio.PinIn
	c          *Capture

	mu      sync.Mutex
	column0 bool // Column 0 is driven and will be read next
}

// NewMatrix configures the rows as floating inputs and drives column 0.
func NewMatrix(col0, col1 gpio.PinOut, row0, row1 gpio.PinIn, c *Capture) (*Matrix, error) {
	if col0 == nil || col1 == nil || row0 == nil || row1 == nil {
		return nil, errors.New("input: all four matrix lines are required")
	}
	if c == nil {
		return nil, errors.New("input: capture is required")
	}
	for _, r := range []gpio.PinIn{row0, row1} {
		if err := r.In(gpio.Float, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("input: failed to configure matrix row %s: %w", r, err)
		}
	}
	if err := col0.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("input: failed to drive matrix column %s: %w", col0, err)
	}
	if err := col1.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("input: failed to drive matrix column %s: %w", col1, err)
	}
	return &Matrix{
		Period:  DefaultScanPeriod,
		col0:    col0,
		col1:    col1,
		row0:    row0,
		row1:    row1,
		c:       c,
		column0: true,
	}, nil
}

// Scan reads both rows of the driven column, then drives the other one.
func (m *Matrix) Scan() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.column0 {
		m.c.setLevel(0, m.row0.Read() == gpio.High)
		m.c.setLevel(1, m.row1.Read() == gpio.High)
		_ = m.col0.Out(gpio.Low)
		_ = m.col1.Out(gpio.High)
	} else {
		m.c.setLevel(2, m.row0.Read() == gpio.High)
		m.c.setLevel(3, m.row1.Read() == gpio.High)
		_ = m.col0.Out(gpio.High)
		_ = m.col1.Out(gpio.Low)
	}
	m.column0 = !m.column0
}

// Run calls Scan every Period until ctx is cancelled.
//
// The timer is re-armed after each scan, so a full matrix read takes two
// periods plus the scan time.
func (m *Matrix) Run(ctx context.Context) error {
	period := m.Period
	if period <= 0 {
		period = DefaultScanPeriod
	}
	t := time.NewTimer(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			m.Scan()
			t.Reset(period)
		}
	}
}
