// Package ui is the small application drawn by the example commands: a
// value dialed with the encoder and an indicator per button.
package ui

import (
	"image"
	"image/color"
	"strconv"

	"periph.io/x/devices/v3/mn12864k/image1bit"
	"periph.io/x/devices/v3/mn12864k/input"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Canvas is what a frame is drawn into; swapchain.Target implements it.
type Canvas interface {
	drivers.Displayer
	Frame() *image1bit.Frame
}

var (
	font  = &proggy.TinySZ8pt7b
	white = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	black = color.RGBA{0x00, 0x00, 0x00, 0xFF}
)

// App holds the application state between frames.
type App struct {
	Value   int64
	Coarse  bool // Encoder steps by 10
	Inverse bool // Dark text on a lit panel
	Pattern bool // Checkerboard test pattern

	Frames int
	last   input.State
}

// Update applies one input snapshot.
//
//   - Encoder: change Value, by 10 when Coarse
//   - Encoder button: toggle Coarse
//   - Button 0: reset Value
//   - Button 1: toggle Inverse
//   - Button 2: toggle Pattern
func (a *App) Update(s input.State) {
	step := int64(1)
	if a.Coarse {
		step = 10
	}
	a.Value += int64(s.Encoder.Delta) * step

	if s.Encoder.Button.Pressed {
		a.Coarse = !a.Coarse
	}
	if s.Buttons[0].Pressed {
		a.Value = 0
	}
	if s.Buttons[1].Pressed {
		a.Inverse = !a.Inverse
	}
	if s.Buttons[2].Pressed {
		a.Pattern = !a.Pattern
	}
	a.last = s
}

// Render draws the current state into a cleared canvas.
func (a *App) Render(c Canvas) {
	f := c.Frame()
	a.Frames++
	if a.Pattern {
		checker(f)
		return
	}

	fg := white
	if a.Inverse {
		f.Clear(true)
		fg = black
	}

	tinyfont.WriteLine(c, font, 2, 9, "MN12864K", fg)
	counter := strconv.Itoa(a.Frames % 10000)
	w, _ := tinyfont.LineWidth(font, counter)
	tinyfont.WriteLine(c, font, int16(image1bit.Width-2-int(w)), 9, counter, fg)
	f.Fill(image.Rect(0, 12, image1bit.Width, 13), !a.Inverse)

	mode := "x1"
	if a.Coarse {
		mode = "x10"
	}
	tinyfont.WriteLine(c, font, 2, 30, "value "+strconv.FormatInt(a.Value, 10), fg)
	tinyfont.WriteLine(c, font, 2, 42, "step "+mode, fg)

	// One box per button, filled while held.
	held := []bool{
		a.last.Buttons[0].Down,
		a.last.Buttons[1].Down,
		a.last.Buttons[2].Down,
		a.last.Encoder.Button.Down,
	}
	for i, down := range held {
		r := image.Rect(2+i*20, 50, 2+i*20+14, 62)
		box(f, r, !a.Inverse, down)
	}
}

func box(f *image1bit.Frame, r image.Rectangle, on, filled bool) {
	if filled {
		f.Fill(r, on)
		return
	}
	f.Fill(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), on)
	f.Fill(image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), on)
	f.Fill(image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), on)
	f.Fill(image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), on)
}

func checker(f *image1bit.Frame) {
	for y := 0; y < image1bit.Height; y++ {
		for x := 0; x < image1bit.Width; x++ {
			f.SetBit(x, y, (x/4+y/4)%2 == 0)
		}
	}
}
