package image1bit

import (
	"image"
	"image/color"
)

const (
	// Width and Height are the logical frame dimensions in pixels.
	Width  = 128
	Height = 64

	// GroupWidth is the number of pixel columns in one column group.
	GroupWidth = 6
	// Groups is the number of column groups; the last one is clipped to Width.
	Groups = 22
	// GroupBytes is the number of storage bytes of one column group.
	GroupBytes = GroupWidth * 8

	// Size is the length of the backing store in bytes.
	Size = GroupBytes * Groups
)

// pixelOffsets maps x%6 to the pixel position within a group row.
var pixelOffsets = [GroupWidth]int{0, 2, 4, 5, 3, 1}

// Bit is a 1-bit color: On is a lit pixel, Off is unlit.
type Bit bool

const (
	On  Bit = true
	Off Bit = false
)

// RGBA returns white for On and black for Off.
func (b Bit) RGBA() (r, g, bl, a uint32) {
	if b {
		return 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF
	}
	return 0, 0, 0, 0xFFFF
}

func convert(c color.Color) color.Color {
	if b, ok := c.(Bit); ok {
		return b
	}
	r, g, b, _ := c.RGBA()
	// Same luma weights as image/color.GrayModel, thresholded at half scale.
	y := (19595*r + 38470*g + 7471*b + 1<<15) >> 16
	return Bit(y >= 0x8000)
}

// BitModel converts colors to Bit.
var BitModel = color.ModelFunc(convert)

// Frame is one full display frame.
//
// The zero value is an all-unlit frame ready to use.
type Frame struct {
	Pix [Size]byte
}

// NewFrame returns a cleared frame.
func NewFrame() *Frame {
	return &Frame{}
}

// ColorModel returns BitModel.
func (f *Frame) ColorModel() color.Model {
	return BitModel
}

// Bounds returns the logical frame rectangle.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, Width, Height)
}

// At returns the color of the pixel at (x, y).
// It implements the image.Image interface.
func (f *Frame) At(x, y int) color.Color {
	return Bit(f.BitAt(x, y))
}

// Set sets the pixel at (x, y) to c converted through BitModel.
// It implements the draw.Image interface.
func (f *Frame) Set(x, y int, c color.Color) {
	f.SetBit(x, y, bool(BitModel.Convert(c).(Bit)))
}

// SetBit lights (on) or clears the pixel at (x, y).
// Coordinates outside the frame are ignored.
func (f *Frame) SetBit(x, y int, on bool) {
	if !inBounds(x, y) {
		return
	}
	f.setRaw(x, y, on)
}

// BitAt reports whether the pixel at (x, y) is lit.
// Coordinates outside the frame read as unlit.
func (f *Frame) BitAt(x, y int) bool {
	if !inBounds(x, y) {
		return false
	}
	return f.getRaw(x, y)
}

// Clear sets every bit of the backing store, including the clipped columns
// of the last group, to on.
func (f *Frame) Clear(on bool) {
	v := byte(0x00)
	if on {
		v = 0xFF
	}
	for i := range f.Pix {
		f.Pix[i] = v
	}
}

// Fill sets every pixel of r, clipped to the frame, to on.
func (f *Frame) Fill(r image.Rectangle, on bool) {
	r = r.Intersect(f.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			f.setRaw(x, y, on)
		}
	}
}

// CopyFrom overwrites f with the contents of src.
func (f *Frame) CopyFrom(src *Frame) {
	f.Pix = src.Pix
}

// Column returns the storage bytes of column group c.
// It panics if c is not in [0, Groups).
func (f *Frame) Column(c int) []byte {
	return f.Pix[c*GroupBytes : (c+1)*GroupBytes]
}

func (f *Frame) setRaw(x, y int, on bool) {
	bit, offset := bitOffset(x, y)
	if on {
		f.Pix[offset] |= 1 << bit
	} else {
		f.Pix[offset] &^= 1 << bit
	}
}

func (f *Frame) getRaw(x, y int) bool {
	bit, offset := bitOffset(x, y)
	return f.Pix[offset]&(1<<bit) != 0
}

// bitOffset returns the bit index and byte offset of the pixel at (x, y).
func bitOffset(x, y int) (bit uint, offset int) {
	group := x / GroupWidth
	pixel := y*GroupWidth + pixelOffsets[x%GroupWidth]
	return uint(pixel % 8), pixel/8 + group*GroupBytes
}

func inBounds(x, y int) bool {
	return x >= 0 && x < Width && y >= 0 && y < Height
}
