package mn12864k

import (
	"math/bits"

	"periph.io/x/devices/v3/mn12864k/image1bit"
)

// Sub-pass masks. Two consecutive grid lines share a column group, odd lines
// showing the even storage bits (A) and even lines the odd ones (B). The last
// line only covers the two real columns left in group 21 (C, repeating every
// 3 bytes = 4 rows).
const (
	patternA = 0b01010101
	patternB = 0b10101010
)

var patternC = [3]byte{0b01000101, 0b01010001, 0b00010100}

// fillPixels writes the anode data of grid line g into dst.
//
// Storage is LSB-first while the chain shifts MSB-first, and the anode
// drivers are active low, so each masked byte is bit-reversed and inverted.
func fillPixels(dst []byte, f *image1bit.Frame, g int) {
	src := f.Column((g - 1) / 2)
	switch {
	case g == GridLines:
		for i := 0; i < PixelBytes; i++ {
			dst[i] = ^bits.Reverse8(src[i] & patternC[i%3])
		}
	case g%2 == 1:
		for i := 0; i < PixelBytes; i++ {
			dst[i] = ^bits.Reverse8(src[i] & patternA)
		}
	default:
		for i := 0; i < PixelBytes; i++ {
			dst[i] = ^bits.Reverse8(src[i] & patternB)
		}
	}
}

// fillGrid writes the grid select word of grid line g into dst: all ones
// except the bits of lines g-1 and g, MSB-first within each byte.
func fillGrid(dst []byte, g int) {
	for i := range dst[:GridBytes] {
		dst[i] = 0xFF
	}
	dst[(g-1)/8] &^= 0x80 >> uint((g-1)%8)
	dst[g/8] &^= 0x80 >> uint(g%8)
}
