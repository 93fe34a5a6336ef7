// Package image1bit provides the 1-bit frame format of the MN12864K display module.
//
// The MN12864K is a 128x64 monochrome module driven one grid line at a time.
// Its anode shift register is fed column group by column group, so the frame
// is stored in the same order the scanner needs it rather than row-major.
//
// Memory layout of one column group (6 columns x 64 rows = 48 bytes):
//
//	x%6:            0  1  2  3  4  5
//	bit in row:     0  2  4  5  3  1
//	row y occupies bits y*6 .. y*6+5 of the group, LSB-first
//
// For example pixel (7, 1) lives in group 1, row bit 1*6+2 = 8, which is
// bit 0 of byte 1*48 + 1.
//
// This package provides:
//
// - Bit: a 1-bit color type (On/Off)
// - BitModel: a color model thresholding standard colors to Bit
// - Frame: a fixed-size draw.Image implementation in the module's layout
//
// Example usage:
//
//	f := image1bit.NewFrame()
//	f.SetBit(10, 20, true)
//	lit := f.BitAt(10, 20) // true
//	draw.Draw(f, image.Rect(0, 0, 16, 16), image.NewUniform(image1bit.On), image.Point{}, draw.Src)
package image1bit
