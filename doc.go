// Package mn12864k drives a MN12864K 128x64 monochrome multiplexed display.
//
// The module has no frame memory of its own. It is built from two daisy
// chains of shift registers: a 48-bit grid chain selecting which grid lines
// are energized, and a 384-bit anode chain carrying the pixel data of the
// selected lines. Only two adjacent grid lines are ever lit, so the host has
// to scan all 43 of them continuously, every few microseconds, for an image
// to appear. Dev is that scanner.
//
// # Display Characteristics
//
//   - 128x64 pixels, 1 bit per pixel
//   - 43 grid lines, each lighting 3 of the 6 pixel columns of two adjacent
//     column groups
//   - Active low anode drivers
//   - Both chains shift MSB-first on SPI mode 1
//
// # Hardware Connection
//
// Both chains are plain SPI slaves without chip select. Each needs its own
// bus (or its own chip select routed to a latch-free buffer), plus a latch
// and a blank line:
//
//	Display Pin → System Pin
//	GND         → GND
//	GCLK/GSI    → SPI Clock / MOSI of the grid bus
//	PCLK/PSI    → SPI Clock / MOSI of the pixel bus
//	GLAT        → GPIO (grid latch, rising edge)
//	GBLK        → GPIO (grid blank, low blanks)
//	PLAT        → GPIO (pixel latch, rising edge)
//	PBLK        → GPIO (pixel blank, low blanks)
//
// # Basic Usage
//
// The scanner reads frames from a swapchain.Chain; the application renders
// into that same chain from another goroutine:
//
//	package main
//
//	import (
//		"context"
//
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/devices/v3/mn12864k"
//		"periph.io/x/devices/v3/mn12864k/swapchain"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		host.Init()
//
//		grid, _ := spireg.Open("SPI0.0")
//		pixel, _ := spireg.Open("SPI1.0")
//
//		chain := swapchain.New()
//		dev, _ := mn12864k.NewSPI(grid, pixel, chain, &mn12864k.Opts{
//			GLAT: gpioreg.ByName("GPIO22"),
//			GBLK: gpioreg.ByName("GPIO23"),
//			PLAT: gpioreg.ByName("GPIO24"),
//			PBLK: gpioreg.ByName("GPIO25"),
//		})
//		defer dev.Halt()
//
//		go dev.Run(context.Background())
//
//		for {
//			tgt, ok := chain.Acquire()
//			if !ok {
//				continue
//			}
//			tgt.Frame().Clear(false)
//			tgt.Frame().SetBit(10, 10, true)
//			tgt.Present()
//		}
//	}
//
// A Target also implements tinygo.org/x/drivers.Displayer, so tinyfont and
// tinydraw can render into it directly.
//
// # Drawing Through Dev
//
// Dev implements display.Drawer from periph.io. Draw renders into a canvas
// owned by Dev and presents a copy of it, so partial draws accumulate:
//
//	dev.Draw(image.Rect(0, 0, 16, 16), image.NewUniform(image1bit.On), image.Point{})
//
// Write presents a raw image1bit frame (image1bit.Size bytes). Both return
// an error when no frame is free; drop the update and try again on the next
// iteration.
//
// # Scan Cycle
//
// For each grid line g in 1..43, Dev:
//
//  1. Adopts the most recently presented frame, if any.
//  2. Shifts 48 bytes of anode data, then the 6-byte grid word.
//  3. Waits until the blanking period of the previous line has elapsed.
//  4. Drives both blank lines low, pulses both latch lines low then high,
//     and drives both blank lines high again, with Settle between edges.
//
// The blanking period (Opts.Blanking, 5µs by default) sets the minimum
// line period; at 4MHz the transfers add about 110µs, for a full sweep
// of roughly 5ms.
//
// # Timing
//
// Run never sleeps and locks itself to an OS thread. On a multi-core host,
// give it a core of its own; any preemption shows up as a brighter line.
//
// # Testing
//
// Package mn12864ktest provides a software panel implementing both chains
// and the four control lines, decoding what the scanner sends back into a
// frame.
package mn12864k
