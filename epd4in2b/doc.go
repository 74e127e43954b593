// Package epd4in2b controls a Waveshare 4.2" tri-color (black, white, red)
// e-paper display via SPI.
//
// The panel is 400×300 and driven by an IL0398 controller. This driver
// implements the display.Drawer interface from periph.io.
//
// # Display Characteristics
//
// - Two 1-bit planes: black/white and red
// - Full refresh only, roughly 15 seconds per update
// - The image stays visible with the power removed
//
// # Hardware Connection
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	CLK         → SPI Clock (SCLK)
//	DIN         → SPI Data (MOSI)
//	CS          → SPI Chip Select
//	DC          → GPIO (any available pin)
//	RST         → GPIO, optional but required to wake from Sleep
//	BUSY        → GPIO input, held low by the controller while busy
//
// # Basic Usage
//
//	host.Init()
//	spiBus, _ := spireg.Open("")
//
//	dev, _ := epd4in2b.NewSPI(spiBus, gpioreg.ByName("GPIO25"), &epd4in2b.Opts{
//		RST:  gpioreg.ByName("GPIO17"),
//		Busy: gpioreg.ByName("GPIO24"),
//	})
//	defer dev.Halt()
//
//	// 15000 bytes: black plane only. 30000 bytes: black then red.
//	dev.Write(buf)
//
// # Plane Format
//
// Each plane holds rows top to bottom, 8 pixels per byte, bit 7 leftmost, as
// produced by package framebuf. On the black plane a set bit is white paper.
// On the red plane a set bit is red ink.
//
// # Power
//
// Sleep powers the panel off and puts the controller in deep sleep; only a
// hardware reset wakes it, so without RST the device cannot be used after
// Sleep. Halt sleeps and refuses further calls.
//
// See cmd/riverlevel for a complete program.
package epd4in2b
