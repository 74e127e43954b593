package epd4in2b

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/riverlevel/riverlevel/framebuf"
	"github.com/riverlevel/riverlevel/image1bit"
)

var _ display.Drawer = (*Dev)(nil)

// Opts is the configuration for the display.
type Opts struct {
	// Reset pin (optional, nil if not used)
	RST gpio.PinOut
	// Busy pin (required); the controller holds it low while busy
	Busy gpio.PinIn

	// Maximum time to wait for the busy pin (default: 30s)
	BusyTimeout time.Duration
}

// Dev is the device handle for the display.
type Dev struct {
	// Communication
	c     conn.Conn   // SPI connection
	dc    gpio.PinOut // Data/Command pin
	rst   gpio.PinOut // Reset pin (optional)
	busy  gpio.PinIn  // Busy pin
	maxTx int         // Largest single SPI transfer

	busyTimeout time.Duration

	rect image.Rectangle

	// Black plane used by Draw, lazily allocated
	next *image1bit.HorizontalMSB

	// State
	asleep bool
	halted bool
}

// NewSPI creates a new device connected via SPI.
//
// The SPI port is configured for 4MHz, Mode0, 8-bit transfers. The dc
// (Data/Command) pin must be provided and configured as an output.
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if dc == nil {
		return nil, errors.New("epd4in2b: dc pin is required")
	}
	if opts == nil || opts.Busy == nil {
		return nil, errors.New("epd4in2b: busy pin is required")
	}

	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("epd4in2b: failed to connect to SPI port: %w", err)
	}
	if err := opts.Busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("epd4in2b: failed to configure busy pin: %w", err)
	}

	d := &Dev{
		c:           c,
		dc:          dc,
		rst:         opts.RST,
		busy:        opts.Busy,
		maxTx:       4096,
		busyTimeout: opts.BusyTimeout,
		rect:        image.Rect(0, 0, framebuf.Width, framebuf.Height),
	}
	if d.busyTimeout <= 0 {
		d.busyTimeout = 30 * time.Second
	}
	if l, ok := c.(conn.Limits); ok {
		if m := l.MaxTxSize(); m > 0 {
			d.maxTx = m
		}
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

// init resets the controller and powers the panel on.
func (d *Dev) init() error {
	if d.rst != nil {
		for _, step := range []struct {
			l gpio.Level
			t time.Duration
		}{{gpio.High, 200 * time.Millisecond}, {gpio.Low, 5 * time.Millisecond}, {gpio.High, 200 * time.Millisecond}} {
			if err := d.rst.Out(step.l); err != nil {
				return fmt.Errorf("epd4in2b: failed to drive RST %s: %w", step.l, err)
			}
			time.Sleep(step.t)
		}
	}

	if err := d.sendCommand(0x06, 0x17, 0x17, 0x17); err != nil { // Booster soft start
		return err
	}
	if err := d.sendCommand(0x04); err != nil { // Power on
		return err
	}
	if err := d.waitIdle(); err != nil {
		return err
	}
	if err := d.sendCommand(0x00, 0x0F); err != nil { // Panel setting: LUT from OTP
		return err
	}

	d.asleep = false
	return nil
}

// sendCommand sends a command byte followed by its optional data bytes.
func (d *Dev) sendCommand(cmd byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.c.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return d.sendData(data)
}

// sendData sends data bytes, split into transfers the port accepts.
func (d *Dev) sendData(data []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) > 0 {
		n := min(len(data), d.maxTx)
		if err := d.c.Tx(data[:n], nil); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// waitIdle blocks until the busy pin goes high.
func (d *Dev) waitIdle() error {
	deadline := time.Now().Add(d.busyTimeout)
	for d.busy.Read() == gpio.Low {
		if time.Now().After(deadline) {
			return errors.New("epd4in2b: timed out waiting for busy pin")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

// wake re-initialises the controller after Sleep.
func (d *Dev) wake() error {
	if !d.asleep {
		return nil
	}
	if d.rst == nil {
		return errors.New("epd4in2b: asleep and no RST pin to wake it")
	}
	return d.init()
}

// refresh transfers both planes and starts a full refresh.
//
// black holds 1 for white paper. red holds 1 for red ink; the controller
// expects 0 for ink, so it is inverted on the way out.
func (d *Dev) refresh(black, red []byte) error {
	if err := d.wake(); err != nil {
		return err
	}

	inverted := make([]byte, len(red))
	for i, b := range red {
		inverted[i] = ^b
	}

	if err := d.sendCommand(0x10, black...); err != nil { // Data start transmission 1
		return err
	}
	if err := d.sendCommand(0x13, inverted...); err != nil { // Data start transmission 2
		return err
	}
	if err := d.sendCommand(0x12); err != nil { // Display refresh
		return err
	}
	return d.waitIdle()
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Write shows a device buffer of one plane (15000 bytes, black only) or two
// planes (30000 bytes, black then red).
func (d *Dev) Write(buf []byte) (int, error) {
	if d.halted {
		return 0, errors.New("epd4in2b: halted")
	}
	black, red, err := framebuf.Split(buf)
	if err != nil {
		return 0, fmt.Errorf("epd4in2b: %w", err)
	}
	if red == nil {
		red = make([]byte, framebuf.PlaneSize)
	}
	if err := d.refresh(black, red); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// Draw draws an image onto the black plane and refreshes the display.
// The red plane is cleared. Pixels outside dst keep their previous value.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return errors.New("epd4in2b: halted")
	}

	dst = dst.Intersect(d.rect)
	if dst.Empty() {
		return nil
	}

	if d.next == nil {
		d.next = image1bit.NewHorizontalMSB(d.rect)
		d.next.Fill(image1bit.On)
	}
	draw.Draw(d.next, dst, src, sp, draw.Src)

	return d.refresh(d.next.Pix, make([]byte, framebuf.PlaneSize))
}

// Clear turns the whole panel white.
func (d *Dev) Clear() error {
	if d.halted {
		return errors.New("epd4in2b: halted")
	}
	if d.next != nil {
		d.next.Fill(image1bit.On)
	}
	white := make([]byte, framebuf.PlaneSize)
	for i := range white {
		white[i] = 0xFF
	}
	return d.refresh(white, make([]byte, framebuf.PlaneSize))
}

// Sleep powers the panel off and puts the controller in deep sleep. The
// image stays visible. The next Write, Draw or Clear wakes the controller up,
// which requires the RST pin.
func (d *Dev) Sleep() error {
	if d.halted {
		return errors.New("epd4in2b: halted")
	}
	if d.asleep {
		return nil
	}
	if err := d.sendCommand(0x50, 0xF7); err != nil { // VCOM and data interval
		return err
	}
	if err := d.sendCommand(0x02); err != nil { // Power off
		return err
	}
	if err := d.waitIdle(); err != nil {
		return err
	}
	if err := d.sendCommand(0x07, 0xA5); err != nil { // Deep sleep, check code
		return err
	}
	d.asleep = true
	return nil
}

// Halt puts the panel to sleep. After calling Halt, the display will not
// respond to further calls.
func (d *Dev) Halt() error {
	if d.halted {
		return nil
	}
	err := d.Sleep()
	d.halted = true
	return err
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("epd4in2b.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}
