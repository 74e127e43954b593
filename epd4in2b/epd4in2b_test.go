package epd4in2b

import (
	"bytes"
	"errors"
	"image"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/riverlevel/riverlevel/framebuf"
	"github.com/riverlevel/riverlevel/image1bit"
)

// newTestDev returns a device on a recording SPI port with an idle busy pin.
func newTestDev(t *testing.T, rst gpio.PinOut) (*Dev, *spitest.Record) {
	t.Helper()
	port := &spitest.Record{}
	dc := &gpiotest.Pin{N: "DC"}
	busy := &gpiotest.Pin{N: "BUSY", L: gpio.High}

	dev, err := NewSPI(port, dc, &Opts{RST: rst, Busy: busy})
	if err != nil {
		t.Fatalf("NewSPI() error = %v", err)
	}
	return dev, port
}

// written concatenates everything sent over SPI after op index from.
func written(port *spitest.Record, from int) []byte {
	var out []byte
	for _, op := range port.Ops[from:] {
		out = append(out, op.W...)
	}
	return out
}

func opCount(port *spitest.Record) int {
	return len(port.Ops)
}

func TestNewSPIRequiresPins(t *testing.T) {
	busy := &gpiotest.Pin{N: "BUSY", L: gpio.High}
	dc := &gpiotest.Pin{N: "DC"}

	tests := []struct {
		name string
		dc   gpio.PinOut
		opts *Opts
	}{
		{"nil dc", nil, &Opts{Busy: busy}},
		{"nil opts", dc, nil},
		{"nil busy", dc, &Opts{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSPI(&spitest.Record{}, tt.dc, tt.opts); err == nil {
				t.Error("NewSPI() should fail")
			}
		})
	}
}

func TestInitSequence(t *testing.T) {
	_, port := newTestDev(t, nil)

	want := []byte{0x06, 0x17, 0x17, 0x17, 0x04, 0x00, 0x0F}
	if got := written(port, 0); !bytes.Equal(got, want) {
		t.Errorf("init sent % X, want % X", got, want)
	}
}

func TestInitReset(t *testing.T) {
	rst := &gpiotest.Pin{N: "RST"}
	newTestDev(t, rst)

	if rst.L != gpio.High {
		t.Errorf("RST = %s after init, want High", rst.L)
	}
}

func TestWriteSinglePlane(t *testing.T) {
	dev, port := newTestDev(t, nil)
	from := opCount(port)

	black := bytes.Repeat([]byte{0xF0}, framebuf.PlaneSize)
	n, err := dev.Write(black)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != framebuf.PlaneSize {
		t.Errorf("Write() = %d, want %d", n, framebuf.PlaneSize)
	}

	got := written(port, from)
	if len(got) != 3+2*framebuf.PlaneSize {
		t.Fatalf("Write sent %d bytes, want %d", len(got), 3+2*framebuf.PlaneSize)
	}
	if got[0] != 0x10 {
		t.Errorf("first command = 0x%02X, want 0x10", got[0])
	}
	if !bytes.Equal(got[1:1+framebuf.PlaneSize], black) {
		t.Error("black plane not sent unchanged")
	}
	if got[1+framebuf.PlaneSize] != 0x13 {
		t.Errorf("second command = 0x%02X, want 0x13", got[1+framebuf.PlaneSize])
	}
	red := got[2+framebuf.PlaneSize : 2+2*framebuf.PlaneSize]
	if !bytes.Equal(red, bytes.Repeat([]byte{0xFF}, framebuf.PlaneSize)) {
		t.Error("red plane should be sent as all 0xFF (no red ink)")
	}
	if got[len(got)-1] != 0x12 {
		t.Errorf("last command = 0x%02X, want 0x12", got[len(got)-1])
	}
}

func TestWriteTwoPlanes(t *testing.T) {
	dev, port := newTestDev(t, nil)
	from := opCount(port)

	black := bytes.Repeat([]byte{0xFF}, framebuf.PlaneSize)
	red := make([]byte, framebuf.PlaneSize)
	red[0] = 0x80
	buf, err := framebuf.Compose(black, red)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if _, err := dev.Write(buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got := written(port, from)
	sentRed := got[2+framebuf.PlaneSize : 2+2*framebuf.PlaneSize]
	if sentRed[0] != 0x7F {
		t.Errorf("sent red[0] = 0x%02X, want 0x7F", sentRed[0])
	}
	if sentRed[1] != 0xFF {
		t.Errorf("sent red[1] = 0x%02X, want 0xFF", sentRed[1])
	}
}

func TestWriteChunksTransfers(t *testing.T) {
	dev, port := newTestDev(t, nil)
	from := opCount(port)

	if _, err := dev.Write(make([]byte, framebuf.PlaneSize)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	for i, op := range port.Ops[from:] {
		if len(op.W) > dev.maxTx {
			t.Errorf("op %d sent %d bytes, limit %d", i, len(op.W), dev.maxTx)
		}
	}
}

func TestWriteBufferSizeValidation(t *testing.T) {
	dev, _ := newTestDev(t, nil)

	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"one plane short", framebuf.PlaneSize - 1},
		{"one plane long", framebuf.PlaneSize + 1},
		{"three planes", 3 * framebuf.PlaneSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dev.Write(make([]byte, tt.size))
			if !errors.Is(err, framebuf.ErrSizeMismatch) {
				t.Errorf("Write() error = %v, want %v", err, framebuf.ErrSizeMismatch)
			}
		})
	}
}

func TestDraw(t *testing.T) {
	dev, port := newTestDev(t, nil)
	from := opCount(port)

	img := image1bit.NewHorizontalMSB(image.Rect(0, 0, 8, 1))
	if err := dev.Draw(image.Rect(0, 0, 8, 1), img, image.Point{}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	got := written(port, from)
	if got[1] != 0x00 {
		t.Errorf("black[0] = 0x%02X, want 0x00", got[1])
	}
	if got[2] != 0xFF {
		t.Errorf("black[1] = 0x%02X, want 0xFF (untouched, white)", got[2])
	}
}

func TestDrawOutsideBounds(t *testing.T) {
	dev, port := newTestDev(t, nil)
	from := opCount(port)

	img := image1bit.NewHorizontalMSB(image.Rect(0, 0, 8, 8))
	if err := dev.Draw(image.Rect(500, 500, 508, 508), img, image.Point{}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if n := opCount(port); n != from {
		t.Errorf("Draw outside bounds sent %d ops, want 0", n-from)
	}
}

func TestSleep(t *testing.T) {
	dev, port := newTestDev(t, nil)
	from := opCount(port)

	if err := dev.Sleep(); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	want := []byte{0x50, 0xF7, 0x02, 0x07, 0xA5}
	if got := written(port, from); !bytes.Equal(got, want) {
		t.Errorf("Sleep sent % X, want % X", got, want)
	}

	// Second Sleep is a no-op.
	from = opCount(port)
	if err := dev.Sleep(); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if n := opCount(port); n != from {
		t.Errorf("second Sleep sent %d ops, want 0", n-from)
	}

	// Without RST the controller cannot be woken up.
	if _, err := dev.Write(make([]byte, framebuf.PlaneSize)); err == nil {
		t.Error("Write after Sleep without RST should fail")
	}
}

func TestSleepWake(t *testing.T) {
	dev, port := newTestDev(t, &gpiotest.Pin{N: "RST"})

	if err := dev.Sleep(); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	from := opCount(port)
	if _, err := dev.Write(make([]byte, framebuf.PlaneSize)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := written(port, from); got[0] != 0x06 {
		t.Errorf("Write after Sleep started with 0x%02X, want init 0x06", got[0])
	}
}

func TestBusyTimeout(t *testing.T) {
	busy := &gpiotest.Pin{N: "BUSY", L: gpio.Low}
	_, err := NewSPI(&spitest.Record{}, &gpiotest.Pin{N: "DC"}, &Opts{Busy: busy, BusyTimeout: 20 * time.Millisecond})
	if err == nil {
		t.Error("NewSPI() should time out with busy pin held low")
	}
}

func TestDevHalt(t *testing.T) {
	dev, _ := newTestDev(t, nil)

	if err := dev.Halt(); err != nil {
		t.Fatalf("Halt() error = %v", err)
	}
	if err := dev.Halt(); err != nil {
		t.Errorf("second Halt() error = %v", err)
	}

	if _, err := dev.Write(make([]byte, framebuf.PlaneSize)); err == nil {
		t.Error("Write should fail when halted")
	}
	if err := dev.Draw(dev.Bounds(), image.NewGray(dev.Bounds()), image.Point{}); err == nil {
		t.Error("Draw should fail when halted")
	}
	if err := dev.Clear(); err == nil {
		t.Error("Clear should fail when halted")
	}
	if err := dev.Sleep(); err == nil {
		t.Error("Sleep should fail when halted")
	}
}

func TestDevBounds(t *testing.T) {
	dev := &Dev{rect: image.Rect(0, 0, 400, 300)}
	want := image.Rect(0, 0, 400, 300)
	if got := dev.Bounds(); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
}

func TestDevColorModel(t *testing.T) {
	dev := &Dev{}
	if dev.ColorModel() != image1bit.BitModel {
		t.Error("ColorModel() did not return BitModel")
	}
}

func TestDevString(t *testing.T) {
	dev := &Dev{rect: image.Rect(0, 0, 400, 300)}
	want := "epd4in2b.Dev{400x300}"
	if got := dev.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
