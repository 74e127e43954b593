// Package framebuf turns pixel grids into the byte buffers expected by the
// 400x300 tri-color e-paper panel.
//
// A plane is Width*Height/8 bytes: rows top to bottom, 8 columns per byte,
// bit 7 holding the leftmost pixel, a set pixel being 1. A device buffer is
// one plane (monochrome) or two planes back to back (black then red).
//
// Every function validates sizes against the fixed panel geometry and fails
// with ErrSizeMismatch rather than truncating or padding.
package framebuf

import (
	"errors"
	"fmt"
	"image"

	"github.com/riverlevel/riverlevel/image1bit"
)

const (
	// Width of the panel in pixels.
	Width = 400
	// Height of the panel in pixels.
	Height = 300
	// PlaneSize is the length in bytes of one packed plane.
	PlaneSize = Width * Height / 8
)

// ErrSizeMismatch is returned when a grid or buffer does not match the panel
// geometry.
var ErrSizeMismatch = errors.New("framebuf: size mismatch")

// Grid is a boolean pixel matrix. The zero value is an empty 0x0 grid.
type Grid struct {
	w, h int
	pix  []bool
}

// NewGrid returns a w x h grid with every pixel unset.
func NewGrid(w, h int) *Grid {
	if w < 0 || h < 0 {
		w, h = 0, 0
	}
	return &Grid{w: w, h: h, pix: make([]bool, w*h)}
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.w }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.h }

// At reports whether the pixel at (x, y) is set. Pixels outside the grid are
// unset.
func (g *Grid) At(x, y int) bool {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return false
	}
	return g.pix[y*g.w+x]
}

// Set sets or clears the pixel at (x, y). Pixels outside the grid are ignored.
func (g *Grid) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return
	}
	g.pix[y*g.w+x] = v
}

// GridFromImage thresholds img into a grid of the same size. A pixel is set
// when it converts to image1bit.On.
func GridFromImage(img image.Image) *Grid {
	b := img.Bounds()
	g := NewGrid(b.Dx(), b.Dy())

	if src, ok := img.(*image1bit.HorizontalMSB); ok {
		for y := 0; y < g.h; y++ {
			for x := 0; x < g.w; x++ {
				g.pix[y*g.w+x] = bool(src.BitAt(b.Min.X+x, b.Min.Y+y))
			}
		}
		return g
	}

	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			g.pix[y*g.w+x] = bool(image1bit.BitModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(image1bit.Bit))
		}
	}
	return g
}

// Pack packs g into a single plane of PlaneSize bytes.
func Pack(g *Grid) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrSizeMismatch)
	}
	if g.w != Width || g.h != Height {
		return nil, fmt.Errorf("%w: grid is %dx%d, want %dx%d", ErrSizeMismatch, g.w, g.h, Width, Height)
	}

	buf := make([]byte, PlaneSize)
	stride := Width / 8
	for y := 0; y < Height; y++ {
		row := g.pix[y*Width : (y+1)*Width]
		for bx := 0; bx < stride; bx++ {
			var v byte
			for bit, set := range row[bx*8 : bx*8+8] {
				if set {
					v |= 0x80 >> uint(bit)
				}
			}
			buf[y*stride+bx] = v
		}
	}
	return buf, nil
}

// Compose builds a device buffer from one or two planes.
//
// With plane2 == nil the result is plane1 unchanged. Otherwise the result is
// plane1 followed by plane2 and both must have the same length.
func Compose(plane1, plane2 []byte) ([]byte, error) {
	if plane2 == nil {
		return plane1, nil
	}
	if len(plane1) != len(plane2) {
		return nil, fmt.Errorf("%w: planes are %d and %d bytes", ErrSizeMismatch, len(plane1), len(plane2))
	}

	out := make([]byte, 0, len(plane1)+len(plane2))
	out = append(out, plane1...)
	return append(out, plane2...), nil
}

// Validate checks that buf is a complete device buffer and returns its number
// of planes: 1 for PlaneSize bytes, 2 for 2*PlaneSize bytes.
func Validate(buf []byte) (planes int, err error) {
	switch len(buf) {
	case PlaneSize:
		return 1, nil
	case 2 * PlaneSize:
		return 2, nil
	}
	return 0, fmt.Errorf("%w: buffer is %d bytes, want %d or %d", ErrSizeMismatch, len(buf), PlaneSize, 2*PlaneSize)
}

// Split is the inverse of Compose for a validated device buffer. red is nil
// for a single-plane buffer.
func Split(buf []byte) (black, red []byte, err error) {
	planes, err := Validate(buf)
	if err != nil {
		return nil, nil, err
	}
	if planes == 1 {
		return buf, nil, nil
	}
	return buf[:PlaneSize], buf[PlaneSize:], nil
}
