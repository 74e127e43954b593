// Package render draws the river level document onto the panel planes.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/riverlevel/riverlevel/framebuf"
	"github.com/riverlevel/riverlevel/image1bit"
	"github.com/riverlevel/riverlevel/river"
	"github.com/riverlevel/riverlevel/scale"
)

// MaxStations is the number of station graphs that fit on the panel.
const MaxStations = 2

// Layout of the panel, in pixels.
const (
	marginX     = 10
	headerY     = 5
	firstGraphY = 20
	titleHeight = 12
	labelHeight = 12
	graphWidth  = 200
	graphHeight = 100
	graphGap    = 15
)

const (
	headerLayout = "15:04 Mon 02 Jan 2006"
	labelLayout  = "15:04 02 Jan"
)

var face = basicfont.Face7x13

// Options controls rendering.
type Options struct {
	// TwoColor draws the record line and high water on the red plane.
	TwoColor bool
}

// Frame is a rendered panel. On the black plane a set bit is white paper, on
// the red plane a set bit is red ink.
type Frame struct {
	Black *image1bit.HorizontalMSB
	// Red is nil for a monochrome frame.
	Red *image1bit.HorizontalMSB
}

// Render draws doc. Only the first MaxStations stations are drawn.
func Render(doc *river.Document, opts Options) *Frame {
	bounds := image.Rect(0, 0, framebuf.Width, framebuf.Height)
	f := &Frame{Black: image1bit.NewHorizontalMSB(bounds)}
	f.Black.Fill(image1bit.On)
	if opts.TwoColor {
		f.Red = image1bit.NewHorizontalMSB(bounds)
	}

	c := canvas{frame: f}
	c.text(inkBlack, marginX, headerY, "Updated: "+doc.UTCTime.UTC().Format(headerLayout))

	y := firstGraphY
	for i := range doc.Stations {
		if i == MaxStations {
			break
		}
		y += c.station(&doc.Stations[i], marginX, y) + graphGap
	}
	return f
}

// Bytes returns the device buffer: the black plane, followed by the red
// plane for a two-color frame.
func (f *Frame) Bytes() ([]byte, error) {
	black, err := framebuf.Pack(framebuf.GridFromImage(f.Black))
	if err != nil {
		return nil, err
	}
	if f.Red == nil {
		return black, nil
	}
	red, err := framebuf.Pack(framebuf.GridFromImage(f.Red))
	if err != nil {
		return nil, err
	}
	return framebuf.Compose(black, red)
}

var palette = color.Palette{color.White, color.Black, color.RGBA{R: 0xFF, A: 0xFF}}

// Image returns a preview of the frame as the panel would show it.
func (f *Frame) Image() image.Image {
	b := f.Black.Bounds()
	img := image.NewPaletted(b, palette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			switch {
			case f.Red != nil && f.Red.BitAt(x, y) == image1bit.On:
				img.SetColorIndex(x, y, 2)
			case f.Black.BitAt(x, y) == image1bit.Off:
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img
}

// PNG writes the preview image to w.
func (f *Frame) PNG(w io.Writer) error {
	return png.Encode(w, f.Image())
}

type ink int

const (
	inkBlack ink = iota
	inkRed
)

type canvas struct {
	frame *Frame
}

// plane returns the image and color used to draw with k. Red falls back to
// black on a monochrome frame.
func (c *canvas) plane(k ink) (*image1bit.HorizontalMSB, image1bit.Bit) {
	if k == inkRed && c.frame.Red != nil {
		return c.frame.Red, image1bit.On
	}
	return c.frame.Black, image1bit.Off
}

func (c *canvas) hline(k ink, x0, x1, y int) {
	img, b := c.plane(k)
	for x := x0; x <= x1; x++ {
		img.SetBit(x, y, b)
	}
}

func (c *canvas) vline(k ink, x, y0, y1 int) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	img, b := c.plane(k)
	for y := y0; y <= y1; y++ {
		img.SetBit(x, y, b)
	}
}

// text draws s with its top left corner at (x, y).
func (c *canvas) text(k ink, x, y int, s string) {
	img, b := c.plane(k)
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(b),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(s)
}

// station draws one graph with its top left corner at (x0, y0) and returns
// the height it used.
func (c *canvas) station(st *river.StationDocument, x0, y0 int) int {
	topY := y0 + titleHeight
	baseY := topY + graphHeight
	axisEnd := x0 + graphWidth

	c.text(inkBlack, x0, y0, st.Name)
	c.hline(inkBlack, x0, axisEnd, baseY)
	c.vline(inkBlack, x0, topY, baseY)

	c.text(inkBlack, x0, baseY+2, formatLabel(st.FirstTimestamp))
	c.text(inkBlack, axisEnd-80, baseY+2, formatLabel(st.LastTimestamp))

	if st.Error != "" {
		c.text(inkBlack, x0+5, topY+graphHeight/2-6, "error: "+st.Error)
	}

	axis, ok := stationAxis(st)
	if !ok {
		return titleHeight + graphHeight + labelHeight
	}
	c.text(inkBlack, axisEnd+5, baseY-6, metres(axis.Bottom))
	c.text(inkBlack, axisEnd+5, topY-6, metres(axis.Top))

	normal := math.Inf(1)
	if st.TopOfNormalRangeM > 0 {
		normal = st.TopOfNormalRangeM
	}
	for i, h := range st.HeightsM {
		if i == graphWidth {
			break
		}
		bar := axis.Pixel(h)
		if bar == 0 {
			continue
		}
		x := x0 + 1 + i
		// Red above the normal range.
		split := axis.Pixel(normal)
		if h <= normal || split >= bar {
			c.vline(inkBlack, x, baseY, baseY-bar)
			continue
		}
		c.vline(inkBlack, x, baseY, baseY-split)
		c.vline(inkRed, x, baseY-split-1, baseY-bar)
	}

	c.refLine(inkBlack, axis, st.TopOfNormalRangeM, "Normal", x0, baseY)
	c.refLine(inkRed, axis, st.HighestEverRecordedM, "Record", x0, baseY)

	return titleHeight + graphHeight + labelHeight
}

func (c *canvas) refLine(k ink, axis scale.Axis, v float64, label string, x0, baseY int) {
	// Zero is an unset reference.
	if !(v > 0) {
		return
	}
	axisEnd := x0 + graphWidth
	y := baseY - axis.Pixel(v)
	c.hline(k, x0, axisEnd+10, y)
	c.text(k, axisEnd+12, y-6, metres(v))
	c.text(k, axisEnd+12, y+6, label)
}

// stationAxis returns the vertical axis of a station graph. Without a
// configured axis top the graph runs from zero to the top of graph.
func stationAxis(st *river.StationDocument) (scale.Axis, bool) {
	axis := scale.Axis{Bottom: st.YAxisBottomM, Top: st.YAxisTopM, Height: graphHeight}
	if axis.Top <= axis.Bottom {
		axis = scale.Axis{Top: st.TopOfGraphM, Height: graphHeight}
	}
	return axis, axis.Validate() == nil
}

func formatLabel(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.UTC().Format(labelLayout)
}

func metres(v float64) string {
	return fmt.Sprintf("%gm", v)
}
