// Package scale maps physical readings onto graph coordinates.
//
// Two mappings are provided. PercentOf places a value relative to a single
// ceiling, used for reference lines when only the top of the graph is known.
// PixelOf places a value between two axis bounds on a graph of a given pixel
// height. Both are monotone non-decreasing in value and clamp their result,
// so out-of-range readings stick to the edge of the graph.
//
// Rounding is half-to-even.
package scale

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoReference is returned by TopOfGraph when no positive reference value
// is available.
var ErrNoReference = errors.New("scale: no positive reference value")

// TopOfGraph returns the largest reference value rounded up to the next half
// unit: ceil(max*2)/2.
func TopOfGraph(refs ...float64) (float64, error) {
	top := math.Inf(-1)
	for _, r := range refs {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return 0, fmt.Errorf("scale: reference value %v is not finite", r)
		}
		top = math.Max(top, r)
	}
	if top <= 0 {
		return 0, ErrNoReference
	}
	return math.Ceil(top*2) / 2, nil
}

// PercentOf returns round(value/topOfGraph*100) clamped to [0, 100].
// A non-positive topOfGraph or a NaN value yields 0.
func PercentOf(value, topOfGraph float64) int {
	if topOfGraph <= 0 || math.IsNaN(value) {
		return 0
	}
	return clamp(math.RoundToEven(value/topOfGraph*100), 100)
}

// PixelOf returns round((value-bottom)/(top-bottom)*height) clamped to
// [0, height]. It returns 0 when top <= bottom, height <= 0 or value is NaN.
func PixelOf(value, bottom, top float64, height int) int {
	if top <= bottom || height <= 0 || math.IsNaN(value) {
		return 0
	}
	return clamp(math.RoundToEven((value-bottom)/(top-bottom)*float64(height)), height)
}

// Axis is a vertical axis of fixed pixel height between two physical bounds.
type Axis struct {
	Bottom float64
	Top    float64
	Height int
}

// Validate reports whether a can place values.
func (a Axis) Validate() error {
	if math.IsNaN(a.Bottom) || math.IsNaN(a.Top) || a.Top <= a.Bottom {
		return fmt.Errorf("scale: axis top %v must be above bottom %v", a.Top, a.Bottom)
	}
	if a.Height <= 0 {
		return fmt.Errorf("scale: axis height %d must be positive", a.Height)
	}
	return nil
}

// Pixel returns the offset of v above the bottom of the axis.
func (a Axis) Pixel(v float64) int {
	return PixelOf(v, a.Bottom, a.Top, a.Height)
}

func clamp(v float64, hi int) int {
	switch {
	case v < 0:
		return 0
	case v > float64(hi):
		return hi
	}
	return int(v)
}
