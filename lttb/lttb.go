// Package lttb reduces an ordered series to a fixed number of points with the
// Largest-Triangle-Three-Buckets algorithm.
//
// The first and last points are always kept unchanged. The points in between
// are split into threshold-2 buckets; from each bucket the point forming the
// largest triangle with the previously selected point and the average of the
// next bucket is kept.
//
// Bucket boundaries and tie-breaking are fixed so that the output is
// reproducible across implementations:
//
//	every = (N-2) / (threshold-2)                  (float64)
//	bucket i = [floor(i*every)+1, floor((i+1)*every)+1)
//
// When two candidates have the same area the first one wins.
//
// The algorithm is described in:
// https://skemman.is/bitstream/1946/15343/3/SS_MSthesis.pdf
package lttb

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput is returned for an empty series, non-finite values or
	// indices that are not strictly increasing.
	ErrInvalidInput = errors.New("lttb: invalid input")

	// ErrThresholdRange is returned when threshold is not in (2, len(series)).
	ErrThresholdRange = errors.New("lttb: threshold out of range")
)

// Point is a single reading of a series.
// Index is the position in the series (not a timestamp) and is used as the x
// coordinate; Value is used as the y coordinate.
type Point struct {
	Index int
	Value float64
}

// Downsample returns exactly threshold points selected from series.
//
// series must hold at least one point, finite values and strictly increasing
// indices; threshold must satisfy 2 < threshold < len(series). Callers that
// may pass len(series) == threshold must handle that case themselves.
func Downsample(series []Point, threshold int) ([]Point, error) {
	if err := validate(series, threshold); err != nil {
		return nil, err
	}

	n := len(series)
	every := float64(n-2) / float64(threshold-2)

	sampled := make([]Point, 0, threshold)
	sampled = append(sampled, series[0])

	a := 0
	for i := 0; i < threshold-2; i++ {
		avg := average(series, bucketStart(i+1, every), min(bucketStart(i+2, every), n))

		a = largest(series, series[a], avg, bucketStart(i, every), bucketStart(i+1, every))
		sampled = append(sampled, series[a])
	}

	sampled = append(sampled, series[n-1])
	return sampled, nil
}

func validate(series []Point, threshold int) error {
	if len(series) == 0 {
		return fmt.Errorf("%w: empty series", ErrInvalidInput)
	}
	if threshold <= 2 || threshold >= len(series) {
		return fmt.Errorf("%w: threshold %d, want 2 < threshold < %d", ErrThresholdRange, threshold, len(series))
	}
	for i, p := range series {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return fmt.Errorf("%w: point %d has non-finite value %v", ErrInvalidInput, i, p.Value)
		}
		if i > 0 && p.Index <= series[i-1].Index {
			return fmt.Errorf("%w: point %d index %d does not follow %d", ErrInvalidInput, i, p.Index, series[i-1].Index)
		}
	}
	return nil
}

// centroid is the mean position of a bucket.
type centroid struct{ X, Y float64 }

// bucketStart returns floor(k*every)+1, the first series offset of bucket k.
func bucketStart(k int, every float64) int {
	return int(math.Floor(float64(k)*every)) + 1
}

// average returns the componentwise mean of series[lo:hi]. An empty range
// degenerates to the nearest existing point.
func average(series []Point, lo, hi int) (avg centroid) {
	if hi <= lo {
		p := series[min(lo, len(series)-1)]
		avg.X, avg.Y = float64(p.Index), p.Value
		return
	}
	for _, p := range series[lo:hi] {
		avg.X += float64(p.Index)
		avg.Y += p.Value
	}
	length := float64(hi - lo)
	avg.X /= length
	avg.Y /= length
	return
}

// largest returns the offset in [lo, hi) of the point forming the largest
// triangle with a and avg.
func largest(series []Point, a Point, avg centroid, lo, hi int) int {
	ax, ay := float64(a.Index), a.Value

	maxArea := -1.0
	selected := lo
	for j := lo; j < hi; j++ {
		cx, cy := float64(series[j].Index), series[j].Value
		area := math.Abs((ax-avg.X)*(cy-ay)-(ax-cx)*(avg.Y-ay)) * 0.5
		if area > maxArea {
			maxArea = area
			selected = j
		}
	}
	return selected
}
