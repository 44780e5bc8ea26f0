package util

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

var ErrTooFewPoints = errors.New("at least two finite anchor points required")

// Point is an anchor (x, y) of a piecewise linear function.
type Point struct {
	X float64
	Y float64
}

// Interpolate evaluates the piecewise linear function through pts at x.
//
// Points need not be ordered; values outside the anchor range are clamped to the
// nearest endpoint. If several points share the same x, the last of them is used.
func Interpolate(x float64, pts []Point) (float64, error) {
	if len(pts) < 2 {
		return 0, ErrTooFewPoints
	}

	sorted := make([]Point, len(pts))
	copy(sorted, pts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	for _, p := range sorted {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) {
			return 0, errors.WithMessagef(ErrTooFewPoints, "non-finite anchor %v", p.X)
		}
	}

	first, last := sorted[0], sorted[len(sorted)-1]
	if x <= first.X {
		return first.Y, nil
	}

	if x >= last.X {
		return last.Y, nil
	}

	// index of the first anchor strictly to the right of x
	right := sort.Search(len(sorted), func(i int) bool { return sorted[i].X > x })
	p0, p1 := sorted[right-1], sorted[right]

	return p0.Y + (x-p0.X)*(p1.Y-p0.Y)/(p1.X-p0.X), nil
}

// MustInterpolate is like Interpolate but panics on error.
func MustInterpolate(x float64, pts []Point) float64 {
	y, err := Interpolate(x, pts)
	if err != nil {
		panic(err)
	}

	return y
}
