package utils

import (
	"math"
)

// POW is an integer power, unrolled for the small exponents used by
// polynomial material laws
func POW(x float64, pp int) (y float64) {
	var (
		p       = pp
		flipped bool
	)
	if pp > 8 || pp < -8 {
		return math.Pow(x, float64(pp))
	}
	if p < 0 {
		p = -pp
		flipped = true
	}
	switch p {
	case 0:
		y = 1
	case 1:
		y = x
	case 2:
		y = x * x
	case 3:
		y = x * x * x
	case 4:
		y = x * x
		y = y * y
	case 5:
		y = x * x
		y = y * y * x
	case 6:
		y = x * x
		y = y * y * y
	case 7:
		y = x * x
		y = y * y * y * x
	case 8:
		y = x * x
		y = y * y * y * y
	}
	if flipped {
		y = 1. / y
	}
	return
}

// RelativeError is |a-b| scaled by the larger magnitude, falling back to the
// absolute difference when both are below floor
func RelativeError(a, b, floor float64) float64 {
	var (
		diff  = math.Abs(a - b)
		scale = math.Max(math.Abs(a), math.Abs(b))
	)
	if scale == 0 || scale < floor {
		return diff
	}
	return diff / scale
}
