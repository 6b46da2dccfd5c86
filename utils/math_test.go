package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMath(t *testing.T) {
	for p := -12; p <= 12; p++ {
		assert.InDelta(t, math.Pow(1.3, float64(p)), POW(1.3, p), 1.e-12)
	}
	assert.InDelta(t, 0.1, RelativeError(10, 9, 1.e-8), 1.e-14)
	assert.InDelta(t, 1.e-10, RelativeError(1.e-10, 0, 1.e-8), 1.e-20)
}
