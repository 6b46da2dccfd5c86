package material

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/notargets/matderiv/InputParameters"
	"github.com/notargets/matderiv/coupling"
	"github.com/notargets/matderiv/types"
)

func TestStore(t *testing.T) {
	s := NewStore(4, WithLogger(zaptest.NewLogger(t)))
	{ // Derivative names
		assert.Equal(t, "F", PropertyDerivativeName("F"))
		assert.Equal(t, "dF/dc", PropertyDerivativeName("F", "c"))
		assert.Equal(t, "d^2F/dadb", PropertyDerivativeName("F", "b", "a"))
	}
	{ // Declaration and binding share storage
		p, err := DeclareProperty[types.Real](s, "Materials/m", "F")
		require.NoError(t, err)
		assert.Equal(t, 4, p.Len())
		again, err := DeclareProperty[types.Real](s, "Materials/n", "F")
		require.NoError(t, err)
		assert.Same(t, p, again)

		got, err := GetProperty[types.Real](s, "F")
		require.NoError(t, err)
		p.Set(2, 3.5)
		assert.Equal(t, 3.5, got.At(2))
		assert.Contains(t, s.Names(), "F")
	}
	{ // Kind mismatch
		_, err := DeclareProperty[types.RankTwoTensor](s, "Materials/t", "F")
		var ce *types.ConfigurationError
		assert.True(t, errors.As(err, &ce))

		_, err = GetProperty[types.RankTwoTensor](s, "F")
		var le *types.LookupError
		require.True(t, errors.As(err, &le))
		assert.Contains(t, le.Context, "Materials/m")
	}
	{ // Missing derivative
		_, err := DeclarePropertyDerivative[types.Real](s, "Materials/m", "F", "u")
		require.NoError(t, err)
		l := NewLookup[types.Real](s)
		d, err := l.GetDerivative("F", "u")
		require.NoError(t, err)
		assert.Equal(t, "dF/du", d.Name())
		_, err = l.GetDerivative("F", "v")
		var le *types.LookupError
		require.True(t, errors.As(err, &le))
		assert.Equal(t, "dF/dv", le.Name)
		assert.Equal(t, "material property derivative", le.Kind)
		_, err = l.GetProperty("G")
		assert.True(t, errors.As(err, &le))
		assert.Equal(t, []string{"F", "dF/du"}, s.Names())
	}
}

func newVars(t *testing.T) *coupling.VariableSystem {
	vs, err := coupling.NewVariableSystem("u", "v", "w")
	require.NoError(t, err)
	return vs
}

// F = 2 u^2 v + 3 w - 1
var polyBlock = InputParameters.MaterialBlock{
	Name:     "poly",
	Type:     "polynomial",
	Property: "F",
	Args:     []string{"u", "v", "w"},
	Terms: []InputParameters.TermBlock{
		{Coeff: 2, Powers: map[string]int{"u": 2, "v": 1}},
		{Coeff: 3, Powers: map[string]int{"w": 1}},
		{Coeff: -1},
	},
}

func TestPolynomialMaterial(t *testing.T) {
	vs := newVars(t)
	s := NewStore(1)
	m, err := New(polyBlock, s, vs)
	require.NoError(t, err)
	assert.Equal(t, "poly", m.Name())

	vals := []float64{1.5, -0.5, 2}
	m.ComputeQpProperties(0, vals)
	F, _ := GetProperty[types.Real](s, "F")
	assert.InDelta(t, 2*2.25*-0.5+6-1, F.At(0), 1.e-14)
	for a, name := range []string{"u", "v", "w"} {
		d, err := GetPropertyDerivative[types.Real](s, "F", name)
		require.NoError(t, err)
		// central difference of the material itself
		h := 1.e-6
		up := append([]float64(nil), vals...)
		dn := append([]float64(nil), vals...)
		up[a] += h
		dn[a] -= h
		m.ComputeQpProperties(0, up)
		fp := F.At(0)
		m.ComputeQpProperties(0, dn)
		fm := F.At(0)
		m.ComputeQpProperties(0, vals)
		assert.InDelta(t, (fp-fm)/(2*h), d.At(0), 1.e-8, "dF/d%s", name)
	}
}

func TestMaterialErrors(t *testing.T) {
	vs := newVars(t)
	var (
		ce *types.ConfigurationError
		le *types.LookupError
	)
	{ // Unknown type
		_, err := New(InputParameters.MaterialBlock{Name: "x", Type: "parsed"}, NewStore(1), vs)
		require.True(t, errors.As(err, &le))
		assert.Equal(t, "parsed", le.Name)
	}
	{ // Unknown argument
		mb := polyBlock
		mb.Args = []string{"u", "T"}
		_, err := New(mb, NewStore(1), vs)
		require.True(t, errors.As(err, &le))
		assert.Equal(t, "T", le.Name)
	}
	{ // Duplicate argument, power on a non argument, bad tensor
		mb := polyBlock
		mb.Args = []string{"u", "u"}
		_, err := New(mb, NewStore(1), vs)
		assert.True(t, errors.As(err, &ce))
		mb.Args = []string{"u"}
		_, err = New(mb, NewStore(1), vs)
		assert.True(t, errors.As(err, &ce))
		mb = polyBlock
		mb.Type = "tensor"
		mb.Tensor = []float64{1, 2}
		_, err = New(mb, NewStore(1), vs)
		assert.True(t, errors.As(err, &ce))
	}
	assert.Panics(t, func() { Register("polynomial", nil) })
}

func TestTensorMaterial(t *testing.T) {
	vs := newVars(t)
	s := NewStore(1)
	mb := polyBlock
	mb.Type = "tensor"
	mb.Property = "K"
	mb.Tensor = []float64{1, 2, 3}
	mb.DerivativeError = map[string]float64{"w": 0.25}
	m, err := New(mb, s, vs)
	require.NoError(t, err)
	m.ComputeQpProperties(0, []float64{1, 1, 1})
	K, err := GetProperty[types.RankTwoTensor](s, "K")
	require.NoError(t, err)
	assert.InDelta(t, 3*(2+3-1), K.At(0)[2][2], 1.e-14)
	dKdw, err := GetPropertyDerivative[types.RankTwoTensor](s, "K", "w")
	require.NoError(t, err)
	assert.InDelta(t, 2*(3+0.25), dKdw.At(0)[1][1], 1.e-14)
	assert.Equal(t, 0., dKdw.At(0)[0][1])

	tm := m.(*TensorMaterial)
	vals := []float64{0.5, 2, 1}
	assert.Zero(t, testing.AllocsPerRun(20, func() { tm.ComputeQpProperties(0, vals) }))
}

func TestCompute(t *testing.T) {
	defer goleak.VerifyNone(t)
	vs := newVars(t)
	var (
		nQp = 37
		s   = NewStore(nQp)
	)
	m, err := New(polyBlock, s, vs)
	require.NoError(t, err)
	vals := NewQpValues(nQp, vs.Count())
	for qp := 0; qp < nQp; qp++ {
		copy(vals.At(qp), []float64{float64(qp), 1, 0})
	}
	require.NoError(t, s.Compute(context.Background(), []Material{m}, vals, 4))
	F, _ := GetProperty[types.Real](s, "F")
	dFdu, _ := GetPropertyDerivative[types.Real](s, "F", "u")
	for qp := 0; qp < nQp; qp++ {
		u := float64(qp)
		assert.InDelta(t, 2*u*u-1, F.At(qp), 1.e-12)
		assert.InDelta(t, 4*u, dFdu.At(qp), 1.e-12)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Compute(ctx, []Material{m}, vals, 4), context.Canceled)
}
