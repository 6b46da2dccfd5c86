package kernels

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/notargets/matderiv/FE1D"
	"github.com/notargets/matderiv/InputParameters"
	"github.com/notargets/matderiv/coupling"
	"github.com/notargets/matderiv/material"
	"github.com/notargets/matderiv/types"
)

type fixture struct {
	vs    *coupling.VariableSystem
	store *material.Store
	el    *Element
	F     *material.Property[types.Real]
	dF    map[string]*material.Property[types.Real]
}

// newFixture declares P(u, v, w) with constant values F = 5, dF/du = 2,
// dF/dv = -3, dF/dw = 0.5 on a two element P1 mesh
func newFixture(t *testing.T) (f *fixture) {
	var err error
	f = &fixture{dF: make(map[string]*material.Property[types.Real])}
	f.vs, err = coupling.NewVariableSystem("u", "v", "w", "T")
	require.NoError(t, err)
	m, err := FE1D.NewMesh1D(2, 1, 0, 1)
	require.NoError(t, err)
	qr, err := FE1D.NewGaussLegendre(2)
	require.NoError(t, err)
	fe, err := FE1D.NewElement(m, qr)
	require.NoError(t, err)
	f.el = NewElement(fe, f.vs.Count())
	f.store = material.NewStore(m.K * fe.NumQp())
	f.F, err = material.DeclareProperty[types.Real](f.store, "test", "P")
	require.NoError(t, err)
	values := map[string]float64{"u": 2, "v": -3, "w": 0.5}
	for name, val := range values {
		f.dF[name], err = material.DeclarePropertyDerivative[types.Real](f.store, "test", "P", name)
		require.NoError(t, err)
		for qp := 0; qp < f.store.NumQp(); qp++ {
			f.dF[name].Set(qp, val)
		}
	}
	for qp := 0; qp < f.store.NumQp(); qp++ {
		f.F.Set(qp, 5)
	}
	f.el.Reinit(1)
	return
}

func (f *fixture) deps(t *testing.T) Deps {
	return Deps{Vars: f.vs, Store: f.store, Logger: zaptest.NewLogger(t)}
}

func testBlock(args ...string) InputParameters.KernelBlock {
	return InputParameters.KernelBlock{
		Name:             "test_u",
		Type:             "MaterialDerivativeTestKernel",
		Variable:         "u",
		MaterialProperty: "P",
		Args:             args,
	}
}

func relDelta(t *testing.T, expected, actual float64, msgAndArgs ...any) {
	t.Helper()
	assert.InEpsilon(t, expected, actual, 1.e-12, msgAndArgs...)
}

func TestConstruction(t *testing.T) {
	f := newFixture(t)
	var (
		ce *types.ConfigurationError
		le *types.LookupError
	)
	{ // Binding
		k, err := New(testBlock("v", "w"), f.deps(t))
		require.NoError(t, err)
		mk := k.(*MaterialDerivativeTestKernel)
		assert.Equal(t, 2, mk.NVars())
		assert.Same(t, f.F, mk.P)
		assert.Same(t, f.dF["u"], mk.PDiagDerivative)
		assert.Same(t, f.dF["v"], mk.OffDiagDerivative(0))
		assert.Same(t, f.dF["w"], mk.OffDiagDerivative(1))
		assert.Equal(t, "w", mk.CoupledVariable(1).Name)
		assert.Equal(t, "u", k.Variable().Name)
		assert.Equal(t, "test_u", k.Name())
	}
	{ // Empty coupled list
		_, err := New(testBlock(), f.deps(t))
		require.True(t, errors.As(err, &ce), "%v", err)
		assert.Equal(t, "args", ce.Param)
	}
	{ // Missing property name
		kb := testBlock("v")
		kb.MaterialProperty = ""
		_, err := New(kb, f.deps(t))
		assert.True(t, errors.As(err, &ce))
	}
	{ // Unknown property
		kb := testBlock("v")
		kb.MaterialProperty = "Q"
		_, err := New(kb, f.deps(t))
		require.True(t, errors.As(err, &le))
		assert.Equal(t, "Q", le.Name)
	}
	{ // Unknown coupled variable
		_, err := New(testBlock("v", "c"), f.deps(t))
		require.True(t, errors.As(err, &le))
		assert.Equal(t, "c", le.Name)
	}
	{ // Known variable without a declared derivative
		_, err := New(testBlock("T"), f.deps(t))
		require.True(t, errors.As(err, &le))
		assert.Equal(t, "dP/dT", le.Name)
	}
	{ // Unknown kernel variable and unknown kernel type
		kb := testBlock("v")
		kb.Variable = "phi"
		_, err := New(kb, f.deps(t))
		require.True(t, errors.As(err, &le))
		kb = testBlock("v")
		kb.Type = "Reaction"
		_, err = New(kb, f.deps(t))
		require.True(t, errors.As(err, &le))
		assert.Equal(t, "kernel type", le.Kind)
	}
	{ // Direct base construction with a nil coupling
		v, _ := f.vs.Resolve("u")
		_, err := NewMaterialDerivativeTestKernelBase[types.Real]("k", "P", v, nil,
			material.NewLookup[types.Real](f.store))
		assert.True(t, errors.As(err, &ce))
	}
	{ // Direct base construction without a variable or without a lookup
		v, _ := f.vs.Resolve("u")
		cpl, err := coupling.NewCoupling(f.vs, "k", []string{"v"})
		require.NoError(t, err)
		_, err = NewMaterialDerivativeTestKernelBase[types.Real]("k", "P", nil, cpl,
			material.NewLookup[types.Real](f.store))
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "variable", ce.Param)
		_, err = NewMaterialDerivativeTestKernelBase[types.Real]("k", "P", v, cpl, nil)
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "material_property", ce.Param)
	}
	assert.Panics(t, func() { Register("Diffusion", nil) })
	assert.Contains(t, RegisteredTypes(), "MaterialDerivativeRankTwoTestKernel")
}

func TestQpContributions(t *testing.T) {
	f := newFixture(t)
	k, err := New(testBlock("v", "w"), f.deps(t))
	require.NoError(t, err)
	el := f.el
	for qp := 0; qp < el.NumQp(); qp++ {
		w := el.JxW.AtVec(qp)
		for i := 0; i < el.NumShapes(); i++ {
			test := el.Phi.At(i, qp)
			relDelta(t, 5*test*w, k.ComputeQpResidual(i, qp, el)*w)
			for j := 0; j < el.NumShapes(); j++ {
				trial := el.Phi.At(j, qp)
				relDelta(t, 2*test*trial*w, k.ComputeQpJacobian(i, j, qp, el)*w)
				relDelta(t, -3*test*trial*w, k.ComputeQpOffDiagJacobian(0, i, j, qp, el)*w)
				relDelta(t, 0.5*test*trial*w, k.ComputeQpOffDiagJacobian(1, i, j, qp, el)*w)
			}
		}
	}
}

func TestDuplicateCoupling(t *testing.T) {
	f := newFixture(t)
	single, err := New(testBlock("v"), f.deps(t))
	require.NoError(t, err)
	double, err := New(testBlock("v", "v"), f.deps(t))
	require.NoError(t, err)
	md := double.(*MaterialDerivativeTestKernel)
	assert.Equal(t, 2, md.NVars())
	assert.Same(t, md.OffDiagDerivative(0), md.OffDiagDerivative(1))

	el := f.el
	var one, two float64
	for qp := 0; qp < el.NumQp(); qp++ {
		one += single.ComputeQpOffDiagJacobian(0, 0, 1, qp, el) * el.JxW.AtVec(qp)
		for cvar := 0; cvar < double.Coupled().Count(); cvar++ {
			two += double.ComputeQpOffDiagJacobian(cvar, 0, 1, qp, el) * el.JxW.AtVec(qp)
		}
	}
	assert.InEpsilon(t, 2*one, two, 1.e-12)
}

func TestHandlesTrackStoreState(t *testing.T) {
	f := newFixture(t)
	k, err := New(testBlock("v"), f.deps(t))
	require.NoError(t, err)
	el := f.el
	r1 := k.ComputeQpResidual(0, 0, el)
	j1 := k.ComputeQpJacobian(0, 0, 0, el)
	o1 := k.ComputeQpOffDiagJacobian(0, 0, 0, 0, el)

	// Next time step: the store refreshes the fields in place
	for qp := 0; qp < f.store.NumQp(); qp++ {
		f.F.Set(qp, 7)
		f.dF["u"].Set(qp, 4)
		f.dF["v"].Set(qp, -1)
	}
	r2 := k.ComputeQpResidual(0, 0, el)
	j2 := k.ComputeQpJacobian(0, 0, 0, el)
	o2 := k.ComputeQpOffDiagJacobian(0, 0, 0, 0, el)
	assert.NotEqual(t, r1, r2)
	assert.InEpsilon(t, 7./5., r2/r1, 1.e-12)
	assert.InEpsilon(t, 2., j2/j1, 1.e-12)
	assert.InEpsilon(t, 1./3., o2/o1, 1.e-12)
}

func TestRankTwoKernel(t *testing.T) {
	f := newFixture(t)
	K, err := material.DeclareProperty[types.RankTwoTensor](f.store, "test", "K")
	require.NoError(t, err)
	dKdv, err := material.DeclarePropertyDerivative[types.RankTwoTensor](f.store, "test", "K", "v")
	require.NoError(t, err)
	dKdu, err := material.DeclarePropertyDerivative[types.RankTwoTensor](f.store, "test", "K", "u")
	require.NoError(t, err)
	for qp := 0; qp < f.store.NumQp(); qp++ {
		K.Set(qp, types.NewRankTwoTensor(1, 2, 3, 4, 5, 6, 7, 8, 9))
		dKdu.Set(qp, types.NewRankTwoTensor(10))
		dKdv.Set(qp, types.NewRankTwoTensor(0, 0, 0, 0, 0, -2, 0, 0, 0))
	}
	kb := testBlock("v")
	kb.Type = "MaterialDerivativeRankTwoTestKernel"
	kb.MaterialProperty = "K"
	kb.Component = []int{1, 2}
	k, err := New(kb, f.deps(t))
	require.NoError(t, err)
	el := f.el
	phi0 := el.Phi.At(0, 0)
	assert.InEpsilon(t, 6*phi0, k.ComputeQpResidual(0, 0, el), 1.e-12)
	assert.Equal(t, 0., k.ComputeQpJacobian(0, 0, 0, el)) // off diagonal component of isotropic dK/du
	assert.InEpsilon(t, -2*phi0*phi0, k.ComputeQpOffDiagJacobian(0, 0, 0, 0, el), 1.e-12)

	var ce *types.ConfigurationError
	kb.Component = []int{1}
	_, err = New(kb, f.deps(t))
	assert.True(t, errors.As(err, &ce))
	kb.Component = []int{1, 3}
	_, err = New(kb, f.deps(t))
	assert.True(t, errors.As(err, &ce))
	// A scalar request for a tensor property is a lookup failure
	kb = testBlock("v")
	kb.MaterialProperty = "K"
	var le *types.LookupError
	_, err = New(kb, f.deps(t))
	assert.True(t, errors.As(err, &le))
}

func TestDiffusion(t *testing.T) {
	f := newFixture(t)
	D := 2.
	k, err := New(InputParameters.KernelBlock{Name: "diff", Type: "Diffusion", Variable: "v", Coefficient: &D}, f.deps(t))
	require.NoError(t, err)
	assert.Equal(t, 0, k.Coupled().Count())
	el := f.el
	for qp := 0; qp < el.NumQp(); qp++ {
		el.GradU.Set(1, qp, 3)
	}
	assert.InEpsilon(t, 2*3*el.DPhi.At(1, 0), k.ComputeQpResidual(1, 0, el), 1.e-12)
	assert.InEpsilon(t, 2*el.DPhi.At(0, 0)*el.DPhi.At(1, 0), k.ComputeQpJacobian(1, 0, 0, el), 1.e-12)
	assert.Equal(t, 0., k.ComputeQpOffDiagJacobian(0, 1, 0, 0, el))
	assert.Panics(t, func() { k.Coupled().VariableAt(0) })

	{ // An explicit zero coefficient is kept, a missing one defaults to one
		zero := 0.
		k, err = New(InputParameters.KernelBlock{Name: "off", Type: "Diffusion", Variable: "v", Coefficient: &zero}, f.deps(t))
		require.NoError(t, err)
		assert.Equal(t, 0., k.(*Diffusion).D)
		assert.Equal(t, 0., k.ComputeQpJacobian(1, 0, 0, el))
		k, err = New(InputParameters.KernelBlock{Name: "unit", Type: "Diffusion", Variable: "v"}, f.deps(t))
		require.NoError(t, err)
		assert.Equal(t, 1., k.(*Diffusion).D)
	}
}

func TestOffDiagonalHandleOrderProperty(t *testing.T) {
	pool := []string{"a", "b", "c", "d", "e"}
	rapid.Check(t, func(rt *rapid.T) {
		vs, err := coupling.NewVariableSystem(append([]string{"u"}, pool...)...)
		if err != nil {
			rt.Fatal(err)
		}
		store := material.NewStore(3)
		if _, err = material.DeclareProperty[types.Real](store, "m", "P"); err != nil {
			rt.Fatal(err)
		}
		for _, name := range append([]string{"u"}, pool...) {
			if _, err = material.DeclarePropertyDerivative[types.Real](store, "m", "P", name); err != nil {
				rt.Fatal(err)
			}
		}
		args := rapid.SliceOfN(rapid.SampledFrom(pool), 1, 10).Draw(rt, "args")
		k, err := NewMaterialDerivativeTestKernel(testBlock(args...), Deps{Vars: vs, Store: store})
		if err != nil {
			rt.Fatal(err)
		}
		if k.NVars() != len(args) || len(k.POffDiagDerivatives) != len(args) {
			rt.Fatalf("have %d handles for %d args", len(k.POffDiagDerivatives), len(args))
		}
		for i, name := range args {
			if got, want := k.OffDiagDerivative(i).Name(), fmt.Sprintf("dP/d%s", name); got != want {
				rt.Fatalf("handle %d is %s, want %s", i, got, want)
			}
			if k.CoupledVariable(i).Name != name {
				rt.Fatalf("coupled %d is %s, want %s", i, k.CoupledVariable(i).Name, name)
			}
		}
	})
}
