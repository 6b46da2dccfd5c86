package material

import (
	"fmt"

	"github.com/notargets/matderiv/InputParameters"
	"github.com/notargets/matderiv/coupling"
	"github.com/notargets/matderiv/types"
)

func init() {
	Register("tensor", func(mb InputParameters.MaterialBlock, s *Store, vs *coupling.VariableSystem) (Material, error) {
		return NewTensorMaterial(mb, s, vs)
	})
}

// TensorMaterial provides the rank two property F(vars)*A for a constant
// tensor A, with F a polynomial
type TensorMaterial struct {
	name string
	poly *polynomial
	A    types.RankTwoTensor
	P    *Property[types.RankTwoTensor]
	dP   []*Property[types.RankTwoTensor]
}

func NewTensorMaterial(mb InputParameters.MaterialBlock, s *Store, vs *coupling.VariableSystem) (tm *TensorMaterial, err error) {
	owner := "Materials/" + mb.Name
	tm = &TensorMaterial{name: mb.Name}
	switch len(mb.Tensor) {
	case 1, 3, 9:
		tm.A = types.NewRankTwoTensor(mb.Tensor...)
	default:
		return nil, types.NewConfigurationError(owner, "Tensor",
			"needs 1, 3 or 9 values, have %d", len(mb.Tensor))
	}
	if tm.poly, err = newPolynomial(mb, vs); err != nil {
		return nil, err
	}
	if tm.P, err = DeclareProperty[types.RankTwoTensor](s, owner, mb.Property); err != nil {
		return nil, err
	}
	tm.dP = make([]*Property[types.RankTwoTensor], len(tm.poly.args))
	for a, v := range tm.poly.args {
		if tm.dP[a], err = DeclarePropertyDerivative[types.RankTwoTensor](s, owner, mb.Property, v.Name); err != nil {
			return nil, fmt.Errorf("declaring derivative: %w", err)
		}
	}
	return
}

func (tm *TensorMaterial) Name() string { return tm.name }

func (tm *TensorMaterial) ComputeQpProperties(qp int, vals []float64) {
	var (
		buf [8]float64
		d   []float64
	)
	if len(tm.dP) > len(buf) {
		d = make([]float64, len(tm.dP))
	} else {
		d = buf[:len(tm.dP)]
	}
	tm.P.Set(qp, tm.A.Scale(tm.poly.eval(vals, d)))
	for a, p := range tm.dP {
		p.Set(qp, tm.A.Scale(d[a]))
	}
}
