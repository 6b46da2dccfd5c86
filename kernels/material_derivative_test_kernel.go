package kernels

import (
	"github.com/notargets/matderiv/InputParameters"
	"github.com/notargets/matderiv/coupling"
	"github.com/notargets/matderiv/material"
	"github.com/notargets/matderiv/types"
)

func init() {
	Register("MaterialDerivativeTestKernel", func(kb InputParameters.KernelBlock, deps Deps) (Kernel, error) {
		return NewMaterialDerivativeTestKernel(kb, deps)
	})
	Register("MaterialDerivativeRankTwoTestKernel", func(kb InputParameters.KernelBlock, deps Deps) (Kernel, error) {
		return NewMaterialDerivativeRankTwoTestKernel(kb, deps)
	})
}

// resolve binds the kernel variable and its coupled variable list
func resolve(kb InputParameters.KernelBlock, vs *coupling.VariableSystem) (v *coupling.Variable, cpl *coupling.Coupling, err error) {
	if v, err = vs.Resolve(kb.Variable); err != nil {
		return
	}
	cpl, err = coupling.NewCoupling(vs, "Kernels/"+kb.Name, kb.Args)
	return
}

// MaterialDerivativeTestKernel tests the derivatives of a scalar property P:
//
//	R_i   = P test_i
//	J_ij  = dP/du phi_j test_i
//	J_ij' = dP/dv phi_j test_i   for each coupled v
type MaterialDerivativeTestKernel struct {
	*MaterialDerivativeTestKernelBase[types.Real]
}

func NewMaterialDerivativeTestKernel(kb InputParameters.KernelBlock, deps Deps) (k *MaterialDerivativeTestKernel, err error) {
	var (
		v    *coupling.Variable
		cpl  *coupling.Coupling
		base *MaterialDerivativeTestKernelBase[types.Real]
	)
	if v, cpl, err = resolve(kb, deps.Vars); err != nil {
		return
	}
	if base, err = NewMaterialDerivativeTestKernelBase[types.Real](kb.Name, kb.MaterialProperty, v, cpl,
		material.NewLookup[types.Real](deps.Store)); err != nil {
		return
	}
	k = &MaterialDerivativeTestKernel{base}
	return
}

func (k *MaterialDerivativeTestKernel) ComputeQpResidual(i, qp int, fe *Element) float64 {
	return k.P.At(fe.QpIndex(qp)) * fe.Phi.At(i, qp)
}

func (k *MaterialDerivativeTestKernel) ComputeQpJacobian(i, j, qp int, fe *Element) float64 {
	return k.PDiagDerivative.At(fe.QpIndex(qp)) * fe.Phi.At(j, qp) * fe.Phi.At(i, qp)
}

func (k *MaterialDerivativeTestKernel) ComputeQpOffDiagJacobian(cvar, i, j, qp int, fe *Element) float64 {
	return k.POffDiagDerivatives[cvar].At(fe.QpIndex(qp)) * fe.Phi.At(j, qp) * fe.Phi.At(i, qp)
}

// MaterialDerivativeRankTwoTestKernel tests component (I, J) of a rank two
// tensor property the same way
type MaterialDerivativeRankTwoTestKernel struct {
	*MaterialDerivativeTestKernelBase[types.RankTwoTensor]
	I, J int
}

func NewMaterialDerivativeRankTwoTestKernel(kb InputParameters.KernelBlock, deps Deps) (k *MaterialDerivativeRankTwoTestKernel, err error) {
	var (
		v    *coupling.Variable
		cpl  *coupling.Coupling
		base *MaterialDerivativeTestKernelBase[types.RankTwoTensor]
	)
	object := "Kernels/" + kb.Name
	if len(kb.Component) != 2 {
		return nil, types.NewConfigurationError(object, "Component", "needs two indices, have %v", kb.Component)
	}
	for _, c := range kb.Component {
		if c < 0 || c > 2 {
			return nil, types.NewConfigurationError(object, "Component", "index %d out of range [0,2]", c)
		}
	}
	if v, cpl, err = resolve(kb, deps.Vars); err != nil {
		return
	}
	if base, err = NewMaterialDerivativeTestKernelBase[types.RankTwoTensor](kb.Name, kb.MaterialProperty, v, cpl,
		material.NewLookup[types.RankTwoTensor](deps.Store)); err != nil {
		return
	}
	k = &MaterialDerivativeRankTwoTestKernel{
		MaterialDerivativeTestKernelBase: base,
		I:                                kb.Component[0],
		J:                                kb.Component[1],
	}
	return
}

func (k *MaterialDerivativeRankTwoTestKernel) ComputeQpResidual(i, qp int, fe *Element) float64 {
	return k.P.At(fe.QpIndex(qp))[k.I][k.J] * fe.Phi.At(i, qp)
}

func (k *MaterialDerivativeRankTwoTestKernel) ComputeQpJacobian(i, j, qp int, fe *Element) float64 {
	return k.PDiagDerivative.At(fe.QpIndex(qp))[k.I][k.J] * fe.Phi.At(j, qp) * fe.Phi.At(i, qp)
}

func (k *MaterialDerivativeRankTwoTestKernel) ComputeQpOffDiagJacobian(cvar, i, j, qp int, fe *Element) float64 {
	return k.POffDiagDerivatives[cvar].At(fe.QpIndex(qp))[k.I][k.J] * fe.Phi.At(j, qp) * fe.Phi.At(i, qp)
}
