package kernels

import (
	"github.com/notargets/matderiv/InputParameters"
	"github.com/notargets/matderiv/coupling"
)

func init() {
	Register("Diffusion", func(kb InputParameters.KernelBlock, deps Deps) (Kernel, error) {
		v, err := deps.Vars.Resolve(kb.Variable)
		if err != nil {
			return nil, err
		}
		D := 1.
		if kb.Coefficient != nil {
			D = *kb.Coefficient
		}
		return NewDiffusion(kb.Name, v, D), nil
	})
}

// Diffusion is D grad(u).grad(test). An input block without a Coefficient
// gets D = 1.
type Diffusion struct {
	name     string
	variable *coupling.Variable
	D        float64
}

func NewDiffusion(name string, v *coupling.Variable, D float64) *Diffusion {
	return &Diffusion{name: name, variable: v, D: D}
}

func (k *Diffusion) Name() string                 { return k.name }
func (k *Diffusion) Variable() *coupling.Variable { return k.variable }
func (k *Diffusion) Coupled() VariableCoupling    { return noCoupling{} }

func (k *Diffusion) ComputeQpResidual(i, qp int, fe *Element) float64 {
	return k.D * fe.GradU.At(k.variable.Number, qp) * fe.DPhi.At(i, qp)
}

func (k *Diffusion) ComputeQpJacobian(i, j, qp int, fe *Element) float64 {
	return k.D * fe.DPhi.At(j, qp) * fe.DPhi.At(i, qp)
}

func (k *Diffusion) ComputeQpOffDiagJacobian(cvar, i, j, qp int, fe *Element) float64 {
	return 0
}
