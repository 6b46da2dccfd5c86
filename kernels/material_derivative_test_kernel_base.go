package kernels

import (
	"strings"

	"github.com/notargets/matderiv/coupling"
	"github.com/notargets/matderiv/material"
	"github.com/notargets/matderiv/types"
)

// MaterialDerivativeTestKernelBase binds a material property, its derivative
// with respect to the kernel variable and its derivatives with respect to
// each coupled variable. Concrete kernels choose the integrand.
//
// All handles are bound once, in the constructor, so the Registry and Store
// must be fully populated first and construction must finish before assembly
// starts. After that the base is read-only and safe for concurrent use.
type MaterialDerivativeTestKernelBase[T types.PropertyValue] struct {
	name     string
	variable *coupling.Variable
	coupled  VariableCoupling
	nVars    int

	// material property for which to test derivatives
	P *material.Property[T]
	// derivatives of P with respect to each coupled variable, parallel to coupled
	POffDiagDerivatives []*material.Property[T]
	// derivative of P with respect to the kernel variable
	PDiagDerivative *material.Property[T]
}

func NewMaterialDerivativeTestKernelBase[T types.PropertyValue](name, property string,
	variable *coupling.Variable, cpl VariableCoupling, lookup MaterialDerivativeLookup[T]) (
	kb *MaterialDerivativeTestKernelBase[T], err error) {
	var (
		object = "Kernels/" + name
	)
	if len(strings.TrimSpace(property)) == 0 {
		return nil, types.NewConfigurationError(object, "material_property", "is required")
	}
	if variable == nil {
		return nil, types.NewConfigurationError(object, "variable", "is required")
	}
	if lookup == nil {
		return nil, types.NewConfigurationError(object, "material_property",
			"no material property store to bind %q against", property)
	}
	if cpl == nil || cpl.Count() == 0 {
		return nil, types.NewConfigurationError(object, "args",
			"list of variables the material property depends on must not be empty")
	}
	kb = &MaterialDerivativeTestKernelBase[T]{
		name:     name,
		variable: variable,
		coupled:  cpl,
		nVars:    cpl.Count(),
	}
	if kb.P, err = lookup.GetProperty(property); err != nil {
		return nil, err
	}
	if kb.PDiagDerivative, err = lookup.GetDerivative(property, variable.Name); err != nil {
		return nil, err
	}
	kb.POffDiagDerivatives = make([]*material.Property[T], kb.nVars)
	for m := 0; m < kb.nVars; m++ {
		if kb.POffDiagDerivatives[m], err = lookup.GetDerivative(property, cpl.VariableAt(m).Name); err != nil {
			return nil, err
		}
	}
	return
}

func (kb *MaterialDerivativeTestKernelBase[T]) Name() string                 { return kb.name }
func (kb *MaterialDerivativeTestKernelBase[T]) Variable() *coupling.Variable { return kb.variable }
func (kb *MaterialDerivativeTestKernelBase[T]) Coupled() VariableCoupling    { return kb.coupled }

// NVars is the number of coupled variables
func (kb *MaterialDerivativeTestKernelBase[T]) NVars() int { return kb.nVars }

func (kb *MaterialDerivativeTestKernelBase[T]) CoupledVariable(cvar int) *coupling.Variable {
	return kb.coupled.VariableAt(cvar)
}

func (kb *MaterialDerivativeTestKernelBase[T]) OffDiagDerivative(cvar int) *material.Property[T] {
	return kb.POffDiagDerivatives[cvar]
}
