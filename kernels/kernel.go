// Package kernels holds the weak form contributions evaluated by the
// assembly loop at each quadrature point.
package kernels

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/notargets/matderiv/FE1D"
	"github.com/notargets/matderiv/InputParameters"
	"github.com/notargets/matderiv/coupling"
	"github.com/notargets/matderiv/material"
	"github.com/notargets/matderiv/types"
	"github.com/notargets/matderiv/utils"
)

// VariableCoupling is the ordered list of variables a kernel is coupled to
type VariableCoupling interface {
	Count() int
	VariableAt(i int) *coupling.Variable
	MapJvarToCvar(jvar int) (cvar int, ok bool)
}

// MaterialDerivativeLookup binds material properties and their derivatives
// of one value kind
type MaterialDerivativeLookup[T types.PropertyValue] interface {
	GetProperty(name string) (*material.Property[T], error)
	GetDerivative(name, variable string) (*material.Property[T], error)
}

// Element is the element being assembled: shape functions at its quadrature
// points plus the current value and gradient of every variable there
type Element struct {
	*FE1D.Element
	U     utils.Matrix // [nvars, nqp]
	GradU utils.Matrix // [nvars, nqp]
}

func NewElement(fe *FE1D.Element, nVars int) (el *Element) {
	el = &Element{
		Element: fe,
		U:       utils.NewMatrix(nVars, fe.NumQp()),
		GradU:   utils.NewMatrix(nVars, fe.NumQp()),
	}
	return
}

// Kernel is a per quadrature point residual and Jacobian contribution for
// one variable. i indexes test functions, j trial functions and qp the local
// quadrature points of fe; the assembly loop applies fe.JxW and sums.
//
// Implementations must not mutate their own state in any Compute method;
// the assembly loop calls them concurrently on different elements.
type Kernel interface {
	Name() string
	Variable() *coupling.Variable
	Coupled() VariableCoupling
	ComputeQpResidual(i, qp int, fe *Element) float64
	ComputeQpJacobian(i, j, qp int, fe *Element) float64
	// ComputeQpOffDiagJacobian is the contribution to the block of coupled
	// variable cvar, an index into Coupled()
	ComputeQpOffDiagJacobian(cvar, i, j, qp int, fe *Element) float64
}

// Deps are the setup time collaborators available to kernel allocators
type Deps struct {
	Vars   *coupling.VariableSystem
	Store  *material.Store
	Logger *zap.Logger
}

type Allocator func(kb InputParameters.KernelBlock, deps Deps) (Kernel, error)

var allocators = map[string]Allocator{}

func Register(typeName string, alloc Allocator) {
	if _, present := allocators[typeName]; present {
		panic(fmt.Errorf("kernel type %q registered twice", typeName))
	}
	allocators[typeName] = alloc
}

func RegisteredTypes() (names []string) {
	for name := range allocators {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// New builds a kernel from its input block. Every material must already have
// declared its properties in deps.Store.
func New(kb InputParameters.KernelBlock, deps Deps) (k Kernel, err error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	alloc, ok := allocators[kb.Type]
	if !ok {
		err = &types.LookupError{Kind: "kernel type", Name: kb.Type,
			Context: fmt.Sprintf("Kernels/%s; registered: %v", kb.Name, RegisteredTypes())}
		return
	}
	if k, err = alloc(kb, deps); err != nil {
		return nil, fmt.Errorf("building kernel %s: %w", kb.Name, err)
	}
	deps.Logger.Info("kernel ready", zap.String("name", kb.Name), zap.String("type", kb.Type),
		zap.String("variable", kb.Variable), zap.Int("coupled", k.Coupled().Count()))
	return
}

type noCoupling struct{}

func (noCoupling) Count() int                          { return 0 }
func (noCoupling) VariableAt(i int) *coupling.Variable { panic("kernel has no coupled variables") }
func (noCoupling) MapJvarToCvar(int) (int, bool)       { return -1, false }
