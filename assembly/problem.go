// Package assembly drives the element and quadrature point loops that turn
// kernel contributions into a global residual vector and Jacobian matrix.
package assembly

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/notargets/matderiv/FE1D"
	"github.com/notargets/matderiv/InputParameters"
	"github.com/notargets/matderiv/coupling"
	"github.com/notargets/matderiv/kernels"
	"github.com/notargets/matderiv/material"
)

// DofMap numbers degrees of freedom node major: dof = node*NVars + var
type DofMap struct {
	NNodes, NVars int
}

func (d DofMap) Dof(node, v int) int { return node*d.NVars + v }
func (d DofMap) NDofs() int          { return d.NNodes * d.NVars }

func (d DofMap) Split(dof int) (node, v int) {
	return dof / d.NVars, dof % d.NVars
}

// Problem is everything the assembly loop reads: the discretization, the
// variables, the material store and its producers, and the kernels bound
// against them
type Problem struct {
	Title     string
	Mesh      *FE1D.Mesh1D
	QRule     FE1D.QuadratureRule
	Vars      *coupling.VariableSystem
	Store     *material.Store
	Materials []material.Material
	Kernels   []kernels.Kernel
	DofMap    DofMap
	ICs       []InputParameters.VariableBlock
}

// NewProblem builds a problem from a validated input deck. Materials are all
// constructed, declaring their properties, before any kernel binds to them.
func NewProblem(ip *InputParameters.InputParameters1D, logger *zap.Logger) (p *Problem, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p = &Problem{Title: ip.Title, ICs: ip.Variables}
	if p.Mesh, err = FE1D.NewMesh1D(ip.Mesh.NElements, ip.Mesh.Order, ip.Mesh.XMin, ip.Mesh.XMax); err != nil {
		return nil, fmt.Errorf("mesh: %w", err)
	}
	if p.QRule, err = FE1D.NewGaussLegendre(ip.Mesh.QuadratureOrder); err != nil {
		return nil, fmt.Errorf("quadrature: %w", err)
	}
	names := make([]string, len(ip.Variables))
	for i, v := range ip.Variables {
		names[i] = v.Name
	}
	if p.Vars, err = coupling.NewVariableSystem(names...); err != nil {
		return nil, err
	}
	p.DofMap = DofMap{NNodes: p.Mesh.NNodes, NVars: p.Vars.Count()}
	p.Store = material.NewStore(p.Mesh.K*p.QRule.NumPoints(), material.WithLogger(logger))
	for _, mb := range ip.Materials {
		var m material.Material
		if m, err = material.New(mb, p.Store, p.Vars); err != nil {
			return nil, err
		}
		p.Materials = append(p.Materials, m)
	}
	deps := kernels.Deps{Vars: p.Vars, Store: p.Store, Logger: logger}
	for _, kb := range ip.Kernels {
		var k kernels.Kernel
		if k, err = kernels.New(kb, deps); err != nil {
			return nil, err
		}
		p.Kernels = append(p.Kernels, k)
	}
	logger.Info("problem ready",
		zap.Int("elements", p.Mesh.K), zap.Int("order", p.Mesh.Order),
		zap.Int("qp_per_element", p.QRule.NumPoints()), zap.Int("dofs", p.DofMap.NDofs()),
		zap.Strings("properties", p.Store.Names()))
	return
}

// State returns the solution vector at time t, each variable set to
// Initial(x) + t*Rate(x) at every node
func (p *Problem) State(t float64) (u []float64) {
	u = make([]float64, p.DofMap.NDofs())
	for node := 0; node < p.Mesh.NNodes; node++ {
		x := p.Mesh.NodeX(node)
		for v, ic := range p.ICs {
			u[p.DofMap.Dof(node, v)] = InputParameters.EvalPolynomial(ic.Initial, x) +
				t*InputParameters.EvalPolynomial(ic.Rate, x)
		}
	}
	return
}

// Declares reports whether some kernel acting on variable row declares a
// dependency on variable col: through its own variable on the diagonal, or
// through its coupled list off the diagonal
func (p *Problem) Declares(row, col int) bool {
	for _, k := range p.Kernels {
		if k.Variable().Number != row {
			continue
		}
		if row == col {
			return true
		}
		if _, ok := k.Coupled().MapJvarToCvar(col); ok {
			return true
		}
	}
	return false
}
