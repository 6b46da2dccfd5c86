package FE1D

import "github.com/notargets/matderiv/utils"

// Element is the per element scratchpad of shape function values at the
// quadrature points. Each assembly worker owns one; Reinit overwrites it.
type Element struct {
	Mesh  *Mesh1D
	Basis LagrangeBasis
	QRule QuadratureRule

	K     int          // current element
	Nodes []int        // global nodes of current element
	Phi   utils.Matrix // [nshape, nqp] shape functions, also used as test functions, read only
	DPhi  utils.Matrix // [nshape, nqp] physical gradients
	JxW   utils.Vector // [nqp] quadrature weight times mapping Jacobian
	Xq    utils.Vector // [nqp] physical coordinates
}

func NewElement(m *Mesh1D, qr QuadratureRule) (el *Element, err error) {
	var (
		lb LagrangeBasis
	)
	if lb, err = NewLagrangeBasis(m.Order); err != nil {
		return
	}
	var (
		ns  = lb.NumShapes()
		nqp = qr.NumPoints()
	)
	el = &Element{
		Mesh:  m,
		Basis: lb,
		QRule: qr,
		K:     -1,
		Phi:   utils.NewMatrix(ns, nqp),
		DPhi:  utils.NewMatrix(ns, nqp),
		JxW:   utils.NewVector(nqp),
		Xq:    utils.NewVector(nqp),
	}
	for i := 0; i < ns; i++ {
		for q, r := range qr.Points.Data() {
			el.Phi.Set(i, q, lb.Phi(i, r))
		}
	}
	el.Phi.SetReadOnly("Phi")
	return
}

func (el *Element) NumShapes() int { return el.Basis.NumShapes() }
func (el *Element) NumQp() int     { return el.QRule.NumPoints() }

// Reinit maps the reference element onto element k
func (el *Element) Reinit(k int) {
	var (
		m    = el.Mesh
		xa   = m.XMin + float64(k)*m.H
		detJ = m.H / 2
	)
	el.K = k
	el.Nodes = m.ElementNodes(k)
	for q, r := range el.QRule.Points.Data() {
		el.JxW.SetVec(q, el.QRule.Weights.AtVec(q)*detJ)
		el.Xq.SetVec(q, xa+(r+1)*detJ)
		for i := 0; i < el.NumShapes(); i++ {
			el.DPhi.Set(i, q, el.Basis.DPhi(i, r)/detJ)
		}
	}
}

// QpIndex maps local quadrature point q of the current element to the block
// wide quadrature point index used by material property fields
func (el *Element) QpIndex(q int) int {
	return el.K*el.NumQp() + q
}

// Interpolate evaluates the field with nodal values nodal(node) at each qp
// into u and, when du is not nil, its physical gradient into du
func (el *Element) Interpolate(nodal func(node int) float64, u, du []float64) {
	for q := range u {
		u[q] = 0
	}
	for q := range du {
		du[q] = 0
	}
	for i, node := range el.Nodes {
		val := nodal(node)
		for q, phi := range el.Phi.Row(i) {
			u[q] += phi * val
		}
		if du != nil {
			for q, dphi := range el.DPhi.Row(i) {
				du[q] += dphi * val
			}
		}
	}
}
