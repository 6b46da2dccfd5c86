package FE1D

import "fmt"

// LagrangeBasis holds equispaced Lagrange shape functions on [-1,1], ordered
// left to right by node position
type LagrangeBasis struct {
	Order int
	Nodes []float64
}

func NewLagrangeBasis(order int) (lb LagrangeBasis, err error) {
	if order < 1 || order > 3 {
		err = fmt.Errorf("lagrange order must be 1, 2 or 3, have %d", order)
		return
	}
	lb.Order = order
	lb.Nodes = make([]float64, order+1)
	for i := range lb.Nodes {
		lb.Nodes[i] = -1 + 2*float64(i)/float64(order)
	}
	return
}

func (lb LagrangeBasis) NumShapes() int { return lb.Order + 1 }

// Phi evaluates shape function i at r
func (lb LagrangeBasis) Phi(i int, r float64) (p float64) {
	p = 1
	for m, rm := range lb.Nodes {
		if m == i {
			continue
		}
		p *= (r - rm) / (lb.Nodes[i] - rm)
	}
	return
}

// DPhi evaluates d(phi_i)/dr at r
func (lb LagrangeBasis) DPhi(i int, r float64) (dp float64) {
	var (
		ri = lb.Nodes[i]
	)
	for l, rl := range lb.Nodes {
		if l == i {
			continue
		}
		term := 1 / (ri - rl)
		for m, rm := range lb.Nodes {
			if m == i || m == l {
				continue
			}
			term *= (r - rm) / (ri - rm)
		}
		dp += term
	}
	return
}
