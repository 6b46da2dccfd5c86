package FE1D

import "fmt"

// Mesh1D is a uniform line mesh of K elements of polynomial Order, nodes
// numbered left to right so element k owns nodes k*Order ... k*Order+Order
type Mesh1D struct {
	K          int
	Order      int
	XMin, XMax float64
	NNodes     int
	H          float64
}

func NewMesh1D(K, order int, xmin, xmax float64) (m *Mesh1D, err error) {
	switch {
	case K < 1:
		err = fmt.Errorf("mesh must have at least one element, have %d", K)
	case xmax <= xmin:
		err = fmt.Errorf("mesh extent must be positive, have [%g, %g]", xmin, xmax)
	case order < 1:
		err = fmt.Errorf("mesh order must be positive, have %d", order)
	}
	if err != nil {
		return
	}
	m = &Mesh1D{
		K:      K,
		Order:  order,
		XMin:   xmin,
		XMax:   xmax,
		NNodes: K*order + 1,
		H:      (xmax - xmin) / float64(K),
	}
	return
}

// ElementNodes returns the global node numbers of element k
func (m *Mesh1D) ElementNodes(k int) (nodes []int) {
	nodes = make([]int, m.Order+1)
	for i := range nodes {
		nodes[i] = k*m.Order + i
	}
	return
}

func (m *Mesh1D) NodeX(node int) float64 {
	return m.XMin + float64(node)*m.H/float64(m.Order)
}
