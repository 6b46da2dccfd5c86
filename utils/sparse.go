package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
)

// Triplet is one additive matrix entry
type Triplet struct {
	I, J int
	Val  float64
}

// SparseAccumulator collects additive (i, j, value) entries into a DOK
// matrix and converts to CSR once assembly is complete. It is not safe for
// concurrent use; workers keep their own Triplet buffers and merge serially.
type SparseAccumulator struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewSparseAccumulator(nr, nc int, name ...string) (R *SparseAccumulator) {
	R = &SparseAccumulator{
		M:    sparse.NewDOK(nr, nc),
		name: "unnamed",
	}
	if len(name) != 0 {
		R.name = name[0]
	}
	return
}

// Dims and At satisfy the read side of mat.Matrix
func (m *SparseAccumulator) Dims() (r, c int)    { return m.M.Dims() }
func (m *SparseAccumulator) At(i, j int) float64 { return m.M.At(i, j) }
func (m *SparseAccumulator) NNZ() int            { return m.M.NNZ() }

func (m *SparseAccumulator) AddAt(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m *SparseAccumulator) AddTriplets(T []Triplet) {
	for _, t := range T {
		m.AddAt(t.I, t.J, t.Val)
	}
}

// ToCSR freezes the accumulator and returns the compressed form
func (m *SparseAccumulator) ToCSR() *sparse.CSR {
	m.readOnly = true
	return m.M.ToCSR()
}

func (m *SparseAccumulator) checkWritable() {
	if m.readOnly {
		panic(fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name))
	}
}
