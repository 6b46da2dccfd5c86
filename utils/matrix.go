package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a row major dense matrix that can be frozen once filled
type Matrix struct {
	M        *mat.Dense
	readOnly bool
	name     string
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v", nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		M:    m,
		name: "unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

var _ mat.Matrix = Matrix{}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)    { return m.M.Dims() }
func (m Matrix) At(i, j int) float64 { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix       { return m.M.T() }

func (m *Matrix) SetReadOnly(name ...string) Matrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

// Row returns row i as a slice sharing the matrix storage
func (m Matrix) Row(i int) []float64 {
	return m.M.RawRowView(i)
}

// RowW is Row for writing
func (m Matrix) RowW(i int) []float64 {
	m.checkWritable()
	return m.M.RawRowView(i)
}

func (m Matrix) Zero() Matrix { // Changes receiver
	m.checkWritable()
	m.M.Zero()
	return m
}

func (m Matrix) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}
