package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var _ mat.Vector = Vector{}

type Vector struct {
	V *mat.VecDense
}

func NewVector(n int, dataO ...[]float64) Vector {
	if len(dataO) != 0 {
		if len(dataO[0]) != n {
			panic(fmt.Errorf("mismatch in allocation: NewVector n = %v, len(data[0]) = %v", n, len(dataO[0])))
		}
		return Vector{mat.NewVecDense(n, dataO[0])}
	}
	return Vector{mat.NewVecDense(n, make([]float64, n))}
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (v Vector) Dims() (r, c int)    { return v.V.Dims() }
func (v Vector) At(i, j int) float64 { return v.V.At(i, j) }
func (v Vector) T() mat.Matrix       { return v.V.T() }
func (v Vector) AtVec(i int) float64 { return v.V.AtVec(i) }
func (v Vector) Len() int            { return v.V.Len() }

// Data is the backing slice; NewVector storage is always unit stride
func (v Vector) Data() []float64 { return v.V.RawVector().Data }

func (v Vector) SetVec(i int, val float64) Vector { v.V.SetVec(i, val); return v }
