package types

import "fmt"

// Real is the scalar material property kind
type Real = float64

// RankTwoTensor is a 3x3 tensor stored row major, the tensor property kind
type RankTwoTensor [3][3]float64

// PropertyValue is the set of value kinds a material property can hold
type PropertyValue interface {
	Real | RankTwoTensor
}

func NewRankTwoTensor(data ...float64) (T RankTwoTensor) {
	switch len(data) {
	case 0:
	case 1: // Isotropic
		for i := 0; i < 3; i++ {
			T[i][i] = data[0]
		}
	case 3: // Diagonal
		for i := 0; i < 3; i++ {
			T[i][i] = data[i]
		}
	case 9:
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				T[i][j] = data[3*i+j]
			}
		}
	default:
		panic(fmt.Errorf("RankTwoTensor takes 0, 1, 3 or 9 values, have %d", len(data)))
	}
	return
}

func (T RankTwoTensor) Scale(a float64) (R RankTwoTensor) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			R[i][j] = a * T[i][j]
		}
	}
	return
}
