package FE1D

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/matderiv/utils"
)

// JacobiGQ computes the N+1 point Gauss quadrature for the Jacobi weight
// (1-r)^alpha (1+r)^beta on [-1,1] using the Golub-Welsch eigenvalue method.
func JacobiGQ(alpha, beta float64, N int) (X, W utils.Vector) {
	var (
		x, w       []float64
		fac        float64
		h1, d0, d1 []float64
		VVr        *mat.Dense
	)
	if N == 0 {
		x = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		w = []float64{2.}
		return utils.NewVector(len(x), x), utils.NewVector(len(w), w)
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: diag(-1/2*(alpha^2-beta^2)./(h1+2)./h1)
	d0 = make([]float64, N+1)
	fac = -.5 * (alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}
	// Handle division by zero
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}

	// 1st upper diagonal
	var ip1 float64
	d1 = make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 = float64(i + 1)
		val := h1[i]
		d1[i] = 2. / (val + 2.)
		d1[i] *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
	}

	JJ := mat.NewSymDense(N+1, nil)
	for i := 0; i < N+1; i++ {
		JJ.SetSym(i, i, d0[i])
		if i < N {
			JJ.SetSym(i, i+1, d1[i])
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	x = eig.Values(nil)

	VVr = mat.NewDense(N+1, N+1, nil)
	eig.VectorsTo(VVr)
	w = make([]float64, N+1)
	g0 := gamma0(alpha, beta)
	for j := 0; j < N+1; j++ {
		v := VVr.At(0, j)
		w[j] = v * v * g0
	}
	return utils.NewVector(N+1, x), utils.NewVector(N+1, w)
}

func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

// QuadratureRule is a Gauss-Legendre rule on the reference element [-1,1]
type QuadratureRule struct {
	Order   int // Highest polynomial degree integrated exactly
	Points  utils.Vector
	Weights utils.Vector
}

func NewGaussLegendre(order int) (qr QuadratureRule, err error) {
	if order < 0 {
		err = fmt.Errorf("quadrature order must be non-negative, have %d", order)
		return
	}
	// n points integrate degree 2n-1 exactly
	np := (order + 2) / 2
	qr.Points, qr.Weights = JacobiGQ(0, 0, np-1)
	qr.Order = 2*np - 1
	return
}

func (qr QuadratureRule) NumPoints() int { return qr.Points.Len() }
