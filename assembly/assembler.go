package assembly

import (
	"context"
	"fmt"

	"github.com/james-bowman/sparse"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/matderiv/FE1D"
	"github.com/notargets/matderiv/kernels"
	"github.com/notargets/matderiv/material"
	"github.com/notargets/matderiv/utils"
)

// Stats counts assembly work; safe to read while assembly runs
type Stats struct {
	ResidualEvaluations *atomic.Int64
	JacobianEvaluations *atomic.Int64
	MaterialEvaluations *atomic.Int64
	ElementsVisited     *atomic.Int64
}

// Assembler evaluates the global residual and Jacobian of a Problem. Each
// evaluation runs two phases over element ranges of a PartitionMap: first
// the material compute (write) phase, then the kernel (read) phase. The
// phases never overlap, so kernels read property fields without locking.
//
// An Assembler evaluates one state at a time; calls must not overlap.
type Assembler struct {
	p      *Problem
	pm     *utils.PartitionMap
	vals   *material.QpValues
	logger *zap.Logger
	Stats  Stats
}

type Option func(a *Assembler)

func WithWorkers(n int) Option {
	return func(a *Assembler) { a.pm = utils.NewPartitionMap(n, a.p.Mesh.K) }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

func NewAssembler(p *Problem, opts ...Option) (a *Assembler) {
	a = &Assembler{
		p:      p,
		pm:     utils.NewPartitionMap(1, p.Mesh.K),
		vals:   material.NewQpValues(p.Store.NumQp(), p.Vars.Count()),
		logger: zap.NewNop(),
		Stats: Stats{
			ResidualEvaluations: atomic.NewInt64(0),
			JacobianEvaluations: atomic.NewInt64(0),
			MaterialEvaluations: atomic.NewInt64(0),
			ElementsVisited:     atomic.NewInt64(0),
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return
}

func (a *Assembler) Problem() *Problem { return a.p }
func (a *Assembler) Workers() int      { return a.pm.ParallelDegree }

// elementLoop runs f on every element, one goroutine per partition, each
// with its own element scratchpad
func (a *Assembler) elementLoop(ctx context.Context, f func(bn int, el *kernels.Element) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for bn := 0; bn < a.pm.ParallelDegree; bn++ {
		bn := bn
		kMin, kMax := a.pm.GetBucketRange(bn)
		g.Go(func() error {
			fe, err := FE1D.NewElement(a.p.Mesh, a.p.QRule)
			if err != nil {
				return err
			}
			el := kernels.NewElement(fe, a.p.Vars.Count())
			for k := kMin; k < kMax; k++ {
				if err = gctx.Err(); err != nil {
					return err
				}
				el.Reinit(k)
				if err = f(bn, el); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (a *Assembler) reinitVariables(el *kernels.Element, u []float64) {
	var (
		dm = a.p.DofMap
	)
	for v := 0; v < dm.NVars; v++ {
		el.Interpolate(func(node int) float64 { return u[dm.Dof(node, v)] }, el.U.RowW(v), el.GradU.RowW(v))
	}
}

// ComputeProperties interpolates u to every quadrature point and runs the
// material compute phase
func (a *Assembler) ComputeProperties(ctx context.Context, u []float64) (err error) {
	if len(u) != a.p.DofMap.NDofs() {
		return fmt.Errorf("solution has %d entries, problem has %d dofs", len(u), a.p.DofMap.NDofs())
	}
	err = a.elementLoop(ctx, func(_ int, el *kernels.Element) error {
		a.reinitVariables(el, u)
		for q := 0; q < el.NumQp(); q++ {
			row := a.vals.At(el.QpIndex(q))
			for v := range row {
				row[v] = el.U.At(v, q)
			}
		}
		return nil
	})
	if err != nil {
		return
	}
	if err = a.p.Store.Compute(ctx, a.p.Materials, a.vals, a.pm.ParallelDegree); err != nil {
		return
	}
	a.Stats.MaterialEvaluations.Inc()
	return
}

// ComputeResidual returns R(u) = sum over kernels, elements and qps of the
// kernel residual times JxW
func (a *Assembler) ComputeResidual(ctx context.Context, u []float64) (R *mat.VecDense, err error) {
	if err = a.ComputeProperties(ctx, u); err != nil {
		return
	}
	var (
		dm    = a.p.DofMap
		local = make([][]float64, a.pm.ParallelDegree)
	)
	for bn := range local {
		local[bn] = make([]float64, dm.NDofs())
	}
	err = a.elementLoop(ctx, func(bn int, el *kernels.Element) error {
		a.reinitVariables(el, u)
		r := local[bn]
		for _, kern := range a.p.Kernels {
			vn := kern.Variable().Number
			for qp := 0; qp < el.NumQp(); qp++ {
				for i, node := range el.Nodes {
					r[dm.Dof(node, vn)] += kern.ComputeQpResidual(i, qp, el) * el.JxW.AtVec(qp)
				}
			}
		}
		a.Stats.ElementsVisited.Inc()
		return nil
	})
	if err != nil {
		return nil, err
	}
	data := make([]float64, dm.NDofs())
	for _, r := range local {
		for i, val := range r {
			data[i] += val
		}
	}
	R = mat.NewVecDense(dm.NDofs(), data)
	a.Stats.ResidualEvaluations.Inc()
	return
}

// ComputeJacobian returns dR/du. For each kernel the diagonal block uses
// ComputeQpJacobian; each coupled entry, in coupled list order, adds its
// own off-diagonal block. Repeated coupled entries add repeatedly. An entry
// naming the kernel's own variable is skipped, the diagonal block covers it.
func (a *Assembler) ComputeJacobian(ctx context.Context, u []float64) (J *sparse.CSR, err error) {
	if err = a.ComputeProperties(ctx, u); err != nil {
		return
	}
	var (
		dm    = a.p.DofMap
		local = make([][]utils.Triplet, a.pm.ParallelDegree)
	)
	err = a.elementLoop(ctx, func(bn int, el *kernels.Element) error {
		a.reinitVariables(el, u)
		for _, kern := range a.p.Kernels {
			vn := kern.Variable().Number
			cpl := kern.Coupled()
			for i, rowNode := range el.Nodes {
				row := dm.Dof(rowNode, vn)
				for j, colNode := range el.Nodes {
					var diag float64
					for qp := 0; qp < el.NumQp(); qp++ {
						diag += kern.ComputeQpJacobian(i, j, qp, el) * el.JxW.AtVec(qp)
					}
					local[bn] = append(local[bn], utils.Triplet{I: row, J: dm.Dof(colNode, vn), Val: diag})
					for cvar := 0; cvar < cpl.Count(); cvar++ {
						cv := cpl.VariableAt(cvar)
						if cv.Number == vn {
							continue
						}
						var off float64
						for qp := 0; qp < el.NumQp(); qp++ {
							off += kern.ComputeQpOffDiagJacobian(cvar, i, j, qp, el) * el.JxW.AtVec(qp)
						}
						local[bn] = append(local[bn], utils.Triplet{I: row, J: dm.Dof(colNode, cv.Number), Val: off})
					}
				}
			}
		}
		a.Stats.ElementsVisited.Inc()
		return nil
	})
	if err != nil {
		return nil, err
	}
	acc := utils.NewSparseAccumulator(dm.NDofs(), dm.NDofs(), "Jacobian")
	for _, T := range local {
		acc.AddTriplets(T)
	}
	J = acc.ToCSR()
	a.Stats.JacobianEvaluations.Inc()
	a.logger.Debug("jacobian assembled", zap.Int("dofs", dm.NDofs()), zap.Int("nnz", acc.NNZ()))
	return
}
