// Package jactest compares the assembled analytic Jacobian of a problem with
// a finite difference Jacobian of its residual, block by block.
package jactest

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/matderiv/assembly"
	"github.com/notargets/matderiv/utils"
)

// Options zero values select the DefaultOptions value, except Step where
// zero selects the formula default
type Options struct {
	Tolerance float64 // Relative tolerance per block
	Step      float64 // Finite difference step
	Formula   string  // "forward" or "central"
	Floor     float64 // Block magnitudes below Floor are compared absolutely
}

func DefaultOptions() Options {
	return Options{
		Tolerance: 1.e-6,
		Formula:   "central",
		Floor:     1.e-8,
	}
}

// BlockReport is the comparison of the Jacobian block of RowVar's equations
// with respect to ColVar. Declared is set when some kernel on RowVar names
// ColVar as its variable or among its coupled variables; Undeclared marks a
// residual that depends on ColVar without any kernel saying so.
type BlockReport struct {
	RowVar, ColVar string
	MaxAnalytic    float64
	MaxFD          float64
	MaxAbsError    float64
	RelError       float64
	Declared       bool
	Undeclared     bool
	Pass           bool
}

type Report struct {
	Time          float64
	Label         string
	NDofs         int
	Blocks        []BlockReport
	MaxEntryError float64 // largest entry wise relative error over the whole matrix
	Pass          bool
}

// Check evaluates the analytic Jacobian and a finite difference Jacobian at
// u. Finite difference evaluations run one at a time: every residual
// evaluation recomputes the shared material fields.
func Check(ctx context.Context, a *assembly.Assembler, u []float64, opts Options, logger *zap.Logger) (rep *Report, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.Floor <= 0 {
		opts.Floor = def.Floor
	}
	var (
		p     = a.Problem()
		dm    = p.DofMap
		n     = dm.NDofs()
		Jfd   = mat.NewDense(n, n, nil)
		fdErr error
	)
	settings := &fd.JacobianSettings{
		Step:       opts.Step,
		Concurrent: false,
	}
	switch strings.ToLower(opts.Formula) {
	case "forward":
		settings.Formula = fd.Forward
	case "central", "":
		settings.Formula = fd.Central
	default:
		return nil, fmt.Errorf("unknown finite difference formula %q", opts.Formula)
	}
	J, err := a.ComputeJacobian(ctx, u)
	if err != nil {
		return nil, err
	}
	residual := func(y, x []float64) {
		if fdErr != nil {
			return
		}
		var R *mat.VecDense
		if R, fdErr = a.ComputeResidual(ctx, x); fdErr != nil {
			return
		}
		copy(y, R.RawVector().Data)
	}
	fd.Jacobian(Jfd, residual, u, settings)
	if fdErr != nil {
		return nil, fmt.Errorf("finite difference residual: %w", fdErr)
	}

	var (
		nv     = dm.NVars
		blocks = make([]BlockReport, nv*nv)
	)
	for rv := 0; rv < nv; rv++ {
		for cv := 0; cv < nv; cv++ {
			b := &blocks[rv*nv+cv]
			b.RowVar = p.Vars.VariableAt(rv).Name
			b.ColVar = p.Vars.VariableAt(cv).Name
			b.Declared = p.Declares(rv, cv)
		}
	}
	for i := 0; i < n; i++ {
		_, rv := dm.Split(i)
		for j := 0; j < n; j++ {
			_, cv := dm.Split(j)
			b := &blocks[rv*nv+cv]
			ja, jf := J.At(i, j), Jfd.At(i, j)
			b.MaxAnalytic = math.Max(b.MaxAnalytic, math.Abs(ja))
			b.MaxFD = math.Max(b.MaxFD, math.Abs(jf))
			b.MaxAbsError = math.Max(b.MaxAbsError, math.Abs(ja-jf))
		}
	}
	rep = &Report{
		NDofs:         n,
		Blocks:        blocks,
		MaxEntryError: MaxRelativeEntryError(J, Jfd, opts.Floor),
		Pass:          true,
	}
	for i := range blocks {
		b := &blocks[i]
		scale := math.Max(b.MaxAnalytic, b.MaxFD)
		if scale == 0 || scale < opts.Floor {
			b.RelError = b.MaxAbsError
		} else {
			b.RelError = b.MaxAbsError / scale
		}
		b.Undeclared = !b.Declared && b.MaxFD > opts.Floor
		b.Pass = b.RelError <= opts.Tolerance && !b.Undeclared
		rep.Pass = rep.Pass && b.Pass
		switch {
		case b.Undeclared:
			logger.Warn("undeclared dependency",
				zap.String("row", b.RowVar), zap.String("col", b.ColVar),
				zap.Float64("max_fd", b.MaxFD))
		case !b.Pass:
			logger.Warn("jacobian block mismatch",
				zap.String("row", b.RowVar), zap.String("col", b.ColVar),
				zap.Float64("relative_error", b.RelError))
		}
	}
	return
}

// Worst returns the block with the largest relative error. A NaN error
// ranks above any number.
func (r *Report) Worst() (b BlockReport) {
	worse := func(x, y float64) bool {
		return (math.IsNaN(x) && !math.IsNaN(y)) || x > y
	}
	for i, blk := range r.Blocks {
		if i == 0 || worse(blk.RelError, b.RelError) {
			b = blk
		}
	}
	return
}

func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "%s t = %8.5f, %d dofs\n", r.Label, r.Time, r.NDofs)
	fmt.Fprintf(w, "%-8s %-8s %14s %14s %14s %14s\n", "row", "column", "max|J|", "max|Jfd|", "max|J-Jfd|", "relative")
	for _, b := range r.Blocks {
		var note string
		if b.Undeclared {
			note = "  undeclared dependency"
		}
		fmt.Fprintf(w, "%-8s %-8s %14.6e %14.6e %14.6e %14.6e%s\n",
			b.RowVar, b.ColVar, b.MaxAnalytic, b.MaxFD, b.MaxAbsError, b.RelError, note)
	}
}

// MaxRelativeEntryError is the largest entry wise relative error between two
// matrices
func MaxRelativeEntryError(A, B mat.Matrix, floor float64) (maxErr float64) {
	nr, nc := A.Dims()
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			maxErr = math.Max(maxErr, utils.RelativeError(A.At(i, j), B.At(i, j), floor))
		}
	}
	return
}
