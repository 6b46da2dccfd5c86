// Package executioner walks a problem through its time states and runs the
// Jacobian check at the states selected by the CheckOn flags.
package executioner

import (
	"context"

	"go.uber.org/zap"

	"github.com/notargets/matderiv/InputParameters"
	"github.com/notargets/matderiv/assembly"
	"github.com/notargets/matderiv/jactest"
	"github.com/notargets/matderiv/types"
)

type Executioner struct {
	Scheme   types.TimeSteppingScheme
	NumSteps int
	Dt       float64
	CheckOn  []types.ExecFlagType

	asm    *assembly.Assembler
	opts   jactest.Options
	logger *zap.Logger
}

func New(eb InputParameters.ExecutionerBlock, asm *assembly.Assembler, opts jactest.Options, logger *zap.Logger) (e *Executioner, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e = &Executioner{
		NumSteps: eb.NumSteps,
		Dt:       eb.Dt,
		asm:      asm,
		opts:     opts,
		logger:   logger,
	}
	if e.Scheme, err = eb.TimeSteppingScheme(); err != nil {
		return nil, err
	}
	if e.CheckOn, err = eb.ExecFlags(); err != nil {
		return nil, err
	}
	for _, flag := range e.CheckOn {
		switch flag {
		case types.EXEC_LINEAR, types.EXEC_NONLINEAR:
			return nil, types.NewConfigurationError("Executioner", "CheckOn",
				"%s needs a nonlinear solve, only time step boundaries are available", flag)
		}
	}
	return
}

func (e *Executioner) on(flag types.ExecFlagType) bool {
	for _, f := range e.CheckOn {
		if f == flag {
			return true
		}
	}
	return false
}

// Schedule lists the (flag, time) pairs at which checks run, in order
func (e *Executioner) Schedule() (flags []types.ExecFlagType, times []float64) {
	add := func(flag types.ExecFlagType, t float64) {
		if e.on(flag) {
			flags = append(flags, flag)
			times = append(times, t)
		}
	}
	add(types.EXEC_INITIAL, 0)
	for n := 1; n <= e.NumSteps; n++ {
		add(types.EXEC_TIMESTEP_BEGIN, float64(n-1)*e.Dt)
		add(types.EXEC_TIMESTEP_END, float64(n)*e.Dt)
	}
	add(types.EXEC_FINAL, float64(e.NumSteps)*e.Dt)
	return
}

// Run checks the Jacobian at every scheduled state. The same kernels and
// handles serve every state; only the solution and material fields change.
func (e *Executioner) Run(ctx context.Context) (reports []*jactest.Report, err error) {
	var (
		p            = e.asm.Problem()
		flags, times = e.Schedule()
	)
	e.logger.Info("executioner starting", zap.Stringer("scheme", e.Scheme),
		zap.Int("steps", e.NumSteps), zap.Float64("dt", e.Dt), zap.Int("checks", len(flags)))
	for n, flag := range flags {
		if err = ctx.Err(); err != nil {
			return
		}
		var rep *jactest.Report
		if rep, err = jactest.Check(ctx, e.asm, p.State(times[n]), e.opts, e.logger); err != nil {
			return
		}
		rep.Time = times[n]
		rep.Label = types.Stringify(flag)
		reports = append(reports, rep)
		e.logger.Info("jacobian check", zap.Stringer("on", flag), zap.Float64("time", times[n]),
			zap.Bool("pass", rep.Pass), zap.Float64("worst", rep.Worst().RelError))
	}
	return
}

// Passed reports whether every report passed
func Passed(reports []*jactest.Report) bool {
	for _, r := range reports {
		if !r.Pass {
			return false
		}
	}
	return true
}
