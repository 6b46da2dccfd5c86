/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/notargets/matderiv/InputParameters"
	"github.com/notargets/matderiv/assembly"
	"github.com/notargets/matderiv/executioner"
	"github.com/notargets/matderiv/jactest"
)

var errCheckFailed = errors.New("jacobian check failed")

type CheckRun struct {
	ICFile     string
	Tolerance  float64 // overrides the deck when > 0
	Workers    int
	CPUProfile string
	Perf       bool
	Verbose    bool // print every block, not just the failing ones
}

// CheckCmd represents the check command
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare the analytic Jacobian of an input deck with finite differences",
	Long: `
Builds the mesh, variables, materials and kernels of the input deck, then at
each CheckOn state assembles the Jacobian and compares it with a finite
difference Jacobian of the residual. Exits non zero when any block fails.

matderiv check -I deck.yaml [--tolerance 1e-6] [--cpuprofile dir] [--perf]`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cr := &CheckRun{}
		if cr.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			return
		}
		if len(cr.ICFile) == 0 {
			return fmt.Errorf("must supply an input deck (-I, --inputConditionsFile), example:%s", exampleDeck)
		}
		cr.Tolerance, _ = cmd.Flags().GetFloat64("tolerance")
		cr.CPUProfile, _ = cmd.Flags().GetString("cpuprofile")
		cr.Perf, _ = cmd.Flags().GetBool("perf")
		cr.Verbose, _ = cmd.Flags().GetBool("verbose")
		cr.Workers = viper.GetInt("workers")
		var logger *zap.Logger
		if logger, err = newLogger(viper.GetString("log-level")); err != nil {
			return
		}
		defer func() { _ = logger.Sync() }()
		return cr.Run(context.Background(), cmd.OutOrStdout(), logger)
	},
}

const exampleDeck = `
########################################
Title: "Coupled polynomial free energy"
Mesh: {NElements: 8, Order: 1}
Variables:
  - {Name: c, Initial: [0.5, 0.2]}
  - {Name: eta, Initial: [0.1]}
Materials:
  - Type: polynomial
    Property: F
    Args: [c, eta]
    Terms:
      - {Coeff: 1, Powers: {c: 2, eta: 1}}
Kernels:
  - {Type: MaterialDerivativeTestKernel, Variable: c, MaterialProperty: F, Args: [eta]}
Executioner: {NumSteps: 1, CheckOn: [INITIAL, TIMESTEP_END]}
Check: {Tolerance: 1.e-6, Formula: central}
########################################
`

func init() {
	rootCmd.AddCommand(CheckCmd)
	CheckCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML input deck with Mesh, Variables, Materials, Kernels, Executioner and Check sections")
	CheckCmd.Flags().Float64P("tolerance", "t", 0, "relative tolerance per Jacobian block, overrides the deck (default from config)")
	CheckCmd.Flags().String("cpuprofile", "", "write a CPU profile into this directory")
	CheckCmd.Flags().Bool("perf", false, "count CPU instructions spent in the check (linux only)")
	CheckCmd.Flags().BoolP("verbose", "v", false, "print every Jacobian block")
}

var (
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Options resolves the check options: the flag, then the deck, then the
// configured default tolerance
func (cr *CheckRun) Options(cb InputParameters.CheckBlock) (opts jactest.Options) {
	opts = jactest.DefaultOptions()
	opts.Step = cb.Step
	if len(cb.Formula) != 0 {
		opts.Formula = cb.Formula
	}
	switch {
	case cr.Tolerance > 0:
		opts.Tolerance = cr.Tolerance
	case cb.Tolerance > 0:
		opts.Tolerance = cb.Tolerance
	case viper.GetFloat64("tolerance") > 0:
		opts.Tolerance = viper.GetFloat64("tolerance")
	}
	return
}

// Run reads, validates and checks the deck, writing the reports to out. A
// failed check returns errCheckFailed after all reports are written.
func (cr *CheckRun) Run(ctx context.Context, out io.Writer, logger *zap.Logger) (err error) {
	if len(cr.CPUProfile) != 0 {
		if err = os.MkdirAll(cr.CPUProfile, 0o755); err != nil {
			return
		}
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cr.CPUProfile), profile.Quiet).Stop()
	}
	var ip *InputParameters.InputParameters1D
	if ip, err = InputParameters.ReadFile(cr.ICFile); err != nil {
		return
	}
	ip.Print(out)
	if err = ip.Validate(); err != nil {
		return
	}
	var p *assembly.Problem
	if p, err = assembly.NewProblem(ip, logger); err != nil {
		return
	}
	workers := cr.Workers
	if workers < 1 {
		workers = 1
	}
	asm := assembly.NewAssembler(p, assembly.WithWorkers(workers), assembly.WithLogger(logger))
	var ex *executioner.Executioner
	if ex, err = executioner.New(ip.Executioner, asm, cr.Options(ip.Check), logger); err != nil {
		return
	}

	var (
		reports []*jactest.Report
		start   = time.Now()
	)
	run := func() (err error) {
		reports, err = ex.Run(ctx)
		return
	}
	if cr.Perf {
		err = countInstructions(out, run)
	} else {
		err = run()
	}
	if err != nil {
		return
	}
	printReports(out, reports, cr.Verbose)
	fmt.Fprintf(out, "%d checks, %d residual and %d jacobian evaluations in %v\n",
		len(reports), asm.Stats.ResidualEvaluations.Load(), asm.Stats.JacobianEvaluations.Load(),
		time.Since(start).Round(time.Millisecond))
	if !executioner.Passed(reports) {
		return errCheckFailed
	}
	return
}

func printReports(out io.Writer, reports []*jactest.Report, verbose bool) {
	for _, rep := range reports {
		if verbose || !rep.Pass {
			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s t = %8.5f", rep.Label, rep.Time)))
			rep.Print(out)
		}
		status := passStyle.Render("PASS")
		if !rep.Pass {
			status = failStyle.Render("FAIL")
		}
		worst := rep.Worst()
		fmt.Fprintf(out, "%s %-16s t = %8.5f worst block (%s, %s) relative error %10.3e\n",
			status, rep.Label, rep.Time, worst.RowVar, worst.ColVar, worst.RelError)
	}
}
