package InputParameters

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	"go.uber.org/multierr"

	"github.com/notargets/matderiv/types"
)

// Parameters obtained from the YAML input deck
type InputParameters1D struct {
	Title       string           `json:"Title"`
	Mesh        MeshParams       `json:"Mesh"`
	Variables   []VariableBlock  `json:"Variables"`
	Materials   []MaterialBlock  `json:"Materials"`
	Kernels     []KernelBlock    `json:"Kernels"`
	Executioner ExecutionerBlock `json:"Executioner"`
	Check       CheckBlock       `json:"Check"`
}

type MeshParams struct {
	NElements       int     `json:"NElements"`
	XMin            float64 `json:"XMin"`
	XMax            float64 `json:"XMax"`
	Order           int     `json:"Order"`
	QuadratureOrder int     `json:"QuadratureOrder"`
}

// VariableBlock declares a nonlinear variable. Its state at time t is
// Initial(x) + t*Rate(x), both polynomials in x given by their coefficients
// in ascending order.
type VariableBlock struct {
	Name    string    `json:"Name"`
	Initial []float64 `json:"Initial"`
	Rate    []float64 `json:"Rate"`
}

type TermBlock struct {
	Coeff  float64        `json:"Coeff"`
	Powers map[string]int `json:"Powers"`
}

type MaterialBlock struct {
	Name            string             `json:"Name"`
	Type            string             `json:"Type"`
	Property        string             `json:"Property"`
	Args            []string           `json:"Args"`
	Terms           []TermBlock        `json:"Terms"`
	Tensor          []float64          `json:"Tensor"`          // 1, 3 or 9 values, tensor materials only
	DerivativeError map[string]float64 `json:"DerivativeError"` // added to d(Property)/d(var)
}

type KernelBlock struct {
	Name             string   `json:"Name"`
	Type             string   `json:"Type"`
	Variable         string   `json:"Variable"`
	MaterialProperty string   `json:"MaterialProperty"`
	Args             []string `json:"Args"`
	Component        []int    `json:"Component"`   // tensor component [i, j]
	Coefficient      *float64 `json:"Coefficient"` // nil selects the kernel default
}

type ExecutionerBlock struct {
	Scheme   string   `json:"Scheme"`
	NumSteps int      `json:"NumSteps"`
	Dt       float64  `json:"Dt"`
	CheckOn  []string `json:"CheckOn"`
}

type CheckBlock struct {
	Tolerance float64 `json:"Tolerance"`
	Step      float64 `json:"Step"`
	Formula   string  `json:"Formula"` // forward or central
}

func (ip *InputParameters1D) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return fmt.Errorf("unable to parse input deck: %w", err)
	}
	ip.SetDefaults()
	return
}

func ReadFile(fileName string) (ip *InputParameters1D, err error) {
	var data []byte
	if data, err = os.ReadFile(fileName); err != nil {
		return
	}
	ip = &InputParameters1D{}
	if err = ip.Parse(data); err != nil {
		ip = nil
	}
	return
}

func (ip *InputParameters1D) SetDefaults() {
	if ip.Mesh.Order == 0 {
		ip.Mesh.Order = 1
	}
	if ip.Mesh.XMax == 0 && ip.Mesh.XMin == 0 {
		ip.Mesh.XMax = 1
	}
	if ip.Mesh.QuadratureOrder == 0 {
		ip.Mesh.QuadratureOrder = 2 * ip.Mesh.Order
	}
	if len(ip.Executioner.Scheme) == 0 {
		ip.Executioner.Scheme = "IMPLICIT_EULER"
	}
	if ip.Executioner.Dt == 0 {
		ip.Executioner.Dt = 1
	}
	if len(ip.Executioner.CheckOn) == 0 {
		ip.Executioner.CheckOn = []string{"INITIAL"}
	}
	if len(ip.Check.Formula) == 0 {
		ip.Check.Formula = "central"
	}
	for i := range ip.Materials {
		if len(ip.Materials[i].Name) == 0 {
			ip.Materials[i].Name = fmt.Sprintf("material%d", i)
		}
	}
	for i := range ip.Kernels {
		if len(ip.Kernels[i].Name) == 0 {
			ip.Kernels[i].Name = fmt.Sprintf("kernel%d", i)
		}
	}
}

// Validate checks the deck for problems that do not depend on object types.
// All problems found are returned together.
func (ip *InputParameters1D) Validate() (err error) {
	add := func(object, param, format string, args ...any) {
		err = multierr.Append(err, types.NewConfigurationError(object, param, format, args...))
	}
	if ip.Mesh.NElements < 1 {
		add("Mesh", "NElements", "must be positive, have %d", ip.Mesh.NElements)
	}
	if ip.Mesh.Order < 1 || ip.Mesh.Order > 3 {
		add("Mesh", "Order", "must be 1, 2 or 3, have %d", ip.Mesh.Order)
	}
	if ip.Mesh.XMax <= ip.Mesh.XMin {
		add("Mesh", "XMax", "must exceed XMin (%g), have %g", ip.Mesh.XMin, ip.Mesh.XMax)
	}
	if len(ip.Variables) == 0 {
		add("Variables", "", "at least one variable is required")
	}
	seen := make(map[string]bool)
	for i, v := range ip.Variables {
		switch {
		case len(strings.TrimSpace(v.Name)) == 0:
			add(fmt.Sprintf("Variables[%d]", i), "Name", "is required")
		case seen[v.Name]:
			add("Variables/"+v.Name, "Name", "declared more than once")
		}
		seen[v.Name] = true
	}
	for _, m := range ip.Materials {
		object := "Materials/" + m.Name
		if len(m.Type) == 0 {
			add(object, "Type", "is required")
		}
		if len(m.Property) == 0 {
			add(object, "Property", "is required")
		}
	}
	if len(ip.Kernels) == 0 {
		add("Kernels", "", "at least one kernel is required")
	}
	for _, k := range ip.Kernels {
		object := "Kernels/" + k.Name
		if len(k.Type) == 0 {
			add(object, "Type", "is required")
		}
		if len(k.Variable) == 0 {
			add(object, "Variable", "is required")
		}
	}
	if _, e := ip.Executioner.TimeSteppingScheme(); e != nil {
		add("Executioner", "Scheme", "%v", e)
	}
	if _, e := ip.Executioner.ExecFlags(); e != nil {
		add("Executioner", "CheckOn", "%v", e)
	}
	if ip.Executioner.NumSteps < 0 {
		add("Executioner", "NumSteps", "must not be negative, have %d", ip.Executioner.NumSteps)
	}
	switch strings.ToLower(ip.Check.Formula) {
	case "forward", "central":
	default:
		add("Check", "Formula", "must be forward or central, have %q", ip.Check.Formula)
	}
	if ip.Check.Tolerance < 0 || ip.Check.Step < 0 {
		add("Check", "", "Tolerance and Step must not be negative")
	}
	return
}

func (eb ExecutionerBlock) TimeSteppingScheme() (types.TimeSteppingScheme, error) {
	return types.StringToEnum[types.TimeSteppingScheme](eb.Scheme)
}

func (eb ExecutionerBlock) ExecFlags() (flags []types.ExecFlagType, err error) {
	var ef types.ExecFlagType
	for _, s := range eb.CheckOn {
		if ef, err = types.StringToEnum[types.ExecFlagType](s); err != nil {
			return nil, err
		}
		flags = append(flags, ef)
	}
	return
}

// EvalPolynomial evaluates sum_i coeffs[i] x^i
func EvalPolynomial(coeffs []float64, x float64) (y float64) {
	for i := len(coeffs) - 1; i >= 0; i-- {
		y = y*x + coeffs[i]
	}
	return
}

func (ip *InputParameters1D) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Elements\n", ip.Mesh.NElements)
	fmt.Fprintf(w, "[%g, %g]\t\t\t= Domain\n", ip.Mesh.XMin, ip.Mesh.XMax)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Polynomial Order\n", ip.Mesh.Order)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Quadrature Order\n", ip.Mesh.QuadratureOrder)
	fmt.Fprintf(w, "[%s]\t\t= Time Stepping Scheme\n", ip.Executioner.Scheme)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Steps\n", ip.Executioner.NumSteps)
	fmt.Fprintf(w, "%8.5f\t\t= Dt\n", ip.Executioner.Dt)
	fmt.Fprintf(w, "%v\t\t= Check On\n", ip.Executioner.CheckOn)
	names := make([]string, len(ip.Variables))
	for i, v := range ip.Variables {
		names[i] = v.Name
	}
	fmt.Fprintf(w, "%v\t\t\t= Variables\n", names)
	mats := make([]string, 0, len(ip.Materials))
	for _, m := range ip.Materials {
		mats = append(mats, fmt.Sprintf("%s(%s: %s%v)", m.Name, m.Type, m.Property, m.Args))
	}
	sort.Strings(mats)
	for _, m := range mats {
		fmt.Fprintf(w, "Materials[%s]\n", m)
	}
	for _, k := range ip.Kernels {
		fmt.Fprintf(w, "Kernels[%s] = %s on %s, property %q, args %v\n",
			k.Name, k.Type, k.Variable, k.MaterialProperty, k.Args)
	}
}
