// Package coupling resolves variable names to stable handles and keeps the
// ordered list of variables an object is coupled to.
package coupling

import (
	"strings"

	"github.com/notargets/matderiv/types"
)

// Variable is a stable handle to a nonlinear variable. Number is the
// variable's global index and addresses its Jacobian column block.
type Variable struct {
	Name   string
	Number int
}

func (v *Variable) String() string { return v.Name }

// VariableSystem owns every nonlinear variable of the problem, in
// declaration order
type VariableSystem struct {
	vars   []*Variable
	byName map[string]*Variable
}

func NewVariableSystem(names ...string) (vs *VariableSystem, err error) {
	vs = &VariableSystem{
		byName: make(map[string]*Variable),
	}
	for _, name := range names {
		if _, err = vs.Add(name); err != nil {
			return nil, err
		}
	}
	return
}

func (vs *VariableSystem) Add(name string) (v *Variable, err error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		err = types.NewConfigurationError("Variables", "name", "variable name must not be empty")
		return
	}
	if _, present := vs.byName[name]; present {
		err = types.NewConfigurationError("Variables/"+name, "", "variable declared more than once")
		return
	}
	v = &Variable{Name: name, Number: len(vs.vars)}
	vs.vars = append(vs.vars, v)
	vs.byName[name] = v
	return
}

// Resolve returns the handle for name or a *types.LookupError
func (vs *VariableSystem) Resolve(name string) (v *Variable, err error) {
	var ok bool
	if v, ok = vs.byName[name]; !ok {
		err = &types.LookupError{Kind: "variable", Name: name,
			Context: "declared: " + strings.Join(vs.Names(), ", ")}
	}
	return
}

func (vs *VariableSystem) Count() int                 { return len(vs.vars) }
func (vs *VariableSystem) VariableAt(i int) *Variable { return vs.vars[i] }

func (vs *VariableSystem) Names() (names []string) {
	names = make([]string, len(vs.vars))
	for i, v := range vs.vars {
		names[i] = v.Name
	}
	return
}

// Coupling is the ordered list of variables one object depends on. Order and
// duplicates are kept exactly as given; entry i is coupled index "cvar" i.
type Coupling struct {
	vars    []*Variable
	jvarMap []int // global variable number -> first coupled index, -1 if absent
}

// NewCoupling resolves names against vs. Any unknown name fails with a
// *types.LookupError naming the offending variable and object.
func NewCoupling(vs *VariableSystem, object string, names []string) (c *Coupling, err error) {
	c = &Coupling{
		vars:    make([]*Variable, len(names)),
		jvarMap: make([]int, vs.Count()),
	}
	for i := range c.jvarMap {
		c.jvarMap[i] = -1
	}
	for i, name := range names {
		var v *Variable
		if v, err = vs.Resolve(name); err != nil {
			if le, ok := err.(*types.LookupError); ok {
				le.Context = "coupled in " + object + "; " + le.Context
			}
			return nil, err
		}
		c.vars[i] = v
		if c.jvarMap[v.Number] == -1 {
			c.jvarMap[v.Number] = i
		}
	}
	return
}

func (c *Coupling) Count() int                 { return len(c.vars) }
func (c *Coupling) VariableAt(i int) *Variable { return c.vars[i] }

// MapJvarToCvar returns the first coupled index that refers to the global
// variable number jvar
func (c *Coupling) MapJvarToCvar(jvar int) (cvar int, ok bool) {
	if jvar < 0 || jvar >= len(c.jvarMap) {
		return -1, false
	}
	cvar = c.jvarMap[jvar]
	return cvar, cvar >= 0
}
