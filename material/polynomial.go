package material

import (
	"github.com/notargets/matderiv/InputParameters"
	"github.com/notargets/matderiv/coupling"
	"github.com/notargets/matderiv/types"
	"github.com/notargets/matderiv/utils"
)

func init() {
	Register("polynomial", func(mb InputParameters.MaterialBlock, s *Store, vs *coupling.VariableSystem) (Material, error) {
		return NewPolynomialMaterial(mb, s, vs)
	})
}

// polynomial is F = sum_k c_k prod_a v_a^p_ka over the argument variables
type polynomial struct {
	args   []*coupling.Variable
	coeffs []float64
	powers [][]int // [term][arg]
	dError []float64
}

func newPolynomial(mb InputParameters.MaterialBlock, vs *coupling.VariableSystem) (p *polynomial, err error) {
	var (
		object = "Materials/" + mb.Name
		index  = make(map[string]int)
	)
	p = &polynomial{}
	for _, name := range mb.Args {
		if _, dup := index[name]; dup {
			return nil, types.NewConfigurationError(object, "Args", "variable %q listed more than once", name)
		}
		var v *coupling.Variable
		if v, err = vs.Resolve(name); err != nil {
			return nil, err
		}
		index[name] = len(p.args)
		p.args = append(p.args, v)
	}
	for _, term := range mb.Terms {
		pw := make([]int, len(p.args))
		for name, power := range term.Powers {
			a, ok := index[name]
			if !ok {
				return nil, types.NewConfigurationError(object, "Terms",
					"power given for %q which is not in Args %v", name, mb.Args)
			}
			if power < 0 {
				return nil, types.NewConfigurationError(object, "Terms",
					"negative power %d for %q", power, name)
			}
			pw[a] = power
		}
		p.coeffs = append(p.coeffs, term.Coeff)
		p.powers = append(p.powers, pw)
	}
	p.dError = make([]float64, len(p.args))
	for name, e := range mb.DerivativeError {
		a, ok := index[name]
		if !ok {
			return nil, types.NewConfigurationError(object, "DerivativeError", "%q is not in Args %v", name, mb.Args)
		}
		p.dError[a] = e
	}
	return
}

// eval returns F and dF/dv_a for each argument a
func (p *polynomial) eval(vals []float64, dF []float64) (F float64) {
	for a := range dF {
		dF[a] = p.dError[a]
	}
	for k, c := range p.coeffs {
		pw := p.powers[k]
		prod := c
		for a, v := range p.args {
			prod *= utils.POW(vals[v.Number], pw[a])
		}
		F += prod
		for a, v := range p.args {
			if pw[a] == 0 {
				continue
			}
			d := c * float64(pw[a]) * utils.POW(vals[v.Number], pw[a]-1)
			for b, w := range p.args {
				if b != a {
					d *= utils.POW(vals[w.Number], pw[b])
				}
			}
			dF[a] += d
		}
	}
	return
}

// PolynomialMaterial provides a scalar property and its first derivatives
// with respect to each of its arguments
type PolynomialMaterial struct {
	name string
	poly *polynomial
	F    *Property[types.Real]
	dF   []*Property[types.Real]
}

func NewPolynomialMaterial(mb InputParameters.MaterialBlock, s *Store, vs *coupling.VariableSystem) (pm *PolynomialMaterial, err error) {
	pm = &PolynomialMaterial{name: mb.Name}
	if pm.poly, err = newPolynomial(mb, vs); err != nil {
		return nil, err
	}
	owner := "Materials/" + mb.Name
	if pm.F, err = DeclareProperty[types.Real](s, owner, mb.Property); err != nil {
		return nil, err
	}
	pm.dF = make([]*Property[types.Real], len(pm.poly.args))
	for a, v := range pm.poly.args {
		if pm.dF[a], err = DeclarePropertyDerivative[types.Real](s, owner, mb.Property, v.Name); err != nil {
			return nil, err
		}
	}
	return
}

func (pm *PolynomialMaterial) Name() string { return pm.name }

func (pm *PolynomialMaterial) ComputeQpProperties(qp int, vals []float64) {
	var (
		buf [8]float64
		d   []float64
	)
	if len(pm.dF) > len(buf) {
		d = make([]float64, len(pm.dF))
	} else {
		d = buf[:len(pm.dF)]
	}
	pm.F.Set(qp, pm.poly.eval(vals, d))
	for a, p := range pm.dF {
		p.Set(qp, d[a])
	}
}
