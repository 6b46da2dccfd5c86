// Package material holds material property fields over quadrature points and
// the materials that compute them.
//
// Fields are declared by materials and bound by consumers during setup.
// Every field is sized once, for all quadrature points of the block, and is
// never reallocated, so a *Property handle obtained at setup stays valid for
// the whole run while the values it points to are recomputed in place.
package material

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/notargets/matderiv/types"
)

// Property is a handle to a material property field
type Property[T any] struct {
	name string
	data []T
}

func (p *Property[T]) Name() string { return p.name }
func (p *Property[T]) Len() int     { return len(p.data) }

// At reads the value at block quadrature point qp
func (p *Property[T]) At(qp int) T { return p.data[qp] }

// Set writes the value at block quadrature point qp. Only materials call
// Set, and only during the compute phase.
func (p *Property[T]) Set(qp int, val T) { p.data[qp] = val }

type field struct {
	value      any // *Property[T]
	kind       string
	declaredBy string
}

type Store struct {
	nQp    int
	fields map[string]*field
	logger *zap.Logger
}

type StoreOption func(s *Store)

func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

func NewStore(nQp int, opts ...StoreOption) (s *Store) {
	s = &Store{
		nQp:    nQp,
		fields: make(map[string]*field),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return
}

func (s *Store) NumQp() int { return s.nQp }

func (s *Store) Names() (names []string) {
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func kindOf[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// DeclareProperty creates the field name of kind T on behalf of material
// owner. Declaring an existing field of the same kind returns the existing
// handle; a different kind is a configuration error.
func DeclareProperty[T types.PropertyValue](s *Store, owner, name string) (p *Property[T], err error) {
	if f, present := s.fields[name]; present {
		var ok bool
		if p, ok = f.value.(*Property[T]); !ok {
			err = types.NewConfigurationError(owner, "", "property %q already declared as %s by %s",
				name, f.kind, f.declaredBy)
		}
		return
	}
	p = &Property[T]{
		name: name,
		data: make([]T, s.nQp),
	}
	s.fields[name] = &field{
		value:      p,
		kind:       kindOf[T](),
		declaredBy: owner,
	}
	s.logger.Debug("declared material property",
		zap.String("property", name), zap.String("kind", kindOf[T]()),
		zap.String("material", owner))
	return
}

// DeclarePropertyDerivative declares the derivative of name with respect to vars
func DeclarePropertyDerivative[T types.PropertyValue](s *Store, owner, name string, vars ...string) (*Property[T], error) {
	return DeclareProperty[T](s, owner, PropertyDerivativeName(name, vars...))
}

// GetProperty binds to an already declared field
func GetProperty[T types.PropertyValue](s *Store, name string) (p *Property[T], err error) {
	f, present := s.fields[name]
	if !present {
		err = &types.LookupError{Kind: "material property", Name: name,
			Context: declaredList(s)}
		return
	}
	var ok bool
	if p, ok = f.value.(*Property[T]); !ok {
		err = &types.LookupError{Kind: "material property", Name: name,
			Context: fmt.Sprintf("declared as %s by %s, requested as %s", f.kind, f.declaredBy, kindOf[T]())}
	}
	return
}

// GetPropertyDerivative binds to the derivative of name with respect to vars
func GetPropertyDerivative[T types.PropertyValue](s *Store, name string, vars ...string) (p *Property[T], err error) {
	if p, err = GetProperty[T](s, PropertyDerivativeName(name, vars...)); err != nil {
		if le, ok := err.(*types.LookupError); ok {
			le.Kind = "material property derivative"
		}
	}
	return
}

func declaredList(s *Store) string {
	names := s.Names()
	if len(names) == 0 {
		return "no properties declared"
	}
	return "declared: " + strings.Join(names, ", ")
}

// PropertyDerivativeName builds the field name of a derivative:
//
//	F, [c]       -> dF/dc
//	F, [c1, c2]  -> d^2F/dc1dc2 (variables sorted)
func PropertyDerivativeName(base string, vars ...string) string {
	if len(vars) == 0 {
		return base
	}
	sorted := append([]string(nil), vars...)
	sort.Strings(sorted)
	var b strings.Builder
	b.WriteString("d")
	if len(sorted) > 1 {
		fmt.Fprintf(&b, "^%d", len(sorted))
	}
	b.WriteString(base)
	b.WriteString("/")
	for _, v := range sorted {
		b.WriteString("d")
		b.WriteString(v)
	}
	return b.String()
}

// Lookup adapts a Store to typed property and derivative lookups of one kind
type Lookup[T types.PropertyValue] struct {
	store *Store
}

func NewLookup[T types.PropertyValue](s *Store) Lookup[T] {
	return Lookup[T]{store: s}
}

func (l Lookup[T]) GetProperty(name string) (*Property[T], error) {
	return GetProperty[T](l.store, name)
}

func (l Lookup[T]) GetDerivative(name, variable string) (*Property[T], error) {
	return GetPropertyDerivative[T](l.store, name, variable)
}
