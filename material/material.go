package material

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/matderiv/InputParameters"
	"github.com/notargets/matderiv/coupling"
	"github.com/notargets/matderiv/types"
	"github.com/notargets/matderiv/utils"
)

// Material computes property values at quadrature points. vals holds the
// value of every nonlinear variable at qp, indexed by variable number.
// Materials write only to the fields they declared and only at qp, so
// distinct quadrature points may be computed concurrently.
type Material interface {
	Name() string
	ComputeQpProperties(qp int, vals []float64)
}

// Allocator builds a material from its input block, declaring its fields in
// the store
type Allocator func(mb InputParameters.MaterialBlock, s *Store, vs *coupling.VariableSystem) (Material, error)

var allocators = map[string]Allocator{}

func Register(typeName string, alloc Allocator) {
	if _, present := allocators[typeName]; present {
		panic(fmt.Errorf("material type %q registered twice", typeName))
	}
	allocators[typeName] = alloc
}

func RegisteredTypes() (names []string) {
	for name := range allocators {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func New(mb InputParameters.MaterialBlock, s *Store, vs *coupling.VariableSystem) (m Material, err error) {
	alloc, ok := allocators[mb.Type]
	if !ok {
		err = &types.LookupError{Kind: "material type", Name: mb.Type,
			Context: fmt.Sprintf("Materials/%s; registered: %v", mb.Name, RegisteredTypes())}
		return
	}
	if m, err = alloc(mb, s, vs); err != nil {
		return nil, fmt.Errorf("building material %s: %w", mb.Name, err)
	}
	s.logger.Info("material ready", zap.String("name", mb.Name), zap.String("type", mb.Type),
		zap.String("property", mb.Property), zap.Strings("args", mb.Args))
	return
}

// QpValues holds every variable's value at every block quadrature point
type QpValues struct {
	NVars int
	Data  []float64 // [qp*NVars + var]
}

func NewQpValues(nQp, nVars int) *QpValues {
	return &QpValues{
		NVars: nVars,
		Data:  make([]float64, nQp*nVars),
	}
}

func (qv *QpValues) At(qp int) []float64 {
	return qv.Data[qp*qv.NVars : (qp+1)*qv.NVars]
}

// Compute runs every material over all quadrature points. This is the only
// phase in which property fields are written; it must complete before any
// consumer reads through its handles.
func (s *Store) Compute(ctx context.Context, mats []Material, vals *QpValues, workers int) error {
	var (
		pm   = utils.NewPartitionMap(workers, s.nQp)
		g, _ = errgroup.WithContext(ctx)
	)
	for bn := 0; bn < pm.ParallelDegree; bn++ {
		qpMin, qpMax := pm.GetBucketRange(bn)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for qp := qpMin; qp < qpMax; qp++ {
				v := vals.At(qp)
				for _, m := range mats {
					m.ComputeQpProperties(qp, v)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
