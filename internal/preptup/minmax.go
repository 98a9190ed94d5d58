package preptup

import (
	"github.com/kgearhart/vh/internal/typesys"
	"github.com/kgearhart/vh/internal/typevar"
	"github.com/kgearhart/vh/internal/verr"
)

// asFloat64 coerces a scalar Value to float64, the way vh_tvs_double
// widens whatever numeric kind a slot holds so PrepCol implementations
// can do arithmetic without caring about the source column's exact
// type. Non-numeric kinds report false.
func asFloat64(v typevar.Value) (float64, bool) {
	switch v.Kind {
	case typevar.KindInt16:
		return float64(v.Int16()), true
	case typevar.KindInt32:
		return float64(v.Int32()), true
	case typevar.KindInt64:
		return float64(v.Int64()), true
	case typevar.KindFloat32:
		return float64(v.Float32()), true
	case typevar.KindFloat64:
		return v.Float64(), true
	default:
		return 0, false
	}
}

// MinMaxCol normalizes a single numeric input into [0, 1] given a
// fixed minimum and maximum (vh_pcminmax_create): the machine-learning
// feature-scaling PrepCol spec.md §4.7 names. min/max are coerced to
// float64 once at construction, mirroring the original's optimization
// of converting its bounds up front rather than on every row.
type MinMaxCol struct {
	min, max float64
}

// NewMinMaxCol builds a MinMaxCol scaling against [min, max]. min and
// max must be scalar numeric Values.
func NewMinMaxCol(min, max typevar.Value) (*MinMaxCol, error) {
	mn, ok := asFloat64(min)
	if !ok {
		return nil, verr.New(verr.KindUnsupportedConv, "minmax prepcol: minimum is not numeric")
	}
	mx, ok := asFloat64(max)
	if !ok {
		return nil, verr.New(verr.KindUnsupportedConv, "minmax prepcol: maximum is not numeric")
	}
	return &MinMaxCol{min: mn, max: mx}, nil
}

func (c *MinMaxCol) PopulateSlot(target *typevar.Slot, datas []*typevar.Slot) error {
	if len(datas) == 0 {
		return verr.New(verr.KindInvalidHandle, "minmax prepcol requires exactly one input slot")
	}
	in, err := datas[0].Get()
	if err != nil {
		return err
	}
	val, ok := asFloat64(in)
	if !ok {
		return verr.New(verr.KindUnsupportedConv, "minmax prepcol: input value is not numeric")
	}

	normalized := (val - c.min) / (c.max - c.min)
	target.StoreImmediate(typevar.NewFloat64(typesys.StackOf(typesys.TypeFloat64), normalized), typevar.CallerOwned)
	return nil
}
