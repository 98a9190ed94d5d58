package typevar

import (
	"github.com/kgearhart/vh/internal/typesys"
	"github.com/kgearhart/vh/internal/verr"
)

// Op names one dynamic dispatch operator (spec.md §4.2: "operators are
// dispatched dynamically by the pair of operand types"). These mirror
// the handful of operators the original's vh_typevar_op switchyard
// recognizes by symbol.
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
	OpEq  Op = "="
	OpLt  Op = "<"
	OpLe  Op = "<="
	OpGt  Op = ">"
	OpGe  Op = ">="
)

// OpFunc computes an operator result given two already-widened operand
// Values.
type OpFunc func(lhs, rhs Value) (Value, error)

type opKey struct {
	op       Op
	lhs, rhs Kind
}

// OpRegistry maps (operator, lhs kind, rhs kind) triples to an
// implementation — the generalized form of the original's per-type
// operator function-pointer table (spec.md §4.2, Design Notes' "enum +
// per-variant method table" substitution for C vtables).
type OpRegistry struct {
	fns map[opKey]OpFunc
	// widen records, for a (lhs,rhs) kind pair that has no direct
	// registration, which common Kind both operands should be promoted
	// to before retrying the lookup — the accumulator-widening rule of
	// spec.md §3 applied to binary operators rather than aggregates.
	widen map[[2]Kind]Kind
}

// NewOpRegistry returns an empty registry with no operators bound.
func NewOpRegistry() *OpRegistry {
	return &OpRegistry{fns: make(map[opKey]OpFunc), widen: make(map[[2]Kind]Kind)}
}

// Register binds fn as the implementation of op over the exact
// (lhs,rhs) kind pair. Re-registering the same triple overwrites the
// previous binding.
func (r *OpRegistry) Register(op Op, lhs, rhs Kind, fn OpFunc) {
	r.fns[opKey{op, lhs, rhs}] = fn
}

// RegisterWiden declares that when no direct (lhs,rhs) binding exists,
// both operands should first be widened to target before the lookup is
// retried.
func (r *OpRegistry) RegisterWiden(lhs, rhs, target Kind) {
	r.widen[[2]Kind{lhs, rhs}] = target
}

// Lookup resolves op over the (lhs,rhs) kind pair, applying one widening
// step if no direct binding exists.
func (r *OpRegistry) Lookup(op Op, lhs, rhs Kind) (OpFunc, Kind, Kind, error) {
	if fn, ok := r.fns[opKey{op, lhs, rhs}]; ok {
		return fn, lhs, rhs, nil
	}
	if target, ok := r.widen[[2]Kind{lhs, rhs}]; ok {
		if fn, ok := r.fns[opKey{op, target, target}]; ok {
			return fn, target, target, nil
		}
	}
	return nil, 0, 0, verr.New(verr.KindUnsupportedConv, "no operator %q defined for operand kinds (%d,%d)", op, lhs, rhs)
}

func widenTo(v Value, k Kind) Value {
	if v.Kind == k {
		return v
	}
	switch k {
	case KindInt64:
		switch v.Kind {
		case KindInt16:
			return NewInt64(v.Stack, int64(v.i16))
		case KindInt32:
			return NewInt64(v.Stack, int64(v.i32))
		}
	case KindFloat64:
		switch v.Kind {
		case KindFloat32:
			return NewFloat64(v.Stack, float64(v.f32))
		case KindInt16:
			return NewFloat64(v.Stack, float64(v.i16))
		case KindInt32:
			return NewFloat64(v.Stack, float64(v.i32))
		case KindInt64:
			return NewFloat64(v.Stack, float64(v.i64))
		}
	}
	return v
}

// DefaultOpRegistry builds the operators this module ships out of the
// box: arithmetic and comparisons over int64 and float64, + and
// comparisons over string (comparisons return bool), plus the widening
// rules that let int16/int32/
// float32 operands reach them.
func DefaultOpRegistry() *OpRegistry {
	r := NewOpRegistry()

	r.Register(OpAdd, KindInt64, KindInt64, func(a, b Value) (Value, error) {
		return NewInt64(a.Stack, a.i64+b.i64), nil
	})
	r.Register(OpSub, KindInt64, KindInt64, func(a, b Value) (Value, error) {
		return NewInt64(a.Stack, a.i64-b.i64), nil
	})
	r.Register(OpMul, KindInt64, KindInt64, func(a, b Value) (Value, error) {
		return NewInt64(a.Stack, a.i64*b.i64), nil
	})
	r.Register(OpDiv, KindInt64, KindInt64, func(a, b Value) (Value, error) {
		if b.i64 == 0 {
			return Value{}, verr.New(verr.KindQueryMalformed, "division by zero")
		}
		return NewInt64(a.Stack, a.i64/b.i64), nil
	})

	r.Register(OpAdd, KindFloat64, KindFloat64, func(a, b Value) (Value, error) {
		return NewFloat64(a.Stack, a.f64+b.f64), nil
	})
	r.Register(OpSub, KindFloat64, KindFloat64, func(a, b Value) (Value, error) {
		return NewFloat64(a.Stack, a.f64-b.f64), nil
	})
	r.Register(OpMul, KindFloat64, KindFloat64, func(a, b Value) (Value, error) {
		return NewFloat64(a.Stack, a.f64*b.f64), nil
	})
	r.Register(OpDiv, KindFloat64, KindFloat64, func(a, b Value) (Value, error) {
		if b.f64 == 0 {
			return Value{}, verr.New(verr.KindQueryMalformed, "division by zero")
		}
		return NewFloat64(a.Stack, a.f64/b.f64), nil
	})

	r.Register(OpAdd, KindString, KindString, func(a, b Value) (Value, error) {
		return NewString(a.Stack, a.str+b.str), nil
	})

	registerCompare := func(k Kind, less, eq func(a, b Value) bool) {
		r.Register(OpLt, k, k, func(a, b Value) (Value, error) { return boolValue(less(a, b)), nil })
		r.Register(OpLe, k, k, func(a, b Value) (Value, error) { return boolValue(less(a, b) || eq(a, b)), nil })
		r.Register(OpGt, k, k, func(a, b Value) (Value, error) { return boolValue(!less(a, b) && !eq(a, b)), nil })
		r.Register(OpGe, k, k, func(a, b Value) (Value, error) { return boolValue(!less(a, b)), nil })
		r.Register(OpEq, k, k, func(a, b Value) (Value, error) { return boolValue(eq(a, b)), nil })
	}
	registerCompare(KindInt64,
		func(a, b Value) bool { return a.i64 < b.i64 },
		func(a, b Value) bool { return a.i64 == b.i64 })
	registerCompare(KindFloat64,
		func(a, b Value) bool { return a.f64 < b.f64 },
		func(a, b Value) bool { return a.f64 == b.f64 })
	registerCompare(KindString,
		func(a, b Value) bool { return a.str < b.str },
		func(a, b Value) bool { return a.str == b.str })

	r.RegisterWiden(KindInt32, KindInt64, KindInt64)
	r.RegisterWiden(KindInt64, KindInt32, KindInt64)
	r.RegisterWiden(KindInt16, KindInt64, KindInt64)
	r.RegisterWiden(KindInt64, KindInt16, KindInt64)
	r.RegisterWiden(KindInt32, KindInt32, KindInt64)
	r.RegisterWiden(KindInt16, KindInt16, KindInt64)
	r.RegisterWiden(KindFloat32, KindFloat64, KindFloat64)
	r.RegisterWiden(KindFloat64, KindFloat32, KindFloat64)
	r.RegisterWiden(KindFloat32, KindFloat32, KindFloat64)
	r.RegisterWiden(KindInt32, KindFloat64, KindFloat64)
	r.RegisterWiden(KindInt64, KindFloat64, KindFloat64)

	return r
}

// boolResultStack is the Stack tag synthesized comparison results
// carry. It identifies as the bool builtin type id directly rather
// than through a live Registry lookup, since comparison operators run
// without one in scope; every Registry built by RegisterBuiltins
// assigns TypeBool this same id.
var boolResultStack = typesys.StackOf(typesys.TypeBool)

func boolValue(b bool) Value { return NewBool(boolResultStack, b) }
