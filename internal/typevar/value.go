// Package typevar implements the TypeVar / TypeVarSlot / operator
// dispatch discipline of SPEC_FULL.md §5.2 / spec.md §4.2.
//
// The original C library prefixes a value's bytes with an inline tag
// sequence (spec.md §3, §6) so a bare pointer carries its own type
// identity. Per the Design Notes' "Pointer-tagged dynamic values"
// entry, this is a storage-density choice, not a semantic one: this
// package represents a TypeVar as a Go sum type (Value) plus a
// separately-interned typesys.Stack for identity, and leaves the
// tag-word bit layout (spec.md §6) to the one place that must still
// honor it bit-exact — internal/heap's HeapTuplePtr / page encodings,
// which are a different concern entirely.
//
// Grounded on original_source/src/include/io/catalog/TypeVar.h.
package typevar

import (
	"bytes"
	"fmt"

	"github.com/kgearhart/vh/internal/typesys"
	"github.com/kgearhart/vh/internal/verr"
)

// Kind discriminates which field of a Value is live.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindArray // a contiguous run of Values sharing one Stack, spec.md's vh_makearray
)

// Value is a live TypeVar: a tagged union carrying its own Stack
// identity inline, the same invariant the original's tag-prefix bytes
// encoded (spec.md §3: "every standalone TypeVar has exactly one tag
// with end-of-stack + magic set").
type Value struct {
	Stack typesys.Stack
	Kind  Kind

	b   bool
	i16 int16
	i32 int32
	i64 int64
	f32 float32
	f64 float64
	str string

	// Elems backs KindArray: each Value shares a single back-distance
	// relationship to Stack conceptually by all pointing at the same
	// Stack value (spec.md §4.2: "each slot stores its back-distance
	// to that sequence" — here, simply shared Stack identity, since Go
	// values carry their Stack by value rather than by walking
	// backward through memory).
	Elems []Value
}

func NewBool(s typesys.Stack, v bool) Value    { return Value{Stack: s, Kind: KindBool, b: v} }
func NewInt16(s typesys.Stack, v int16) Value  { return Value{Stack: s, Kind: KindInt16, i16: v} }
func NewInt32(s typesys.Stack, v int32) Value  { return Value{Stack: s, Kind: KindInt32, i32: v} }
func NewInt64(s typesys.Stack, v int64) Value  { return Value{Stack: s, Kind: KindInt64, i64: v} }
func NewFloat32(s typesys.Stack, v float32) Value {
	return Value{Stack: s, Kind: KindFloat32, f32: v}
}
func NewFloat64(s typesys.Stack, v float64) Value {
	return Value{Stack: s, Kind: KindFloat64, f64: v}
}
func NewString(s typesys.Stack, v string) Value { return Value{Stack: s, Kind: KindString, str: v} }

// NewArray lays out count contiguous Values sharing one Stack — the Go
// analogue of spec.md §4.2's vh_makearray.
func NewArray(s typesys.Stack, elems []Value) Value {
	return Value{Stack: s, Kind: KindArray, Elems: elems}
}

func (v Value) Bool() bool       { return v.b }
func (v Value) Int16() int16     { return v.i16 }
func (v Value) Int32() int32     { return v.i32 }
func (v Value) Int64() int64     { return v.i64 }
func (v Value) Float32() float32 { return v.f32 }
func (v Value) Float64() float64 { return v.f64 }
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.str
	case KindInt64:
		return fmt.Sprintf("%d", v.i64)
	case KindInt32:
		return fmt.Sprintf("%d", v.i32)
	case KindInt16:
		return fmt.Sprintf("%d", v.i16)
	case KindFloat64:
		return fmt.Sprintf("%g", v.f64)
	case KindFloat32:
		return fmt.Sprintf("%g", v.f32)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindNull:
		return "<null>"
	default:
		return fmt.Sprintf("<%v>", v.Kind)
	}
}

// IsNull reports whether v carries no value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// MakeCopy produces an independent Value (spec.md §3: "vh_makecopy
// produces an independent value"). Scalars are copied by Go's normal
// value semantics; KindArray additionally deep-copies its element
// slice so mutating the copy never aliases the source.
func (v Value) MakeCopy() Value {
	cp := v
	if v.Kind == KindArray {
		cp.Elems = make([]Value, len(v.Elems))
		for i, e := range v.Elems {
			cp.Elems[i] = e.MakeCopy()
		}
	}
	return cp
}

// Move transfers ownership of v's underlying data to the returned
// Value and invalidates the source (spec.md §3: "move transfers
// ownership with source invalidation"). Because Value holds no heap
// pointers a reset would dangle (Elems aside), Move is MakeCopy plus
// explicitly zeroing *src so a caller cannot observe post-move reuse.
func Move(src *Value) Value {
	out := src.MakeCopy()
	*src = Value{}
	return out
}

// Equal compares two Values for value-equality using the comparator
// registered against their shared Type (spec.md §8: "value_of(makecopy(v))
// == value_of(v) by the type's comparator"). Both values must carry
// the same Stack.
func Equal(r *typesys.Registry, a, b Value) (bool, error) {
	if !a.Stack.Equal(b.Stack) {
		return false, verr.New(verr.KindTypeRegistryError, "cannot compare values of different type stacks")
	}
	if a.Kind == KindArray {
		if len(a.Elems) != len(b.Elems) {
			return false, nil
		}
		for i := range a.Elems {
			eq, err := Equal(r, a.Elems[i], b.Elems[i])
			if err != nil || !eq {
				return eq, err
			}
		}
		return true, nil
	}
	ab, err := encode(a)
	if err != nil {
		return false, err
	}
	bb, err := encode(b)
	if err != nil {
		return false, err
	}
	ty, err := r.ByID(a.Stack.Outer())
	if err != nil {
		return false, err
	}
	if ty.Compare != nil {
		return ty.Compare(ab, bb) == 0, nil
	}
	return bytes.Equal(ab, bb), nil
}

func encode(v Value) ([]byte, error) {
	switch v.Kind {
	case KindBool:
		if v.b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case KindInt16:
		return le16(uint16(v.i16)), nil
	case KindInt32:
		return le32(uint32(v.i32)), nil
	case KindInt64:
		return le64(uint64(v.i64)), nil
	case KindFloat32:
		return le32(float32bits(v.f32)), nil
	case KindFloat64:
		return le64(float64bits(v.f64)), nil
	case KindString:
		return []byte(v.str), nil
	default:
		return nil, verr.New(verr.KindUnsupportedConv, "cannot encode value kind %v", v.Kind)
	}
}
