package heap

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/kgearhart/vh/internal/typesys"
	"github.com/kgearhart/vh/internal/typevar"
	"github.com/kgearhart/vh/internal/verr"
)

// Tuple is a HeapTuple: the live, addressable form of bytes stored
// behind a TuplePtr. It holds an immutable base slice plus, once any
// field has been written, an independent mutable shadow (spec.md's
// "immutable/mutable-shadow pair", Open Question #1).
//
// Per SPEC_FULL.md §12's resolution of that Open Question, a shadow is
// never swapped into the original slot in place: Commit allocates a
// brand-new HeapTuple from the shadow bytes and records the new
// TuplePtr as a CrossLink, so concurrent immutable readers of the
// original TuplePtr are never exposed to a half-written page.
type Tuple struct {
	td   *TupleDef
	ptr  TuplePtr
	base []byte

	shadow    []byte
	crossLink TuplePtr
}

func newTuple(td *TupleDef, ptr TuplePtr, base []byte) *Tuple {
	return &Tuple{td: td, ptr: ptr, base: base, crossLink: Invalid}
}

// Ptr returns the TuplePtr this Tuple was fetched through.
func (t *Tuple) Ptr() TuplePtr { return t.ptr }

// Def returns the TupleDef this Tuple was fetched against, letting
// callers outside this package (e.g. internal/preptup's field search
// paths) resolve a field by name without duplicating the tuple shape.
func (t *Tuple) Def() *TupleDef { return t.td }

// HasShadow reports whether any field has been written since this
// Tuple was fetched.
func (t *Tuple) HasShadow() bool { return t.shadow != nil }

// CrossLink returns the TuplePtr a committed shadow was written to, or
// Invalid if this Tuple has never been committed.
func (t *Tuple) CrossLink() TuplePtr { return t.crossLink }

// bytesFor returns the slice views of a field's storage: forWrite
// selects (and lazily creates) the copy-on-write shadow.
func (t *Tuple) bytesFor(f *Field, forWrite bool) []byte {
	src := t.base
	if forWrite {
		if t.shadow == nil {
			t.shadow = append([]byte(nil), t.base...)
		}
		src = t.shadow
	} else if t.shadow != nil {
		src = t.shadow
	}
	return src[f.Offset : f.Offset+f.Size]
}

// GetField decodes field idx into a typevar.Value.
func (t *Tuple) GetField(idx int) (typevar.Value, error) {
	if idx < 0 || idx >= len(t.td.Fields) {
		return typevar.Value{}, verr.New(verr.KindInvalidHandle, "field index %d out of range", idx)
	}
	f := &t.td.Fields[idx]
	return decodeScalar(f.TypeID, t.bytesFor(f, false))
}

// SetField encodes v into field idx, creating this Tuple's shadow on
// first write.
func (t *Tuple) SetField(idx int, v typevar.Value) error {
	if idx < 0 || idx >= len(t.td.Fields) {
		return verr.New(verr.KindInvalidHandle, "field index %d out of range", idx)
	}
	f := &t.td.Fields[idx]
	raw, err := encodeScalar(v, f.Size)
	if err != nil {
		return err
	}
	copy(t.bytesFor(f, true), raw)
	return nil
}

// FieldRef returns a typevar.FieldRef bound to field idx of t, letting
// a typevar.Slot address this tuple's storage directly.
func (t *Tuple) FieldRef(idx int) typevar.FieldRef {
	return &tupleFieldRef{tuple: t, idx: idx}
}

type tupleFieldRef struct {
	tuple *Tuple
	idx   int
}

func (r *tupleFieldRef) Get() (typevar.Value, error)   { return r.tuple.GetField(r.idx) }
func (r *tupleFieldRef) Set(v typevar.Value) error     { return r.tuple.SetField(r.idx, v) }

// Bytes returns the tuple's current (shadow-if-present) raw storage,
// the form AllocHT/CommitShadow persist.
func (t *Tuple) Bytes() []byte {
	if t.shadow != nil {
		return t.shadow
	}
	return t.base
}

func decodeScalar(typeID typesys.TypeID, raw []byte) (typevar.Value, error) {
	stack := typesys.StackOf(typeID)
	switch typeID {
	case typesys.TypeBool:
		return typevar.NewBool(stack, raw[0] != 0), nil
	case typesys.TypeInt16:
		return typevar.NewInt16(stack, int16(binary.LittleEndian.Uint16(raw))), nil
	case typesys.TypeInt32:
		return typevar.NewInt32(stack, int32(binary.LittleEndian.Uint32(raw))), nil
	case typesys.TypeInt64:
		return typevar.NewInt64(stack, int64(binary.LittleEndian.Uint64(raw))), nil
	case typesys.TypeFloat32:
		return typevar.NewFloat32(stack, math.Float32frombits(binary.LittleEndian.Uint32(raw))), nil
	case typesys.TypeFloat64:
		return typevar.NewFloat64(stack, math.Float64frombits(binary.LittleEndian.Uint64(raw))), nil
	case typesys.TypeString:
		return typevar.NewString(stack, strings.TrimRight(string(raw), "\x00")), nil
	default:
		return typevar.Value{}, verr.New(verr.KindUnsupportedConv, "heap tuple field decode: unsupported type id %d", typeID)
	}
}

func encodeScalar(v typevar.Value, size uint32) ([]byte, error) {
	out := make([]byte, size)
	switch v.Kind {
	case typevar.KindBool:
		if v.Bool() {
			out[0] = 1
		}
	case typevar.KindInt16:
		binary.LittleEndian.PutUint16(out, uint16(v.Int16()))
	case typevar.KindInt32:
		binary.LittleEndian.PutUint32(out, uint32(v.Int32()))
	case typevar.KindInt64:
		binary.LittleEndian.PutUint64(out, uint64(v.Int64()))
	case typevar.KindFloat32:
		binary.LittleEndian.PutUint32(out, math.Float32bits(v.Float32()))
	case typevar.KindFloat64:
		binary.LittleEndian.PutUint64(out, math.Float64bits(v.Float64()))
	case typevar.KindString:
		copy(out, v.String())
	default:
		return nil, verr.New(verr.KindUnsupportedConv, "heap tuple field encode: unsupported value kind %d", v.Kind)
	}
	return out, nil
}
