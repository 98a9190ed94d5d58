// Package heap implements the paged tuple storage layer of SPEC_FULL.md
// §5.3 / spec.md §4.3-§4.4: HeapField/HeapTupleDef layout, the 8 KiB
// HeapPage slotted page, the HeapBuffer block table with an LRU-backed
// working set, and the bit-exact HeapTuplePtr handle.
//
// Grounded on original_source/src/include/io/catalog/HeapTupleDef.h and
// src/include/io/buffer/{HeapBuffer,HeapPage,ItemPtr}.h, with the Go
// page/pin idiom borrowed from
// other_examples/25aee3e8_kyosu-1-minidb__internal-storage-heap.go.go.
package heap

import (
	"github.com/kgearhart/vh/internal/typesys"
	"github.com/kgearhart/vh/internal/verr"
)

// Field describes one column of a tuple definition: its registered
// Type, byte offset within the tuple, and native size (spec.md §4.3).
// This is the Go analogue of HeapFieldData.
type Field struct {
	Name     string
	TypeID   typesys.TypeID
	Offset   uint32
	Size     uint32
	MaxAlign uint32
	Nullable bool
}

// align rounds off up to the nearest multiple of a (a must be a power
// of two), mirroring the original's tuple-assembly alignment pass.
func align(off, a uint32) uint32 {
	if a <= 1 {
		return off
	}
	rem := off % a
	if rem == 0 {
		return off
	}
	return off + (a - rem)
}

// TupleDef is a HeapTupleDef: the compiled layout of a tuple shape —
// field list, type stack (for TAM dispatch), offsets, and the
// size/alignment bookkeeping the original tracks explicitly rather
// than recomputing on every access (spec.md §4.3: "the layout
// computation ... is performed once and cached").
type TupleDef struct {
	Fields []Field

	TupSize   uint32 // end of the last field, including inter-field alignment padding
	TupASize  uint32 // TupSize rounded up to 8 bytes
	HeapSize  uint32 // TupASize + null bitmap (equals ExtraOffset)
	NullBMLen uint32 // null bitmap length in bytes: nfields/8 + 1

	// ExtraOffset marks where caller-defined extra data begins within
	// the tuple (spec.md §12 Open Question #2: kept as a reserved,
	// presently-unused region so relation cross-link storage has
	// somewhere to grow into without a HeapPage layout break).
	ExtraOffset uint32
}

// NewTupleDef computes a TupleDef's offsets and sizes from an ordered
// field list, assigning each field's Offset as it goes (vh_htd_add_field
// + vh_htd_finalize folded into one pass, since this module builds a
// TupleDef once from a fully-known field list rather than growing it
// incrementally).
func NewTupleDef(fields []Field) (*TupleDef, error) {
	if len(fields) == 0 {
		return nil, verr.New(verr.KindSchemaConflict, "tuple definition requires at least one field")
	}
	td := &TupleDef{Fields: make([]Field, len(fields))}
	var offset uint32
	for i, f := range fields {
		if f.Size == 0 {
			return nil, verr.New(verr.KindSchemaConflict, "field %q has zero size", f.Name)
		}
		fieldAlign := f.MaxAlign
		if fieldAlign == 0 {
			fieldAlign = 1
		}
		offset = align(offset, fieldAlign)
		f.Offset = offset
		td.Fields[i] = f
		offset += f.Size
	}
	td.TupSize = offset
	td.TupASize = align(offset, 8)
	td.NullBMLen = uint32(len(fields))/8 + 1
	td.ExtraOffset = td.TupASize + td.NullBMLen
	td.HeapSize = td.ExtraOffset
	return td, nil
}

// FieldByName finds a field by name, or reports SchemaConflict if none
// exists.
func (td *TupleDef) FieldByName(name string) (*Field, error) {
	for i := range td.Fields {
		if td.Fields[i].Name == name {
			return &td.Fields[i], nil
		}
	}
	return nil, verr.New(verr.KindSchemaConflict, "no field named %q", name)
}

// TypeStack returns the TypeID of every field, outer-most order as
// they appear in the tuple — the Go stand-in for vh_htd_type_stack's
// Type* array, consumed by TAM dispatch.
func (td *TupleDef) TypeStack() []typesys.TypeID {
	out := make([]typesys.TypeID, len(td.Fields))
	for i, f := range td.Fields {
		out[i] = f.TypeID
	}
	return out
}
