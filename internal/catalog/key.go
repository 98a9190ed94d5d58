// Package catalog implements the TableCatalog / TableDef / TableDefVer
// / TableRel layer of SPEC_FULL.md §5.4 / spec.md §4.5: table schema
// registration, a versioning ring for evolving a table's shape over
// time, and the relation graph connecting tables to each other.
//
// Grounded on original_source/src/include/io/catalog/TableDef.h and
// src/io/catalog/TableDef.c (versioning ring, relation qual storage,
// and the 3-pivot quicksort this package's Sort3Pivot function ports).
package catalog

import (
	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/verr"
)

// MaxKeyFields bounds how many fields a Key may reference (spec.md §4.5:
// VH_TABLEKEY_MAX_FIELDS).
const MaxKeyFields = 10

// Key is a TableKey: an ordered set of fields forming a primary or
// logical key.
type Key struct {
	Fields []*heap.Field
}

// NewKey builds a Key from up to MaxKeyFields fields.
func NewKey(fields ...*heap.Field) (Key, error) {
	if len(fields) > MaxKeyFields {
		return Key{}, verr.New(verr.KindSchemaConflict, "table key has %d fields, maximum is %d", len(fields), MaxKeyFields)
	}
	return Key{Fields: fields}, nil
}

// IsEmpty reports whether no key has been defined.
func (k Key) IsEmpty() bool { return len(k.Fields) == 0 }
