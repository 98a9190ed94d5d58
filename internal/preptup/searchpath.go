// Package preptup implements the SearchPath / PrepCol / PrepTup
// normalization pipeline of SPEC_FULL.md §5.5 / spec.md §4.7: a
// generic way to pull typed values out of a HeapTuple or the table
// catalog, optionally transform them, and assemble the results into a
// freshly-defined output tuple shape.
//
// Grounded on original_source/src/include/io/catalog/searchpath.h,
// sp/{spht,sptd}.h, PrepTup.h, and prepcol/pcminmax.h, with their .c
// counterparts for the column-pipeline mechanics this package ports.
package preptup

import (
	"github.com/kgearhart/vh/internal/catalog"
	"github.com/kgearhart/vh/internal/heap"
)

// Kind is an SPRET: the shape of value a SearchPath resolves to.
type Kind int

const (
	KindDataAt Kind = iota
	KindDef
	KindDefVer
	KindField
)

// Context is the runtime argument bundle a SearchPath's Search is
// evaluated against — the Go stand-in for the original's variadic
// VH_SP_CTX_* argument list, collapsed into a single struct since Go
// has no analogue to a tagged varargs convention worth imitating here.
type Context struct {
	Tuple   *heap.Tuple
	Catalog *catalog.Catalog
	Def     *catalog.Def
	DefVer  *catalog.DefVer
	Schema  string
	Table   string
}

// Result is what a successful Search produces; only the field matching
// the SearchPath's Kind is populated.
type Result struct {
	Kind   Kind
	Data   []byte
	Def    *catalog.Def
	DefVer *catalog.DefVer
	Field  *heap.Field
}

// SearchPath is the generic resolver spec.md §4.7 describes: given a
// Context, find zero, one, or more data points of a single Kind.
// Implementations that can return more than one match (none exist in
// this package yet) would do so by having the caller re-invoke Search
// after mutating Context, mirroring the original's iterator-like
// "next" semantics without a stateful cursor shared across goroutines.
type SearchPath interface {
	// Kind reports what shape of Result this SearchPath produces.
	Kind() Kind
	// Search resolves ctx to a Result, or an error if ctx lacks the
	// inputs this SearchPath requires.
	Search(ctx Context) (Result, error)
}
