package catalog

import (
	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/verr"
)

// MaxRelQuals bounds the number of join-qualification pairs a Rel may
// carry (spec.md §4.5: TableRelData.quals[10]).
const MaxRelQuals = 10

// Cardinality describes how rows on either side of a Rel correspond.
type Cardinality int

const (
	OneToOne Cardinality = iota
	OneToMany
	ManyToOne
	ManyToMany
)

// RelQual is one equality join-qualification pair inside a Rel: the
// field on the inner side that must equal the field on the outer side.
type RelQual struct {
	Inner *heap.Field
	Outer *heap.Field
}

// Rel is a TableRel: a named, typed relationship between two table
// versions, carried as a set of equi-join qualification pairs plus a
// declared Cardinality. The planner's pullup-TDs pass and join
// rewriting consult Rel to decide how two tables in a query relate
// without the query itself having spelled out the join condition.
type Rel struct {
	Inner *DefVer
	Outer *DefVer
	Card  Cardinality
	Quals []RelQual

	// HTOffset mirrors the original's ht_offset: the byte offset
	// within a HeapTuple's extra region (heap.TupleDef.ExtraOffset)
	// where this relation's resolved cross-link tuple pointers are
	// cached once fetched, so repeated traversal of the same relation
	// against the same row doesn't re-run a lookup.
	HTOffset uint32
}

// NewRel constructs a Rel between inner and outer with no qualification
// pairs yet.
func NewRel(inner, outer *DefVer, card Cardinality) *Rel {
	return &Rel{Inner: inner, Outer: outer, Card: card}
}

// AddQual appends an equi-join pair to the relation (vh_tdr_qual_add).
// Adding a pair identical to one already present is a no-op.
func (r *Rel) AddQual(inner, outer *heap.Field) error {
	for _, q := range r.Quals {
		if q.Inner == inner && q.Outer == outer {
			return nil
		}
	}
	if len(r.Quals) >= MaxRelQuals {
		return verr.New(verr.KindSchemaConflict, "relation already has the maximum of %d qualification pairs", MaxRelQuals)
	}
	r.Quals = append(r.Quals, RelQual{Inner: inner, Outer: outer})
	return nil
}

// SetCardinality changes the relation's declared Cardinality
// (vh_tdr_cardinality_change).
func (r *Rel) SetCardinality(c Cardinality) { r.Card = c }
