// Package flatten implements the pre-planner query rewrite pass
// spec.md §4.8 describes: a qual comparing a field against a list of
// rows fetched from another table (rather than a list of literal
// values) is rewritten into a form the planner and SQL renderer can
// both work with directly.
//
// Grounded on original_source/src/include/io/plan/flatten.h and
// src/io/plan/flatten.c's vh_plan_flatten/plan_flatten_qual shape: a
// tree visit dispatches each Qual by its side's value format, and only
// a HeapTupleList side triggers a rewrite. That source's own
// plan_flatten_qual_htplist is left largely commented out even in the
// original, so the extraction rule below is this module's own
// resolution of the three cases its surrounding structure lays out,
// rather than a port of unfinished logic (see DESIGN.md).
package flatten

import (
	"github.com/kgearhart/vh/internal/catalog"
	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/node"
	"github.com/kgearhart/vh/internal/typevar"
	"github.com/kgearhart/vh/internal/verr"
)

// HTPListQual is the pre-flatten qual shape: Field (on FieldDef) is
// compared against a list of rows (RefTuples, each fetched from
// RefDef) rather than a single literal value. This is the Go analogue
// of a qual side in HeapTupleList format.
type HTPListQual struct {
	Field     *node.Field
	FieldDef  *catalog.DefVer
	RefDef    *catalog.DefVer
	RefTuples []*heap.Tuple
}

// Flatten rewrites one HTPListQual into a QualList: an OR-chain of Eq
// quals comparing Field against each referenced row's extracted value,
// equivalent to SQL's "field IN (...)" but expressed with the
// comparison and chain vocabulary node already supports rather than
// introducing a dedicated IN operator.
//
// The value extracted from each row is resolved by a single natural
// relation between FieldDef and RefDef; an ambiguous or absent
// relation surfaces verr.QueryMalformed rather than guessing.
func Flatten(q *HTPListQual) (*node.QualList, error) {
	extract, err := extractField(q)
	if err != nil {
		return nil, err
	}
	idx, err := fieldIndex(extract.Name, q.RefDef)
	if err != nil {
		return nil, err
	}

	if len(q.RefTuples) == 0 {
		return nil, verr.New(verr.KindQueryMalformed, "qual on %q references an empty row list", q.Field.Name)
	}

	items := make([]*node.Qual, 0, len(q.RefTuples))
	for i, tup := range q.RefTuples {
		val, err := tup.GetField(idx)
		if err != nil {
			return nil, err
		}
		chain := node.ChainNone
		if i > 0 {
			chain = node.ChainOr
		}
		v := val
		items = append(items, &node.Qual{
			Lhs:   node.QualSide{Field: q.Field},
			Op:    typevar.OpEq,
			Rhs:   node.QualSide{Value: &v},
			Chain: chain,
		})
	}
	return &node.QualList{Items: items}, nil
}

// extractField resolves which field on RefDef's rows supplies the
// value Field should be compared against, per one of three cases
// plan_flatten_qual_htplist's surrounding structure distinguishes:
//
//  1. FieldDef and RefDef are the same table version (a
//     self-referencing list, e.g. "employees.id IN <employee rows>"):
//     extract the field sharing Field's own name.
//  2. Field is itself the foreign key on FieldDef pointing at RefDef
//     (e.g. "orders.customer_id IN <customer rows>"): extract RefDef's
//     own primary key, the value Field's FK column actually stores.
//  3. RefDef carries the foreign key back to FieldDef instead (e.g.
//     "customers.id IN <order rows>", filtering by an identity field
//     through a reverse relation): extract RefDef's foreign key field.
//
// A relation spanning more than one field pair cannot be disambiguated
// this way and is rejected rather than guessing which pair applies.
func extractField(q *HTPListQual) (*heap.Field, error) {
	if q.FieldDef == nil || q.RefDef == nil {
		return nil, verr.New(verr.KindQueryMalformed, "flatten requires both the filtered field's table and the referenced table to be known")
	}

	if q.FieldDef == q.RefDef {
		return q.RefDef.FieldByName(q.Field.Name)
	}

	if rel, err := q.FieldDef.Rel(q.RefDef); err == nil {
		if len(rel.Quals) != 1 {
			return nil, verr.New(verr.KindQueryMalformed, "relation between %q and %q is not a single-field natural key; flatten cannot disambiguate", q.FieldDef.Name, q.RefDef.Name)
		}
		return rel.Quals[0].Outer, nil
	}

	if rel, err := q.RefDef.Rel(q.FieldDef); err == nil {
		if len(rel.Quals) != 1 {
			return nil, verr.New(verr.KindQueryMalformed, "relation between %q and %q is not a single-field natural key; flatten cannot disambiguate", q.RefDef.Name, q.FieldDef.Name)
		}
		return rel.Quals[0].Inner, nil
	}

	return nil, verr.New(verr.KindQueryMalformed, "no natural relation between %q and %q; flatten cannot determine which field to extract", q.FieldDef.Name, q.RefDef.Name)
}

func fieldIndex(name string, dv *catalog.DefVer) (int, error) {
	for i, f := range dv.TupleDef.Fields {
		if f.Name == name {
			return i, nil
		}
	}
	return 0, verr.New(verr.KindQueryMalformed, "table %q has no field named %q", dv.Name, name)
}
