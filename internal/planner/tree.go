// Package planner implements the Planner of SPEC_FULL.md §5.7 /
// spec.md §4.7: analyzing a rendered Node tree into a PlanTree of
// table/join/qual associations, detecting each referenced table's
// relationship to its Beacon's routing root, resolving an Eq-qual
// chain on a beacon key to a concrete Shard, and generating an
// ExecStepGroup — the plan's final, shard-bound, renderable form.
//
// Grounded on original_source/src/include/io/plan/{tree,esg}.h and
// src/io/plan/{tree,esg,esg_quals}.c. This module's Node tree carries
// TypeVar values directly on a Qual's Value side rather than boxing
// them behind a HeapTuplePtr, so the original's htp_* indexes (which
// exist to fold qual constants into a HeapTuple before submitting it
// to a Beacon) collapse here into a plain per-table filter-qual list:
// there is no intermediate tuple handle to track.
package planner

import (
	"github.com/kgearhart/vh/internal/catalog"
	"github.com/kgearhart/vh/internal/node"
)

// Tree is a PlanTree: the keyed associations the planner derives from
// a Node tree before it can generate an ExecStepGroup.
type Tree struct {
	// NodeTD is node_td: every From/Join node scanning a given table
	// version.
	NodeTD map[*catalog.DefVer][]node.TableRef

	// NodeJT is node_jt: the join tree. A key is an "outer" table
	// reference; its value maps each "inner" reference joined to it,
	// to the Quals that express that join.
	NodeJT map[node.TableRef]map[node.TableRef][]*node.Qual

	// filters is this table ref's quals with one Field side and one
	// Value side, not OR-combined with a neighbouring qual — candidates
	// for ResolveShards' Eq-chain search.
	// Unexported: it is planner-internal bookkeeping, not part of the
	// original's keyed-map contract spec.md enumerates.
	filters map[node.TableRef][]*node.Qual

	// refDV reverses NodeTD for join-orientation lookups.
	refDV map[node.TableRef]*catalog.DefVer
}

func newTree() *Tree {
	return &Tree{
		NodeTD:  map[*catalog.DefVer][]node.TableRef{},
		NodeJT:  map[node.TableRef]map[node.TableRef][]*node.Qual{},
		filters: map[node.TableRef][]*node.Qual{},
		refDV:   map[node.TableRef]*catalog.DefVer{},
	}
}

func qualSideRef(s node.QualSide) node.TableRef {
	if s.Field != nil {
		return s.Field.Table
	}
	return nil
}

// analyze runs the planner's two passes (pullup TDs, scan quals) over
// an explicit set of table references and quals, rather than walking
// the Node tree generically — Select/Insert/Update/Delete each shape
// their table/qual membership differently enough (a Select's From vs
// Joins vs Where, an Update's single Table vs Where) that the callers
// in esg.go assemble the flat lists themselves.
func analyze(refs []node.TableRef, quals []*node.Qual) *Tree {
	pt := newTree()

	for _, r := range refs {
		switch t := r.(type) {
		case *node.From:
			if t.DefVer != nil {
				pt.NodeTD[t.DefVer] = append(pt.NodeTD[t.DefVer], r)
				pt.refDV[r] = t.DefVer
			}
		case *node.Join:
			if t.Table.DefVer != nil {
				pt.NodeTD[t.Table.DefVer] = append(pt.NodeTD[t.Table.DefVer], r)
				pt.refDV[r] = t.Table.DefVer
			}
		}
	}

	for i, q := range quals {
		lhsRef := qualSideRef(q.Lhs)
		rhsRef := qualSideRef(q.Rhs)
		orCombined := q.Chain == node.ChainOr || (i+1 < len(quals) && quals[i+1].Chain == node.ChainOr)

		switch {
		case lhsRef != nil && rhsRef != nil && lhsRef != rhsRef:
			outer, inner := lhsRef, rhsRef
			if dvOuter, ok := pt.refDV[outer]; ok {
				if dvInner, ok2 := pt.refDV[inner]; ok2 {
					if rel, err := dvInner.Rel(dvOuter); err == nil && rel.Card == catalog.ManyToOne {
						outer, inner = rhsRef, lhsRef
					}
				}
			}
			if pt.NodeJT[outer] == nil {
				pt.NodeJT[outer] = map[node.TableRef][]*node.Qual{}
			}
			pt.NodeJT[outer][inner] = append(pt.NodeJT[outer][inner], q)

		case !orCombined && lhsRef != nil && rhsRef == nil && q.Rhs.Value != nil:
			pt.filters[lhsRef] = append(pt.filters[lhsRef], q)

		case !orCombined && rhsRef != nil && lhsRef == nil && q.Lhs.Value != nil:
			pt.filters[rhsRef] = append(pt.filters[rhsRef], q)
		}
	}

	return pt
}
