package node

import (
	"fmt"

	"github.com/kgearhart/vh/internal/catalog"
)

// TableRef is satisfied by anything a Field or Qual can qualify a
// column name against: a From directly, or a Join's embedded join
// table. Go interface dispatch stands in for the original's shared
// "first member is a NodeFromData" struct-layout trick.
type TableRef interface {
	QueryName() string
}

// From is a From node: one table reference in a FROM clause
// (spec.md's "schema.table [AS alias]" contract). Transient
// (derived/subquery) tables are represented by leaving Schema/Table
// empty and relying on ResultIndex's t{N} fallback.
type From struct {
	Schema string
	Table  string
	Alias  string

	// ResultIndex is this From's position among the query's own
	// FROM/JOIN table references, used to synthesize a "tN" alias
	// when neither an explicit Alias nor a Table name is available.
	ResultIndex int

	// DefVer optionally links this From back to the catalog version
	// it scans, the seam internal/planner uses to resolve a From to a
	// TableDef/Beacon without re-parsing Schema/Table strings. Nil for
	// a From built purely for SQL rendering (e.g. in node package
	// tests).
	DefVer *catalog.DefVer
}

func (f *From) Tag() Tag { return TagFrom }

func (f *From) Children() []Node { return nil }

func (f *From) Clone(bool) Node {
	cp := *f
	return &cp
}

// QueryName resolves the name used to qualify this table's columns:
// explicit alias, else table name, else a positional "tN" fallback
// (spec.md §4.6 Field's alias-vs-td priority, reused here since From
// and Field agree on the same priority order).
func (f *From) QueryName() string {
	if f.Alias != "" {
		return f.Alias
	}
	if f.Table != "" {
		return f.Table
	}
	return fmt.Sprintf("t%d", f.ResultIndex)
}

func (f *From) renderDefault(ctx *CmdContext) error {
	if f.Schema != "" {
		ctx.Out.WriteString(f.Schema)
		ctx.Out.WriteString(".")
	}
	ctx.Out.WriteString(f.Table)
	if f.Alias != "" {
		ctx.Out.WriteString(" AS ")
		ctx.Out.WriteString(f.Alias)
	}
	return nil
}

// FromList is a FromList node: a comma-joined sequence of Froms.
type FromList struct {
	Items []*From
}

func (l *FromList) Tag() Tag { return TagFromList }

func (l *FromList) Children() []Node {
	out := make([]Node, len(l.Items))
	for i, f := range l.Items {
		out[i] = f
	}
	return out
}

func (l *FromList) Clone(deep bool) Node {
	cp := &FromList{}
	if deep {
		cp.Items = cloneChildrenAs[*From](l)
	}
	return cp
}

func (l *FromList) renderDefault(ctx *CmdContext) error {
	for i, f := range l.Items {
		if i > 0 {
			ctx.Out.WriteString(", ")
		}
		if err := RenderImpl(f, ctx); err != nil {
			return err
		}
	}
	return nil
}
