package node

import (
	"github.com/kgearhart/vh/internal/typevar"
	"github.com/kgearhart/vh/internal/verr"
)

// ChainOp is how a Qual joins to the Qual immediately before it within
// the same QualList (spec.md §4.6: "quals at the same list level join
// via AND/OR per node's chain method"). The first Qual in a list
// carries ChainNone since there is nothing before it to join to.
type ChainOp int

const (
	ChainNone ChainOp = iota
	ChainAnd
	ChainOr
)

func (c ChainOp) sql() string {
	switch c {
	case ChainAnd:
		return " AND "
	case ChainOr:
		return " OR "
	default:
		return ""
	}
}

// QualOp is one of the comparison operators a Qual may apply; it
// reuses typevar.Op's vocabulary rather than inventing a parallel one,
// since a qual's comparison and a TypeVar operator are the same
// concept at different layers.
type QualOp = typevar.Op

func qualOpSQL(op QualOp) (string, error) {
	switch op {
	case typevar.OpEq:
		return "=", nil
	case typevar.OpLt:
		return "<", nil
	case typevar.OpLe:
		return "<=", nil
	case typevar.OpGt:
		return ">", nil
	case typevar.OpGe:
		return ">=", nil
	default:
		return "", verr.New(verr.KindQueryMalformed, "operator %q is not valid inside a qual", op)
	}
}

// QualSide is one side of a Qual: exactly one of Field (a column
// reference) or Value (a bound parameter) should be set.
type QualSide struct {
	Field *Field
	Value *typevar.Value
}

// Qual is a Qual node: "(lhs OP rhs)" (spec.md §4.6). A Field side
// renders as a qualified column name; a Value side emits a parameter
// placeholder and pushes the value onto the render context's param
// list.
//
// When Group is set, this Qual stands for a parenthesized sub-chain
// instead of a single comparison: Lhs/Rhs/Op are ignored and Group
// renders in their place. This lets a multi-column primary key match
// ("(pk1 = ? AND pk2 = ?) OR (pk1 = ? AND pk2 = ?)") nest an AND group
// inside an OR chain, which a single flat QualList cannot express
// since every item in a list shares one precedence level.
type Qual struct {
	Lhs, Rhs QualSide
	Op       QualOp
	Chain    ChainOp
	Group    *QualList
}

func (q *Qual) Tag() Tag { return TagQual }

func (q *Qual) Children() []Node { return nil }

func (q *Qual) Clone(bool) Node {
	cp := *q
	return &cp
}

func (q *Qual) renderSide(ctx *CmdContext, s QualSide) error {
	switch {
	case s.Field != nil:
		return RenderImpl(s.Field, ctx)
	case s.Value != nil:
		ctx.ParamPlaceholder(ctx, *s.Value)
		return nil
	default:
		return verr.New(verr.KindQueryMalformed, "qual side has neither a field nor a value")
	}
}

func (q *Qual) renderDefault(ctx *CmdContext) error {
	if q.Group != nil {
		ctx.Out.WriteString("(")
		if err := RenderImpl(q.Group, ctx); err != nil {
			return err
		}
		ctx.Out.WriteString(")")
		return nil
	}

	opSQL, err := qualOpSQL(q.Op)
	if err != nil {
		return err
	}

	ctx.Out.WriteString("(")
	if err := q.renderSide(ctx, q.Lhs); err != nil {
		return err
	}
	ctx.Out.WriteString(" ")
	ctx.Out.WriteString(opSQL)
	ctx.Out.WriteString(" ")
	if err := q.renderSide(ctx, q.Rhs); err != nil {
		return err
	}
	ctx.Out.WriteString(")")
	return nil
}

// QualList is a QualList node: a sequence of Quals, each chained to
// the one before it via its own Chain.
type QualList struct {
	Items []*Qual
}

func (l *QualList) Tag() Tag { return TagQualList }

func (l *QualList) Children() []Node {
	out := make([]Node, len(l.Items))
	for i, q := range l.Items {
		out[i] = q
	}
	return out
}

func (l *QualList) Clone(deep bool) Node {
	cp := &QualList{}
	if deep {
		cp.Items = cloneChildrenAs[*Qual](l)
	}
	return cp
}

func (l *QualList) renderDefault(ctx *CmdContext) error {
	for i, q := range l.Items {
		if i > 0 {
			ctx.Out.WriteString(q.Chain.sql())
		}
		if err := RenderImpl(q, ctx); err != nil {
			return err
		}
	}
	return nil
}
