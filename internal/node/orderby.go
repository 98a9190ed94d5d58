package node

// OrderBy is an OrderBy node: a single sort key, ascending unless Desc
// is set.
type OrderBy struct {
	Field *Field
	Desc  bool
}

func (o *OrderBy) Tag() Tag { return TagOrderBy }

func (o *OrderBy) Children() []Node { return []Node{o.Field} }

func (o *OrderBy) Clone(deep bool) Node {
	cp := &OrderBy{Desc: o.Desc}
	if deep {
		cp.Field = o.Field.Clone(true).(*Field)
	} else {
		cp.Field = o.Field
	}
	return cp
}

func (o *OrderBy) renderDefault(ctx *CmdContext) error {
	if err := RenderDefault(o.Field, ctx); err != nil {
		return err
	}
	if o.Desc {
		ctx.Out.WriteString(" DESC")
	}
	return nil
}

// OrderByList is an OrderByList node: a comma-joined sequence of
// OrderBys.
type OrderByList struct {
	Items []*OrderBy
}

func (l *OrderByList) Tag() Tag { return TagOrderByList }

func (l *OrderByList) Children() []Node {
	out := make([]Node, len(l.Items))
	for i, o := range l.Items {
		out[i] = o
	}
	return out
}

func (l *OrderByList) Clone(deep bool) Node {
	cp := &OrderByList{}
	if deep {
		cp.Items = cloneChildrenAs[*OrderBy](l)
	}
	return cp
}

func (l *OrderByList) renderDefault(ctx *CmdContext) error {
	for i, o := range l.Items {
		if i > 0 {
			ctx.Out.WriteString(", ")
		}
		if err := RenderImpl(o, ctx); err != nil {
			return err
		}
	}
	return nil
}
