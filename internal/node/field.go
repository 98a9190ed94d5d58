package node

// Field is a Field node: one column reference, optionally aliased, in
// a field list (spec.md §4.6: "table.field [AS alias]"; wildcard
// renders as "table.*").
type Field struct {
	Table    TableRef
	Name     string
	Alias    string
	Wildcard bool
}

func (f *Field) Tag() Tag { return TagField }

func (f *Field) Children() []Node { return nil }

func (f *Field) Clone(bool) Node {
	cp := *f
	return &cp
}

func (f *Field) renderDefault(ctx *CmdContext) error {
	if f.Wildcard {
		if ctx.FQ && f.Table != nil {
			ctx.Out.WriteString(f.Table.QueryName())
			ctx.Out.WriteString(".")
		}
		ctx.Out.WriteString("*")
		return nil
	}

	if ctx.FQ && f.Table != nil {
		ctx.Out.WriteString(f.Table.QueryName())
		ctx.Out.WriteString(".")
	}
	ctx.Out.WriteString(f.Name)

	if f.Alias != "" {
		ctx.Out.WriteString(" AS ")
		ctx.Out.WriteString(f.Alias)
	}
	return nil
}

// FieldList is a FieldList node: a comma-joined sequence of Fields.
type FieldList struct {
	Items []*Field
}

func (l *FieldList) Tag() Tag { return TagFieldList }

func (l *FieldList) Children() []Node {
	out := make([]Node, len(l.Items))
	for i, f := range l.Items {
		out[i] = f
	}
	return out
}

func (l *FieldList) Clone(deep bool) Node {
	cp := &FieldList{}
	if deep {
		cp.Items = cloneChildrenAs[*Field](l)
	}
	return cp
}

func (l *FieldList) renderDefault(ctx *CmdContext) error {
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
