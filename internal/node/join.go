package node

// JoinKind is the join operator a Join node renders.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
)

func (k JoinKind) sql() string {
	if k == JoinLeft {
		return "LEFT JOIN"
	}
	return "INNER JOIN"
}

// Join is a Join node: "<Inner|Left> JOIN <table> ON (<quals>)"
// (spec.md §4.6). Quals is rendered as the join's ON condition, with
// its own Quals joined by AND between them per QualList's own Chain
// handling.
type Join struct {
	Kind  JoinKind
	Table *From
	Quals *QualList
}

func (j *Join) Tag() Tag { return TagJoin }

// QueryName delegates to the joined table so a Field can qualify a
// column against a Join the same way it would against a plain From.
func (j *Join) QueryName() string { return j.Table.QueryName() }

func (j *Join) Children() []Node {
	kids := []Node{j.Table}
	if j.Quals != nil {
		kids = append(kids, j.Quals)
	}
	return kids
}

func (j *Join) Clone(deep bool) Node {
	cp := &Join{Kind: j.Kind}
	if deep {
		cp.Table = j.Table.Clone(true).(*From)
		if j.Quals != nil {
			cp.Quals = j.Quals.Clone(true).(*QualList)
		}
	} else {
		cp.Table = j.Table
		cp.Quals = j.Quals
	}
	return cp
}

func (j *Join) renderDefault(ctx *CmdContext) error {
	ctx.Out.WriteString(j.Kind.sql())
	ctx.Out.WriteString(" ")
	if err := RenderImpl(j.Table, ctx); err != nil {
		return err
	}
	ctx.Out.WriteString(" ON ")
	if j.Quals != nil {
		if err := RenderImpl(j.Quals, ctx); err != nil {
			return err
		}
	}
	return nil
}

// JoinList is a JoinList node: a sequence of Joins, each rendered with
// a leading space to separate it from the preceding clause.
type JoinList struct {
	Items []*Join
}

func (l *JoinList) Tag() Tag { return TagJoinList }

func (l *JoinList) Children() []Node {
	out := make([]Node, len(l.Items))
	for i, j := range l.Items {
		out[i] = j
	}
	return out
}

func (l *JoinList) Clone(deep bool) Node {
	cp := &JoinList{}
	if deep {
		cp.Items = cloneChildrenAs[*Join](l)
	}
	return cp
}

func (l *JoinList) renderDefault(ctx *CmdContext) error {
	for _, j := range l.Items {
		ctx.Out.WriteString(" ")
		if err := RenderImpl(j, ctx); err != nil {
			return err
		}
	}
	return nil
}
