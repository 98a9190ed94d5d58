package node

import (
	"fmt"
	"strings"

	"github.com/kgearhart/vh/internal/catalog"
	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/typevar"
	"github.com/kgearhart/vh/internal/verr"
)

// QueryAction is a NodeQuery's action: which of the handful of SQL
// statement shapes a Query (or DDLCommand) node renders. Grounded on
// NodeQuery.h's QueryAction enum; Select/Insert/Update/Delete/BulkInsert
// all render under TagQuery, while CreateTable renders under its own
// TagDDLCommand since the original gives DDL its own node family
// instead of folding it into NodeQuery.
type QueryAction int

const (
	ActionSelect QueryAction = iota
	ActionInsert
	ActionBulkInsert
	ActionUpdate
	ActionDelete
	ActionDDLCreateTable
)

func (a QueryAction) String() string {
	switch a {
	case ActionSelect:
		return "Select"
	case ActionInsert:
		return "Insert"
	case ActionBulkInsert:
		return "BulkInsert"
	case ActionUpdate:
		return "Update"
	case ActionDelete:
		return "Delete"
	case ActionDDLCreateTable:
		return "DDLCreateTable"
	default:
		return "Invalid"
	}
}

// Select is a Query node with ActionSelect: "SELECT <fields|*> FROM
// <from> [joins] [WHERE <quals>] [ORDER BY <orderby>] [LIMIT n [OFFSET
// n]]" (spec.md §4.6, grounded on NodeQuerySelect.c's
// nsql_qsel_to_sql_cmd). A nil or empty Fields renders "*".
type Select struct {
	Fields  *FieldList
	From    *FromList
	Joins   *JoinList
	Where   *QualList
	OrderBy *OrderByList

	// Limit <= 0 omits the LIMIT clause; Offset is only rendered when
	// Limit is present, mirroring the original's "offset needs a limit
	// to offset from" contract.
	Limit  int
	Offset int
}

func (s *Select) Tag() Tag { return TagQuery }

func (s *Select) Action() QueryAction { return ActionSelect }

func (s *Select) Children() []Node {
	var kids []Node
	if s.Fields != nil {
		kids = append(kids, s.Fields)
	}
	if s.From != nil {
		kids = append(kids, s.From)
	}
	if s.Joins != nil {
		kids = append(kids, s.Joins)
	}
	if s.Where != nil {
		kids = append(kids, s.Where)
	}
	if s.OrderBy != nil {
		kids = append(kids, s.OrderBy)
	}
	return kids
}

func (s *Select) Clone(deep bool) Node {
	cp := &Select{Limit: s.Limit, Offset: s.Offset}
	if !deep {
		cp.Fields, cp.From, cp.Joins, cp.Where, cp.OrderBy = s.Fields, s.From, s.Joins, s.Where, s.OrderBy
		return cp
	}
	if s.Fields != nil {
		cp.Fields = s.Fields.Clone(true).(*FieldList)
	}
	if s.From != nil {
		cp.From = s.From.Clone(true).(*FromList)
	}
	if s.Joins != nil {
		cp.Joins = s.Joins.Clone(true).(*JoinList)
	}
	if s.Where != nil {
		cp.Where = s.Where.Clone(true).(*QualList)
	}
	if s.OrderBy != nil {
		cp.OrderBy = s.OrderBy.Clone(true).(*OrderByList)
	}
	return cp
}

func (s *Select) renderDefault(ctx *CmdContext) error {
	ctx.Out.WriteString("SELECT ")
	if s.Fields == nil || len(s.Fields.Items) == 0 {
		ctx.Out.WriteString("*")
	} else if err := RenderImpl(s.Fields, ctx); err != nil {
		return err
	}

	if s.From != nil && len(s.From.Items) > 0 {
		ctx.Out.WriteString(" FROM ")
		if err := RenderImpl(s.From, ctx); err != nil {
			return err
		}
	}

	if s.Joins != nil && len(s.Joins.Items) > 0 {
		if err := RenderImpl(s.Joins, ctx); err != nil {
			return err
		}
	}

	if s.Where != nil && len(s.Where.Items) > 0 {
		ctx.Out.WriteString(" WHERE ")
		if err := RenderImpl(s.Where, ctx); err != nil {
			return err
		}
	}

	if s.OrderBy != nil && len(s.OrderBy.Items) > 0 {
		ctx.Out.WriteString(" ORDER BY ")
		if err := RenderImpl(s.OrderBy, ctx); err != nil {
			return err
		}
	}

	if s.Limit > 0 {
		fmt.Fprintf(&ctx.Out, " LIMIT %d", s.Limit)
		if s.Offset > 0 {
			fmt.Fprintf(&ctx.Out, " OFFSET %d", s.Offset)
		}
	}
	return nil
}

// Insert is a Query node with ActionInsert or ActionBulkInsert:
// "INSERT INTO <table> (fields) VALUES (params), (params)..." (spec.md
// §4.6). When Fields is empty, the target table version's fields are
// emitted in their stored order (PrepTup.c's "no explicit field list
// means every leading-version column" convention); DefVer must then be
// set.
type Insert struct {
	Table  *From
	DefVer *catalog.DefVer
	Fields []string
	Rows   [][]typevar.Value
}

func (i *Insert) Tag() Tag { return TagQuery }

func (i *Insert) Action() QueryAction {
	if len(i.Rows) > 1 {
		return ActionBulkInsert
	}
	return ActionInsert
}

func (i *Insert) Children() []Node { return []Node{i.Table} }

func (i *Insert) Clone(deep bool) Node {
	cp := &Insert{DefVer: i.DefVer, Fields: append([]string(nil), i.Fields...), Rows: i.Rows}
	if deep {
		cp.Table = i.Table.Clone(true).(*From)
	} else {
		cp.Table = i.Table
	}
	return cp
}

func (i *Insert) fieldNames() ([]string, error) {
	if len(i.Fields) > 0 {
		return i.Fields, nil
	}
	if i.DefVer == nil {
		return nil, verr.New(verr.KindQueryMalformed, "insert has no explicit fields and no table version to derive them from")
	}
	fields := i.DefVer.TupleDef.Fields
	names := make([]string, len(fields))
	for idx, f := range fields {
		names[idx] = f.Name
	}
	return names, nil
}

func (i *Insert) renderDefault(ctx *CmdContext) error {
	names, err := i.fieldNames()
	if err != nil {
		return err
	}
	if len(i.Rows) == 0 {
		return verr.New(verr.KindQueryMalformed, "insert has no rows")
	}

	ctx.Out.WriteString("INSERT INTO ")
	if err := RenderDefault(i.Table, ctx); err != nil {
		return err
	}
	ctx.Out.WriteString(" (")
	ctx.Out.WriteString(strings.Join(names, ", "))
	ctx.Out.WriteString(") VALUES ")

	for ri, row := range i.Rows {
		if len(row) != len(names) {
			return verr.New(verr.KindQueryMalformed, "insert row %d has %d values, want %d", ri, len(row), len(names))
		}
		if ri > 0 {
			ctx.Out.WriteString(", ")
		}
		ctx.Out.WriteString("(")
		for ci, v := range row {
			if ci > 0 {
				ctx.Out.WriteString(",")
			}
			ctx.ParamPlaceholder(ctx, v)
		}
		ctx.Out.WriteString(")")
	}
	return nil
}

// SetClause is one "field = value" assignment inside an Update's SET
// list.
type SetClause struct {
	Field string
	Value typevar.Value
}

// LockMode is the versioning/locking axis esg_upd.c documents as
// orthogonal to an update's tuple-count/PK-shape strategy (spec.md
// §4.7: "Update strategies scale versioning and locking orthogonally
// to those same flows"). It layers onto whichever tuple-count strategy
// the planner picks rather than selecting one itself.
type LockMode int

const (
	// LockNone issues the UPDATE directly with no preceding read.
	LockNone LockMode = iota
	// LockRow prefixes the UPDATE with a back-end row lock (esg_upd.c's
	// "SELECT ... FOR UPDATE" step) so no concurrent writer can modify
	// the same rows in between.
	LockRow
	// LockVersion prefixes the UPDATE with a row lock and compares a
	// version column against the value the caller last read before
	// applying the UPDATE, so a stale write is rejected rather than
	// silently overwriting a concurrent change.
	LockVersion
)

// Update is a Query node with ActionUpdate: "UPDATE <table> SET f = ?
// [, ...] [WHERE <quals>]" (spec.md §4.6).
//
// Targets optionally names the exact rows this statement must touch,
// already fetched by the caller (the Go analogue of esg_upd_generate's
// HeapTuplePtr list). When set, the planner dispatches by Targets'
// length and the target table's primary-key shape per spec.md §4.7's
// single/multiple/bulk strategies rather than running Where unscoped
// against every shard the table spans. Lock is orthogonal to that
// dispatch and applies to whichever strategy is picked.
type Update struct {
	Table   *From
	Sets    []SetClause
	Where   *QualList
	Targets []*heap.Tuple
	Lock    LockMode
}

func (u *Update) Tag() Tag { return TagQuery }

func (u *Update) Action() QueryAction { return ActionUpdate }

func (u *Update) Children() []Node {
	kids := []Node{u.Table}
	if u.Where != nil {
		kids = append(kids, u.Where)
	}
	return kids
}

func (u *Update) Clone(deep bool) Node {
	cp := &Update{
		Sets:    append([]SetClause(nil), u.Sets...),
		Targets: append([]*heap.Tuple(nil), u.Targets...),
		Lock:    u.Lock,
	}
	if !deep {
		cp.Table, cp.Where = u.Table, u.Where
		return cp
	}
	cp.Table = u.Table.Clone(true).(*From)
	if u.Where != nil {
		cp.Where = u.Where.Clone(true).(*QualList)
	}
	return cp
}

func (u *Update) renderDefault(ctx *CmdContext) error {
	if len(u.Sets) == 0 {
		return verr.New(verr.KindQueryMalformed, "update has no set clauses")
	}

	ctx.Out.WriteString("UPDATE ")
	if err := RenderDefault(u.Table, ctx); err != nil {
		return err
	}
	ctx.Out.WriteString(" SET ")
	for i, s := range u.Sets {
		if i > 0 {
			ctx.Out.WriteString(", ")
		}
		ctx.Out.WriteString(s.Field)
		ctx.Out.WriteString(" = ")
		ctx.ParamPlaceholder(ctx, s.Value)
	}

	if u.Where != nil && len(u.Where.Items) > 0 {
		ctx.Out.WriteString(" WHERE ")
		if err := RenderImpl(u.Where, ctx); err != nil {
			return err
		}
	}
	return nil
}

// Delete is a Query node with ActionDelete: "DELETE FROM <table>
// [WHERE <quals>]" (spec.md §4.6).
//
// Targets optionally names the exact rows this statement must remove,
// already fetched by the caller (the Go analogue of esg_del_generate's
// HeapTuplePtr list). When set, the planner dispatches by Targets'
// length and the target table's primary-key shape per spec.md §4.7's
// single/multiple/bulk strategies instead of running Where unscoped
// against every shard the table spans.
type Delete struct {
	Table   *From
	Where   *QualList
	Targets []*heap.Tuple
}

func (d *Delete) Tag() Tag { return TagQuery }

func (d *Delete) Action() QueryAction { return ActionDelete }

func (d *Delete) Children() []Node {
	kids := []Node{d.Table}
	if d.Where != nil {
		kids = append(kids, d.Where)
	}
	return kids
}

func (d *Delete) Clone(deep bool) Node {
	cp := &Delete{Targets: append([]*heap.Tuple(nil), d.Targets...)}
	if !deep {
		cp.Table, cp.Where = d.Table, d.Where
		return cp
	}
	cp.Table = d.Table.Clone(true).(*From)
	if d.Where != nil {
		cp.Where = d.Where.Clone(true).(*QualList)
	}
	return cp
}

func (d *Delete) renderDefault(ctx *CmdContext) error {
	ctx.Out.WriteString("DELETE FROM ")
	if err := RenderDefault(d.Table, ctx); err != nil {
		return err
	}
	if d.Where != nil && len(d.Where.Items) > 0 {
		ctx.Out.WriteString(" WHERE ")
		if err := RenderImpl(d.Where, ctx); err != nil {
			return err
		}
	}
	return nil
}

// ColumnDef is one column in a CreateTable's field list: a name plus a
// back-end-resolved native type name (spec.md §4.6: "ask the back end
// for its native name for the type stack"; NativeType is filled in by
// whoever builds the CreateTable node from a catalog DefVer, since only
// a back end — internal/backend, not this package — knows its dialect's
// type names).
type ColumnDef struct {
	Name       string
	NativeType string
}

// CreateTable is a DDLCommand node: "CREATE TABLE <table> ( <field>
// <type>[, ...] )" (spec.md §4.6, grounded on the original's
// NodeCreateTable.c equivalent DDL rendering).
type CreateTable struct {
	Table   *From
	Columns []ColumnDef
}

func (c *CreateTable) Tag() Tag { return TagDDLCommand }

func (c *CreateTable) Action() QueryAction { return ActionDDLCreateTable }

func (c *CreateTable) Children() []Node { return []Node{c.Table} }

func (c *CreateTable) Clone(deep bool) Node {
	cp := &CreateTable{Columns: append([]ColumnDef(nil), c.Columns...)}
	if deep {
		cp.Table = c.Table.Clone(true).(*From)
	} else {
		cp.Table = c.Table
	}
	return cp
}

func (c *CreateTable) renderDefault(ctx *CmdContext) error {
	if len(c.Columns) == 0 {
		return verr.New(verr.KindQueryMalformed, "create table has no columns")
	}
	ctx.Out.WriteString("CREATE TABLE ")
	if err := RenderDefault(c.Table, ctx); err != nil {
		return err
	}
	ctx.Out.WriteString(" (")
	for i, col := range c.Columns {
		if i > 0 {
			ctx.Out.WriteString(", ")
		}
		ctx.Out.WriteString(col.Name)
		ctx.Out.WriteString(" ")
		ctx.Out.WriteString(col.NativeType)
	}
	ctx.Out.WriteString(")")
	return nil
}

// With is a With node: a supplemented CTE wrapper not present in the
// original node set (SPEC_FULL.md §5.6) — "WITH <alias> AS (<query>)
// <body>". Body is any query node (typically a Select) that may
// reference Alias as though it were an ordinary table.
type With struct {
	Alias string
	CTE   Node
	Body  Node
}

func (w *With) Tag() Tag { return TagWith }

func (w *With) Children() []Node { return []Node{w.CTE, w.Body} }

func (w *With) Clone(deep bool) Node {
	cp := &With{Alias: w.Alias}
	if !deep {
		cp.CTE, cp.Body = w.CTE, w.Body
		return cp
	}
	cp.CTE = w.CTE.Clone(true)
	cp.Body = w.Body.Clone(true)
	return cp
}

func (w *With) renderDefault(ctx *CmdContext) error {
	ctx.Out.WriteString("WITH ")
	ctx.Out.WriteString(w.Alias)
	ctx.Out.WriteString(" AS (")
	if err := RenderImpl(w.CTE, ctx); err != nil {
		return err
	}
	ctx.Out.WriteString(") ")
	return RenderImpl(w.Body, ctx)
}
