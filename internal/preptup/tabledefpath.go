package preptup

import "github.com/kgearhart/vh/internal/verr"

// TableDefPath resolves a Def (and, if asked, its leading DefVer) by
// schema-qualified name, searching the Catalog a Context supplies
// (vh_sptd_create / vh_sptd_default). Unlike the original, which walks
// a FIFO/LIFO list of registered schemas and catalogs looking for the
// first match, this package resolves directly against whichever single
// Catalog the Context names — there is no multi-catalog fallback
// search.
type TableDefPath struct {
	schema  string
	table   string
	wantVer bool
}

// NewTableDefPath resolves to the named table's Def.
func NewTableDefPath(schema, table string) *TableDefPath {
	return &TableDefPath{schema: schema, table: table}
}

// NewTableDefVerPath resolves to the named table's leading DefVer
// (vh_sptdv_create).
func NewTableDefVerPath(schema, table string) *TableDefPath {
	return &TableDefPath{schema: schema, table: table, wantVer: true}
}

func (p *TableDefPath) Kind() Kind {
	if p.wantVer {
		return KindDefVer
	}
	return KindDef
}

func (p *TableDefPath) Search(ctx Context) (Result, error) {
	cat := ctx.Catalog
	if cat == nil {
		return Result{}, verr.New(verr.KindInvalidHandle, "table def search path requires a catalog in context")
	}

	schema, table := p.schema, p.table
	if schema == "" {
		schema = ctx.Schema
	}
	if table == "" {
		table = ctx.Table
	}

	def, err := cat.Lookup(schema, table)
	if err != nil {
		return Result{}, err
	}
	if !p.wantVer {
		return Result{Kind: KindDef, Def: def}, nil
	}

	v, err := def.Lead()
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindDefVer, Def: def, DefVer: v}, nil
}
