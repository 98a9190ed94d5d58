package catalog

import (
	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/shard"
	"github.com/kgearhart/vh/internal/verr"
)

// DefVer is a TableDefVer: one concrete, named shape a table has had
// over its lifetime. Versions form a doubly-linked ring via Prior/Next
// so a table's evolution history stays walkable in either direction
// without the TableDef itself needing to track every version directly
// (spec.md §4.5).
type DefVer struct {
	Def   *Def
	Name  string
	VerNo int32

	Prior *DefVer
	Next  *DefVer

	TupleDef *heap.TupleDef

	KeyPrimary Key
	KeyLogical Key
	Rels       []*Rel
}

// FieldByName resolves a field by name within this version's tuple
// shape (vh_tdv_tf_name).
func (v *DefVer) FieldByName(name string) (*heap.Field, error) {
	return v.TupleDef.FieldByName(name)
}

// AddRel appends rel to this version's relation list.
func (v *DefVer) AddRel(rel *Rel) { v.Rels = append(v.Rels, rel) }

// Rel finds an existing relation from this version to outer, if one
// has already been established (vh_tdr_tdv_get).
func (v *DefVer) Rel(outer *DefVer) (*Rel, error) {
	for _, r := range v.Rels {
		if r.Outer == outer {
			return r, nil
		}
	}
	return nil, verr.New(verr.KindSchemaConflict, "no relation from %q to %q", v.Name, outer.Name)
}

// Def is a TableDef: a schema-qualified table name, its routing
// Beacon, and either a single DefVer or a versioning ring with a
// leading (current) version (spec.md §4.5's has_versions union).
type Def struct {
	Catalog *Catalog
	Beacon  shard.Beacon

	Schema string
	Table  string

	hasVersions bool
	leading     *DefVer
	byName      map[string]*DefVer
	single      *DefVer
}

// NewDef constructs a Def. withVersions selects whether this table
// tracks a full versioning ring (true) or only ever has one DefVer
// (false) — tables that never undergo a schema migration in their
// lifetime (e.g. pure lookup tables) can skip the ring bookkeeping
// entirely, matching the original's has_versions distinction.
func NewDef(schema, table string, withVersions bool) *Def {
	d := &Def{Schema: schema, Table: table, hasVersions: withVersions}
	if withVersions {
		d.byName = make(map[string]*DefVer)
	}
	return d
}

// FQName returns "schema.table", or just "table" if Schema is empty
// (vh_td_copyfqname).
func (d *Def) FQName() string {
	if d.Schema == "" {
		return d.Table
	}
	return d.Schema + "." + d.Table
}

// AddVersion creates a new DefVer named name with the given field
// layout, links it into the versioning ring, and optionally makes it
// the leading version (vh_tdv_create).
func (d *Def) AddVersion(name string, fields []heap.Field, makeLeading bool) (*DefVer, error) {
	td, err := heap.NewTupleDef(fields)
	if err != nil {
		return nil, err
	}
	v := &DefVer{Def: d, Name: name, TupleDef: td}

	if !d.hasVersions {
		if d.single != nil {
			return nil, verr.New(verr.KindSchemaConflict, "table %q was created without versioning support", d.FQName())
		}
		d.single = v
		return v, nil
	}

	if existing, ok := d.byName[name]; ok {
		v.VerNo = existing.VerNo + 1
	}
	d.byName[name] = v

	if d.leading != nil {
		v.Prior = d.leading
		v.Next = d.leading.Next
		d.leading.Next = v
		if v.Next != nil {
			v.Next.Prior = v
		}
	} else {
		v.Prior = v
		v.Next = v
	}

	if makeLeading || d.leading == nil {
		d.leading = v
	}
	return v, nil
}

// Lead returns the leading (current) DefVer (vh_td_tdv_lead).
func (d *Def) Lead() (*DefVer, error) {
	if d.hasVersions {
		if d.leading == nil {
			return nil, verr.New(verr.KindSchemaConflict, "table %q has no versions", d.FQName())
		}
		return d.leading, nil
	}
	if d.single == nil {
		return nil, verr.New(verr.KindSchemaConflict, "table %q has not been initialized", d.FQName())
	}
	return d.single, nil
}

// Version looks up a named DefVer (vh_td_tdv_ver). Only valid for
// tables created withVersions=true.
func (d *Def) Version(name string) (*DefVer, error) {
	if !d.hasVersions {
		return nil, verr.New(verr.KindSchemaConflict, "table %q was created without versioning support", d.FQName())
	}
	v, ok := d.byName[name]
	if !ok {
		return nil, verr.New(verr.KindSchemaConflict, "table %q has no version named %q", d.FQName(), name)
	}
	return v, nil
}

// TupleDef returns the leading version's tuple shape directly
// (vh_td_htd).
func (d *Def) TupleDef() (*heap.TupleDef, error) {
	v, err := d.Lead()
	if err != nil {
		return nil, err
	}
	return v.TupleDef, nil
}
