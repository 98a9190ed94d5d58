package catalog

import (
	"sync"

	"github.com/kgearhart/vh/internal/verr"
)

// Catalog is the TableCatalog: the process-wide registry of every
// Def known to the running engine, keyed by its fully-qualified name.
// Defs are registered and looked up by name here; Node trees and the
// planner then hold direct *DefVer pointers taken from those Defs.
//
// Thread Safety: Catalog serializes registration behind a RWMutex,
// allowing concurrent lookups once the table set has stabilized.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*Def
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*Def)}
}

// Register adds td to the catalog under its FQName, setting td.Catalog
// back to c. Registering a table whose FQName is already taken is a
// SchemaConflict.
func (c *Catalog) Register(td *Def) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := td.FQName()
	if _, exists := c.tables[name]; exists {
		return verr.New(verr.KindSchemaConflict, "table %q is already registered", name)
	}
	td.Catalog = c
	c.tables[name] = td
	return nil
}

// Lookup resolves a table by schema-qualified name. Passing an empty
// schema looks the table up as an unqualified name.
func (c *Catalog) Lookup(schema, table string) (*Def, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name := table
	if schema != "" {
		name = schema + "." + table
	}
	td, ok := c.tables[name]
	if !ok {
		return nil, verr.New(verr.KindSchemaConflict, "unknown table %q", name)
	}
	return td, nil
}

// Tables returns every registered Def. Order is unspecified.
func (c *Catalog) Tables() []*Def {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Def, 0, len(c.tables))
	for _, td := range c.tables {
		out = append(out, td)
	}
	return out
}

// TableNames returns every registered Def's FQName. Order is
// unspecified. This satisfies shard.SchemaSource, letting a Catalog be
// passed directly to shard.Catalog.LoadSchema.
func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.tables))
	for name := range c.tables {
		out = append(out, name)
	}
	return out
}
