package ctx

import (
	"github.com/google/uuid"

	"github.com/kgearhart/vh/internal/catalog"
	"github.com/kgearhart/vh/internal/shard"
	"github.com/kgearhart/vh/internal/verr"
)

// CatalogContext is the per-goroutine root SPEC_FULL.md §6 describes:
// one BufferPool, one transaction id, one table catalog, one beacon
// catalog, and one error queue. A process may host many
// CatalogContexts; none of them share state with each other.
type CatalogContext struct {
	id uuid.UUID

	Buffers *BufferPool
	Tables  *catalog.Catalog
	Beacons *shard.Catalog
	Errors  *verr.ErrorQueue
}

// Option configures a CatalogContext at construction.
type Option func(*CatalogContext)

// WithErrorHistory bounds how many past verr.Entry values the
// context's ErrorQueue retains (see verr.NewErrorQueue).
func WithErrorHistory(cap int) Option {
	return func(c *CatalogContext) {
		c.Errors = verr.NewErrorQueue(cap)
	}
}

// New constructs a CatalogContext with a fresh instance id, an empty
// BufferPool stamped with xid, and empty table/beacon catalogs.
func New(xid uint16, opts ...Option) *CatalogContext {
	c := &CatalogContext{
		id:      uuid.New(),
		Buffers: NewBufferPool(xid),
		Tables:  catalog.NewCatalog(),
		Beacons: shard.NewCatalog(),
		Errors:  verr.NewErrorQueue(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns this context's process-unique instance id, useful for
// correlating log lines and error-queue entries back to the
// CatalogContext that produced them when a process hosts several.
func (c *CatalogContext) ID() uuid.UUID { return c.id }
