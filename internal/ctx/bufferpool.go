// Package ctx implements SPEC_FULL.md §6's concurrency/resource root:
// CatalogContext, the per-goroutine owner of a BufferPool, the current
// transaction id, a table catalog, a shard-beacon catalog, and an
// error queue. Nothing in this module shares a Buffer, Def, or Beacon
// across two CatalogContexts — each is created from, and lives inside,
// exactly one.
//
// Grounded on spec.md's Design Notes ("Global mutable buffer array" →
// BufferPool owned by context) and original_source/src/io/buffer's
// vh_buffers[] global table, lifted here to a context-local field.
package ctx

import (
	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/verr"
)

// MaxBuffers bounds how many HeapBuffers a pool may hold at once,
// matching HeapTuplePtr's 8-bit BufferNo field (spec.md §6).
const MaxBuffers = 256

// BufferPool is the Go lift of vh_buffers[]: a context-local table of
// HeapBuffers, indexed by the same BufferNo a TuplePtr carries, so a
// handle resolves back to its owning Buffer without a global lookup.
//
// Thread Safety: BufferPool itself does no locking — it is owned by
// exactly one CatalogContext and is never touched from two goroutines
// at once, per this package's no-cross-context-sharing rule. Each
// individual heap.Buffer still serializes its own access.
type BufferPool struct {
	xid    uint16
	slots  [MaxBuffers]*heap.Buffer
	nslots int
}

// NewBufferPool constructs an empty pool stamped with the
// transaction id new Buffers allocate under.
func NewBufferPool(xid uint16) *BufferPool {
	return &BufferPool{xid: xid}
}

// New allocates a fresh heap.Buffer in the next free slot, the Go form
// of vh_hb_create's global-table registration step.
func (p *BufferPool) New(allocFactor uint16, capacity int) (*heap.Buffer, error) {
	if p.nslots >= MaxBuffers {
		return nil, verr.New(verr.KindOutOfBufferSpace, "buffer pool already holds the maximum of %d buffers", MaxBuffers)
	}
	idx := uint8(p.nslots)
	buf := heap.NewBuffer(idx, p.xid, allocFactor, capacity)
	p.slots[idx] = buf
	p.nslots++
	return buf, nil
}

// Get resolves a TuplePtr's BufferNo back to its owning Buffer
// (vh_hb_get).
func (p *BufferPool) Get(idx uint8) (*heap.Buffer, error) {
	buf := p.slots[idx]
	if buf == nil {
		return nil, verr.New(verr.KindInvalidHandle, "buffer slot %d has not been allocated", idx)
	}
	return buf, nil
}

// Xid returns the transaction id buffers in this pool were stamped
// with at allocation.
func (p *BufferPool) Xid() uint16 { return p.xid }
