package heap

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/golang/groupcache/lru"

	"github.com/kgearhart/vh/internal/verr"
)

// BlockNo identifies one page-sized block within a HeapBuffer
// (spec.md §6's BufferBlockNo).
type BlockNo = uint32

// FlushFunc persists a dirty evicted page; wired to internal/backend
// when a HeapBuffer is attached to a real back end. A nil FlushFunc
// means evicted dirty pages are simply dropped (acceptable for the
// in-memory demonstration paths this module ships, e.g. cmd/vhsql).
type FlushFunc func(blockNo BlockNo, page *Page) error

// LoadFunc re-materializes a block that the working set has evicted.
// A nil LoadFunc means an evicted block can never be fetched again.
type LoadFunc func(blockNo BlockNo) (*Page, error)

// Buffer is a HeapBuffer: the block table plus a bounded working set
// of resident Pages (spec.md §4.4). Pages beyond the configured
// capacity are evicted LRU-first, flushing dirty ones through
// FlushFunc and dropping clean ones; a subsequent fetch re-admits the
// block through LoadFunc if one is configured.
//
// Thread Safety: a Buffer serializes all access behind one mutex. It
// is intended to be owned by a single ctx.CatalogContext and not
// shared across goroutines, matching this module's no-cross-context-
// sharing rule (SPEC_FULL.md §6); the mutex exists to make that an
// enforced invariant rather than an assumed one.
type Buffer struct {
	mu sync.Mutex

	idx         uint8
	xid         uint16
	allocFactor uint16

	blocks  map[BlockNo]*Page
	working *lru.Cache
	nblocks BlockNo
	current BlockNo
	hasCur  bool

	Flush FlushFunc
	Load  LoadFunc
}

// NewBuffer constructs a Buffer. capacity bounds the number of pages
// kept resident in memory at once before LRU eviction kicks in;
// allocFactor is how many fresh pages are preallocated at a time when
// the current block runs out of space (vh_hb_prealloc).
func NewBuffer(idx uint8, xid uint16, allocFactor uint16, capacity int) *Buffer {
	if allocFactor == 0 {
		allocFactor = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	hb := &Buffer{
		idx:         idx,
		xid:         xid,
		allocFactor: allocFactor,
		blocks:      make(map[BlockNo]*Page),
	}
	hb.working = lru.New(capacity)
	hb.working.OnEvicted = func(key lru.Key, _ interface{}) {
		blockNo := key.(BlockNo)
		page, ok := hb.blocks[blockNo]
		if !ok {
			return
		}
		if page.IsDirty() && hb.Flush != nil {
			_ = hb.Flush(blockNo, page)
		}
		delete(hb.blocks, blockNo)
	}
	return hb
}

// prealloc allocates n fresh pages (vh_hb_prealloc), admitting each
// into the working set, and returns the block number of the first one
// allocated.
func (hb *Buffer) prealloc(n uint16) BlockNo {
	first := hb.nblocks
	for i := uint16(0); i < n; i++ {
		blockNo := hb.nblocks
		hb.nblocks++
		page := NewPage()
		hb.blocks[blockNo] = page
		hb.working.Add(blockNo, struct{}{})
	}
	return first
}

// FetchPage returns the resident Page for blockNo, re-admitting it
// through Load if it has been evicted.
func (hb *Buffer) FetchPage(blockNo BlockNo) (*Page, error) {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	return hb.fetchPageLocked(blockNo)
}

func (hb *Buffer) fetchPageLocked(blockNo BlockNo) (*Page, error) {
	if page, ok := hb.blocks[blockNo]; ok {
		hb.working.Add(blockNo, struct{}{})
		return page, nil
	}
	if hb.Load == nil {
		return nil, verr.New(verr.KindBackendError, "block %d is not resident and no loader is configured", blockNo)
	}
	page, err := hb.Load(blockNo)
	if err != nil {
		return nil, err
	}
	hb.blocks[blockNo] = page
	hb.working.Add(blockNo, struct{}{})
	return page, nil
}

// AllocHT allocates a new HeapTuple of shape td carrying data, the Go
// form of vh_hb_allocht: find room in the current block, spilling into
// a freshly preallocated block when it's full, and form the resulting
// TuplePtr.
func (hb *Buffer) AllocHT(td *TupleDef, data []byte) (TuplePtr, error) {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	if !hb.hasCur {
		hb.current = hb.prealloc(hb.allocFactor)
		hb.hasCur = true
	}

	page, err := hb.fetchPageLocked(hb.current)
	if err != nil {
		return Invalid, err
	}
	itemNo, err := page.InsertTuple(data)
	if err == nil {
		return FormTuplePtr(hb.current, hb.xid, hb.idx, itemNo), nil
	}

	// The current block's directory and tuple area may only be
	// fragmented by earlier frees rather than genuinely full; compact
	// before giving up on it and spilling into a fresh block.
	page.CollapseEmpty()
	itemNo, err = page.InsertTuple(data)
	if err == nil {
		return FormTuplePtr(hb.current, hb.xid, hb.idx, itemNo), nil
	}

	hb.current = hb.prealloc(hb.allocFactor)
	page, err = hb.fetchPageLocked(hb.current)
	if err != nil {
		return Invalid, err
	}
	itemNo, err = page.InsertTuple(data)
	if err != nil {
		return Invalid, err
	}
	return FormTuplePtr(hb.current, hb.xid, hb.idx, itemNo), nil
}

// Free releases the slot a TuplePtr addresses and immediately passes
// the page through compaction (vh_hb_free), so the freed bytes are
// reclaimed into freespace rather than left as an unusable hole.
func (hb *Buffer) Free(htp TuplePtr) error {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	page, err := hb.fetchPageLocked(htp.BlockNo())
	if err != nil {
		return err
	}
	if err := page.FreeTuple(htp.ItemNo()); err != nil {
		return err
	}
	page.CollapseEmpty()
	return nil
}

// Get returns the raw bytes a TuplePtr addresses.
func (hb *Buffer) Get(htp TuplePtr) ([]byte, error) {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	page, err := hb.fetchPageLocked(htp.BlockNo())
	if err != nil {
		return nil, err
	}
	return page.GetTuple(htp.ItemNo())
}

// Idx reports this Buffer's HeapBufferNo (its slot in the owning
// ctx.BufferPool's table; spec.md §6's HeapBufferNo).
func (hb *Buffer) Idx() uint8 { return hb.idx }

// Stats is a lightweight diagnostic snapshot, the Go form of
// vh_hb_printstats.
type Stats struct {
	NBlocks  BlockNo
	Resident int
}

// PrintStats returns a Stats snapshot (vh_hb_printstats).
func (hb *Buffer) PrintStats() Stats {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	return Stats{NBlocks: hb.nblocks, Resident: len(hb.blocks)}
}

// String renders a Stats snapshot the way an operator would want it
// logged: resident page count alongside its approximate footprint in
// bytes, rather than a raw block count that needs PageSize multiplied
// out by hand.
func (s Stats) String() string {
	return fmt.Sprintf("%s blocks resident (~%s), %s blocks allocated",
		humanize.Comma(int64(s.Resident)),
		humanize.Bytes(uint64(s.Resident)*uint64(PageSize)),
		humanize.Comma(int64(s.NBlocks)))
}

// AllocTuple allocates a new Tuple of shape td, initialized from data
// (which must be exactly td.HeapSize bytes — zero-fill the caller's
// buffer to represent an all-null row), and returns it already bound
// to its freshly formed TuplePtr (vh_hb_allocht).
func (hb *Buffer) AllocTuple(td *TupleDef, data []byte) (*Tuple, error) {
	if uint32(len(data)) != td.HeapSize {
		return nil, verr.New(verr.KindSchemaConflict, "tuple payload is %d bytes, definition expects %d", len(data), td.HeapSize)
	}
	ptr, err := hb.AllocHT(td, data)
	if err != nil {
		return nil, err
	}
	return newTuple(td, ptr, data), nil
}

// FetchTuple loads the bytes a TuplePtr addresses and wraps them as a
// Tuple typed by td (vh_hb_heaptuple).
func (hb *Buffer) FetchTuple(td *TupleDef, ptr TuplePtr) (*Tuple, error) {
	raw, err := hb.Get(ptr)
	if err != nil {
		return nil, err
	}
	return newTuple(td, ptr, raw), nil
}

// CommitShadow writes t's mutable shadow (if any) out as a brand-new
// Tuple version and records the resulting TuplePtr as t's CrossLink,
// per this module's copy-on-commit resolution of the mutable-shadow
// Open Question. A Tuple with no shadow is a no-op that returns its
// existing TuplePtr.
func (hb *Buffer) CommitShadow(t *Tuple) (TuplePtr, error) {
	if t.shadow == nil {
		return t.ptr, nil
	}
	newPtr, err := hb.AllocHT(t.td, t.shadow)
	if err != nil {
		return Invalid, err
	}
	t.crossLink = newPtr
	t.base = t.shadow
	t.shadow = nil
	t.ptr = newPtr
	return newPtr, nil
}
