package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgearhart/vh/internal/typesys"
	"github.com/kgearhart/vh/internal/typevar"
)

func TestTuplePtrRoundTrip(t *testing.T) {
	p := FormTuplePtr(123456, 77, 4, 9)
	assert.Equal(t, uint32(123456), p.BlockNo())
	assert.Equal(t, uint16(77), p.Xid())
	assert.Equal(t, uint8(4), p.BufferNo())
	assert.Equal(t, uint8(9), p.ItemNo())
	assert.True(t, p.IsValid())
	assert.False(t, Invalid.IsValid())
}

func TestNewTupleDefAlignsFields(t *testing.T) {
	td, err := NewTupleDef([]Field{
		{Name: "flag", TypeID: typesys.TypeBool, Size: 1, MaxAlign: 1},
		{Name: "amount", TypeID: typesys.TypeInt64, Size: 8, MaxAlign: 8},
	})
	require.NoError(t, err)

	assert.Equal(t, uint32(0), td.Fields[0].Offset)
	assert.Equal(t, uint32(8), td.Fields[1].Offset, "int64 field must be 8-byte aligned")
	assert.Equal(t, uint32(16), td.TupSize)
}

func TestNewTupleDefRejectsEmpty(t *testing.T) {
	_, err := NewTupleDef(nil)
	require.Error(t, err)
}

func TestPageInsertGetRoundTrip(t *testing.T) {
	p := NewPage()
	itemNo, err := p.InsertTuple([]byte("hello"))
	require.NoError(t, err)

	got, err := p.GetTuple(itemNo)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.True(t, p.IsDirty())
}

func TestPageInsertFailsWhenFull(t *testing.T) {
	p := NewPage()
	big := make([]byte, PageSize)
	_, err := p.InsertTuple(big)
	require.Error(t, err)
}

func TestPageFreeThenCollapse(t *testing.T) {
	p := NewPage()
	a, err := p.InsertTuple([]byte("aaaa"))
	require.NoError(t, err)
	b, err := p.InsertTuple([]byte("bbbbbb"))
	require.NoError(t, err)

	require.NoError(t, p.FreeTuple(a))
	p.CollapseEmpty()

	_, err = p.GetTuple(a)
	require.Error(t, err)

	got, err := p.GetTuple(b)
	require.NoError(t, err)
	assert.Equal(t, "bbbbbb", string(got))
}

func TestPageUpdateTupleInPlace(t *testing.T) {
	p := NewPage()
	slot, err := p.InsertTuple([]byte("1234"))
	require.NoError(t, err)

	newSlot, err := p.UpdateTuple(slot, []byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, slot, newSlot)

	got, err := p.GetTuple(slot)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(got))
}

func TestBufferAllocAndFetch(t *testing.T) {
	hb := NewBuffer(1, 1, 4, 8)
	td, err := NewTupleDef([]Field{{Name: "v", TypeID: typesys.TypeInt32, Size: 4, MaxAlign: 4}})
	require.NoError(t, err)

	data := make([]byte, td.HeapSize)
	tup, err := hb.AllocTuple(td, data)
	require.NoError(t, err)
	assert.True(t, tup.Ptr().IsValid())

	fetched, err := hb.FetchTuple(td, tup.Ptr())
	require.NoError(t, err)
	assert.Equal(t, tup.Bytes(), fetched.Bytes())
}

func TestBufferFreeReclaimsSpaceViaCollapse(t *testing.T) {
	hb := NewBuffer(1, 1, 1, 8)
	td, err := NewTupleDef([]Field{{Name: "v", TypeID: typesys.TypeInt64, Size: 8, MaxAlign: 8}})
	require.NoError(t, err)

	data := make([]byte, td.HeapSize)
	tup, err := hb.AllocTuple(td, data)
	require.NoError(t, err)

	page, err := hb.FetchPage(tup.Ptr().BlockNo())
	require.NoError(t, err)
	freeBefore := page.Freespace()

	require.NoError(t, hb.Free(tup.Ptr()))

	assert.Greater(t, page.Freespace(), freeBefore, "freeing a tuple must return its bytes to freespace via compaction")

	_, err = hb.Get(tup.Ptr())
	require.Error(t, err, "a freed item must no longer be fetchable")
}

func TestBufferAllocCompactsCurrentPageBeforeSpilling(t *testing.T) {
	hb := NewBuffer(1, 1, 1, 4)
	td, err := NewTupleDef([]Field{{Name: "v", TypeID: typesys.TypeInt64, Size: 8, MaxAlign: 8}})
	require.NoError(t, err)
	// 64-byte payloads fill the page by freespace (120 items) before
	// its 256-slot item limit is reached.
	data := make([]byte, 64)

	block := hb.prealloc(1)
	hb.current = block
	hb.hasCur = true
	page := hb.blocks[block]

	// Fill the page, then free every item directly at the page level
	// (bypassing Buffer.Free, which would already compact) so the page
	// is fragmented — full by freespace accounting, but entirely empty
	// of live tuples — without AllocHT having triggered a compaction
	// yet.
	var itemNos []uint8
	for {
		itemNo, err := page.InsertTuple(data)
		if err != nil {
			break
		}
		itemNos = append(itemNos, itemNo)
	}
	require.NotEmpty(t, itemNos)
	for _, itemNo := range itemNos {
		require.NoError(t, page.FreeTuple(itemNo))
	}

	ptr, err := hb.AllocHT(td, data)
	require.NoError(t, err)
	assert.Equal(t, block, ptr.BlockNo(), "a fragmented current page must be compacted and reused before spilling into a new block")
}

func TestBufferStatsStringReportsResidentFootprint(t *testing.T) {
	hb := NewBuffer(1, 1, 4, 8)
	td, err := NewTupleDef([]Field{{Name: "v", TypeID: typesys.TypeInt32, Size: 4, MaxAlign: 4}})
	require.NoError(t, err)
	_, err = hb.AllocTuple(td, make([]byte, td.HeapSize))
	require.NoError(t, err)

	s := hb.PrintStats().String()
	assert.Contains(t, s, "blocks resident")
	assert.Contains(t, s, "blocks allocated")
}

func TestBufferSpillsIntoNewBlockWhenFull(t *testing.T) {
	hb := NewBuffer(1, 1, 1, 4)
	td, err := NewTupleDef([]Field{{Name: "v", TypeID: typesys.TypeInt64, Size: 8, MaxAlign: 8}})
	require.NoError(t, err)

	seen := map[uint32]bool{}
	for i := 0; i < 2000; i++ {
		data := make([]byte, td.HeapSize)
		ptr, err := hb.AllocHT(td, data)
		require.NoError(t, err)
		seen[ptr.BlockNo()] = true
	}
	assert.Greater(t, len(seen), 1, "inserting enough tuples must spill across multiple blocks")
}

func TestBufferEvictionFlushesDirtyPages(t *testing.T) {
	hb := NewBuffer(1, 1, 1, 1)
	flushed := make(map[BlockNo]bool)
	hb.Flush = func(blockNo BlockNo, page *Page) error {
		flushed[blockNo] = true
		return nil
	}
	hb.Load = func(blockNo BlockNo) (*Page, error) {
		return NewPage(), nil
	}

	block0 := hb.prealloc(1)
	_, err := hb.blocks[block0].InsertTuple([]byte("x"))
	require.NoError(t, err)
	assert.True(t, hb.blocks[block0].IsDirty())

	// Working-set capacity is 1: admitting a second block evicts the
	// first, flushing it since it is dirty.
	hb.prealloc(1)

	assert.True(t, flushed[block0], "single-capacity working set must flush the evicted dirty block")

	_, err = hb.FetchPage(block0)
	require.NoError(t, err, "Load must re-admit an evicted block")
}

func TestTupleFieldGetSetCreatesShadow(t *testing.T) {
	td, err := NewTupleDef([]Field{{Name: "v", TypeID: typesys.TypeInt32, Size: 4, MaxAlign: 4}})
	require.NoError(t, err)

	base := make([]byte, td.HeapSize)
	tup := newTuple(td, FormTuplePtr(1, 1, 1, 0), base)
	assert.False(t, tup.HasShadow())

	require.NoError(t, tup.SetField(0, typevar.NewInt32(typesys.StackOf(typesys.TypeInt32), 42)))
	assert.True(t, tup.HasShadow())

	got, err := tup.GetField(0)
	require.NoError(t, err)
	assert.Equal(t, int32(42), got.Int32())
}

func TestTupleCommitShadowCrossLinks(t *testing.T) {
	hb := NewBuffer(1, 1, 4, 8)
	td, err := NewTupleDef([]Field{{Name: "v", TypeID: typesys.TypeInt64, Size: 8, MaxAlign: 8}})
	require.NoError(t, err)

	data := make([]byte, td.HeapSize)
	tup, err := hb.AllocTuple(td, data)
	require.NoError(t, err)
	original := tup.Ptr()

	require.NoError(t, tup.SetField(0, typevar.NewInt64(typesys.StackOf(typesys.TypeInt64), 7)))
	newPtr, err := hb.CommitShadow(tup)
	require.NoError(t, err)

	assert.NotEqual(t, original, newPtr)
	assert.Equal(t, newPtr, tup.CrossLink())
	assert.False(t, tup.HasShadow())

	refetched, err := hb.FetchTuple(td, newPtr)
	require.NoError(t, err)
	v, err := refetched.GetField(0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Int64())
}

func TestFieldRefSatisfiesTypevarSlot(t *testing.T) {
	td, err := NewTupleDef([]Field{{Name: "s", TypeID: typesys.TypeString, Size: 16, MaxAlign: 8}})
	require.NoError(t, err)

	tup := newTuple(td, FormTuplePtr(1, 1, 1, 0), make([]byte, td.HeapSize))
	slot := typevar.NewSlot()
	slot.StoreFieldRef(tup.FieldRef(0))

	require.NoError(t, slot.Set(typevar.NewString(typesys.StackOf(typesys.TypeString), "abc")))
	v, err := slot.Get()
	require.NoError(t, err)
	assert.Equal(t, "abc", v.String())
}
