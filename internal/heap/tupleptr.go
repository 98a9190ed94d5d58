package heap

// TuplePtr is a HeapTuplePtr: a 64-bit handle packing a block number,
// an allocating transaction/xid, a buffer number, and a slot number
// into one value (spec.md §6). The bit layout is load-bearing — it is
// one of the wire formats this module must reproduce exactly —
// grounded on original_source/src/include/io/buffer/HeapBuffer.h's
// vh_HTP_* masks:
//
//	bits 63..32  BlockNo
//	bits 31..16  Xid
//	bits 15..8   BufferNo
//	bits 7..0    ItemNo
type TuplePtr uint64

const (
	maskBlockNo  TuplePtr = 0xffffffff00000000
	maskXid      TuplePtr = 0x00000000ffff0000
	maskBufferNo TuplePtr = 0x000000000000ff00
	maskItemNo   TuplePtr = 0x00000000000000ff
)

// Invalid is the zero TuplePtr. Block 0, xid 0, buffer 0 and item 0
// are all values the allocators can hand out, so a tuple in that
// position encodes to the same value.
const Invalid TuplePtr = 0

// FormTuplePtr packs the four fields into one TuplePtr, the Go form of
// vh_HTP_FORM.
func FormTuplePtr(blockNo uint32, xid uint16, bufferNo, itemNo uint8) TuplePtr {
	return TuplePtr(blockNo)<<32 |
		TuplePtr(xid)<<16 |
		TuplePtr(bufferNo)<<8 |
		TuplePtr(itemNo)
}

// BlockNo extracts the block number (vh_HTP_BLOCKNO).
func (p TuplePtr) BlockNo() uint32 { return uint32((p & maskBlockNo) >> 32) }

// Xid extracts the allocating transaction id (vh_HTP_XID).
func (p TuplePtr) Xid() uint16 { return uint16((p & maskXid) >> 16) }

// BufferNo extracts the owning HeapBuffer's index (vh_HTP_BUFF).
func (p TuplePtr) BufferNo() uint8 { return uint8((p & maskBufferNo) >> 8) }

// ItemNo extracts the slot index within the page (vh_HTP_ITEMNO).
func (p TuplePtr) ItemNo() uint8 { return uint8(p & maskItemNo) }

// IsValid reports whether p is anything other than the zero value.
func (p TuplePtr) IsValid() bool { return p != Invalid }
