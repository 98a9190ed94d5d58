package heap

import (
	"encoding/binary"

	"github.com/kgearhart/vh/internal/verr"
)

// PageSize is the fixed HeapPage size (spec.md §6: VH_HEAPPAGE_SIZE).
const PageSize = 8192

const (
	flagDirty uint8 = 0x1

	// Byte offsets of the fixed HeapPage header fields, packed in the
	// same order as HeapPageData: pins, d_freespace, d_begin,
	// d_flower, d_fupper, n_items (six uint16 fields), then flags
	// (one uint8).
	offPins       = 0
	offFreespace  = 2
	offBegin      = 4
	offFlower     = 6
	offFupper     = 8
	offNItems     = 10
	offFlags      = 12
	headerSize    = 13
	itemPtrSize   = 4 // packed offset:16, length:15, empty:1
)

// itemPtr is the unpacked form of a HeapItemPtrData slot-directory
// entry (spec.md §6): a 16-bit byte offset, a 15-bit length, and a
// 1-bit empty flag, packed into 4 bytes on the page itself.
type itemPtr struct {
	offset uint16
	length uint16
	empty  bool
}

func packItemPtr(p itemPtr) uint32 {
	v := uint32(p.offset) | uint32(p.length&0x7fff)<<16
	if p.empty {
		v |= 1 << 31
	}
	return v
}

func unpackItemPtr(v uint32) itemPtr {
	return itemPtr{
		offset: uint16(v & 0xffff),
		length: uint16((v >> 16) & 0x7fff),
		empty:  v&(1<<31) != 0,
	}
}

// Page is a HeapPage: a fixed 8 KiB slotted page holding a header, a
// slot directory that grows downward from just after the header, and
// tuple bytes that grow upward from the end of the page (spec.md §6).
// This mirrors the classic slotted-page layout the original's
// d_begin/d_flower/d_fupper bookkeeping implements.
type Page struct {
	buf [PageSize]byte
}

// NewPage returns a freshly initialized, empty Page (vh_hp_init).
func NewPage() *Page {
	p := &Page{}
	p.setU16(offBegin, headerSize)
	p.setU16(offFlower, headerSize)
	p.setU16(offFupper, PageSize)
	p.setU16(offFreespace, PageSize-headerSize)
	p.setU16(offNItems, 0)
	return p
}

func (p *Page) u16(off int) uint16 {
	return binary.LittleEndian.Uint16(p.buf[off : off+2])
}
func (p *Page) setU16(off int, v uint16) {
	binary.LittleEndian.PutUint16(p.buf[off:off+2], v)
}

func (p *Page) Pins() uint16      { return p.u16(offPins) }
func (p *Page) Freespace() uint16 { return p.u16(offFreespace) }
func (p *Page) NItems() uint16    { return p.u16(offNItems) }

func (p *Page) Pin()   { p.setU16(offPins, p.Pins()+1) }
func (p *Page) Unpin() {
	if pins := p.Pins(); pins > 0 {
		p.setU16(offPins, pins-1)
	}
}

// IsDirty reports whether the page has unflushed modifications
// (vh_hp_isdirty).
func (p *Page) IsDirty() bool { return p.buf[offFlags]&flagDirty != 0 }

// SetDirty marks the page dirty (vh_hp_setdirty).
func (p *Page) SetDirty() { p.buf[offFlags] |= flagDirty }

// ClearDirty clears the dirty flag after a flush (vh_hp_cleardirty).
func (p *Page) ClearDirty() { p.buf[offFlags] &^= flagDirty }

func (p *Page) itemPtrAt(slot uint16) itemPtr {
	off := headerSize + int(slot)*itemPtrSize
	return unpackItemPtr(binary.LittleEndian.Uint32(p.buf[off : off+4]))
}

func (p *Page) setItemPtrAt(slot uint16, ip itemPtr) {
	off := headerSize + int(slot)*itemPtrSize
	binary.LittleEndian.PutUint32(p.buf[off:off+4], packItemPtr(ip))
}

// InsertTuple stores data as a new slot and returns its item number
// (vh_hp_construct_tup's slot-allocation half; the HeapTuple
// construction itself is internal/heap's TupleDef/TuplePtr concern,
// layered above this page-local primitive).
func (p *Page) InsertTuple(data []byte) (uint8, error) {
	needed := len(data) + itemPtrSize
	if needed > int(p.Freespace()) {
		return 0, verr.New(verr.KindOutOfBufferSpace, "page has %d bytes free, need %d", p.Freespace(), needed)
	}
	fupper := p.u16(offFupper)
	newFupper := fupper - uint16(len(data))
	copy(p.buf[newFupper:fupper], data)

	flower := p.u16(offFlower)
	slot := uint16((flower - headerSize) / itemPtrSize)
	p.setItemPtrAt(slot, itemPtr{offset: newFupper, length: uint16(len(data))})

	p.setU16(offFlower, flower+itemPtrSize)
	p.setU16(offFupper, newFupper)
	p.setU16(offFreespace, p.Freespace()-uint16(needed))
	p.setU16(offNItems, p.NItems()+1)
	p.SetDirty()

	if slot > 255 {
		return 0, verr.New(verr.KindOutOfBufferSpace, "page exceeds 256 item slots")
	}
	return uint8(slot), nil
}

// GetTuple returns the bytes stored at itemNo.
func (p *Page) GetTuple(itemNo uint8) ([]byte, error) {
	if uint16(itemNo) >= p.NItems() {
		return nil, verr.New(verr.KindInvalidHandle, "item %d does not exist on page", itemNo)
	}
	ip := p.itemPtrAt(uint16(itemNo))
	if ip.empty {
		return nil, verr.New(verr.KindInvalidHandle, "item %d has been freed", itemNo)
	}
	out := make([]byte, ip.length)
	copy(out, p.buf[ip.offset:int(ip.offset)+int(ip.length)])
	return out, nil
}

// FreeTuple marks itemNo's slot empty without reclaiming its bytes
// (vh_hp_freetup); CollapseEmpty later reclaims the space.
func (p *Page) FreeTuple(itemNo uint8) error {
	if uint16(itemNo) >= p.NItems() {
		return verr.New(verr.KindInvalidHandle, "item %d does not exist on page", itemNo)
	}
	ip := p.itemPtrAt(uint16(itemNo))
	ip.empty = true
	p.setItemPtrAt(uint16(itemNo), ip)
	p.SetDirty()
	return nil
}

// UpdateTuple overwrites an existing slot's bytes in place when the
// new payload is no larger than the old one; otherwise it frees the
// old slot and inserts a fresh one, returning the (possibly new) item
// number.
func (p *Page) UpdateTuple(itemNo uint8, data []byte) (uint8, error) {
	if uint16(itemNo) >= p.NItems() {
		return 0, verr.New(verr.KindInvalidHandle, "item %d does not exist on page", itemNo)
	}
	ip := p.itemPtrAt(uint16(itemNo))
	if ip.empty {
		return 0, verr.New(verr.KindInvalidHandle, "item %d has been freed", itemNo)
	}
	if len(data) <= int(ip.length) {
		copy(p.buf[ip.offset:int(ip.offset)+int(ip.length)], data)
		ip.length = uint16(len(data))
		p.setItemPtrAt(uint16(itemNo), ip)
		p.SetDirty()
		return itemNo, nil
	}
	if err := p.FreeTuple(itemNo); err != nil {
		return 0, err
	}
	return p.InsertTuple(data)
}

// CollapseEmpty compacts the tuple-data region, discarding freed slots'
// bytes and reclaiming their space (vh_hp_collapse_empty). Item
// numbers of still-live slots are unchanged; only the tuple bytes they
// point to are relocated.
func (p *Page) CollapseEmpty() {
	type live struct {
		slot uint16
		ip   itemPtr
	}
	var lives []live
	n := p.NItems()
	for s := uint16(0); s < n; s++ {
		ip := p.itemPtrAt(s)
		if !ip.empty {
			lives = append(lives, live{slot: s, ip: ip})
		}
	}

	fresh := make([]byte, PageSize)
	cursor := uint16(PageSize)
	for _, l := range lives {
		cursor -= l.ip.length
		copy(fresh[cursor:cursor+l.ip.length], p.buf[l.ip.offset:int(l.ip.offset)+int(l.ip.length)])
		l.ip.offset = cursor
		off := headerSize + int(l.slot)*itemPtrSize
		binary.LittleEndian.PutUint32(fresh[off:off+4], packItemPtr(l.ip))
	}
	// Preserve empty markers for freed slots interleaved between live
	// ones so item numbers stay stable.
	for s := uint16(0); s < n; s++ {
		ip := p.itemPtrAt(s)
		if ip.empty {
			off := headerSize + int(s)*itemPtrSize
			binary.LittleEndian.PutUint32(fresh[off:off+4], packItemPtr(itemPtr{empty: true}))
		}
	}

	copy(fresh[offPins:offPins+2], p.buf[offPins:offPins+2])
	binary.LittleEndian.PutUint16(fresh[offBegin:offBegin+2], headerSize)
	binary.LittleEndian.PutUint16(fresh[offFlower:offFlower+2], headerSize+n*itemPtrSize)
	binary.LittleEndian.PutUint16(fresh[offFupper:offFupper+2], cursor)
	binary.LittleEndian.PutUint16(fresh[offFreespace:offFreespace+2], cursor-(headerSize+n*itemPtrSize))
	binary.LittleEndian.PutUint16(fresh[offNItems:offNItems+2], n)
	fresh[offFlags] = p.buf[offFlags] | flagDirty

	p.buf = [PageSize]byte(fresh)
}
