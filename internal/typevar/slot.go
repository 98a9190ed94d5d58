package typevar

import "github.com/kgearhart/vh/internal/verr"

// FieldRef is the narrow seam a Slot uses to address a value living
// inside a heap tuple's field without this package importing
// internal/heap (which itself will want to hand out Values typed
// through this package — keeping the dependency one-directional).
// internal/heap's field accessor satisfies this interface.
type FieldRef interface {
	Get() (Value, error)
	Set(Value) error
}

// ReleaseAction governs what Reset does to a Slot's previous contents
// (spec.md §4.2: a slot "owns, aliases, or references-by-move its
// contents depending on how it was last stored").
type ReleaseAction uint8

const (
	// CallerOwned means the Slot does not own the Value in it; Reset
	// simply drops the reference.
	CallerOwned ReleaseAction = iota
	// OwnedCopy means the Slot holds an independent MakeCopy and Reset
	// may discard it freely (Go's GC reclaims it; there is no explicit
	// destructor call to make beyond that spec.md's allocator-bound
	// languages require).
	OwnedCopy
)

// SlotKind discriminates what a Slot currently addresses.
type SlotKind uint8

const (
	SlotEmpty SlotKind = iota
	SlotImmediate
	SlotFieldRef
)

// Slot is a TypeVarSlot: a single addressable location that holds
// either an immediate Value or a reference into a heap tuple's field
// (spec.md §4.2). Exactly one of its payload fields is meaningful,
// selected by Kind.
type Slot struct {
	kind    SlotKind
	release ReleaseAction
	imm     Value
	field   FieldRef
}

// NewSlot returns an empty Slot.
func NewSlot() *Slot { return &Slot{kind: SlotEmpty} }

// StoreImmediate places v directly in the slot. If action is
// OwnedCopy, v is deep-copied so the caller's own Value can keep
// changing independently of the slot.
func (s *Slot) StoreImmediate(v Value, action ReleaseAction) {
	s.Reset()
	if action == OwnedCopy {
		v = v.MakeCopy()
	}
	s.kind = SlotImmediate
	s.release = action
	s.imm = v
}

// StoreFieldRef binds the slot to a live heap tuple field reference.
func (s *Slot) StoreFieldRef(ref FieldRef) {
	s.Reset()
	s.kind = SlotFieldRef
	s.field = ref
}

// Reset clears the slot back to SlotEmpty, releasing whatever it held
// per its stored ReleaseAction.
func (s *Slot) Reset() {
	s.kind = SlotEmpty
	s.imm = Value{}
	s.field = nil
}

// Kind reports what the slot currently addresses.
func (s *Slot) Kind() SlotKind { return s.kind }

// Get dereferences the slot, reading from the heap if it is bound to a
// FieldRef.
func (s *Slot) Get() (Value, error) {
	switch s.kind {
	case SlotImmediate:
		return s.imm, nil
	case SlotFieldRef:
		return s.field.Get()
	default:
		return Value{}, verr.New(verr.KindInvalidHandle, "slot is empty")
	}
}

// Set writes through the slot: into the immediate payload, or through
// to the backing heap field if bound to one.
func (s *Slot) Set(v Value) error {
	switch s.kind {
	case SlotImmediate:
		if s.release == OwnedCopy {
			v = v.MakeCopy()
		}
		s.imm = v
		return nil
	case SlotFieldRef:
		return s.field.Set(v)
	default:
		return verr.New(verr.KindInvalidHandle, "slot is empty")
	}
}
