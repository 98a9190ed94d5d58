package typesys

import "github.com/kgearhart/vh/internal/verr"

// Stack is a sequence of TypeIDs, outer-most to
// inner-most (spec.md §3: "Array -> Range -> int32"). Two stacks are
// equal iff the same sequence of identifiers appears.
type Stack struct {
	ids []TypeID
}

// NewStack builds a Stack from variadic type names looked up in r,
// outer-most first. Depth beyond MaxStackDepth is a TypeRegistryError.
func (r *Registry) NewStack(names ...string) (Stack, error) {
	if len(names) == 0 {
		return Stack{}, verr.New(verr.KindTypeRegistryError, "type stack requires at least one type")
	}
	if len(names) > MaxStackDepth {
		return Stack{}, verr.New(verr.KindTypeRegistryError, "type stack depth %d exceeds maximum %d", len(names), MaxStackDepth)
	}
	ids := make([]TypeID, 0, len(names))
	for _, n := range names {
		ty, err := r.ByName(n)
		if err != nil {
			return Stack{}, err
		}
		ids = append(ids, ty.ID)
	}
	return Stack{ids: ids}, nil
}

// StackOf builds a Stack directly from already-resolved TypeIDs,
// outer-most first.
func StackOf(ids ...TypeID) Stack {
	cp := make([]TypeID, len(ids))
	copy(cp, ids)
	return Stack{ids: cp}
}

// Depth returns the number of nested types in the stack.
func (s Stack) Depth() int { return len(s.ids) }

// Outer returns the outer-most TypeID, or 0 if the stack is empty.
func (s Stack) Outer() TypeID {
	if len(s.ids) == 0 {
		return 0
	}
	return s.ids[0]
}

// Inner returns the inner-most TypeID, or 0 if the stack is empty.
func (s Stack) Inner() TypeID {
	if len(s.ids) == 0 {
		return 0
	}
	return s.ids[len(s.ids)-1]
}

// IDs returns the stack's TypeID sequence, outer-most first. The
// returned slice must not be mutated by the caller.
func (s Stack) IDs() []TypeID { return s.ids }

// Equal reports whether s and o carry exactly the same sequence of
// type identifiers.
func (s Stack) Equal(o Stack) bool {
	if len(s.ids) != len(o.ids) {
		return false
	}
	for i := range s.ids {
		if s.ids[i] != o.ids[i] {
			return false
		}
	}
	return true
}

// Accumulator computes the widening accumulator stack for s (spec.md
// §3): each TypeID is replaced by its registered Type.Accumulator.
// Accumulator is idempotent: Accumulator(Accumulator(s)) == Accumulator(s).
func (r *Registry) Accumulator(s Stack) (Stack, error) {
	out := make([]TypeID, len(s.ids))
	for i, id := range s.ids {
		ty, err := r.ByID(id)
		if err != nil {
			return Stack{}, err
		}
		out[i] = ty.Accumulator
	}
	return Stack{ids: out}, nil
}
