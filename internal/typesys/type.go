// Package typesys implements the vh Type Registry and Type Access
// Method (TAM) dispatch described in SPEC_FULL.md §5.1 / spec.md §4.1:
// named, registered type descriptors, nested type stacks, and a
// deepest-specialization-wins TAM resolver.
//
// Grounded on original_source/src/include/io/catalog/tam.h (dispatch
// preference ordering) and src/io/catalog/tam.c.
package typesys

import "github.com/kgearhart/vh/internal/verr"

// TypeID identifies a registered Type. The lower 13 bits of a TypeVar
// tag word carry a TypeID (spec.md §6); zero is never a valid id.
type TypeID uint16

// MaxStackDepth is the implementation-wide maximum depth of a Type
// Stack (spec.md §3: "Stack depth has an implementation-wide maximum
// (≥8)").
const MaxStackDepth = 8

// CompareFunc performs a binary comparison between two values of the
// same Type, returning <0, 0, >0 like bytes.Compare.
type CompareFunc func(a, b []byte) int

// Type is a named, registered descriptor: an identifier, a data size,
// max-alignment, a binary comparison function, and a default TAM.
type Type struct {
	ID       TypeID
	Name     string
	Size     int
	MaxAlign int
	Compare  CompareFunc
	TAM      TAM

	// Accumulator is the widening type this Type maps to inside an
	// accumulator stack (spec.md §3), e.g. int16 -> int64. Zero means
	// the type accumulates into itself.
	Accumulator TypeID
}

// Registry holds every registered Type plus per-(backend,Type) TAM
// overrides. A Registry is owned by exactly one CatalogContext's
// lifetime-independent, process-wide scope (spec.md treats the Type
// Registry as effectively global).
type Registry struct {
	byID       map[TypeID]*Type
	byName     map[string]*Type
	backendTAM map[backendTypeKey]*TAM
}

type backendTypeKey struct {
	backend string
	typeID  TypeID
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:       make(map[TypeID]*Type),
		byName:     make(map[string]*Type),
		backendTAM: make(map[backendTypeKey]*TAM),
	}
}

// Register adds ty to the registry. Registering a duplicate id or name
// is a TypeRegistryError.
func (r *Registry) Register(ty *Type) error {
	if ty.ID == 0 {
		return verr.New(verr.KindTypeRegistryError, "type id 0 is reserved as invalid")
	}
	if _, exists := r.byID[ty.ID]; exists {
		return verr.New(verr.KindTypeRegistryError, "type id %d already registered", ty.ID)
	}
	if _, exists := r.byName[ty.Name]; exists {
		return verr.New(verr.KindTypeRegistryError, "type name %q already registered", ty.Name)
	}
	if ty.Accumulator == 0 {
		ty.Accumulator = ty.ID
	}
	r.byID[ty.ID] = ty
	r.byName[ty.Name] = ty
	return nil
}

// ByID looks up a Type by its identifier.
func (r *Registry) ByID(id TypeID) (*Type, error) {
	ty, ok := r.byID[id]
	if !ok {
		return nil, verr.New(verr.KindTypeRegistryError, "unknown type id %d", id)
	}
	return ty, nil
}

// ByName looks up a Type by its registered name.
func (r *Registry) ByName(name string) (*Type, error) {
	ty, ok := r.byName[name]
	if !ok {
		return nil, verr.New(verr.KindTypeRegistryError, "unknown type name %q", name)
	}
	return ty, nil
}

// RegisterBackend registers a per-(backend,type) TAM override — the
// "per-back-end override keyed by (back-end, type)" of spec.md §4.1.
func (r *Registry) RegisterBackend(backend string, typeID TypeID, tam TAM) error {
	if _, ok := r.byID[typeID]; !ok {
		return verr.New(verr.KindTypeRegistryError, "cannot register backend TAM for unknown type id %d", typeID)
	}
	key := backendTypeKey{backend: backend, typeID: typeID}
	cp := tam
	r.backendTAM[key] = &cp
	return nil
}

func (r *Registry) backendTAMFor(backend string, typeID TypeID) *TAM {
	if backend == "" {
		return nil
	}
	return r.backendTAM[backendTypeKey{backend: backend, typeID: typeID}]
}
