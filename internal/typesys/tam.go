package typesys

import "github.com/kgearhart/vh/internal/verr"

// TAM (Type Access Method) is a plug-in conversion vtable with four
// surfaces: binary (wire codec), cstr (textual, with a format
// pattern), memset (raw-byte copy), and construct/destruct (spec.md
// §4.1).
type TAM struct {
	BinaryGet func(src []byte) ([]byte, error)
	BinarySet func(dst []byte, val []byte) error

	CstrFormat string
	CstrGet    func(src []byte, format string) (string, error)
	CstrSet    func(dst []byte, text string, format string) error

	MemsetGet func(src []byte) ([]byte, error)
	MemsetSet func(dst []byte, val []byte) error

	Construct func(dst []byte) error
	Destruct  func(dst []byte) error
}

// IsZero reports whether no surface of the TAM has been populated,
// i.e. it is a stand-in for "no TAM registered at this location".
func (t *TAM) IsZero() bool {
	return t == nil || (t.BinaryGet == nil && t.BinarySet == nil &&
		t.CstrGet == nil && t.CstrSet == nil &&
		t.MemsetGet == nil && t.MemsetSet == nil &&
		t.Construct == nil && t.Destruct == nil)
}

// Preference names one rank in a deepest-specialization-wins TAM
// dispatch search (spec.md §4.1).
type Preference int

const (
	// PrefFieldBackend is "per-field+per-backend": the most specific
	// location, a TAM registered for one field on one back-end.
	PrefFieldBackend Preference = iota
	// PrefBackendType is "per-backend+per-type".
	PrefBackendType
	// PrefField is "per-field" (no back-end specialization).
	PrefField
	// PrefType is "per-type": the least specific location, the
	// Type's own default TAM.
	PrefType
)

// DefaultPreference is the dispatch order spec.md §4.1 describes:
// field+backend, backend+type, field, type.
var DefaultPreference = []Preference{PrefFieldBackend, PrefBackendType, PrefField, PrefType}

// FieldTAM is an optional TAM override scoped to one HeapField/
// TableField, independent of back-end. Callers that have no per-field
// override pass a nil FieldTAM.
type FieldTAM = *TAM

// ResolveTAM searches prefs in order and returns the first non-nil TAM
// found, plus which Preference satisfied it. fieldTAM is the
// per-field override (PrefField / PrefFieldBackend source); backend
// may be "" to skip backend-scoped ranks.
//
// Failure semantics (spec.md §4.1): if no rank yields a TAM, and
// sameType is true (the caller is converting a type to itself), the
// caller may fall back to memset; otherwise this returns
// UnsupportedConversion.
func (r *Registry) ResolveTAM(prefs []Preference, backend string, typeID TypeID, fieldTAM FieldTAM) (*TAM, Preference, error) {
	if len(prefs) == 0 {
		prefs = DefaultPreference
	}
	ty, err := r.ByID(typeID)
	if err != nil {
		return nil, 0, err
	}

	for _, pref := range prefs {
		switch pref {
		case PrefFieldBackend:
			// A field+backend override is modeled as a backend TAM
			// keyed off the field's own TypeID plus backend name;
			// callers that need per-field AND per-backend granularity
			// register it via RegisterBackend using a synthetic
			// per-field TypeID. For a plain field/type pair we treat
			// PrefFieldBackend as unavailable unless fieldTAM is set
			// and a backend override for the type also exists, in
			// which case the field TAM wins (most specific location).
			if fieldTAM != nil && !fieldTAM.IsZero() && backend != "" {
				if bt := r.backendTAMFor(backend, typeID); bt != nil {
					return fieldTAM, pref, nil
				}
			}
		case PrefBackendType:
			if bt := r.backendTAMFor(backend, typeID); bt != nil {
				return bt, pref, nil
			}
		case PrefField:
			if fieldTAM != nil && !fieldTAM.IsZero() {
				return fieldTAM, pref, nil
			}
		case PrefType:
			if !ty.TAM.IsZero() {
				return &ty.TAM, pref, nil
			}
		}
	}

	return nil, 0, verr.New(verr.KindUnsupportedConv, "no TAM found for type %q (backend %q)", ty.Name, backend)
}

// ResolveTAMFallbackMemset is ResolveTAM, but on UnsupportedConversion
// between identical source/target types it returns a TAM built purely
// from the Type's MemsetGet/MemsetSet, per spec.md §4.1's fallback
// rule.
func (r *Registry) ResolveTAMFallbackMemset(prefs []Preference, backend string, srcType, dstType TypeID, fieldTAM FieldTAM) (*TAM, error) {
	tam, _, err := r.ResolveTAM(prefs, backend, dstType, fieldTAM)
	if err == nil {
		return tam, nil
	}
	if srcType != dstType {
		return nil, err
	}
	ty, tyErr := r.ByID(dstType)
	if tyErr != nil {
		return nil, tyErr
	}
	if ty.TAM.MemsetGet == nil && ty.TAM.MemsetSet == nil {
		return nil, err
	}
	return &TAM{MemsetGet: ty.TAM.MemsetGet, MemsetSet: ty.TAM.MemsetSet}, nil
}
