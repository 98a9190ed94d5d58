package preptup

import "github.com/kgearhart/vh/internal/verr"

// FieldPath resolves a named field against the HeapTuple carried in a
// Context (vh_spht_tf_create / vh_spht_dat_create — this package
// doesn't distinguish a raw-pointer return from a typed-field return
// the way the original does, since typevar.Value already carries its
// own type tag once decoded).
type FieldPath struct {
	name string
}

// NewFieldPath returns a SearchPath that looks up field name on
// whatever HeapTuple a Context supplies.
func NewFieldPath(name string) *FieldPath { return &FieldPath{name: name} }

func (p *FieldPath) Kind() Kind { return KindField }

func (p *FieldPath) Search(ctx Context) (Result, error) {
	if ctx.Tuple == nil {
		return Result{}, verr.New(verr.KindInvalidHandle, "field search path %q requires a tuple in context", p.name)
	}
	f, err := ctx.Tuple.Def().FieldByName(p.name)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindField, Field: f}, nil
}
