package catalog

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/shard"
	"github.com/kgearhart/vh/internal/typesys"
)

func idField(name string) heap.Field {
	return heap.Field{Name: name, TypeID: typesys.TypeInt64, Size: 8, MaxAlign: 8}
}

func TestSort3PivotOrdersInts(t *testing.T) {
	items := []int{9, -1, 5, 5, 3, 0, 7, 2, 8, 1, 6, 4}
	Sort3Pivot(items, func(a, b int) int { return a - b })
	assert.True(t, sort.IntsAreSorted(items))
}

func TestSort3PivotHandlesSmallSlices(t *testing.T) {
	for _, items := range [][]int{{}, {1}, {2, 1}, {1, 2}} {
		cp := append([]int(nil), items...)
		Sort3Pivot(cp, func(a, b int) int { return a - b })
		assert.True(t, sort.IntsAreSorted(cp))
	}
}

func TestSort3PivotStableCountPreserved(t *testing.T) {
	items := []int{4, 4, 4, 1, 1, 2, 3, 3}
	Sort3Pivot(items, func(a, b int) int { return a - b })
	want := []int{1, 1, 2, 3, 3, 4, 4, 4}
	assert.Equal(t, want, items)
}

func TestKeyRejectsTooManyFields(t *testing.T) {
	fields := make([]*heap.Field, MaxKeyFields+1)
	f := idField("id")
	for i := range fields {
		fields[i] = &f
	}
	_, err := NewKey(fields...)
	require.Error(t, err)
}

func TestDefVersioningRingNavigates(t *testing.T) {
	def := NewDef("public", "customers", true)

	v1, err := def.AddVersion("v1", []heap.Field{idField("id")}, true)
	require.NoError(t, err)

	v2, err := def.AddVersion("v2", []heap.Field{idField("id"), idField("region_id")}, true)
	require.NoError(t, err)

	lead, err := def.Lead()
	require.NoError(t, err)
	assert.Equal(t, v2, lead)
	assert.Equal(t, v1, v2.Prior)
	assert.Equal(t, v1, v2.Next) // two-element ring wraps back to itself

	byName, err := def.Version("v1")
	require.NoError(t, err)
	assert.Equal(t, v1, byName)
}

func TestDefWithoutVersionsRejectsSecondVersion(t *testing.T) {
	def := NewDef("", "lookup", false)

	_, err := def.AddVersion("only", []heap.Field{idField("id")}, false)
	require.NoError(t, err)

	_, err = def.AddVersion("again", []heap.Field{idField("id")}, false)
	require.Error(t, err)

	_, err = def.Version("only")
	require.Error(t, err, "Version lookup is only valid for versioned tables")
}

func TestDefFQName(t *testing.T) {
	assert.Equal(t, "public.customers", NewDef("public", "customers", false).FQName())
	assert.Equal(t, "lookup", NewDef("", "lookup", false).FQName())
}

func TestRelAddQualEnforcesMax(t *testing.T) {
	inner := NewDef("", "orders", false)
	iv, _ := inner.AddVersion("v1", []heap.Field{idField("id")}, false)
	outer := NewDef("", "customers", false)
	ov, _ := outer.AddVersion("v1", []heap.Field{idField("id")}, false)

	rel := NewRel(iv, ov, ManyToOne)
	fields := make([]heap.Field, MaxRelQuals+1)
	for i := range fields {
		fields[i] = idField("id")
	}
	for i := 0; i < MaxRelQuals; i++ {
		require.NoError(t, rel.AddQual(&fields[i], &fields[i]))
	}
	require.Error(t, rel.AddQual(&fields[MaxRelQuals], &fields[MaxRelQuals]))
}

func TestDefVerFindsRegisteredRel(t *testing.T) {
	inner := NewDef("", "orders", false)
	iv, _ := inner.AddVersion("v1", []heap.Field{idField("id")}, false)
	outer := NewDef("", "customers", false)
	ov, _ := outer.AddVersion("v1", []heap.Field{idField("id")}, false)

	rel := NewRel(iv, ov, ManyToOne)
	iv.AddRel(rel)

	found, err := iv.Rel(ov)
	require.NoError(t, err)
	assert.Same(t, rel, found)

	otherOuter := NewDef("", "products", false)
	oov, _ := otherOuter.AddVersion("v1", []heap.Field{idField("id")}, false)
	_, err = iv.Rel(oov)
	require.Error(t, err)
}

func TestCatalogRegisterAndLookup(t *testing.T) {
	cat := NewCatalog()
	def := NewDef("public", "customers", false)
	_, err := def.AddVersion("v1", []heap.Field{idField("id")}, false)
	require.NoError(t, err)
	def.Beacon = shard.NewStaticBeacon(1)

	require.NoError(t, cat.Register(def))
	assert.Same(t, cat, def.Catalog)

	got, err := cat.Lookup("public", "customers")
	require.NoError(t, err)
	assert.Same(t, def, got)

	_, err = cat.Lookup("public", "missing")
	require.Error(t, err)
}

func TestCatalogRegisterRejectsDuplicateName(t *testing.T) {
	cat := NewCatalog()
	a := NewDef("public", "customers", false)
	_, err := a.AddVersion("v1", []heap.Field{idField("id")}, false)
	require.NoError(t, err)
	require.NoError(t, cat.Register(a))

	b := NewDef("public", "customers", false)
	_, err = b.AddVersion("v1", []heap.Field{idField("id")}, false)
	require.NoError(t, err)
	require.Error(t, cat.Register(b))
}

func TestCatalogTablesReturnsAllRegistered(t *testing.T) {
	cat := NewCatalog()
	names := []string{"a", "b", "c"}
	for _, n := range names {
		def := NewDef("", n, false)
		_, err := def.AddVersion("v1", []heap.Field{idField("id")}, false)
		require.NoError(t, err)
		require.NoError(t, cat.Register(def))
	}
	assert.Len(t, cat.Tables(), len(names))
}
