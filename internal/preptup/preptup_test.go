package preptup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgearhart/vh/internal/catalog"
	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/shard"
	"github.com/kgearhart/vh/internal/typesys"
	"github.com/kgearhart/vh/internal/typevar"
)

func newSourceTuple(t *testing.T, hb *heap.Buffer, age int32, score float64) *heap.Tuple {
	fields := []heap.Field{
		{Name: "age", TypeID: typesys.TypeInt32, Size: 4, MaxAlign: 4},
		{Name: "score", TypeID: typesys.TypeFloat64, Size: 8, MaxAlign: 8},
	}
	td, err := heap.NewTupleDef(fields)
	require.NoError(t, err)

	data := make([]byte, td.HeapSize)
	tup, err := hb.AllocTuple(td, data)
	require.NoError(t, err)

	require.NoError(t, tup.SetField(0, typevar.NewInt32(typesys.StackOf(typesys.TypeInt32), age)))
	require.NoError(t, tup.SetField(1, typevar.NewFloat64(typesys.StackOf(typesys.TypeFloat64), score)))
	return tup
}

func TestPrepTupCopiesFieldUnchanged(t *testing.T) {
	hb := heap.NewBuffer(1, 1, 4, 8)
	in := newSourceTuple(t, hb, 42, 0.5)

	pt := New(hb)
	require.NoError(t, pt.AddCol("age_out", []SearchPath{NewFieldPath("age")}, []bool{false}, nil))

	out, err := pt.InputHTP(in)
	require.NoError(t, err)

	v, err := out.GetField(0)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v.Int32())
}

func TestPrepTupAppliesMinMaxNormalization(t *testing.T) {
	hb := heap.NewBuffer(1, 1, 4, 8)
	in := newSourceTuple(t, hb, 42, 50)

	minmax, err := NewMinMaxCol(
		typevar.NewFloat64(typesys.StackOf(typesys.TypeFloat64), 0),
		typevar.NewFloat64(typesys.StackOf(typesys.TypeFloat64), 100),
	)
	require.NoError(t, err)

	pt := New(hb)
	require.NoError(t, pt.AddCol("score_norm", []SearchPath{NewFieldPath("score")}, []bool{false}, minmax))

	out, err := pt.InputHTP(in)
	require.NoError(t, err)

	v, err := out.GetField(0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v.Float64(), 1e-9)
}

func TestPrepTupReusesOutputDefAcrossRows(t *testing.T) {
	hb := heap.NewBuffer(1, 1, 4, 8)

	pt := New(hb)
	require.NoError(t, pt.AddCol("age_out", []SearchPath{NewFieldPath("age")}, []bool{false}, nil))

	first := newSourceTuple(t, hb, 1, 0)
	_, err := pt.InputHTP(first)
	require.NoError(t, err)
	def := pt.outputDef

	second := newSourceTuple(t, hb, 2, 0)
	_, err = pt.InputHTP(second)
	require.NoError(t, err)
	assert.Same(t, def, pt.outputDef)
}

func TestFieldPathRequiresTupleInContext(t *testing.T) {
	_, err := NewFieldPath("age").Search(Context{})
	require.Error(t, err)
}

func TestTableDefPathResolvesDef(t *testing.T) {
	cat := catalog.NewCatalog()
	def := catalog.NewDef("public", "customers", false)
	_, err := def.AddVersion("v1", []heap.Field{{Name: "id", TypeID: typesys.TypeInt64, Size: 8, MaxAlign: 8}}, false)
	require.NoError(t, err)
	def.Beacon = shard.NewStaticBeacon(1)
	require.NoError(t, cat.Register(def))

	sp := NewTableDefPath("public", "customers")
	res, err := sp.Search(Context{Catalog: cat})
	require.NoError(t, err)
	assert.Same(t, def, res.Def)
}

func TestTableDefVerPathResolvesLeadingVersion(t *testing.T) {
	cat := catalog.NewCatalog()
	def := catalog.NewDef("public", "customers", true)
	v1, err := def.AddVersion("v1", []heap.Field{{Name: "id", TypeID: typesys.TypeInt64, Size: 8, MaxAlign: 8}}, true)
	require.NoError(t, err)
	require.NoError(t, cat.Register(def))

	sp := NewTableDefVerPath("public", "customers")
	res, err := sp.Search(Context{Catalog: cat})
	require.NoError(t, err)
	assert.Same(t, v1, res.DefVer)
}

func TestPrepTupRejectsMismatchedChainLength(t *testing.T) {
	hb := heap.NewBuffer(1, 1, 4, 8)
	pt := New(hb)
	err := pt.AddCol("x", []SearchPath{NewFieldPath("age")}, []bool{}, nil)
	require.Error(t, err)
}
