package typevar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgearhart/vh/internal/typesys"
)

func newTestRegistry(t *testing.T) *typesys.Registry {
	t.Helper()
	r := typesys.NewRegistry()
	require.NoError(t, typesys.RegisterBuiltins(r))
	return r
}

func TestMakeCopyIsIndependent(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.NewStack("string")
	require.NoError(t, err)

	orig := NewString(s, "hello")
	cp := orig.MakeCopy()
	assert.Equal(t, orig.String(), cp.String())

	eq, err := Equal(r, orig, cp)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestMakeCopyOfArrayIsDeep(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.NewStack("int64")
	require.NoError(t, err)

	arr := NewArray(s, []Value{NewInt64(s, 1), NewInt64(s, 2), NewInt64(s, 3)})
	cp := arr.MakeCopy()
	cp.Elems[0] = NewInt64(s, 99)

	assert.Equal(t, int64(1), arr.Elems[0].Int64())
	assert.Equal(t, int64(99), cp.Elems[0].Int64())
}

func TestMoveInvalidatesSource(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.NewStack("int32")
	require.NoError(t, err)

	src := NewInt32(s, 42)
	moved := Move(&src)

	assert.Equal(t, int32(42), moved.Int32())
	assert.True(t, src.IsNull())
}

func TestEqualUsesRegisteredComparator(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.NewStack("int64")
	require.NoError(t, err)

	a := NewInt64(s, 7)
	b := NewInt64(s, 7)
	c := NewInt64(s, 8)

	eq, err := Equal(r, a, b)
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = Equal(r, a, c)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestSlotImmediateRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.NewStack("int64")
	require.NoError(t, err)

	slot := NewSlot()
	slot.StoreImmediate(NewInt64(s, 10), OwnedCopy)

	v, err := slot.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(10), v.Int64())

	require.NoError(t, slot.Set(NewInt64(s, 20)))
	v, err = slot.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(20), v.Int64())
}

// fakeField is a minimal FieldRef double standing in for a heap tuple
// field without importing internal/heap.
type fakeField struct{ v Value }

func (f *fakeField) Get() (Value, error) { return f.v, nil }
func (f *fakeField) Set(v Value) error   { f.v = v; return nil }

func TestSlotFieldRefDelegates(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.NewStack("string")
	require.NoError(t, err)

	backing := &fakeField{v: NewString(s, "a")}
	slot := NewSlot()
	slot.StoreFieldRef(backing)

	v, err := slot.Get()
	require.NoError(t, err)
	assert.Equal(t, "a", v.String())

	require.NoError(t, slot.Set(NewString(s, "b")))
	assert.Equal(t, "b", backing.v.String())
}

func TestSlotEmptyGetFails(t *testing.T) {
	slot := NewSlot()
	_, err := slot.Get()
	require.Error(t, err)
}

func TestOpExecFastPathMatchesSingleShot(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.NewStack("int64")
	require.NoError(t, err)

	reg := DefaultOpRegistry()
	a := NewInt64(s, 3)
	b := NewInt64(s, 4)

	direct, err := func() (Value, error) {
		fn, _, _, err := reg.Lookup(OpAdd, a.Kind, b.Kind)
		if err != nil {
			return Value{}, err
		}
		return fn(a, b)
	}()
	require.NoError(t, err)

	exec, err := Prepare(reg, OpAdd, a, b)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		fast, err := exec.FastPath(a, b)
		require.NoError(t, err)
		assert.Equal(t, direct.Int64(), fast.Int64())
	}
}

func TestOpExecFastPathWidensMixedOperands(t *testing.T) {
	r := newTestRegistry(t)
	s32, err := r.NewStack("int32")
	require.NoError(t, err)
	s64, err := r.NewStack("int64")
	require.NoError(t, err)

	reg := DefaultOpRegistry()
	a := NewInt32(s32, 5)
	b := NewInt64(s64, 10)

	exec, err := Prepare(reg, OpAdd, a, b)
	require.NoError(t, err)

	out, err := exec.FastPath(a, b)
	require.NoError(t, err)
	assert.Equal(t, int64(15), out.Int64())
}

func TestOpUnsupportedCombinationErrors(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.NewStack("string")
	require.NoError(t, err)

	reg := DefaultOpRegistry()
	a := NewString(s, "x")
	b := NewString(s, "y")

	_, err = Prepare(reg, OpMul, a, b)
	require.Error(t, err)
}

func TestComparisonOperators(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.NewStack("int64")
	require.NoError(t, err)

	reg := DefaultOpRegistry()
	a := NewInt64(s, 1)
	b := NewInt64(s, 2)

	lt, err := Prepare(reg, OpLt, a, b)
	require.NoError(t, err)
	out, err := lt.FastPath(a, b)
	require.NoError(t, err)
	assert.True(t, out.Bool())

	eq, err := Prepare(reg, OpEq, a, a)
	require.NoError(t, err)
	out, err = eq.FastPath(a, a)
	require.NoError(t, err)
	assert.True(t, out.Bool())
}
