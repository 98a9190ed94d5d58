package typesys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))
	return r
}

func TestRegisterDuplicateIDFails(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Register(&Type{ID: TypeBool, Name: "another-bool"})
	require.Error(t, err)
}

func TestStackEquality(t *testing.T) {
	r := newTestRegistry(t)
	a, err := r.NewStack("int32")
	require.NoError(t, err)
	b, err := r.NewStack("int32")
	require.NoError(t, err)
	c, err := r.NewStack("int64")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestStackDepthLimit(t *testing.T) {
	r := newTestRegistry(t)
	names := make([]string, MaxStackDepth+1)
	for i := range names {
		names[i] = "int32"
	}
	_, err := r.NewStack(names...)
	require.Error(t, err)
}

func TestAccumulatorIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.NewStack("int16")
	require.NoError(t, err)

	acc1, err := r.Accumulator(s)
	require.NoError(t, err)
	assert.Equal(t, TypeInt64, acc1.Outer())

	acc2, err := r.Accumulator(acc1)
	require.NoError(t, err)
	assert.True(t, acc1.Equal(acc2))
}

func TestResolveTAMDeepestWins(t *testing.T) {
	r := newTestRegistry(t)

	// Only the per-type TAM exists: PrefType should satisfy it.
	tam, pref, err := r.ResolveTAM(nil, "", TypeInt32, nil)
	require.NoError(t, err)
	assert.Equal(t, PrefType, pref)
	assert.NotNil(t, tam.MemsetGet)

	// Register a backend-specific override; it should now win over
	// the per-type default.
	override := TAM{CstrFormat: "%d::int4"}
	require.NoError(t, r.RegisterBackend("postgres", TypeInt32, override))

	tam, pref, err = r.ResolveTAM(nil, "postgres", TypeInt32, nil)
	require.NoError(t, err)
	assert.Equal(t, PrefBackendType, pref)
	assert.Equal(t, "%d::int4", tam.CstrFormat)
}

func TestResolveTAMUnsupportedConversion(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Type{ID: 99, Name: "opaque"}))

	_, _, err := r.ResolveTAM(nil, "", 99, nil)
	require.Error(t, err)
}

func TestResolveTAMFallbackMemset(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Type{
		ID: 100, Name: "rawbytes",
		TAM: TAM{
			MemsetGet: func(src []byte) ([]byte, error) { return src, nil },
			MemsetSet: func(dst, val []byte) error { copy(dst, val); return nil },
		},
	}))
	// No get/set/cstr registered in any dispatch rank, but since
	// src==dst type and a memset surface exists, fallback succeeds.
	tam, err := r.ResolveTAMFallbackMemset([]Preference{PrefFieldBackend, PrefBackendType, PrefField}, "", 100, 100, nil)
	require.NoError(t, err)
	assert.NotNil(t, tam.MemsetGet)
}
