package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgearhart/vh/internal/heap"
)

func TestHashBeaconRequiresShards(t *testing.T) {
	_, err := NewHashBeacon(nil)
	require.Error(t, err)
}

func TestHashBeaconResolveIsDeterministic(t *testing.T) {
	b, err := NewHashBeacon([]ID{1, 2, 3})
	require.NoError(t, err)

	first, err := b.Resolve([]byte("customer-42"))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := b.Resolve([]byte("customer-42"))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestHashBeaconDistributesAcrossShards(t *testing.T) {
	shards := []ID{1, 2, 3, 4}
	b, err := NewHashBeacon(shards)
	require.NoError(t, err)

	hit := make(map[ID]int)
	for i := 0; i < 1000; i++ {
		key := []byte{byte(i), byte(i >> 8)}
		s, err := b.Resolve(key)
		require.NoError(t, err)
		hit[s]++
	}
	for _, s := range shards {
		assert.Greater(t, hit[s], 0, "shard %d received no routing traffic across 1000 keys", s)
	}
}

func TestHashBeaconShardsSortedAndDeduped(t *testing.T) {
	b, err := NewHashBeacon([]ID{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []ID{1, 2, 3}, b.Shards())
}

func TestStaticBeaconAlwaysResolvesSameShard(t *testing.T) {
	b := NewStaticBeacon(7)
	s, err := b.Resolve([]byte("anything"))
	require.NoError(t, err)
	assert.Equal(t, ID(7), s)
	assert.Equal(t, []ID{7}, b.Shards())
}

func TestHashBeaconResolveTableErrorsWithMultipleShards(t *testing.T) {
	b, err := NewHashBeacon([]ID{1, 2, 3})
	require.NoError(t, err)
	_, err = b.ResolveTable()
	require.Error(t, err)
}

func TestHashBeaconResolveTableSucceedsWithOneShard(t *testing.T) {
	b, err := NewHashBeacon([]ID{5})
	require.NoError(t, err)
	id, err := b.ResolveTable()
	require.NoError(t, err)
	assert.Equal(t, ID(5), id)
}

func TestStaticBeaconResolveTableReturnsTarget(t *testing.T) {
	b := NewStaticBeacon(9)
	id, err := b.ResolveTable()
	require.NoError(t, err)
	assert.Equal(t, ID(9), id)
}

func TestAssignHTPCachesAgainstSameTuplePtr(t *testing.T) {
	b, err := NewHashBeacon([]ID{1, 2, 3, 4})
	require.NoError(t, err)

	htp := heap.FormTuplePtr(1, 1, 0, 3)
	want, err := b.Resolve([]byte("row-a"))
	require.NoError(t, err)

	got, err := b.AssignHTP(htp, []byte("row-a"), true)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A later lookup with a different (even wrong) key for the same
	// htp must return the cached assignment rather than re-resolving.
	again, err := b.AssignHTP(htp, []byte("a-totally-different-key"), false)
	require.NoError(t, err)
	assert.Equal(t, want, again)
}

func TestAssignHTPWithoutAssignDoesNotCache(t *testing.T) {
	b, err := NewHashBeacon([]ID{1, 2, 3, 4})
	require.NoError(t, err)

	htp := heap.FormTuplePtr(1, 1, 0, 7)
	_, err = b.AssignHTP(htp, []byte("row-b"), false)
	require.NoError(t, err)

	other, err := b.Resolve([]byte("row-c"))
	require.NoError(t, err)
	got, err := b.AssignHTP(htp, []byte("row-c"), false)
	require.NoError(t, err)
	assert.Equal(t, other, got, "assign=false must never have cached the first lookup")
}

func TestResolveListGroupsIndicesByShard(t *testing.T) {
	b, err := NewHashBeacon([]ID{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)

	keys := make([][]byte, 8)
	for i := range keys {
		keys[i] = []byte{byte(i), byte(i >> 8), byte(i >> 16)}
	}
	groups, err := ResolveList(b, keys)
	require.NoError(t, err)

	total := 0
	for _, idxs := range groups {
		total += len(idxs)
	}
	assert.Equal(t, len(keys), total)
}

func TestCatalogLoadSchemaDrivesEveryBeacon(t *testing.T) {
	c := NewCatalog()
	c.Register("customers", NewStaticBeacon(1))
	c.Register("orders", NewStaticBeacon(2))

	require.NoError(t, c.LoadSchema(stubSchemaSource{}))
}

type stubSchemaSource struct{}

func (stubSchemaSource) TableNames() []string { return []string{"customers", "orders"} }

func TestCatalogRegisterAndLookup(t *testing.T) {
	c := NewCatalog()
	_, err := c.Lookup("customers")
	require.Error(t, err)

	c.Register("customers", NewStaticBeacon(1))
	b, err := c.Lookup("customers")
	require.NoError(t, err)
	s, err := b.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, ID(1), s)
}

func TestCatalogReRegisterReplacesBeacon(t *testing.T) {
	c := NewCatalog()
	c.Register("orders", NewStaticBeacon(1))
	c.Register("orders", NewStaticBeacon(2))

	b, err := c.Lookup("orders")
	require.NoError(t, err)
	s, err := b.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, ID(2), s)
}
