package planner

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgearhart/vh/internal/catalog"
	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/node"
	"github.com/kgearhart/vh/internal/shard"
)

func customerRow(t *testing.T, buf *heap.Buffer, dv *catalog.DefVer, id int64, name string) *heap.Tuple {
	t.Helper()
	data := make([]byte, dv.TupleDef.HeapSize)
	binary.LittleEndian.PutUint64(data[dv.TupleDef.Fields[0].Offset:], uint64(id))
	copy(data[dv.TupleDef.Fields[1].Offset:], name)
	tup, err := buf.AllocTuple(dv.TupleDef, data)
	require.NoError(t, err)
	return tup
}

func TestGenerateDeleteSingleTargetScopesToItsPrimaryKey(t *testing.T) {
	beacon := shard.NewStaticBeacon(9)
	dv := newCustomersDef(t, beacon)
	customers := &node.From{Table: "customers", DefVer: dv}
	buf := heap.NewBuffer(0, 1, 4, 4)

	del := &node.Delete{Table: customers, Targets: []*heap.Tuple{customerRow(t, buf, dv, 1, "A")}}
	g, err := Generate(del)
	require.NoError(t, err)
	require.Len(t, g.Steps, 1)
	assert.Equal(t, shard.ID(9), g.Steps[0].Shard)
	assert.Equal(t, node.ActionDelete, g.Steps[0].Action)
	require.Len(t, g.Steps[0].Params, 1)
	assert.Equal(t, int64(1), g.Steps[0].Params[0].Int64())
}

func TestGenerateDeleteMultipleTargetsSinglePKBuildsOrChain(t *testing.T) {
	beacon := shard.NewStaticBeacon(9)
	dv := newCustomersDef(t, beacon)
	customers := &node.From{Table: "customers", DefVer: dv}
	buf := heap.NewBuffer(0, 1, 4, 4)

	del := &node.Delete{Table: customers, Targets: []*heap.Tuple{
		customerRow(t, buf, dv, 1, "A"),
		customerRow(t, buf, dv, 2, "B"),
		customerRow(t, buf, dv, 3, "C"),
	}}
	g, err := Generate(del)
	require.NoError(t, err)
	require.Len(t, g.Steps, 1)
	require.Len(t, g.Steps[0].Params, 3)
	assert.Contains(t, g.Steps[0].SQL, " OR ")
}

func TestGenerateDeleteGroupsTargetsByResolvedShard(t *testing.T) {
	beacon, err := shard.NewHashBeacon([]shard.ID{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	dv := newCustomersDef(t, beacon)
	customers := &node.From{Table: "customers", DefVer: dv}
	buf := heap.NewBuffer(0, 1, 4, 4)

	var targets []*heap.Tuple
	for i := int64(1); i <= 8; i++ {
		targets = append(targets, customerRow(t, buf, dv, i, "n"))
	}

	del := &node.Delete{Table: customers, Targets: targets}
	g, err := Generate(del)
	require.NoError(t, err)
	assert.Greater(t, len(g.Steps), 1, "rows resolving to different shards should produce more than one ExecStep")

	total := 0
	for _, step := range g.Steps {
		total += len(step.Params)
	}
	assert.Equal(t, 8, total, "every target row must appear in exactly one step's params")
}

func TestGenerateDeleteMultiColumnPrimaryKeyUsesGroupedQuals(t *testing.T) {
	def := catalog.NewDef("public", "order_items", false)
	dv, err := def.AddVersion("v1", []heap.Field{intField("order_id"), intField("line_no"), intField("qty")}, false)
	require.NoError(t, err)
	key, err := catalog.NewKey(&dv.TupleDef.Fields[0], &dv.TupleDef.Fields[1])
	require.NoError(t, err)
	dv.KeyPrimary = key
	def.Beacon = shard.NewStaticBeacon(1)

	items := &node.From{Table: "order_items", DefVer: dv}
	buf := heap.NewBuffer(0, 1, 4, 4)

	row := func(orderID, lineNo, qty int64) *heap.Tuple {
		data := make([]byte, dv.TupleDef.HeapSize)
		binary.LittleEndian.PutUint64(data[dv.TupleDef.Fields[0].Offset:], uint64(orderID))
		binary.LittleEndian.PutUint64(data[dv.TupleDef.Fields[1].Offset:], uint64(lineNo))
		binary.LittleEndian.PutUint64(data[dv.TupleDef.Fields[2].Offset:], uint64(qty))
		tup, err := buf.AllocTuple(dv.TupleDef, data)
		require.NoError(t, err)
		return tup
	}

	del := &node.Delete{Table: items, Targets: []*heap.Tuple{row(1, 1, 5), row(1, 2, 7)}}
	g, err := Generate(del)
	require.NoError(t, err)
	require.Len(t, g.Steps, 1)
	assert.Contains(t, g.Steps[0].SQL, " AND ")
	assert.Contains(t, g.Steps[0].SQL, " OR ")
	require.Len(t, g.Steps[0].Params, 4)
}

func TestGenerateUpdateWithLockRowAddsSelectForUpdateStep(t *testing.T) {
	beacon := shard.NewStaticBeacon(9)
	dv := newCustomersDef(t, beacon)
	customers := &node.From{Table: "customers", DefVer: dv}
	buf := heap.NewBuffer(0, 1, 4, 4)

	upd := &node.Update{
		Table:   customers,
		Sets:    []node.SetClause{{Field: "name", Value: strVal("X")}},
		Targets: []*heap.Tuple{customerRow(t, buf, dv, 1, "A")},
		Lock:    node.LockRow,
	}
	g, err := Generate(upd)
	require.NoError(t, err)
	require.Len(t, g.Steps, 2)
	assert.Equal(t, node.ActionSelect, g.Steps[0].Action)
	assert.Contains(t, g.Steps[0].SQL, "FOR UPDATE")
	assert.Equal(t, node.ActionUpdate, g.Steps[1].Action)
	assert.Equal(t, shard.ID(9), g.Steps[0].Shard)
	assert.Equal(t, shard.ID(9), g.Steps[1].Shard)
}

func TestGenerateUpdateNoLockOmitsSelectForUpdateStep(t *testing.T) {
	beacon := shard.NewStaticBeacon(9)
	dv := newCustomersDef(t, beacon)
	customers := &node.From{Table: "customers", DefVer: dv}
	buf := heap.NewBuffer(0, 1, 4, 4)

	upd := &node.Update{
		Table:   customers,
		Sets:    []node.SetClause{{Field: "name", Value: strVal("X")}},
		Targets: []*heap.Tuple{customerRow(t, buf, dv, 1, "A")},
	}
	g, err := Generate(upd)
	require.NoError(t, err)
	require.Len(t, g.Steps, 1)
	assert.Equal(t, node.ActionUpdate, g.Steps[0].Action)
}

func TestGenerateDeleteTargetsWithoutDefVerIsMalformed(t *testing.T) {
	buf := heap.NewBuffer(0, 1, 4, 4)
	td, err := heap.NewTupleDef([]heap.Field{intField("id")})
	require.NoError(t, err)
	data := make([]byte, td.HeapSize)
	tup, err := buf.AllocTuple(td, data)
	require.NoError(t, err)

	del := &node.Delete{Table: &node.From{Table: "customers"}, Targets: []*heap.Tuple{tup}}
	_, err = Generate(del)
	require.Error(t, err)
}
