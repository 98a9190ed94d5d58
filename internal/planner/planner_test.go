package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgearhart/vh/internal/catalog"
	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/node"
	"github.com/kgearhart/vh/internal/shard"
	"github.com/kgearhart/vh/internal/typesys"
	"github.com/kgearhart/vh/internal/typevar"
)

func intField(name string) heap.Field {
	return heap.Field{Name: name, TypeID: typesys.TypeInt64, Size: 8, MaxAlign: 8}
}

func strField(name string) heap.Field {
	return heap.Field{Name: name, TypeID: typesys.TypeString, Size: 16, MaxAlign: 8}
}

func newCustomersDef(t *testing.T, beacon shard.Beacon) *catalog.DefVer {
	t.Helper()
	def := catalog.NewDef("public", "customers", false)
	dv, err := def.AddVersion("v1", []heap.Field{intField("id"), strField("name")}, false)
	require.NoError(t, err)
	key, err := catalog.NewKey(&dv.TupleDef.Fields[0])
	require.NoError(t, err)
	dv.KeyPrimary = key
	def.Beacon = beacon
	return dv
}

func strVal(s string) typevar.Value {
	return typevar.NewString(typesys.StackOf(typesys.TypeString), s)
}

func intVal(v int64) typevar.Value {
	return typevar.NewInt64(typesys.StackOf(typesys.TypeInt64), v)
}

func ptr(v typevar.Value) *typevar.Value { return &v }

func TestResolveShardsPinsCompleteEqChainToOneShard(t *testing.T) {
	beacon := shard.NewStaticBeacon(7)
	dv := newCustomersDef(t, beacon)

	customers := &node.From{Table: "customers", DefVer: dv}
	sel := &node.Select{
		From: &node.FromList{Items: []*node.From{customers}},
		Where: &node.QualList{Items: []*node.Qual{
			{Lhs: node.QualSide{Field: &node.Field{Table: customers, Name: "id"}}, Op: typevar.OpEq, Rhs: node.QualSide{Value: ptr(intVal(42))}},
		}},
	}

	g, err := Generate(sel)
	require.NoError(t, err)
	require.Len(t, g.Steps, 1)
	assert.Equal(t, shard.ID(7), g.Steps[0].Shard)
	assert.True(t, g.Valid())
}

func TestResolveShardsFlagsNonEqQualOnKeyAsCrossShard(t *testing.T) {
	beacon, err := shard.NewHashBeacon([]shard.ID{1, 2, 3})
	require.NoError(t, err)
	dv := newCustomersDef(t, beacon)

	customers := &node.From{Table: "customers", DefVer: dv}
	quals := []*node.Qual{
		{Lhs: node.QualSide{Field: &node.Field{Table: customers, Name: "id"}}, Op: typevar.OpGt, Rhs: node.QualSide{Value: ptr(intVal(10))}},
	}
	pt := analyze([]node.TableRef{customers}, quals)

	resolved, cross, err := ResolveShards(pt)
	require.NoError(t, err)
	assert.Empty(t, resolved)
	require.Len(t, cross, 1)
	assert.Equal(t, customers, cross[0].Table)
}

func TestGenerateSelectFansOutAcrossAllShardsWhenNoShardResolved(t *testing.T) {
	beacon, err := shard.NewHashBeacon([]shard.ID{1, 2, 3})
	require.NoError(t, err)
	dv := newCustomersDef(t, beacon)

	customers := &node.From{Table: "customers", DefVer: dv}
	sel := &node.Select{From: &node.FromList{Items: []*node.From{customers}}}

	g, err := Generate(sel)
	require.NoError(t, err)
	require.Len(t, g.Steps, 1)
	assert.Len(t, g.Steps[0].Siblings, 2)
}

func TestDetectBeaconRootsClassifiesRelatedTable(t *testing.T) {
	beacon := shard.NewStaticBeacon(1)

	custDef := catalog.NewDef("public", "customers", false)
	custDV, err := custDef.AddVersion("v1", []heap.Field{intField("id")}, false)
	require.NoError(t, err)
	custKey, err := catalog.NewKey(&custDV.TupleDef.Fields[0])
	require.NoError(t, err)
	custDV.KeyPrimary = custKey
	custDef.Beacon = beacon

	orderDef := catalog.NewDef("public", "orders", false)
	orderDV, err := orderDef.AddVersion("v1", []heap.Field{intField("id"), intField("customer_id")}, false)
	require.NoError(t, err)
	orderKey, err := catalog.NewKey(&orderDV.TupleDef.Fields[0])
	require.NoError(t, err)
	orderDV.KeyPrimary = orderKey
	orderDef.Beacon = beacon

	rel := catalog.NewRel(orderDV, custDV, catalog.ManyToOne)
	orderDV.AddRel(rel)

	customers := &node.From{Table: "customers", DefVer: custDV}
	orders := &node.From{Table: "orders", DefVer: orderDV}

	pt := analyze([]node.TableRef{customers, orders}, nil)
	roots := detectBeaconRoots(pt)

	require.Len(t, roots, 2)
	var sawRoot, sawRelated bool
	for _, r := range roots {
		switch r.Role {
		case RoleRoot:
			sawRoot = true
			assert.Equal(t, custDV, r.DefVer)
		case RoleRelated:
			sawRelated = true
			assert.Equal(t, orderDV, r.DefVer)
			require.NotNil(t, r.Rel)
		}
	}
	assert.True(t, sawRoot)
	assert.True(t, sawRelated)
}

func TestGenerateJoinRendersJoinSQLInOneStep(t *testing.T) {
	beacon := shard.NewStaticBeacon(1)
	custDV := newCustomersDef(t, beacon)

	orderDef := catalog.NewDef("public", "orders", false)
	orderDV, err := orderDef.AddVersion("v1", []heap.Field{intField("id"), intField("person_id")}, false)
	require.NoError(t, err)

	orders := &node.From{Table: "orders", DefVer: orderDV}
	customers := &node.From{Table: "customers", DefVer: custDV}

	sel := &node.Select{
		Fields: &node.FieldList{Items: []*node.Field{{Table: orders, Wildcard: true}}},
		From:   &node.FromList{Items: []*node.From{orders}},
		Joins: &node.JoinList{Items: []*node.Join{
			{
				Kind:  node.JoinInner,
				Table: customers,
				Quals: &node.QualList{Items: []*node.Qual{
					{Lhs: node.QualSide{Field: &node.Field{Table: orders, Name: "person_id"}}, Op: typevar.OpEq, Rhs: node.QualSide{Field: &node.Field{Table: customers, Name: "id"}}},
				}},
			},
		}},
	}

	g, err := Generate(sel)
	require.NoError(t, err)
	require.Len(t, g.Steps, 1)
	assert.Contains(t, g.Steps[0].SQL, "INNER JOIN customers ON (orders.person_id = customers.id)")
}

func TestGenerateInsertRoutesSingleRowByPrimaryKey(t *testing.T) {
	beacon, err := shard.NewHashBeacon([]shard.ID{1, 2, 3})
	require.NoError(t, err)
	dv := newCustomersDef(t, beacon)

	ins := &node.Insert{
		Table:  &node.From{Table: "customers"},
		DefVer: dv,
		Fields: []string{"id", "name"},
		Rows:   [][]typevar.Value{{intVal(7), strVal("Ada")}},
	}

	g, err := Generate(ins)
	require.NoError(t, err)
	require.Len(t, g.Steps, 1)

	want, err := beacon.Resolve(routingKeyBytes([]typevar.Value{intVal(7)}))
	require.NoError(t, err)
	assert.Equal(t, want, g.Steps[0].Shard)
}

func TestGenerateUpdateAndDeleteProduceOneStep(t *testing.T) {
	beacon := shard.NewStaticBeacon(1)
	dv := newCustomersDef(t, beacon)
	customers := &node.From{Table: "customers", DefVer: dv}

	upd := &node.Update{
		Table: customers,
		Sets:  []node.SetClause{{Field: "name", Value: strVal("X")}},
		Where: &node.QualList{Items: []*node.Qual{
			{Lhs: node.QualSide{Field: &node.Field{Table: customers, Name: "id"}}, Op: typevar.OpEq, Rhs: node.QualSide{Value: ptr(intVal(1))}},
		}},
	}
	g, err := Generate(upd)
	require.NoError(t, err)
	require.Len(t, g.Steps, 1)

	del := &node.Delete{Table: customers}
	g, err = Generate(del)
	require.NoError(t, err)
	require.Len(t, g.Steps, 1)
}
