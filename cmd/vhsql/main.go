// Command vhsql is a demonstration of the core: it registers a tiny
// two-table schema sharded by a HashBeacon, builds a Query Node Tree
// by hand (standing in for a query built through internal/preptup),
// plans it, renders the SQL each resolved shard would run, and prints
// the bound parameters alongside it.
//
// Configuration:
//   - VHSQL_SHARDS: comma-separated shard ids to route across
//     (default: "1,2,3")
//
// Example usage:
//
//	VHSQL_SHARDS=1,2,3,4 ./vhsql
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kgearhart/vh/internal/catalog"
	"github.com/kgearhart/vh/internal/ctx"
	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/node"
	"github.com/kgearhart/vh/internal/planner"
	"github.com/kgearhart/vh/internal/shard"
	"github.com/kgearhart/vh/internal/typesys"
	"github.com/kgearhart/vh/internal/typevar"
	"github.com/kgearhart/vh/internal/vhlog"
)

func main() {
	log := vhlog.New(vhlog.WithZap(zap.Must(zap.NewProduction())))
	defer log.Sync()

	if err := run(log); err != nil {
		log.Errorf("vhsql: %v", err)
		os.Exit(1)
	}
}

func run(log *vhlog.Logger) error {
	shards := parseShards(getenv("VHSQL_SHARDS", "1,2,3"))
	log.Infof("routing across %d shards", len(shards))

	beacon, err := shard.NewHashBeacon(shards)
	if err != nil {
		return fmt.Errorf("build beacon: %w", err)
	}

	cc := ctx.New(1)

	custDV, err := registerCustomers(cc.Tables, beacon)
	if err != nil {
		return fmt.Errorf("register customers: %w", err)
	}
	orderDV, err := registerOrders(cc.Tables, beacon, custDV)
	if err != nil {
		return fmt.Errorf("register orders: %w", err)
	}

	customers := &node.From{Table: "customers", DefVer: custDV}
	orders := &node.From{Table: "orders", DefVer: orderDV}

	idVal := typevar.NewInt64(typesys.StackOf(typesys.TypeInt64), 42)
	sel := &node.Select{
		Fields: &node.FieldList{Items: []*node.Field{
			{Table: orders, Wildcard: true},
		}},
		From: &node.FromList{Items: []*node.From{orders}},
		Joins: &node.JoinList{Items: []*node.Join{
			{
				Kind:  node.JoinInner,
				Table: customers,
				Quals: &node.QualList{Items: []*node.Qual{
					{Lhs: node.QualSide{Field: &node.Field{Table: orders, Name: "customer_id"}},
						Op:  typevar.OpEq,
						Rhs: node.QualSide{Field: &node.Field{Table: customers, Name: "id"}}},
				}},
			},
		}},
		Where: &node.QualList{Items: []*node.Qual{
			{Lhs: node.QualSide{Field: &node.Field{Table: customers, Name: "id"}},
				Op:  typevar.OpEq,
				Rhs: node.QualSide{Value: &idVal}},
		}},
	}

	group, err := planner.Generate(sel)
	if err != nil {
		return fmt.Errorf("plan query: %w", err)
	}

	for _, step := range group.Steps {
		printExecStep(step)
		for _, sib := range step.Siblings {
			printExecStep(sib)
		}
	}
	return nil
}

func printExecStep(step *planner.ExecStep) {
	fmt.Printf("shard=%d action=%s\n  sql: %s\n", step.Shard, step.Action, step.SQL)
	if len(step.Params) > 0 {
		parts := make([]string, len(step.Params))
		for i, p := range step.Params {
			parts[i] = p.String()
		}
		fmt.Printf("  params: %s\n", strings.Join(parts, ", "))
	}
}

func registerCustomers(cat *catalog.Catalog, beacon shard.Beacon) (*catalog.DefVer, error) {
	def := catalog.NewDef("public", "customers", false)
	def.Beacon = beacon
	dv, err := def.AddVersion("v1", []heap.Field{
		{Name: "id", TypeID: typesys.TypeInt64, Size: 8, MaxAlign: 8},
		{Name: "name", TypeID: typesys.TypeString, Size: 16, MaxAlign: 8},
	}, false)
	if err != nil {
		return nil, err
	}
	key, err := catalog.NewKey(&dv.TupleDef.Fields[0])
	if err != nil {
		return nil, err
	}
	dv.KeyPrimary = key
	return dv, cat.Register(def)
}

func registerOrders(cat *catalog.Catalog, beacon shard.Beacon, custDV *catalog.DefVer) (*catalog.DefVer, error) {
	def := catalog.NewDef("public", "orders", false)
	def.Beacon = beacon
	dv, err := def.AddVersion("v1", []heap.Field{
		{Name: "id", TypeID: typesys.TypeInt64, Size: 8, MaxAlign: 8},
		{Name: "customer_id", TypeID: typesys.TypeInt64, Size: 8, MaxAlign: 8},
	}, false)
	if err != nil {
		return nil, err
	}
	key, err := catalog.NewKey(&dv.TupleDef.Fields[0])
	if err != nil {
		return nil, err
	}
	dv.KeyPrimary = key

	rel := catalog.NewRel(dv, custDV, catalog.ManyToOne)
	if err := rel.AddQual(&dv.TupleDef.Fields[1], &custDV.TupleDef.Fields[0]); err != nil {
		return nil, err
	}
	dv.AddRel(rel)

	return dv, cat.Register(def)
}

func parseShards(csv string) []shard.ID {
	parts := strings.Split(csv, ",")
	out := make([]shard.ID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			continue
		}
		out = append(out, shard.ID(n))
	}
	if len(out) == 0 {
		out = []shard.ID{1}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
