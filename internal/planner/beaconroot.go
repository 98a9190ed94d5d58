package planner

import (
	"github.com/kgearhart/vh/internal/catalog"
	"github.com/kgearhart/vh/internal/node"
	"github.com/kgearhart/vh/internal/shard"
)

// Role is a PlanBeaconRoot's relationship to its Beacon's routing
// root table (spec.md §4.7).
type Role int

const (
	// RoleRoot: this table version IS the Beacon's own root table.
	RoleRoot Role = iota
	// RoleRelated: directly related to the root by a 1:1 or N:1 rel.
	RoleRelated
	// RoleProxy: not related, but shares the root's key field names,
	// so a root shard resolution also routes this table's rows.
	RoleProxy
	// RoleUniqueKey: no route back to the root; rows on this table
	// under this Beacon require a cross-shard (unique-key) fetch.
	RoleUniqueKey
)

func (r Role) String() string {
	switch r {
	case RoleRoot:
		return "root"
	case RoleRelated:
		return "related"
	case RoleProxy:
		return "proxy"
	case RoleUniqueKey:
		return "unique-key"
	default:
		return "invalid"
	}
}

// BeaconRoot is a PlanBeaconRoot: one table version's resolved
// relationship to a Beacon referenced by the query.
type BeaconRoot struct {
	Beacon shard.Beacon
	DefVer *catalog.DefVer
	Table  node.TableRef
	Rel    *catalog.Rel
	Role   Role
}

func keyFieldNamesEqual(a, b catalog.Key) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i].Name != b.Fields[i].Name {
			return false
		}
	}
	return true
}

// detectBeaconRoots groups every beacon-backed table version the tree
// references by its Beacon, picks one root per group (the first
// version that holds no outer relation to any other version in the
// group), and
// classifies the rest as related/proxy/unique-key against that root.
func detectBeaconRoots(pt *Tree) []*BeaconRoot {
	type entry struct {
		dv  *catalog.DefVer
		ref node.TableRef
	}

	byBeacon := map[shard.Beacon][]entry{}
	for dv, refs := range pt.NodeTD {
		if dv == nil || dv.Def == nil || dv.Def.Beacon == nil {
			continue
		}
		for _, r := range refs {
			byBeacon[dv.Def.Beacon] = append(byBeacon[dv.Def.Beacon], entry{dv, r})
		}
	}

	var out []*BeaconRoot
	for beacon, entries := range byBeacon {
		if len(entries) == 1 {
			out = append(out, &BeaconRoot{Beacon: beacon, DefVer: entries[0].dv, Table: entries[0].ref, Role: RoleRoot})
			continue
		}

		root := entries[0]
		for _, e := range entries {
			hasOuterAmongPeers := false
			for _, rel := range e.dv.Rels {
				for _, peer := range entries {
					if rel.Outer == peer.dv {
						hasOuterAmongPeers = true
					}
				}
			}
			if !hasOuterAmongPeers {
				root = e
				break
			}
		}
		out = append(out, &BeaconRoot{Beacon: beacon, DefVer: root.dv, Table: root.ref, Role: RoleRoot})

		for _, e := range entries {
			if e.dv == root.dv {
				continue
			}
			if rel, err := e.dv.Rel(root.dv); err == nil && (rel.Card == catalog.OneToOne || rel.Card == catalog.ManyToOne) {
				out = append(out, &BeaconRoot{Beacon: beacon, DefVer: e.dv, Table: e.ref, Rel: rel, Role: RoleRelated})
				continue
			}
			if keyFieldNamesEqual(e.dv.KeyPrimary, root.dv.KeyPrimary) {
				out = append(out, &BeaconRoot{Beacon: beacon, DefVer: e.dv, Table: e.ref, Role: RoleProxy})
				continue
			}
			out = append(out, &BeaconRoot{Beacon: beacon, DefVer: e.dv, Table: e.ref, Role: RoleUniqueKey})
		}
	}
	return out
}
