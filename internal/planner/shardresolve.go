package planner

import (
	"github.com/kgearhart/vh/internal/node"
	"github.com/kgearhart/vh/internal/shard"
	"github.com/kgearhart/vh/internal/typevar"
)

// ShardResolution is one table reference's proven shard binding: an
// Eq-qual chain covering every one of its beacon-key fields, submitted
// to the table's Beacon.
type ShardResolution struct {
	Table node.TableRef
	Shard shard.ID
	Quals []*node.Qual
}

// CrossShardFetch flags a table reference the planner could not pin
// to one shard: the table participates in a Beacon but its filter
// quals leave its key chain incomplete or use a non-Eq comparison on a
// key field, so every shard the Beacon knows about must be queried.
type CrossShardFetch struct {
	Table  node.TableRef
	Reason string
}

func fieldValueQual(q *node.Qual) (fieldName string, val typevar.Value, ok bool) {
	if q.Lhs.Field != nil && q.Rhs.Value != nil {
		return q.Lhs.Field.Name, *q.Rhs.Value, true
	}
	if q.Rhs.Field != nil && q.Lhs.Value != nil {
		return q.Rhs.Field.Name, *q.Lhs.Value, true
	}
	return "", typevar.Value{}, false
}

// routingKeyBytes encodes a resolved beacon-key chain's values into
// the byte key a Beacon hashes. The original folds matched quals into
// a small HeapTuple before submission; since this module's Qual
// already carries a Value directly, a simple ordered string
// concatenation of each value's rendering is enough to give a Beacon a
// stable, distinguishing key without needing an intermediate tuple.
func routingKeyBytes(vals []typevar.Value) []byte {
	var out []byte
	for _, v := range vals {
		out = append(out, []byte(v.String())...)
		out = append(out, 0)
	}
	return out
}

// ResolveShards is esg_quals_pullshard: for every beacon-backed table
// reference in pt, looks for an AND-chain of Eq quals covering all of
// its primary key's fields. A complete chain is submitted to the
// table's Beacon for a shard; an incomplete chain, or any non-Eq qual
// touching a key field, instead produces a CrossShardFetch.
func ResolveShards(pt *Tree) ([]*ShardResolution, []*CrossShardFetch, error) {
	var resolved []*ShardResolution
	var cross []*CrossShardFetch

	for dv, refs := range pt.NodeTD {
		if dv == nil || dv.Def == nil || dv.Def.Beacon == nil || dv.KeyPrimary.IsEmpty() {
			continue
		}
		for _, ref := range refs {
			quals := pt.filters[ref]

			matched := make(map[string]*node.Qual, len(dv.KeyPrimary.Fields))
			touchesKey := false
			for _, q := range quals {
				name, _, ok := fieldValueQual(q)
				if !ok {
					continue
				}
				for _, kf := range dv.KeyPrimary.Fields {
					if kf.Name == name {
						touchesKey = true
						if q.Op == typevar.OpEq {
							matched[name] = q
						}
					}
				}
			}

			var chain []*node.Qual
			var vals []typevar.Value
			complete := true
			for _, kf := range dv.KeyPrimary.Fields {
				q, ok := matched[kf.Name]
				if !ok {
					complete = false
					break
				}
				_, val, _ := fieldValueQual(q)
				vals = append(vals, val)
				chain = append(chain, q)
			}

			if !complete {
				if touchesKey {
					cross = append(cross, &CrossShardFetch{Table: ref, Reason: "incomplete or non-Eq qual chain on beacon key"})
				}
				continue
			}

			id, err := dv.Def.Beacon.Resolve(routingKeyBytes(vals))
			if err != nil {
				return nil, nil, err
			}
			resolved = append(resolved, &ShardResolution{Table: ref, Shard: id, Quals: chain})
		}
	}
	return resolved, cross, nil
}

// allShards returns the union of every distinct Beacon's Shards()
// referenced by pt, used as the fallback fan-out when no table
// reference's shard could be resolved (esg_discover_shards).
func allShards(pt *Tree) []shard.ID {
	seen := map[shard.ID]bool{}
	seenBeacon := map[shard.Beacon]bool{}
	var out []shard.ID
	for dv := range pt.NodeTD {
		if dv == nil || dv.Def == nil || dv.Def.Beacon == nil || seenBeacon[dv.Def.Beacon] {
			continue
		}
		seenBeacon[dv.Def.Beacon] = true
		for _, s := range dv.Def.Beacon.Shards() {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
