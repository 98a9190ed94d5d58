// Package shard implements the sharding/beacon layer of SPEC_FULL.md
// §5.9 / spec.md §4.6: the opaque Shard identity a row or table
// resolves to, and the Beacon interface that performs that
// resolution.
//
// # Overview
//
// A Beacon is a pluggable routing oracle. Given a row's logical key
// value(s) (or, for unsharded/reference tables, nothing at all) it
// returns the Shard that owns the data. The planner's beacon-root
// detection pass (internal/planner) walks a query's equality-qual
// chain looking for a root it can hand to a Beacon to resolve a single
// target shard rather than fanning the query out to every shard the
// table spans.
//
// Two Beacon implementations ship with this package:
//
//   - HashBeacon: a consistent-hash beacon over a fixed ring of
//     Shards, keyed by xxhash of the routing value's encoded bytes.
//   - StaticBeacon: a test double that always resolves to one fixed
//     Shard, for tests and for genuinely unsharded catalogs.
//
// BeaconCatalog associates each TableDef with the Beacon that resolves
// rows belonging to it, the same lookup-table-from-named-resource-to-
// routing-decision role a ShardRegistry plays in a distributed
// key/value store, adapted here to route table rows rather than
// HTTP-addressed cluster shards.
package shard
