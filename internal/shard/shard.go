package shard

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/verr"
)

// ID is a Shard's opaque identity. Nothing outside this package
// interprets its value beyond equality and its use as a Beacon's
// routing target; which physical back end a given ID maps to is a
// concern of internal/backend, kept deliberately out of this package.
type ID uint32

// NoShard is the zero ID. The planner binds a step to it when the
// table has no Beacon or no shard could be resolved; the Beacons in
// this package return it only alongside an error, or as the target of
// a StaticBeacon built for shard 0.
const NoShard ID = 0

// Beacon is the routing oracle spec.md §4.6 describes, mirroring
// Beacon.h's BeaconFuncTableData dispatch shape: ht→Shard (Resolve,
// called once a row's routing value has already been extracted),
// htp→Shard(assign) (AssignHTP, the pointer-identified and optionally
// cached form), td→Shard (ResolveTable, a whole-table default), and
// the schema-load callback (LoadSchema). List variants
// (ht_shard_list/htp_shard_list/td_shard_list) have no dedicated
// interface method: grouping a batch of keys by the Shard each one
// resolves to needs nothing beyond repeated Resolve calls, so
// ResolveList below is a plain function built on the interface
// instead of a fourth method every implementation would have to
// repeat identically.
type Beacon interface {
	// Resolve returns the Shard owning key. Planner shard
	// resolution calls this once per distinct routing value it can
	// prove is pinned by an equality qual.
	Resolve(key []byte) (ID, error)
	// AssignHTP resolves the Shard owning the row htp addresses,
	// identified by its routing key bytes. When assign is true and
	// htp has no cached Shard yet, the resolved answer is recorded
	// against htp so a later AssignHTP(htp, nil, false) call for the
	// same pointer returns that cached Shard instead of recomputing
	// it from key — key is ignored once a cached answer exists.
	AssignHTP(htp heap.TuplePtr, key []byte, assign bool) (ID, error)
	// ResolveTable returns the single Shard an entire table defaults
	// to when no row-level routing value is available (an unsharded
	// reference table, or a whole-table DDL/scan operation). A Beacon
	// spanning more than one Shard has no such default and errors.
	ResolveTable() (ID, error)
	// Shards returns every Shard this Beacon can route to, in a
	// stable order — used by the planner to fall back to an
	// all-shards fan-out when no shard can be resolved from the
	// query's quals.
	Shards() []ID
	// LoadSchema configures this Beacon from a freshly loaded table
	// catalog. Beacons whose routing is fixed at construction (every
	// Beacon this package ships) have nothing to configure and return
	// nil; the hook exists for a back-end-specific Beacon that must
	// derive its routing from persisted schema.
	LoadSchema(src SchemaSource) error
}

// SchemaSource is the minimal surface a LoadSchema implementation
// needs from a table catalog. It is declared here as an interface,
// rather than importing internal/catalog's concrete catalog type,
// because internal/catalog already imports this package for Beacon —
// importing it back would cycle.
type SchemaSource interface {
	// TableNames lists every table the catalog currently holds.
	TableNames() []string
}

// ResolveList resolves every key to its Shard in one pass and groups
// the input positions by that Shard — the list-variant concern
// ht_shard_list/htp_shard_list/td_shard_list name, expressed as a
// plain function over Resolve rather than a fourth Beacon method
// every implementation would otherwise have to repeat.
func ResolveList(b Beacon, keys [][]byte) (map[ID][]int, error) {
	out := make(map[ID][]int)
	for i, k := range keys {
		id, err := b.Resolve(k)
		if err != nil {
			return nil, err
		}
		out[id] = append(out[id], i)
	}
	return out, nil
}

// htpAssignments is the shared htp→Shard assignment cache every
// Beacon implementation in this package embeds to satisfy AssignHTP,
// since the caching behavior the original's "assign" flag describes
// doesn't depend on how a Beacon resolves a fresh key.
type htpAssignments struct {
	mu      sync.Mutex
	assigns map[heap.TuplePtr]ID
}

func (a *htpAssignments) resolve(htp heap.TuplePtr, key []byte, assign bool, resolve func([]byte) (ID, error)) (ID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.assigns != nil {
		if id, ok := a.assigns[htp]; ok {
			return id, nil
		}
	}
	id, err := resolve(key)
	if err != nil {
		return NoShard, err
	}
	if assign {
		if a.assigns == nil {
			a.assigns = make(map[heap.TuplePtr]ID)
		}
		a.assigns[htp] = id
	}
	return id, nil
}

// HashBeacon is a consistent-hash Beacon over a fixed ring of Shards,
// keyed by xxhash of the routing value. Re-sharding (changing the
// ring) is out of scope for this module (spec.md's Non-goals exclude
// online resharding); HashBeacon's ring is fixed at construction.
//
// Thread Safety: HashBeacon's ring is immutable after NewHashBeacon
// returns, so concurrent Resolve calls are safe; the AssignHTP cache
// is guarded by a mutex.
type HashBeacon struct {
	ring    []ringEntry
	assigns htpAssignments
}

type ringEntry struct {
	hash  uint64
	shard ID
}

// vnodesPerShard is how many points each Shard gets on the hash ring;
// more points smooths the distribution of routing values across
// shards at the cost of a longer ring to binary-search.
const vnodesPerShard = 64

// NewHashBeacon builds a HashBeacon routing across shards.
func NewHashBeacon(shards []ID) (*HashBeacon, error) {
	if len(shards) == 0 {
		return nil, verr.New(verr.KindSchemaConflict, "hash beacon requires at least one shard")
	}
	ring := make([]ringEntry, 0, len(shards)*vnodesPerShard)
	for _, s := range shards {
		for v := 0; v < vnodesPerShard; v++ {
			ring = append(ring, ringEntry{hash: vnodeHash(s, v), shard: s})
		}
	}
	sort.Slice(ring, func(i, j int) bool { return ring[i].hash < ring[j].hash })
	return &HashBeacon{ring: ring}, nil
}

func vnodeHash(s ID, vnode int) uint64 {
	buf := make([]byte, 8)
	buf[0] = byte(s)
	buf[1] = byte(s >> 8)
	buf[2] = byte(s >> 16)
	buf[3] = byte(s >> 24)
	buf[4] = byte(vnode)
	buf[5] = byte(vnode >> 8)
	return xxhash.Sum64(buf)
}

// Resolve hashes key and returns the Shard owning the first ring
// position at or after that hash (wrapping to the first entry if the
// hash is past every ring position).
func (b *HashBeacon) Resolve(key []byte) (ID, error) {
	h := xxhash.Sum64(key)
	idx := sort.Search(len(b.ring), func(i int) bool { return b.ring[i].hash >= h })
	if idx == len(b.ring) {
		idx = 0
	}
	return b.ring[idx].shard, nil
}

// Shards returns the distinct Shards on the ring, sorted by ID.
func (b *HashBeacon) Shards() []ID {
	seen := make(map[ID]bool)
	var out []ID
	for _, e := range b.ring {
		if !seen[e.shard] {
			seen[e.shard] = true
			out = append(out, e.shard)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AssignHTP resolves htp's Shard via Resolve, optionally caching the
// answer against htp when assign is true.
func (b *HashBeacon) AssignHTP(htp heap.TuplePtr, key []byte, assign bool) (ID, error) {
	return b.assigns.resolve(htp, key, assign, b.Resolve)
}

// ResolveTable returns the only Shard when the ring holds exactly one;
// a HashBeacon spanning more than one Shard has no single default to
// name for a whole-table operation and errors.
func (b *HashBeacon) ResolveTable() (ID, error) {
	shards := b.Shards()
	if len(shards) == 1 {
		return shards[0], nil
	}
	return NoShard, verr.New(verr.KindSchemaConflict, "hash beacon spans %d shards; no default shard for a whole-table operation", len(shards))
}

// LoadSchema is a no-op: a HashBeacon's ring is fixed at construction
// and has nothing to configure from the loaded table list.
func (b *HashBeacon) LoadSchema(SchemaSource) error { return nil }

// StaticBeacon always resolves to one fixed Shard. It is both the
// realistic choice for an unsharded reference table and the test
// double internal/planner's tests drive to pin beacon-root resolution
// to a known answer.
type StaticBeacon struct {
	target  ID
	assigns htpAssignments
}

// NewStaticBeacon returns a StaticBeacon that resolves every key to
// target.
func NewStaticBeacon(target ID) *StaticBeacon { return &StaticBeacon{target: target} }

func (b *StaticBeacon) Resolve([]byte) (ID, error) { return b.target, nil }
func (b *StaticBeacon) Shards() []ID               { return []ID{b.target} }

// AssignHTP always resolves to target; the assignment cache still
// applies so repeated lookups for the same htp behave identically to
// a Beacon whose answer genuinely depends on htp's key.
func (b *StaticBeacon) AssignHTP(htp heap.TuplePtr, key []byte, assign bool) (ID, error) {
	return b.assigns.resolve(htp, key, assign, b.Resolve)
}

// ResolveTable always returns target: a StaticBeacon is, by
// definition, a single-shard default.
func (b *StaticBeacon) ResolveTable() (ID, error) { return b.target, nil }

// LoadSchema is a no-op: a StaticBeacon's target is fixed at
// construction.
func (b *StaticBeacon) LoadSchema(SchemaSource) error { return nil }

// Catalog is a BeaconCatalog: the table-name-to-Beacon association
// tables consult to resolve their own rows (spec.md §4.6). It plays
// the same "named resource to routing decision" role the teacher's
// ShardRegistry played for HTTP-addressed cluster shards, retargeted
// at table rows.
//
// Thread Safety: Catalog serializes registration and lookup behind a
// RWMutex, allowing concurrent readers once the set of tables is
// stable.
type Catalog struct {
	mu      sync.RWMutex
	beacons map[string]Beacon
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{beacons: make(map[string]Beacon)}
}

// Register associates table with beacon. Re-registering a table name
// replaces its previous Beacon.
func (c *Catalog) Register(table string, beacon Beacon) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beacons[table] = beacon
}

// Lookup returns the Beacon registered for table, or a SchemaConflict
// error if none has been registered.
func (c *Catalog) Lookup(table string) (Beacon, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.beacons[table]
	if !ok {
		return nil, verr.New(verr.KindSchemaConflict, "no beacon registered for table %q", table)
	}
	return b, nil
}

// LoadSchema drives every registered Beacon's own LoadSchema hook from
// src, the BeaconCatalog-level counterpart of Beacon.h's per-Beacon
// load_schema callback — called once a table catalog has finished
// loading so a Beacon whose routing depends on persisted schema can
// configure itself.
func (c *Catalog) LoadSchema(src SchemaSource) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for table, b := range c.beacons {
		if err := b.LoadSchema(src); err != nil {
			return verr.Wrap(verr.KindSchemaConflict, err, "beacon for table %q failed schema load", table)
		}
	}
	return nil
}
