package jitrt

import (
	"hash/fnv"

	"github.com/ngcodegen/corejit/code"
)

// CacheKey is the 64-bit FNV-1a digest of (arch, abi, bytes), per spec
// §4.9/§9: equal byte vectors plus equal arch/ABI must hash equal, and a
// hash collision between two distinct byte vectors is never trusted on
// its own — lookupCached always re-compares the full bytes on a hit.
// hash/fnv is the standard library's own implementation of the hash the
// spec names explicitly (§8's "per-process FNV seed table for cache
// keys"); no third-party hash library in the example pack offers FNV-1a,
// so this is one of the few deliberate stdlib uses, recorded in
// DESIGN.md.
type CacheKey uint64

// computeCacheKey hashes arch, ABI, and the code bytes in that order so
// two modules compiled for different targets from identical bytes never
// collide.
func computeCacheKey(env code.Env, bytes []byte) CacheKey {
	h := fnv.New64a()
	h.Write([]byte{byte(env.Arch), byte(env.ABI)})
	h.Write(bytes)
	return CacheKey(h.Sum64())
}

// CacheEntry is what an external Cache tier stores and returns: the
// finalized bytes plus enough environment info to report a mismatch.
type CacheEntry struct {
	Bytes []byte
	Arch  code.Arch
	ABI   code.ABI
}

// Cache is the pluggable second cache tier consulted on a local miss,
// mirroring internal/engine/compiler/engine_cache.go's
// addCodesToCache/getCodesFromCache split between an in-memory map and
// an optional external store (e.g. a filesystem or remote cache). A nil
// Cache (the Config default) means the Runtime only ever uses its
// in-memory tier.
type Cache interface {
	Get(key CacheKey) (entry CacheEntry, ok bool, err error)
	Put(key CacheKey, entry CacheEntry) error
}

// MemoryCache is a trivial in-process Cache, useful for tests and for
// sharing compiled code across multiple Runtimes in the same process
// without re-deriving bytes from source.
type MemoryCache struct {
	entries map[CacheKey]CacheEntry
}

// NewMemoryCache constructs an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[CacheKey]CacheEntry)}
}

func (m *MemoryCache) Get(key CacheKey) (CacheEntry, bool, error) {
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryCache) Put(key CacheKey, entry CacheEntry) error {
	m.entries[key] = entry
	return nil
}
