package jitrt

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/internal/jiterr"
	"github.com/ngcodegen/corejit/vmem"
)

// slot is one runtime-owned executable allocation. epoch distinguishes a
// reused table index from the handle that used to own it, the same
// generation-counter trick wazero's own engine avoids needing only
// because it never reuses slots — this runtime does, so every JitFunction
// carries the epoch it was minted under and a dispose against a stale
// epoch is silently ignored rather than corrupting a later tenant.
type slot struct {
	block    *vmem.Block
	epoch    uint64
	CacheKey CacheKey
	inCache  bool
}

// Runtime owns every vmem.Block it has allocated and every JitFunction
// handle derived from them (spec §3's ownership rule: "the Runtime owns
// every VirtMemBlock it allocates and every JitFunction handle it has
// issued; disposing the Runtime invalidates all outstanding handles").
// Handles are weak references to runtime-owned memory — the
// Runtime<->JitFunction cycle is broken the way spec §8 directs: handles
// hold a slot index and epoch, never a pointer back into the Runtime.
type Runtime struct {
	mu       sync.Mutex
	cfg      Config
	slots    []slot
	free     []int
	cache    map[CacheKey]int // CacheKey -> slot index, in-memory tier
	disposed bool
}

// NewRuntime constructs a Runtime ready to accept Add/AddCached calls.
func NewRuntime(opts ...Option) *Runtime {
	cfg := NewConfig(opts...)
	return &Runtime{cfg: cfg, cache: make(map[CacheKey]int)}
}

// Add implements the seven-step install pipeline of spec §4.9: finalize,
// round up to page granularity, allocate an RW block, copy the bytes in,
// flip to RX, flush the instruction cache, and return a handle. Failure
// at any step releases whatever was allocated and propagates the error
// un-cached.
func (r *Runtime) Add(holder *code.CodeHolder) (*JitFunction, error) {
	finalized, err := holder.Finalize()
	if err != nil {
		return nil, err
	}
	return r.AddBytes(finalized.Bytes, holder.Env)
}

// AddBytes installs already-finalized machine code directly, skipping
// CodeHolder.Finalize — the path spec §6's public API calls `addBytes`.
func (r *Runtime) AddBytes(code []byte, env code.Env) (*JitFunction, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: zero-length code", jiterr.NoCodeGenerated)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return nil, fmt.Errorf("%w: runtime already disposed", jiterr.InvalidState)
	}
	if r.cfg.execMemDisabled {
		return nil, fmt.Errorf("%w: executable memory support is turned off by config", jiterr.FeatureNotEnabled)
	}

	pageSize := vmem.GetInfo().PageSize
	size := alignUp(len(code), pageSize)

	block, err := vmem.Alloc(size, vmem.Read|vmem.Write)
	if err != nil {
		return nil, err
	}
	if err := vmem.WriteBytes(block, code, 0); err != nil {
		_ = vmem.Release(block)
		return nil, err
	}
	if err := vmem.ProtectRX(block); err != nil {
		_ = vmem.Release(block)
		return nil, err
	}
	vmem.FlushInstructionCache(block.Addr, len(code))

	idx, epoch := r.allocSlot(block)
	r.cfg.log(fmt.Sprintf("jitrt: installed %d bytes (%s/%s) at slot %d", len(code), env.Arch, env.ABI, idx))

	fn := &JitFunction{rt: r, slot: idx, epoch: epoch, size: len(code)}
	runtime.SetFinalizer(fn, (*JitFunction).release)
	return fn, nil
}

// AddCached implements spec §4.9's addCached: derive (or accept) a key
// from (arch, abi, bytes) via 64-bit FNV-1a, return the already-installed
// handle on a hit, else compile-and-insert. An FNV-1a collision between
// two distinct byte vectors is rejected by a full-bytes comparison on
// hit, per spec §9's resolved Open Question, rather than trusted blindly.
func (r *Runtime) AddCached(holder *code.CodeHolder, key ...CacheKey) (*JitFunction, error) {
	finalized, err := holder.Finalize()
	if err != nil {
		return nil, err
	}
	return r.addCachedBytes(finalized.Bytes, holder.Env, key...)
}

func (r *Runtime) addCachedBytes(codeBytes []byte, env code.Env, key ...CacheKey) (*JitFunction, error) {
	if !r.cfg.enableCache {
		return r.AddBytes(codeBytes, env)
	}

	var k CacheKey
	if len(key) > 0 {
		k = key[0]
	} else {
		k = computeCacheKey(env, codeBytes)
	}

	if fn, ok := r.lookupCached(k, codeBytes); ok {
		return fn, nil
	}

	if r.cfg.cache != nil {
		if entry, ok, err := r.cfg.cache.Get(k); err == nil && ok && bytesEqual(entry.Bytes, codeBytes) {
			return r.installCached(entry.Bytes, env, k)
		}
	}

	fn, err := r.AddBytes(codeBytes, env)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.slots[fn.slot].CacheKey = k
	r.slots[fn.slot].inCache = true
	r.cache[k] = fn.slot
	r.mu.Unlock()

	if r.cfg.cache != nil {
		_ = r.cfg.cache.Put(k, CacheEntry{Bytes: codeBytes, Arch: env.Arch, ABI: env.ABI})
	}
	return fn, nil
}

func (r *Runtime) installCached(codeBytes []byte, env code.Env, k CacheKey) (*JitFunction, error) {
	fn, err := r.AddBytes(codeBytes, env)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.slots[fn.slot].CacheKey = k
	r.slots[fn.slot].inCache = true
	r.cache[k] = fn.slot
	r.mu.Unlock()
	return fn, nil
}

func (r *Runtime) lookupCached(k CacheKey, wantBytes []byte) (*JitFunction, bool) {
	r.mu.Lock()
	idx, ok := r.cache[k]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	s := r.slots[idx]
	r.mu.Unlock()
	if !bytesEqual(s.block.Data[:len(wantBytes)], wantBytes) {
		return nil, false
	}
	fn := &JitFunction{rt: r, slot: idx, epoch: s.epoch, size: len(wantBytes)}
	runtime.SetFinalizer(fn, (*JitFunction).release)
	return fn, true
}

// DropCached evicts key from the cache and disposes its handle, if present.
func (r *Runtime) DropCached(k CacheKey) {
	r.mu.Lock()
	idx, ok := r.cache[k]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.cache, k)
	r.mu.Unlock()
	r.releaseSlot(idx)
}

// ClearCache evicts and disposes every cached handle.
func (r *Runtime) ClearCache() {
	r.mu.Lock()
	keys := make([]CacheKey, 0, len(r.cache))
	for k := range r.cache {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	for _, k := range keys {
		r.DropCached(k)
	}
}

// Dispose releases every block the Runtime owns, even ones for which a
// handle is still alive. Per spec §4.9's resolved Open Question, this
// runtime takes option (b): outstanding handles become weak dangling
// references, and any later dispose against them is a harmless no-op
// rather than a use-after-free — ownership in the Runtime is
// authoritative, never the handle.
func (r *Runtime) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	for i := range r.slots {
		if r.slots[i].block != nil {
			_ = vmem.Release(r.slots[i].block)
			r.slots[i].block = nil
		}
	}
	r.cache = nil
	r.disposed = true
}

func (r *Runtime) allocSlot(block *vmem.Block) (idx int, epoch uint64) {
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[idx].epoch++
		r.slots[idx].block = block
		r.slots[idx].inCache = false
		return idx, r.slots[idx].epoch
	}
	idx = len(r.slots)
	r.slots = append(r.slots, slot{block: block, epoch: 1})
	return idx, 1
}

// releaseSlot is called both by an explicit Dispose/DropCached and by a
// JitFunction's finalizer; it checks the epoch so a finalizer firing
// against an already-reused slot index is a no-op, not a corruption.
func (r *Runtime) releaseSlot(idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed || idx >= len(r.slots) || r.slots[idx].block == nil {
		return
	}
	if r.slots[idx].inCache {
		delete(r.cache, r.slots[idx].CacheKey)
	}
	_ = vmem.Release(r.slots[idx].block)
	r.slots[idx].block = nil
	r.free = append(r.free, idx)
}

func (r *Runtime) releaseIfCurrent(idx int, epoch uint64) {
	r.mu.Lock()
	if r.disposed || idx >= len(r.slots) || r.slots[idx].block == nil || r.slots[idx].epoch != epoch {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.releaseSlot(idx)
}

// addrOf returns the slot's current base address, or 0 if it has been
// released or the epoch no longer matches (a dangling weak handle).
func (r *Runtime) addrOf(idx int, epoch uint64) (uintptr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx >= len(r.slots) || r.slots[idx].block == nil || r.slots[idx].epoch != epoch {
		return 0, false
	}
	return r.slots[idx].block.Addr, true
}

func alignUp(n, align int) int {
	if align <= 0 {
		return n
	}
	return (n + align - 1) / align * align
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
