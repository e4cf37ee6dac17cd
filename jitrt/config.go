// Package jitrt implements the runtime-facing half of spec §4.9/§4.10: a
// Runtime that turns a finished code.FinalizedCode into an executable
// JitFunction, a two-tier (in-memory + pluggable external) compiled-code
// cache keyed by an FNV-1a hash of the function's bytes plus its ABI, and
// the weak-handle discipline that keeps a JitFunction's caller from
// holding a strong pointer into runtime-owned executable memory. The
// finalizer-driven release path is grounded on
// internal/engine/compiler/engine.go's releaseCode/setFinalizer pair.
package jitrt

// Config configures a Runtime via functional options, the same pattern
// wazero's own top-level Config/RuntimeConfig uses.
type Config struct {
	enableCache     bool
	cache           Cache
	onLog           func(string)
	execMemDisabled bool
}

// Option configures a Config.
type Option func(*Config)

// NewConfig builds a Config with caching enabled and no external cache
// tier (in-memory only) by default.
func NewConfig(opts ...Option) Config {
	c := Config{enableCache: true}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// WithCache installs an external cache tier consulted on a local miss,
// mirroring the compiler engine's optional extencache.Cache.
func WithCache(cache Cache) Option {
	return func(c *Config) { c.cache = cache }
}

// WithCacheDisabled turns off both cache tiers; every AddCached call
// produces fresh executable memory.
func WithCacheDisabled() Option {
	return func(c *Config) { c.enableCache = false }
}

// WithExecutableMemoryDisabled turns off the Runtime's ability to map
// executable pages at all: every Add/AddBytes/AddCached call fails fast
// with FeatureNotEnabled instead of touching vmem. Hosts that forbid
// W^X-style runtime code generation (certain sandboxes, hardened kernels,
// or a deployment that only wants this package's assembler/allocator
// layers without ever installing code) set this.
func WithExecutableMemoryDisabled() Option {
	return func(c *Config) { c.execMemDisabled = true }
}

// WithLogger installs a sink for the runtime's own diagnostic strings
// (one line per function installed by AddBytes; releases, evictions and
// cache hits are not logged); nil (the default) means no
// logging at all, per SPEC_FULL.md §10.3 — this package never reaches for
// a logging library of its own.
func WithLogger(fn func(string)) Option {
	return func(c *Config) { c.onLog = fn }
}

func (c Config) log(msg string) {
	if c.onLog != nil {
		c.onLog(msg)
	}
}
