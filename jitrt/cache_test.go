package jitrt

import (
	"testing"

	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/internal/testing/require"
)

func TestComputeCacheKeyStableForEqualInputs(t *testing.T) {
	env := code.Env{Arch: code.ArchAMD64, ABI: code.ABISystemV}
	bytes := []byte{0x90, 0xC3}

	k1 := computeCacheKey(env, bytes)
	k2 := computeCacheKey(env, append([]byte(nil), bytes...))
	require.Equal(t, k1, k2)
}

func TestComputeCacheKeyDiffersAcrossArch(t *testing.T) {
	bytes := []byte{0x90, 0xC3}
	kAMD64 := computeCacheKey(code.Env{Arch: code.ArchAMD64, ABI: code.ABISystemV}, bytes)
	kARM64 := computeCacheKey(code.Env{Arch: code.ArchARM64, ABI: code.ABIAArch64AAPCS}, bytes)
	require.True(t, kAMD64 != kARM64)
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	env := code.Env{Arch: code.ArchAMD64, ABI: code.ABISystemV}
	k := computeCacheKey(env, []byte{0xC3})

	_, ok, err := c.Get(k)
	require.NoError(t, err)
	require.True(t, !ok)

	require.NoError(t, c.Put(k, CacheEntry{Bytes: []byte{0xC3}, Arch: env.Arch, ABI: env.ABI}))

	entry, ok, err := c.Get(k)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{0xC3}, entry.Bytes)
}
