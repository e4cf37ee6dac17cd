//go:build unix

package jitrt

import (
	"errors"
	"testing"

	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/internal/jiterr"
	"github.com/ngcodegen/corejit/internal/testing/require"
)

func testEnv() code.Env {
	return code.Env{Arch: code.ArchAMD64, ABI: code.ABISystemV, Platform: "linux"}
}

// retOnly is a minimal valid x86-64 function body: `ret`.
var retOnly = []byte{0xC3}

func TestAddInstallsCallableFunction(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	fn, err := rt.AddBytes(retOnly, testEnv())
	require.NoError(t, err)
	require.True(t, fn.Size() == len(retOnly))

	addr, ok := fn.Address()
	require.True(t, ok)
	require.True(t, addr != 0)

	require.NoError(t, fn.Call())
}

func TestAddRejectsEmptyCode(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	_, err := rt.AddBytes(nil, testEnv())
	require.Error(t, err)
}

func TestAddCachedReturnsSameHandleOnHit(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	h1, err := rt.addCachedBytes(retOnly, testEnv())
	require.NoError(t, err)
	h2, err := rt.addCachedBytes(retOnly, testEnv())
	require.NoError(t, err)

	a1, _ := h1.Address()
	a2, _ := h2.Address()
	require.Equal(t, a1, a2)
}

func TestDropCachedInvalidatesHandle(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	h, err := rt.addCachedBytes(retOnly, testEnv())
	require.NoError(t, err)

	rt.DropCached(computeCacheKey(testEnv(), retOnly))

	_, ok := h.Address()
	require.True(t, !ok)
}

func TestDisposeInvalidatesAllOutstandingHandles(t *testing.T) {
	rt := NewRuntime()

	h1, err := rt.AddBytes(retOnly, testEnv())
	require.NoError(t, err)
	h2, err := rt.AddBytes([]byte{0x90, 0xC3}, testEnv())
	require.NoError(t, err)

	rt.Dispose()

	_, ok1 := h1.Address()
	_, ok2 := h2.Address()
	require.True(t, !ok1)
	require.True(t, !ok2)
}

func TestAddBytesAfterDisposeFails(t *testing.T) {
	rt := NewRuntime()
	rt.Dispose()

	_, err := rt.AddBytes(retOnly, testEnv())
	require.Error(t, err)
}

// TestExecutableMemoryDisabledRejectsEveryInstallPath is the regression
// for spec §10.1's "FeatureNotEnabled is raised when executable-memory
// support is turned off by config": Add, AddBytes, and AddCached must all
// fail fast through the same sentinel rather than ever touching vmem.
func TestExecutableMemoryDisabledRejectsEveryInstallPath(t *testing.T) {
	rt := NewRuntime(WithExecutableMemoryDisabled())
	defer rt.Dispose()

	_, err := rt.AddBytes(retOnly, testEnv())
	require.Error(t, err)
	require.True(t, errors.Is(err, jiterr.FeatureNotEnabled))

	_, err = rt.addCachedBytes(retOnly, testEnv())
	require.Error(t, err)
	require.True(t, errors.Is(err, jiterr.FeatureNotEnabled))
}
