//go:build unix

package vmem_test

import (
	"testing"

	"github.com/ngcodegen/corejit/internal/testing/require"
	"github.com/ngcodegen/corejit/vmem"
)

func TestAllocProtectRoundTrip(t *testing.T) {
	block, err := vmem.Alloc(4096, vmem.Read|vmem.Write)
	require.NoError(t, err)
	defer vmem.Release(block)

	code := []byte{0xC3} // ret
	require.NoError(t, vmem.WriteBytes(block, code, 0))
	require.Equal(t, byte(0xC3), block.Data[0])

	require.NoError(t, vmem.ProtectRX(block))
	require.Equal(t, vmem.Read|vmem.Exec, block.Flags())
}

// TestWriteAfterProtectRXFails is scenario 7 (W^X invariant): once a
// block has been switched to Read|Exec, WriteBytes must refuse rather
// than let the caller corrupt code another goroutine may already be
// executing.
func TestWriteAfterProtectRXFails(t *testing.T) {
	block, err := vmem.Alloc(4096, vmem.Read|vmem.Write)
	require.NoError(t, err)
	defer vmem.Release(block)

	require.NoError(t, vmem.ProtectRX(block))
	err = vmem.WriteBytes(block, []byte{0x90}, 0)
	require.Error(t, err)
}

func TestAllocRejectsNonPositiveSize(t *testing.T) {
	_, err := vmem.Alloc(0, vmem.Read|vmem.Write)
	require.Error(t, err)
}

func TestGetInfoReportsPositivePageSize(t *testing.T) {
	info := vmem.GetInfo()
	require.True(t, info.PageSize > 0)
}
