package alloc_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/KrakenMInitials/tinyfs-filesystem"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/alloc"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/blockdev"
)

func newDevice(t *testing.T, totalBlocks int) *blockdev.Device {
	t.Helper()
	buf := make([]byte, totalBlocks*blockdev.BlockSize)
	stream := bytesextra.NewReadWriteSeeker(buf)
	dev, err := blockdev.WrapStream(stream, int64(len(buf)))
	require.NoError(t, err)
	return dev
}

func TestFindFreeStartsAtZero(t *testing.T) {
	dev := newDevice(t, 8)
	a := alloc.New(dev, 0, 8)

	block, err := a.FindFree()
	require.NoError(t, err)
	assert.EqualValues(t, 0, block)
}

func TestMarkUsedPersistsAcrossCalls(t *testing.T) {
	dev := newDevice(t, 8)
	a := alloc.New(dev, 0, 8)

	require.NoError(t, a.MarkUsed(0))
	require.NoError(t, a.MarkUsed(1))

	used, err := a.IsUsed(0)
	require.NoError(t, err)
	assert.True(t, used)

	block, err := a.FindFree()
	require.NoError(t, err)
	assert.EqualValues(t, 2, block)
}

func TestMarkFreeReopensASlot(t *testing.T) {
	dev := newDevice(t, 4)
	a := alloc.New(dev, 0, 4)

	require.NoError(t, a.MarkUsed(0))
	require.NoError(t, a.MarkUsed(1))
	require.NoError(t, a.MarkFree(0))

	block, err := a.FindFree()
	require.NoError(t, err)
	assert.EqualValues(t, 0, block)
}

func TestFindFreeReturnsBitmapFullWhenExhausted(t *testing.T) {
	dev := newDevice(t, 4)
	a := alloc.New(dev, 0, 4)

	for i := uint32(0); i < 4; i++ {
		require.NoError(t, a.MarkUsed(i))
	}

	_, err := a.FindFree()
	require.Error(t, err)
	assert.True(t, errors.Is(err, tinyfs.ErrBitmapFull))
}

func TestZeroBlockClearsContent(t *testing.T) {
	dev := newDevice(t, 4)
	a := alloc.New(dev, 0, 4)

	stale := make([]byte, blockdev.BlockSize)
	for i := range stale {
		stale[i] = 0xAA
	}
	require.NoError(t, dev.WriteBlock(3, stale))

	require.NoError(t, a.ZeroBlock(3))

	readBack := make([]byte, blockdev.BlockSize)
	require.NoError(t, dev.ReadBlock(3, readBack))
	assert.Equal(t, make([]byte, blockdev.BlockSize), readBack)
}

func TestIsUsedDoesNotMutateState(t *testing.T) {
	dev := newDevice(t, 4)
	a := alloc.New(dev, 0, 4)

	used, err := a.IsUsed(2)
	require.NoError(t, err)
	assert.False(t, used)

	block, err := a.FindFree()
	require.NoError(t, err)
	assert.EqualValues(t, 0, block)
}
