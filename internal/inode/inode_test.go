package inode_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/KrakenMInitials/tinyfs-filesystem"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/blockdev"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/inode"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/layout"
)

func newDevice(t *testing.T, totalBlocks int) *blockdev.Device {
	t.Helper()
	buf := make([]byte, totalBlocks*blockdev.BlockSize)
	stream := bytesextra.NewReadWriteSeeker(buf)
	dev, err := blockdev.WrapStream(stream, int64(len(buf)))
	require.NoError(t, err)
	return dev
}

func TestTranslateDirectZero(t *testing.T) {
	dev := newDevice(t, 8)
	r := inode.New(dev)
	ino := layout.RawInode{Direct: [2]uint32{4, 5}, Indirect: 6}

	block, intra, err := r.Translate(ino, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 4, block)
	assert.EqualValues(t, 0, intra)
}

func TestTranslateDirectOneBoundary(t *testing.T) {
	dev := newDevice(t, 8)
	r := inode.New(dev)
	ino := layout.RawInode{Direct: [2]uint32{4, 5}, Indirect: 6}

	block, intra, err := r.Translate(ino, layout.DataBytesPerBlock)
	require.NoError(t, err)
	assert.EqualValues(t, 5, block)
	assert.EqualValues(t, 0, intra)
}

func TestTranslateIndirectSlot(t *testing.T) {
	dev := newDevice(t, 8)
	r := inode.New(dev)
	ino := layout.RawInode{Direct: [2]uint32{4, 5}, Indirect: 6}

	var pointers [layout.PointersPerIndirectBlock]uint32
	for i := range pointers {
		pointers[i] = layout.InvalidBlock
	}
	pointers[0] = 7
	require.NoError(t, dev.WriteBlock(6, layout.EncodeIndirectBlock(pointers)))

	off := 2 * layout.DataBytesPerBlock
	block, intra, err := r.Translate(ino, uint32(off))
	require.NoError(t, err)
	assert.EqualValues(t, 7, block)
	assert.EqualValues(t, 0, intra)
}

func TestTranslateUnwrittenIndirectSlotIsEOF(t *testing.T) {
	dev := newDevice(t, 8)
	r := inode.New(dev)
	ino := layout.RawInode{Direct: [2]uint32{4, 5}, Indirect: 6}

	var pointers [layout.PointersPerIndirectBlock]uint32
	for i := range pointers {
		pointers[i] = layout.InvalidBlock
	}
	require.NoError(t, dev.WriteBlock(6, layout.EncodeIndirectBlock(pointers)))

	_, _, err := r.Translate(ino, uint32(2*layout.DataBytesPerBlock))
	require.Error(t, err)
	assert.True(t, errors.Is(err, tinyfs.ErrReadEOF))
}

func TestIndirectBlocksReferencedSkipsInvalid(t *testing.T) {
	dev := newDevice(t, 8)
	r := inode.New(dev)
	ino := layout.RawInode{Direct: [2]uint32{4, 5}, Indirect: 6}

	var pointers [layout.PointersPerIndirectBlock]uint32
	for i := range pointers {
		pointers[i] = layout.InvalidBlock
	}
	pointers[0] = 10
	pointers[5] = 12
	require.NoError(t, dev.WriteBlock(6, layout.EncodeIndirectBlock(pointers)))

	blocks, err := r.IndirectBlocksReferenced(ino)
	require.NoError(t, err)
	assert.Equal(t, []uint32{10, 12}, blocks)
}
