package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KrakenMInitials/tinyfs-filesystem/internal/layout"
)

func TestSuperblockRoundTrip(t *testing.T) {
	sb := layout.RawSuperblock{
		Type:         layout.SuperblockMagic,
		BitmapBlock:  1,
		RootDirInode: 2,
		FSSize:       10240,
	}
	buf := layout.EncodeSuperblock(sb)
	require.Len(t, buf, layout.BlockSize)

	decoded := layout.DecodeSuperblock(buf)
	assert.Equal(t, sb.Type, decoded.Type)
	assert.Equal(t, sb.BitmapBlock, decoded.BitmapBlock)
	assert.Equal(t, sb.RootDirInode, decoded.RootDirInode)
	assert.Equal(t, sb.FSSize, decoded.FSSize)
	assert.True(t, layout.VerifySuperblockChecksum(buf))
}

func TestSuperblockChecksumDetectsBitFlip(t *testing.T) {
	sb := layout.RawSuperblock{Type: layout.SuperblockMagic, BitmapBlock: 1, RootDirInode: 2, FSSize: 1024}
	buf := layout.EncodeSuperblock(sb)
	buf[0] ^= 0x01

	assert.False(t, layout.VerifySuperblockChecksum(buf))
}

func TestInodeRoundTrip(t *testing.T) {
	ino := layout.RawInode{
		Type:     layout.InodeTypeReadWrite,
		Size:     42,
		Direct:   [2]uint32{3, 4},
		Indirect: 5,
	}
	buf := layout.EncodeInode(ino)
	decoded := layout.DecodeInode(buf)

	assert.Equal(t, ino.Type, decoded.Type)
	assert.Equal(t, ino.Size, decoded.Size)
	assert.Equal(t, ino.Direct, decoded.Direct)
	assert.Equal(t, ino.Indirect, decoded.Indirect)
	assert.True(t, layout.VerifyInodeChecksum(buf))
}

func TestDataBlockChecksumCoversOnlyPayload(t *testing.T) {
	payload := make([]byte, layout.DataBytesPerBlock)
	copy(payload, []byte("Hello tinyFS!"))

	buf := layout.EncodeDataBlock(payload)
	require.Len(t, buf, layout.BlockSize)
	assert.True(t, layout.VerifyDataBlockChecksum(buf))

	buf[0] ^= 0xFF
	assert.False(t, layout.VerifyDataBlockChecksum(buf))
}

func TestDirentRoundTrip(t *testing.T) {
	d := layout.Dirent{Name: layout.EncodeName("alpha"), InodeBlock: 7}
	buf := layout.EncodeDirent(d)
	require.Len(t, buf, layout.DirentSize)

	decoded := layout.DecodeDirent(buf)
	assert.Equal(t, "alpha", layout.NameString(decoded.Name))
	assert.EqualValues(t, 7, decoded.InodeBlock)
}

func TestEncodeNameTruncatesAndTerminates(t *testing.T) {
	name := layout.EncodeName("toolongname")
	assert.Equal(t, "toolong", layout.NameString(name))
	assert.Equal(t, byte(0), name[7])
}

func TestIndirectBlockRoundTrip(t *testing.T) {
	var pointers [layout.PointersPerIndirectBlock]uint32
	for i := range pointers {
		pointers[i] = layout.InvalidBlock
	}
	pointers[0] = 9
	pointers[10] = 99

	buf := layout.EncodeIndirectBlock(pointers)
	decoded := layout.DecodeIndirectBlock(buf)
	assert.Equal(t, pointers, decoded)
	assert.True(t, layout.VerifyDataBlockChecksum(buf))
}

func TestMaxFileSizeIsInclusiveBound(t *testing.T) {
	assert.EqualValues(t, 16510, layout.MaxFileSize)
}
