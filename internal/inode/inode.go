// Package inode implements the logical-offset-to-physical-block
// translation described in §4.5: two direct pointers followed by one
// level of indirection. It centralizes the depth arithmetic so file
// operations never repeat it, per the §9 design note, and is grounded on
// the teacher's drivers/unixv1.inode.go block-resolution style.
package inode

import (
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/blockdev"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/errs"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/layout"
)

// Resolver translates logical byte offsets into physical block addresses
// by consulting an inode's direct pointers and, when necessary, reading
// its indirect block from dev.
type Resolver struct {
	dev *blockdev.Device
}

// New returns a Resolver that reads indirect blocks from dev.
func New(dev *blockdev.Device) *Resolver {
	return &Resolver{dev: dev}
}

// Translate maps a logical offset within a file described by ino to a
// physical block index and the intra-block byte offset within it (§4.5).
// It returns ErrReadEOF if the offset falls in an indirect slot that has
// never been written.
func (r *Resolver) Translate(ino layout.RawInode, offset uint32) (block uint32, intra uint32, err error) {
	depth := offset / layout.DataBytesPerBlock
	intra = offset % layout.DataBytesPerBlock

	switch {
	case depth == 0:
		return ino.Direct[0], intra, nil
	case depth == 1:
		return ino.Direct[1], intra, nil
	default:
		slot := depth - 2
		if slot >= layout.PointersPerIndirectBlock {
			return 0, 0, errs.New(errs.ErrInvalidOffset)
		}

		buf := make([]byte, layout.BlockSize)
		if err := r.dev.ReadBlock(ino.Indirect, buf); err != nil {
			return 0, 0, err
		}
		pointers := layout.DecodeIndirectBlock(buf)
		block = pointers[slot]
		if block == layout.InvalidBlock {
			return 0, 0, errs.New(errs.ErrReadEOF)
		}
		return block, intra, nil
	}
}

// IndirectBlocksReferenced returns every non-INVALID_BLOCK pointer stored
// in ino's indirect block, for callers that need to free them (§4.5, §4.9
// write semantics; §4.9 delete semantics).
func (r *Resolver) IndirectBlocksReferenced(ino layout.RawInode) ([]uint32, error) {
	if ino.Indirect == layout.InvalidBlock {
		return nil, nil
	}

	buf := make([]byte, layout.BlockSize)
	if err := r.dev.ReadBlock(ino.Indirect, buf); err != nil {
		return nil, err
	}
	pointers := layout.DecodeIndirectBlock(buf)

	blocks := make([]uint32, 0, len(pointers))
	for _, p := range pointers {
		if p != layout.InvalidBlock {
			blocks = append(blocks, p)
		}
	}
	return blocks, nil
}
