// Package alloc implements the bitmap-backed block allocator (§4.4): a
// first-fit scan over a bit-per-block map, with immediate persistence of
// every mutation, grounded on the teacher's drivers/common.Allocator and
// the original implementation's setBlockUsedAndUpdateBitmap /
// clearBlockUsedAndUpdateBitmap / zeroBlock trio.
package alloc

import (
	"github.com/boljen/go-bitmap"

	"github.com/KrakenMInitials/tinyfs-filesystem/internal/blockdev"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/errs"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/layout"
)

// Allocator manages the free/used state of every block in a volume via the
// single bitmap block at bitmapBlock. It does not cache the bitmap between
// calls: every operation reads the current on-disk bitmap, does its work,
// and (for mutations) writes it straight back, exactly as §4.4 specifies.
type Allocator struct {
	dev         *blockdev.Device
	bitmapBlock uint32
	totalBlocks uint32
}

// New returns an Allocator for the volume's fixed bitmap block, scanning
// the range [0, totalBlocks) for free-block candidates.
func New(dev *blockdev.Device, bitmapBlock, totalBlocks uint32) *Allocator {
	return &Allocator{dev: dev, bitmapBlock: bitmapBlock, totalBlocks: totalBlocks}
}

func (a *Allocator) readBitmap() (bitmap.Bitmap, error) {
	buf := make([]byte, blockdev.BlockSize)
	if err := a.dev.ReadBlock(a.bitmapBlock, buf); err != nil {
		return nil, err
	}
	return bitmap.Bitmap(buf), nil
}

func (a *Allocator) writeBitmap(bm bitmap.Bitmap) error {
	return a.dev.WriteBlock(a.bitmapBlock, []byte(bm))
}

// FindFree scans ascending block indices and returns the first clear bit,
// or ErrBitmapFull if none remain (§4.4). It does not mark the block used;
// the caller commits with MarkUsed once it has written the block's
// content.
func (a *Allocator) FindFree() (uint32, error) {
	bm, err := a.readBitmap()
	if err != nil {
		return 0, err
	}

	for i := uint32(0); i < a.totalBlocks; i++ {
		if !bm.Get(int(i)) {
			return i, nil
		}
	}
	return 0, errs.New(errs.ErrBitmapFull)
}

// MarkUsed sets block's bit and persists the bitmap immediately.
func (a *Allocator) MarkUsed(block uint32) error {
	bm, err := a.readBitmap()
	if err != nil {
		return err
	}
	bm.Set(int(block), true)
	return a.writeBitmap(bm)
}

// MarkFree clears block's bit and persists the bitmap immediately.
func (a *Allocator) MarkFree(block uint32) error {
	bm, err := a.readBitmap()
	if err != nil {
		return err
	}
	bm.Set(int(block), false)
	return a.writeBitmap(bm)
}

// IsUsed reports whether block's bit is currently set.
func (a *Allocator) IsUsed(block uint32) (bool, error) {
	bm, err := a.readBitmap()
	if err != nil {
		return false, err
	}
	return bm.Get(int(block)), nil
}

// ZeroBlock overwrites block with BlockSize zero bytes (§4.4). Allocation
// discipline is: zero the block, then write its new (checksummed) content,
// then MarkUsed.
func (a *Allocator) ZeroBlock(block uint32) error {
	return a.dev.WriteBlock(block, make([]byte, layout.BlockSize))
}
