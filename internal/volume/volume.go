// Package volume implements the volume manager (§4.7): format, mount,
// unmount, and the mount-time structural validation of a TinyFS
// container. It is grounded on the teacher's
// drivers/unixv1.formattingdriver.go / file_systems/unixv1/format.go
// formatting sequence and on the original implementation's tfs_mkfs /
// tfs_mount / tfs_unmount.
//
// The mounted-volume indicator is carried on a Driver value rather than
// as a package-level global (§9's "encapsulate behind a handle" note):
// a Driver is the single mount point a caller owns, and at most one
// Volume may be live under it at a time.
package volume

import (
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/alloc"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/blockdev"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/directory"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/errs"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/inode"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/layout"
)

// MaxBlocks bounds a volume to what the 2048-bit bitmap block can
// represent (§9, "Bitmap bounds"). mkfs rejects any larger request, even
// though the original implementation only checks the minimum.
const MaxBlocks = layout.BlockSize * 8

// MinBlocks is the smallest volume mkfs accepts: superblock, bitmap, root
// inode, root directory (§4.7).
const MinBlocks = 4

// Volume is a mounted TinyFS container and the components wired on top of
// its block device: the allocator, the indirection resolver, and the root
// directory.
type Volume struct {
	dev            *blockdev.Device
	alloc          *alloc.Allocator
	resolver       *inode.Resolver
	dir            *directory.Directory
	rootInodeBlock uint32
	fsSize         uint32
}

// Device returns the volume's block device.
func (v *Volume) Device() *blockdev.Device { return v.dev }

// Alloc returns the volume's block allocator.
func (v *Volume) Alloc() *alloc.Allocator { return v.alloc }

// Resolver returns the volume's offset-to-block resolver.
func (v *Volume) Resolver() *inode.Resolver { return v.resolver }

// Dir returns the volume's single flat directory.
func (v *Volume) Dir() *directory.Directory { return v.dir }

// RootInodeBlock returns the fixed block index of the root inode.
func (v *Volume) RootInodeBlock() uint32 { return v.rootInodeBlock }

// TotalBlocks returns the volume's size in blocks.
func (v *Volume) TotalBlocks() uint32 { return v.fsSize / layout.BlockSize }

// Driver is one TinyFS mount point: it owns at most one mounted Volume at
// a time (§5). Nothing stops a process from creating several Drivers.
type Driver struct {
	current *Volume
}

// NewDriver returns a Driver with no volume mounted.
func NewDriver() *Driver {
	return &Driver{}
}

// Mounted returns the currently mounted volume, or nil.
func (d *Driver) Mounted() *Volume {
	return d.current
}

// Mkfs formats a new container at path (§4.7). nBytes must be a multiple
// of the block size, represent at least MinBlocks blocks, and not exceed
// MaxBlocks blocks. Formatting is only permitted while this driver has no
// volume mounted.
func (d *Driver) Mkfs(path string, nBytes int64) error {
	if d.current != nil {
		return errs.New(errs.ErrExistingMountedFS)
	}
	if nBytes <= 0 || nBytes%layout.BlockSize != 0 {
		return errs.New(errs.ErrOpenBadAlignment)
	}

	totalBlocks := nBytes / layout.BlockSize
	if totalBlocks < MinBlocks {
		return errs.New(errs.ErrInsufficientFSSize)
	}
	if totalBlocks > MaxBlocks {
		return errs.New(errs.ErrInsufficientFSSize)
	}

	dev, err := blockdev.Open(path, nBytes)
	if err != nil {
		return err
	}
	defer dev.Close()

	zero := make([]byte, layout.BlockSize)
	for i := uint32(0); i < uint32(totalBlocks); i++ {
		if err := dev.WriteBlock(i, zero); err != nil {
			return err
		}
	}

	a := alloc.New(dev, layout.BitmapIndex, uint32(totalBlocks))
	for _, b := range []uint32{layout.SuperblockIndex, layout.BitmapIndex, layout.RootInodeIndex, layout.RootDirIndex} {
		if err := a.MarkUsed(b); err != nil {
			return err
		}
	}

	rootDir := directory.New(dev, layout.RootDirIndex)
	if err := rootDir.Format(); err != nil {
		return err
	}

	directBlock, err := a.FindFree()
	if err != nil {
		return err
	}
	if err := a.ZeroBlock(directBlock); err != nil {
		return err
	}
	if err := a.MarkUsed(directBlock); err != nil {
		return err
	}

	indirectBlock, err := a.FindFree()
	if err != nil {
		return err
	}
	var pointers [layout.PointersPerIndirectBlock]uint32
	for i := range pointers {
		pointers[i] = layout.InvalidBlock
	}
	if err := dev.WriteBlock(indirectBlock, layout.EncodeIndirectBlock(pointers)); err != nil {
		return err
	}
	if err := a.MarkUsed(indirectBlock); err != nil {
		return err
	}

	rootInode := layout.RawInode{
		Type:     layout.InodeTypeReadWrite,
		Size:     0,
		Direct:   [2]uint32{layout.RootDirIndex, directBlock},
		Indirect: indirectBlock,
	}
	if err := dev.WriteBlock(layout.RootInodeIndex, layout.EncodeInode(rootInode)); err != nil {
		return err
	}

	sb := layout.RawSuperblock{
		Type:         layout.SuperblockMagic,
		BitmapBlock:  layout.BitmapIndex,
		RootDirInode: layout.RootInodeIndex,
		FSSize:       uint32(nBytes),
	}
	return dev.WriteBlock(layout.SuperblockIndex, layout.EncodeSuperblock(sb))
}

// Mount opens and validates an existing container (§4.7). It fails if
// this driver already has a volume mounted, or if validation of the
// superblock, root inode, root directory, or bitmap fails; in the latter
// case the device is closed and no volume remains mounted.
func (d *Driver) Mount(path string) error {
	if d.current != nil {
		return errs.New(errs.ErrExistingMountedFS)
	}

	dev, err := blockdev.Open(path, 0)
	if err != nil {
		return err
	}

	v, err := validateAndWire(dev)
	if err != nil {
		dev.Close()
		return err
	}

	d.current = v
	return nil
}

func validateAndWire(dev *blockdev.Device) (*Volume, error) {
	sbBuf := make([]byte, layout.BlockSize)
	if err := dev.ReadBlock(layout.SuperblockIndex, sbBuf); err != nil {
		return nil, err
	}
	sb := layout.DecodeSuperblock(sbBuf)
	if sb.Type != layout.SuperblockMagic {
		return nil, errs.New(errs.ErrWrongFSType)
	}
	if !layout.VerifySuperblockChecksum(sbBuf) {
		return nil, errs.New(errs.ErrSBChecksumFailed)
	}
	if sb.BitmapBlock == layout.InvalidBlock || sb.RootDirInode == layout.InvalidBlock {
		return nil, errs.New(errs.ErrMountedFSInvalidSuperblock)
	}

	inoBuf := make([]byte, layout.BlockSize)
	if err := dev.ReadBlock(sb.RootDirInode, inoBuf); err != nil {
		return nil, err
	}
	rootInode := layout.DecodeInode(inoBuf)
	if rootInode.Direct[0] == layout.InvalidBlock ||
		rootInode.Direct[1] == layout.InvalidBlock ||
		rootInode.Indirect == layout.InvalidBlock {
		return nil, errs.New(errs.ErrMountedFSInvalidRootDirInode)
	}

	dirBuf := make([]byte, layout.BlockSize)
	if err := dev.ReadBlock(rootInode.Direct[0], dirBuf); err != nil {
		return nil, err
	}
	payload := layout.DataPayload(dirBuf)
	for i := 0; i < layout.EntriesPerDirBlock; i++ {
		off := i * layout.DirentSize
		d := layout.DecodeDirent(payload[off : off+layout.DirentSize])
		if d.InodeBlock != layout.InvalidBlock && d.InodeBlock >= dev.TotalBlocks() {
			return nil, errs.New(errs.ErrMountedFSInvalidRootDir)
		}
	}

	a := alloc.New(dev, sb.BitmapBlock, dev.TotalBlocks())
	for _, b := range []uint32{layout.SuperblockIndex, sb.BitmapBlock, sb.RootDirInode, rootInode.Direct[0]} {
		used, err := a.IsUsed(b)
		if err != nil {
			return nil, err
		}
		if !used {
			return nil, errs.New(errs.ErrMountedFSInvalidBitmap)
		}
	}

	return &Volume{
		dev:            dev,
		alloc:          a,
		resolver:       inode.New(dev),
		dir:            directory.New(dev, rootInode.Direct[0]),
		rootInodeBlock: sb.RootDirInode,
		fsSize:         sb.FSSize,
	}, nil
}

// Unmount closes the device and clears the mounted-volume indicator
// (§4.7). It fails with ErrNoFSMounted if nothing is mounted.
func (d *Driver) Unmount() error {
	if d.current == nil {
		return errs.New(errs.ErrNoFSMounted)
	}

	err := d.current.dev.Close()
	d.current = nil
	return err
}
