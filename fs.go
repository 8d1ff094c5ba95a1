// Package tinyfs implements a small block-structured filesystem with a
// single flat directory, inode indirection, bitmap allocation, and
// per-block checksums over a fixed-size host file container.
//
// FS is the single entry point a caller owns: it carries the
// mounted-volume indicator and the open-file table as fields rather than
// as package-level state (§9), so a process can run more than one FS if
// it ever needs to, while each individual FS still enforces "at most one
// mounted volume, at most five open descriptors" on itself.
package tinyfs

import (
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/alloc"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/layout"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/openfiles"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/volume"

	"github.com/hashicorp/go-multierror"
)

// FS is a TinyFS driver: the volume manager plus the open-file table
// layered on top of it.
type FS struct {
	driver *volume.Driver
	files  *openfiles.Table
}

// New returns an FS with no volume mounted and no files open.
func New() *FS {
	return &FS{driver: volume.NewDriver(), files: openfiles.New()}
}

// Mkfs formats a new container at path (§4.7).
func (fs *FS) Mkfs(path string, nBytes int64) error {
	return fs.driver.Mkfs(path, nBytes)
}

// Mount opens and validates an existing container (§4.7).
func (fs *FS) Mount(path string) error {
	return fs.driver.Mount(path)
}

// Unmount closes the mounted container and discards every open
// descriptor (§4.7, §4.8: unmount forces every open-file slot to Free).
func (fs *FS) Unmount() error {
	if err := fs.driver.Unmount(); err != nil {
		return err
	}
	fs.files = openfiles.New()
	return nil
}

func (fs *FS) mounted() (*volume.Volume, error) {
	v := fs.driver.Mounted()
	if v == nil {
		return nil, NewError(ErrNoFSMounted)
	}
	return v, nil
}

func validFilename(name string) bool {
	return len(name) >= 1 && len(name) <= 7
}

func loadInode(v *volume.Volume, block uint32) (layout.RawInode, error) {
	buf := make([]byte, layout.BlockSize)
	if err := v.Device().ReadBlock(block, buf); err != nil {
		return layout.RawInode{}, err
	}
	return layout.DecodeInode(buf), nil
}

func writeInode(v *volume.Volume, block uint32, ino layout.RawInode) error {
	return v.Device().WriteBlock(block, layout.EncodeInode(ino))
}

// Open looks up name in the directory (§4.8). If found, it assigns a fresh
// descriptor at cursor 0 for the entry's inode block; the inode itself is
// not read here. If not found,
// it creates a new read-write file: one inode block and three data
// blocks (two directs, one indirect), then a directory entry for name.
func (fs *FS) Open(name string) (int, error) {
	v, err := fs.mounted()
	if err != nil {
		return -1, err
	}
	if !validFilename(name) {
		return -1, NewError(ErrInvalidFilename)
	}

	entry, _, err := v.Dir().Lookup(name)
	if err == nil {
		return fs.files.Open(entry.InodeBlock)
	}

	free, ferr := v.Dir().HasFreeSlot()
	if ferr != nil {
		return -1, ferr
	}
	if !free {
		return -1, NewError(ErrDirectoryFull)
	}

	inodeBlock, direct0, direct1, indirectBlock, err := allocateNewFile(v)
	if err != nil {
		return -1, err
	}

	if _, err := v.Dir().Insert(name, inodeBlock); err != nil {
		return -1, err
	}

	ino := layout.RawInode{
		Type:     layout.InodeTypeReadWrite,
		Size:     0,
		Direct:   [2]uint32{direct0, direct1},
		Indirect: indirectBlock,
	}
	if err := writeInode(v, inodeBlock, ino); err != nil {
		return -1, err
	}

	return fs.files.Open(inodeBlock)
}

func allocateNewFile(v *volume.Volume) (inodeBlock, direct0, direct1, indirectBlock uint32, err error) {
	a := v.Alloc()

	if inodeBlock, err = allocateZeroed(a); err != nil {
		return
	}
	if direct0, err = allocateZeroed(a); err != nil {
		return
	}
	if direct1, err = allocateZeroed(a); err != nil {
		return
	}

	if indirectBlock, err = a.FindFree(); err != nil {
		return
	}
	var pointers [layout.PointersPerIndirectBlock]uint32
	for i := range pointers {
		pointers[i] = layout.InvalidBlock
	}
	if err = v.Device().WriteBlock(indirectBlock, layout.EncodeIndirectBlock(pointers)); err != nil {
		return
	}
	err = a.MarkUsed(indirectBlock)
	return
}

func allocateZeroed(a *alloc.Allocator) (uint32, error) {
	block, err := a.FindFree()
	if err != nil {
		return 0, err
	}
	if err := a.ZeroBlock(block); err != nil {
		return 0, err
	}
	if err := a.MarkUsed(block); err != nil {
		return 0, err
	}
	return block, nil
}

// Close frees fd's descriptor without touching disk (§4.8).
func (fs *FS) Close(fd int) error {
	return fs.files.Close(fd)
}

// Write replaces fd's file content with buf[:size] (§4.9). Any data
// blocks previously reachable only through the indirect table are freed
// first, preserving invariant I2.
func (fs *FS) Write(fd int, buf []byte, size int) error {
	v, err := fs.mounted()
	if err != nil {
		return err
	}
	entry, err := fs.files.Get(fd)
	if err != nil {
		return err
	}
	if size < 0 || size > layout.MaxFileSize || size > len(buf) {
		return NewError(ErrInvalidWriteSize)
	}

	ino, err := loadInode(v, entry.InodeBlock)
	if err != nil {
		return err
	}
	if ino.Type != layout.InodeTypeReadWrite {
		return NewError(ErrInvalidFilePermission)
	}

	if err := freeIndirectBlocks(v, ino); err != nil {
		return err
	}

	data := buf[:size]
	var pointers [layout.PointersPerIndirectBlock]uint32
	for i := range pointers {
		pointers[i] = layout.InvalidBlock
	}

	remaining := data
	for _, directBlock := range ino.Direct {
		n := min(len(remaining), layout.DataBytesPerBlock)
		if err := v.Device().WriteBlock(directBlock, layout.EncodeDataBlock(remaining[:n])); err != nil {
			return err
		}
		remaining = remaining[n:]
	}

	for i := 0; len(remaining) > 0; i++ {
		n := min(len(remaining), layout.DataBytesPerBlock)
		block, err := v.Alloc().FindFree()
		if err != nil {
			return err
		}
		if err := v.Alloc().ZeroBlock(block); err != nil {
			return err
		}
		if err := v.Device().WriteBlock(block, layout.EncodeDataBlock(remaining[:n])); err != nil {
			return err
		}
		if err := v.Alloc().MarkUsed(block); err != nil {
			return err
		}
		pointers[i] = block
		remaining = remaining[n:]
	}

	if err := v.Device().WriteBlock(ino.Indirect, layout.EncodeIndirectBlock(pointers)); err != nil {
		return err
	}

	ino.Size = uint32(size)
	if err := writeInode(v, entry.InodeBlock, ino); err != nil {
		return err
	}

	entry.Cursor = 0
	return nil
}

func freeIndirectBlocks(v *volume.Volume, ino layout.RawInode) error {
	referenced, err := v.Resolver().IndirectBlocksReferenced(ino)
	if err != nil {
		return err
	}

	var merr *multierror.Error
	for _, block := range referenced {
		if err := v.Alloc().ZeroBlock(block); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		if err := v.Alloc().MarkFree(block); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}

// Delete removes fd's file entirely (§4.9): every direct, indirect, and
// indirect-referenced block is zeroed and freed, then the inode block,
// then the directory entry, then the descriptor. Freeing failures are
// collected rather than aborting the sequence, since later steps don't
// depend on earlier ones succeeding.
func (fs *FS) Delete(fd int) error {
	v, err := fs.mounted()
	if err != nil {
		return err
	}
	entry, err := fs.files.Get(fd)
	if err != nil {
		return err
	}
	if entry.InodeBlock == v.RootInodeBlock() {
		return NewError(ErrProtectedInode)
	}

	ino, err := loadInode(v, entry.InodeBlock)
	if err != nil {
		return err
	}
	if ino.Type != layout.InodeTypeReadWrite {
		return NewError(ErrInvalidFilePermission)
	}

	var merr *multierror.Error
	freeBlock := func(block uint32) {
		if block == layout.InvalidBlock {
			return
		}
		if err := v.Alloc().ZeroBlock(block); err != nil {
			merr = multierror.Append(merr, err)
			return
		}
		if err := v.Alloc().MarkFree(block); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	freeBlock(ino.Direct[0])
	freeBlock(ino.Direct[1])

	referenced, rerr := v.Resolver().IndirectBlocksReferenced(ino)
	if rerr != nil {
		merr = multierror.Append(merr, rerr)
	}
	for _, block := range referenced {
		freeBlock(block)
	}
	freeBlock(ino.Indirect)
	freeBlock(entry.InodeBlock)

	if err := v.Dir().RemoveByInodeBlock(entry.InodeBlock); err != nil {
		merr = multierror.Append(merr, err)
	}
	if err := fs.files.Close(fd); err != nil {
		merr = multierror.Append(merr, err)
	}

	return merr.ErrorOrNil()
}

// ReadByte reads the byte at fd's current cursor and advances it (§4.9).
func (fs *FS) ReadByte(fd int) (byte, error) {
	v, err := fs.mounted()
	if err != nil {
		return 0, err
	}
	entry, err := fs.files.Get(fd)
	if err != nil {
		return 0, err
	}

	ino, err := loadInode(v, entry.InodeBlock)
	if err != nil {
		return 0, err
	}
	if entry.Cursor >= ino.Size {
		return 0, NewError(ErrReadEOF)
	}

	block, intra, err := v.Resolver().Translate(ino, entry.Cursor)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, layout.BlockSize)
	if err := v.Device().ReadBlock(block, buf); err != nil {
		return 0, err
	}

	b := layout.DataPayload(buf)[intra]
	entry.Cursor++
	return b, nil
}

// WriteByte overwrites a single byte within fd's existing content (§4.9).
// The cursor is left unchanged.
func (fs *FS) WriteByte(fd int, offset uint32, value byte) error {
	v, err := fs.mounted()
	if err != nil {
		return err
	}
	entry, err := fs.files.Get(fd)
	if err != nil {
		return err
	}

	ino, err := loadInode(v, entry.InodeBlock)
	if err != nil {
		return err
	}
	if ino.Type != layout.InodeTypeReadWrite {
		return NewError(ErrInvalidFilePermission)
	}
	if offset >= ino.Size {
		return NewError(ErrInvalidOffset)
	}

	block, intra, err := v.Resolver().Translate(ino, offset)
	if err != nil {
		return err
	}

	buf := make([]byte, layout.BlockSize)
	if err := v.Device().ReadBlock(block, buf); err != nil {
		return err
	}
	payload := layout.DataPayload(buf)
	payload[intra] = value

	return v.Device().WriteBlock(block, layout.EncodeDataBlock(payload))
}

// Seek sets fd's cursor (§4.9). offset == size is rejected by design: the
// end-of-file position is reachable only by reading up to it, never by
// seeking directly to it.
func (fs *FS) Seek(fd int, offset uint32) error {
	v, err := fs.mounted()
	if err != nil {
		return err
	}
	entry, err := fs.files.Get(fd)
	if err != nil {
		return err
	}

	ino, err := loadInode(v, entry.InodeBlock)
	if err != nil {
		return err
	}
	if offset >= ino.Size {
		return NewError(ErrInvalidOffset)
	}

	entry.Cursor = offset
	return nil
}

// MakeRO flips name's file to read-only (§4.9).
func (fs *FS) MakeRO(name string) error {
	return fs.setPermission(name, layout.InodeTypeReadOnly)
}

// MakeRW flips name's file to read-write (§4.9).
func (fs *FS) MakeRW(name string) error {
	return fs.setPermission(name, layout.InodeTypeReadWrite)
}

func (fs *FS) setPermission(name string, mode uint8) error {
	v, err := fs.mounted()
	if err != nil {
		return err
	}

	entry, _, err := v.Dir().Lookup(name)
	if err != nil {
		return err
	}

	ino, err := loadInode(v, entry.InodeBlock)
	if err != nil {
		return err
	}
	ino.Type = mode
	return writeInode(v, entry.InodeBlock, ino)
}

// Rename moves old's directory entry to newName (§4.6, §4.9).
func (fs *FS) Rename(old, newName string) error {
	v, err := fs.mounted()
	if err != nil {
		return err
	}
	return v.Dir().Rename(old, newName)
}

// List enumerates every non-free directory entry's name, in slot order
// (§4.9).
func (fs *FS) List() ([]string, error) {
	v, err := fs.mounted()
	if err != nil {
		return nil, err
	}

	entries, err := v.Dir().List()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = layout.NameString(e.Name)
	}
	return names, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
