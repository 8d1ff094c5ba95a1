// Package directory implements the single flat directory (§4.6): a fixed
// data block holding EntriesPerDirBlock (name, inode-block) slots. It is
// grounded on the teacher's drivers/unixv1.dirents.go linear-scan style,
// generalized from path components to whole filenames since TinyFS has no
// nesting.
package directory

import (
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/blockdev"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/errs"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/layout"
)

// Directory manages the entries stored in one fixed data block.
type Directory struct {
	dev        *blockdev.Device
	blockIndex uint32
}

// New returns a Directory backed by the data block at blockIndex.
func New(dev *blockdev.Device, blockIndex uint32) *Directory {
	return &Directory{dev: dev, blockIndex: blockIndex}
}

func validName(name string) bool {
	return len(name) >= 1 && len(name) <= 7
}

func (d *Directory) read() ([layout.EntriesPerDirBlock]layout.Dirent, error) {
	var entries [layout.EntriesPerDirBlock]layout.Dirent

	buf := make([]byte, layout.BlockSize)
	if err := d.dev.ReadBlock(d.blockIndex, buf); err != nil {
		return entries, err
	}

	payload := layout.DataPayload(buf)
	for i := range entries {
		off := i * layout.DirentSize
		entries[i] = layout.DecodeDirent(payload[off : off+layout.DirentSize])
	}
	return entries, nil
}

func (d *Directory) write(entries [layout.EntriesPerDirBlock]layout.Dirent) error {
	payload := make([]byte, layout.DataBytesPerBlock)
	for i, e := range entries {
		copy(payload[i*layout.DirentSize:], layout.EncodeDirent(e))
	}
	return d.dev.WriteBlock(d.blockIndex, layout.EncodeDataBlock(payload))
}

// Format resets every slot to free and persists the sealed block. Used by
// the volume manager at mkfs time.
func (d *Directory) Format() error {
	var entries [layout.EntriesPerDirBlock]layout.Dirent
	for i := range entries {
		entries[i].InodeBlock = layout.InvalidBlock
	}
	return d.write(entries)
}

// Lookup returns the entry and slot index for name, or ErrFileNotFound.
func (d *Directory) Lookup(name string) (layout.Dirent, int, error) {
	entries, err := d.read()
	if err != nil {
		return layout.Dirent{}, -1, err
	}

	for i, e := range entries {
		if e.InodeBlock != layout.InvalidBlock && layout.NameString(e.Name) == name {
			return e, i, nil
		}
	}
	return layout.Dirent{}, -1, errs.New(errs.ErrFileNotFound)
}

// Insert places name/inodeBlock in the first free slot, failing with
// ErrDirectoryFull when none remain.
func (d *Directory) Insert(name string, inodeBlock uint32) (int, error) {
	if !validName(name) {
		return -1, errs.New(errs.ErrInvalidFilename)
	}

	entries, err := d.read()
	if err != nil {
		return -1, err
	}

	for i, e := range entries {
		if e.InodeBlock == layout.InvalidBlock {
			entries[i] = layout.Dirent{Name: layout.EncodeName(name), InodeBlock: inodeBlock}
			if err := d.write(entries); err != nil {
				return -1, err
			}
			return i, nil
		}
	}
	return -1, errs.New(errs.ErrDirectoryFull)
}

// Remove frees the slot matching name (§4.6: zero the name, clear the
// inode-block pointer).
func (d *Directory) Remove(name string) error {
	entries, err := d.read()
	if err != nil {
		return err
	}

	for i, e := range entries {
		if e.InodeBlock != layout.InvalidBlock && layout.NameString(e.Name) == name {
			entries[i] = layout.Dirent{InodeBlock: layout.InvalidBlock}
			return d.write(entries)
		}
	}
	return errs.New(errs.ErrFileNotFound)
}

// Rename overwrites old's name with newName in place, rejecting an
// oversized newName or a missing old (§4.6).
func (d *Directory) Rename(old, newName string) error {
	if !validName(newName) {
		return errs.New(errs.ErrInvalidFilename)
	}

	entries, err := d.read()
	if err != nil {
		return err
	}

	for i, e := range entries {
		if e.InodeBlock != layout.InvalidBlock && layout.NameString(e.Name) == old {
			entries[i].Name = layout.EncodeName(newName)
			return d.write(entries)
		}
	}
	return errs.New(errs.ErrFileNotFound)
}

// HasFreeSlot reports whether at least one slot is free, so callers can
// reject DIRECTORY_FULL before allocating blocks for a new file (§4.8).
func (d *Directory) HasFreeSlot() (bool, error) {
	entries, err := d.read()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.InodeBlock == layout.InvalidBlock {
			return true, nil
		}
	}
	return false, nil
}

// RemoveByInodeBlock frees the slot referencing inodeBlock, used by delete
// to release a file's directory entry by inode rather than by name
// (§4.9; §9 item 4: the source caches the wrong index for this lookup).
func (d *Directory) RemoveByInodeBlock(inodeBlock uint32) error {
	entries, err := d.read()
	if err != nil {
		return err
	}

	for i, e := range entries {
		if e.InodeBlock == inodeBlock {
			entries[i] = layout.Dirent{InodeBlock: layout.InvalidBlock}
			return d.write(entries)
		}
	}
	return errs.New(errs.ErrFileNotFound)
}

// List returns every non-free entry in ascending slot order (§4.9 list).
func (d *Directory) List() ([]layout.Dirent, error) {
	entries, err := d.read()
	if err != nil {
		return nil, err
	}

	out := make([]layout.Dirent, 0, len(entries))
	for _, e := range entries {
		if e.InodeBlock != layout.InvalidBlock {
			out = append(out, e)
		}
	}
	return out, nil
}
