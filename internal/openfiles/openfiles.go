// Package openfiles implements the fixed-capacity open-file table (§4.8):
// MAX_OPEN_FILES slots, each an in-use flag, an inode-block pointer, and a
// byte cursor. Grounded on the original implementation's
// libTinyFS_UNIX.h FileTableEntry array and sized per its
// MAX_OPEN_FILES constant.
package openfiles

import "github.com/KrakenMInitials/tinyfs-filesystem/internal/errs"

// Capacity is the fixed number of simultaneously open descriptors
// (MAX_OPEN_FILES, §3).
const Capacity = 5

// Entry is one open-file-table slot.
type Entry struct {
	InUse      bool
	InodeBlock uint32
	Cursor     uint32
}

// Table is a fixed array of open descriptors; each FS owns its own Table.
type Table struct {
	slots [Capacity]Entry
}

// New returns an empty open-file table.
func New() *Table {
	return &Table{}
}

// Open claims the first free slot for inodeBlock and returns its index as
// the descriptor, or ErrFileTableFull if every slot is in use (§4.8).
func (t *Table) Open(inodeBlock uint32) (int, error) {
	for i := range t.slots {
		if !t.slots[i].InUse {
			t.slots[i] = Entry{InUse: true, InodeBlock: inodeBlock, Cursor: 0}
			return i, nil
		}
	}
	return -1, errs.New(errs.ErrFileTableFull)
}

// Close frees fd's slot without touching disk (§4.8).
func (t *Table) Close(fd int) error {
	e, err := t.entry(fd)
	if err != nil {
		return err
	}
	*e = Entry{}
	return nil
}

func (t *Table) entry(fd int) (*Entry, error) {
	if fd < 0 || fd >= Capacity {
		return nil, errs.New(errs.ErrAccessedOutOfFileTableRange)
	}
	if !t.slots[fd].InUse {
		return nil, errs.New(errs.ErrFileNotInUse)
	}
	return &t.slots[fd], nil
}

// Get returns the live entry for fd, for callers that need to read or
// mutate its inode-block pointer or cursor.
func (t *Table) Get(fd int) (*Entry, error) {
	return t.entry(fd)
}
