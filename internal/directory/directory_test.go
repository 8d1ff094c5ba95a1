package directory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/KrakenMInitials/tinyfs-filesystem"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/blockdev"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/directory"
	"github.com/KrakenMInitials/tinyfs-filesystem/internal/layout"
)

func newDir(t *testing.T) *directory.Directory {
	t.Helper()
	buf := make([]byte, 4*blockdev.BlockSize)
	stream := bytesextra.NewReadWriteSeeker(buf)
	dev, err := blockdev.WrapStream(stream, int64(len(buf)))
	require.NoError(t, err)

	d := directory.New(dev, 0)
	require.NoError(t, d.Format())
	return d
}

func TestLookupMissingReturnsFileNotFound(t *testing.T) {
	d := newDir(t)
	_, _, err := d.Lookup("alpha")
	require.Error(t, err)
	assert.True(t, errors.Is(err, tinyfs.ErrFileNotFound))
}

func TestInsertThenLookup(t *testing.T) {
	d := newDir(t)
	slot, err := d.Insert("alpha", 7)
	require.NoError(t, err)
	assert.Equal(t, 0, slot)

	entry, foundSlot, err := d.Lookup("alpha")
	require.NoError(t, err)
	assert.Equal(t, 0, foundSlot)
	assert.EqualValues(t, 7, entry.InodeBlock)
}

func TestInsertRejectsOversizedName(t *testing.T) {
	d := newDir(t)
	_, err := d.Insert("toolongname", 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tinyfs.ErrInvalidFilename))
}

func TestInsertFillsFirstFreeSlotAfterRemove(t *testing.T) {
	d := newDir(t)
	_, err := d.Insert("alpha", 7)
	require.NoError(t, err)
	_, err = d.Insert("beta", 8)
	require.NoError(t, err)

	require.NoError(t, d.Remove("alpha"))

	slot, err := d.Insert("gamma", 9)
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
}

func TestDirectoryFullWhenAllSlotsTaken(t *testing.T) {
	d := newDir(t)
	for i := 0; i < layout.EntriesPerDirBlock; i++ {
		name := string(rune('a' + i%26))
		_, err := d.Insert(name, uint32(i+10))
		require.NoError(t, err)
	}

	_, err := d.Insert("x22", 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tinyfs.ErrDirectoryFull))
}

func TestRenameMovesEntry(t *testing.T) {
	d := newDir(t)
	_, err := d.Insert("alpha", 7)
	require.NoError(t, err)

	require.NoError(t, d.Rename("alpha", "beta"))

	_, _, err = d.Lookup("alpha")
	assert.True(t, errors.Is(err, tinyfs.ErrFileNotFound))

	entry, _, err := d.Lookup("beta")
	require.NoError(t, err)
	assert.EqualValues(t, 7, entry.InodeBlock)
}

func TestRenameRejectsMissingOldName(t *testing.T) {
	d := newDir(t)
	err := d.Rename("ghost", "beta")
	require.Error(t, err)
	assert.True(t, errors.Is(err, tinyfs.ErrFileNotFound))
}

func TestListReturnsEntriesInSlotOrder(t *testing.T) {
	d := newDir(t)
	_, err := d.Insert("alpha", 7)
	require.NoError(t, err)
	_, err = d.Insert("beta", 8)
	require.NoError(t, err)

	entries, err := d.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha", layout.NameString(entries[0].Name))
	assert.Equal(t, "beta", layout.NameString(entries[1].Name))
}
