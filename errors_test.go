package tinyfs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KrakenMInitials/tinyfs-filesystem"
)

func TestDriverErrorWithMessage(t *testing.T) {
	err := tinyfs.NewErrorWithMessage(tinyfs.ErrFileNotFound, `no file named "beta"`)
	assert.Equal(
		t,
		`no directory entry with that name: no file named "beta"`,
		err.Error(),
	)
	assert.ErrorIs(t, err, tinyfs.ErrFileNotFound)
}

func TestDriverErrorBareCode(t *testing.T) {
	err := tinyfs.NewError(tinyfs.ErrBitmapFull)
	assert.Equal(t, "no free blocks remain", err.Error())
	assert.True(t, errors.Is(err, tinyfs.ErrBitmapFull))
	assert.False(t, errors.Is(err, tinyfs.ErrDirectoryFull))
}
