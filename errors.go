package tinyfs

import "github.com/KrakenMInitials/tinyfs-filesystem/internal/errs"

// Code is one of the flat error kinds a TinyFS operation can return (§7),
// represented as its message string. It is an alias of the leaf errs.Code type so that every
// internal/* package and this root package share one identity for it,
// without the root package needing to be imported back by the internal
// packages that raise these errors.
type Code = errs.Code

// DriverError pairs a Code with an optional, call-site-specific message. It
// is the concrete error type TinyFS operations return, except where Write
// or Delete fold several block-freeing failures into one
// *multierror.Error.
type DriverError = errs.DriverError

// Device errors (block-device layer).
const (
	ErrOpenBadAlignment = errs.ErrOpenBadAlignment
	ErrDiskAccessFailed = errs.ErrDiskAccessFailed
	ErrDiskAccessDenied = errs.ErrDiskAccessDenied
	ErrDiskInactive     = errs.ErrDiskInactive
	ErrSystemError      = errs.ErrSystemError
)

// Volume errors.
const (
	ErrExistingMountedFS            = errs.ErrExistingMountedFS
	ErrNoFSMounted                  = errs.ErrNoFSMounted
	ErrWrongFSType                  = errs.ErrWrongFSType
	ErrSBChecksumFailed             = errs.ErrSBChecksumFailed
	ErrInsufficientFSSize           = errs.ErrInsufficientFSSize
	ErrMountedFSInvalidSuperblock   = errs.ErrMountedFSInvalidSuperblock
	ErrMountedFSInvalidRootDirInode = errs.ErrMountedFSInvalidRootDirInode
	ErrMountedFSInvalidRootDir      = errs.ErrMountedFSInvalidRootDir
	ErrMountedFSInvalidBitmap       = errs.ErrMountedFSInvalidBitmap
)

// Directory/file errors.
const (
	ErrInvalidFilename             = errs.ErrInvalidFilename
	ErrFileNotFound                = errs.ErrFileNotFound
	ErrDirectoryFull               = errs.ErrDirectoryFull
	ErrBitmapFull                  = errs.ErrBitmapFull
	ErrFileTableFull               = errs.ErrFileTableFull
	ErrAccessedOutOfFileTableRange = errs.ErrAccessedOutOfFileTableRange
	ErrFileNotInUse                = errs.ErrFileNotInUse
	ErrProtectedInode              = errs.ErrProtectedInode
	ErrInvalidFilePermission       = errs.ErrInvalidFilePermission
	ErrInvalidWriteSize            = errs.ErrInvalidWriteSize
	ErrInvalidOffset               = errs.ErrInvalidOffset
	ErrReadEOF                     = errs.ErrReadEOF
)

// NewError wraps a bare Code with no additional context.
func NewError(code Code) *DriverError {
	return errs.New(code)
}

// NewErrorWithMessage wraps Code with an additional, call-site-specific
// message, e.g. naming the offending block index.
func NewErrorWithMessage(code Code, message string) *DriverError {
	return errs.NewWithMessage(code, message)
}
