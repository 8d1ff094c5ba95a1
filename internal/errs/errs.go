// Package errs defines the flat error taxonomy shared by every TinyFS
// layer (§7). It is a dependency-free leaf: the root package and every
// internal/* package import it, and it imports nothing of its own, so
// that no internal component ever has to import back up to the root
// package the way the teacher's driver packages only ever import
// downward from disko, never the reverse (contrast
// _examples/dargueta-disko/drivers/common/allocatormap.go, which imports
// disko but is never imported by it).
package errs

import "fmt"

// Code is one of the flat error kinds a TinyFS operation can return (§7),
// represented as its message string. It implements the error interface directly so callers can
// compare with errors.Is(err, errs.ErrFileNotFound) without unwrapping.
type Code string

func (c Code) Error() string {
	return string(c)
}

// Device errors (block-device layer).
const (
	ErrOpenBadAlignment Code = "image size is not a nonzero multiple of the block size"
	ErrDiskAccessFailed Code = "disk access failed"
	ErrDiskAccessDenied Code = "disk access denied: block index out of range"
	ErrDiskInactive     Code = "no container is open"
	ErrSystemError      Code = "system error"
)

// Volume errors.
const (
	ErrExistingMountedFS            Code = "a volume is already mounted"
	ErrNoFSMounted                  Code = "no volume is mounted"
	ErrWrongFSType                  Code = "superblock magic byte does not identify a TinyFS volume"
	ErrSBChecksumFailed             Code = "superblock checksum mismatch"
	ErrInsufficientFSSize           Code = "volume must be a multiple of the block size with at least 4 blocks"
	ErrMountedFSInvalidSuperblock   Code = "superblock references an invalid bitmap or root inode block"
	ErrMountedFSInvalidRootDirInode Code = "root inode is missing a direct or indirect block pointer"
	ErrMountedFSInvalidRootDir      Code = "root directory contains an out-of-range inode block reference"
	ErrMountedFSInvalidBitmap       Code = "bitmap does not mark the reserved blocks as used"
)

// Directory/file errors.
const (
	ErrInvalidFilename             Code = "filename must be 1 to 7 ASCII bytes"
	ErrFileNotFound                Code = "no directory entry with that name"
	ErrDirectoryFull               Code = "directory has no free entry slots"
	ErrBitmapFull                  Code = "no free blocks remain"
	ErrFileTableFull               Code = "open-file table is full"
	ErrAccessedOutOfFileTableRange Code = "descriptor is out of range"
	ErrFileNotInUse                Code = "descriptor does not refer to an open file"
	ErrProtectedInode              Code = "operation not permitted on the root inode"
	ErrInvalidFilePermission       Code = "file is read-only"
	ErrInvalidWriteSize            Code = "write size exceeds the maximum file size"
	ErrInvalidOffset               Code = "offset is out of range for this file"
	ErrReadEOF                     Code = "end of file"
)

// DriverError pairs a Code with an optional, call-site-specific message. It
// is the concrete error type TinyFS operations return, except where Write
// or Delete fold several block-freeing failures into one
// *multierror.Error.
type DriverError struct {
	Code    Code
	Message string
}

// New wraps a bare Code with no additional context.
func New(code Code) *DriverError {
	return &DriverError{Code: code}
}

// NewWithMessage wraps Code with an additional, call-site-specific message,
// e.g. naming the offending block index.
func NewWithMessage(code Code, message string) *DriverError {
	return &DriverError{Code: code, Message: message}
}

// Error implements the `error` interface.
func (e *DriverError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying Code so errors.Is(err, errs.ErrFileNotFound)
// works against a *DriverError the same way it would against the bare Code.
func (e *DriverError) Unwrap() error {
	return e.Code
}
