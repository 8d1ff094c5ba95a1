// Package blockdev implements the fixed-block-size byte container TinyFS
// volumes are stored in. It is a thin wrapper over an os.File (or, in
// tests, any io.ReadWriteSeeker) exposing whole-block reads and writes by
// index, in the spirit of the teacher's drivers/common.BlockStream and the
// original implementation's libDisk.c.
//
// Only one container may be open through a given *Device at a time; the
// package does not maintain any process-wide table the way libDisk.c's
// single-slot disks_array does. That restriction is enforced one level up,
// by the volume manager (§4.7), which refuses to mount a second volume.
package blockdev

import (
	"io"
	"os"

	"github.com/KrakenMInitials/tinyfs-filesystem/internal/errs"
)

// BlockSize is the fixed size, in bytes, of every block in a TinyFS
// container (§3).
const BlockSize = 256

// Device is an open disk container, truncated or validated to a whole
// number of BlockSize-byte blocks.
type Device struct {
	stream      io.ReadWriteSeeker
	closer      io.Closer
	totalBlocks uint32
}

// Open creates or truncates the container at path when sizeBytes > 0, or
// opens an existing one when sizeBytes == 0 (§4.1). In the latter case the
// file's length must already be a nonzero multiple of BlockSize.
func Open(path string, sizeBytes int64) (*Device, error) {
	if sizeBytes > 0 {
		return create(path, sizeBytes)
	}
	return openExisting(path)
}

func create(path string, sizeBytes int64) (*Device, error) {
	if sizeBytes%BlockSize != 0 {
		return nil, errs.NewWithMessage(
			errs.ErrOpenBadAlignment,
			"requested size is not a multiple of the block size",
		)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, errs.NewWithMessage(errs.ErrSystemError, err.Error())
	}
	if err := file.Truncate(sizeBytes); err != nil {
		file.Close()
		return nil, errs.NewWithMessage(errs.ErrSystemError, err.Error())
	}

	return &Device{stream: file, closer: file, totalBlocks: uint32(sizeBytes / BlockSize)}, nil
}

func openExisting(path string) (*Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o666)
	if err != nil {
		return nil, errs.NewWithMessage(errs.ErrSystemError, err.Error())
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errs.NewWithMessage(errs.ErrSystemError, err.Error())
	}

	if info.Size() == 0 || info.Size()%BlockSize != 0 {
		file.Close()
		return nil, errs.New(errs.ErrOpenBadAlignment)
	}

	return &Device{stream: file, closer: file, totalBlocks: uint32(info.Size() / BlockSize)}, nil
}

// WrapStream adapts an already-open stream (e.g. an in-memory
// bytesextra.NewReadWriteSeeker) into a Device, for tests that don't want
// to touch the filesystem. totalBytes must be a nonzero multiple of
// BlockSize. The wrapped stream is not closed by Device.Close unless it
// also implements io.Closer.
func WrapStream(s io.ReadWriteSeeker, totalBytes int64) (*Device, error) {
	if totalBytes == 0 || totalBytes%BlockSize != 0 {
		return nil, errs.New(errs.ErrOpenBadAlignment)
	}

	dev := &Device{stream: s, totalBlocks: uint32(totalBytes / BlockSize)}
	if closer, ok := s.(io.Closer); ok {
		dev.closer = closer
	}
	return dev, nil
}

// TotalBlocks returns the number of BlockSize-byte blocks in the container.
func (d *Device) TotalBlocks() uint32 {
	return d.totalBlocks
}

func (d *Device) checkBounds(index uint32) error {
	if d.stream == nil {
		return errs.New(errs.ErrDiskInactive)
	}
	if index >= d.totalBlocks {
		return errs.NewWithMessage(
			errs.ErrDiskAccessDenied,
			"block index out of range",
		)
	}
	return nil
}

func (d *Device) seekToBlock(index uint32) error {
	_, err := d.stream.Seek(int64(index)*BlockSize, io.SeekStart)
	if err != nil {
		return errs.NewWithMessage(errs.ErrDiskAccessFailed, err.Error())
	}
	return nil
}

// ReadBlock fills buf, which must be exactly BlockSize bytes, with the
// contents of the block at index.
func (d *Device) ReadBlock(index uint32, buf []byte) error {
	if len(buf) != BlockSize {
		return errs.NewWithMessage(errs.ErrDiskAccessFailed, "buffer is not one block")
	}
	if err := d.checkBounds(index); err != nil {
		return err
	}
	if err := d.seekToBlock(index); err != nil {
		return err
	}

	n, err := io.ReadFull(d.stream, buf)
	if err != nil {
		return errs.NewWithMessage(errs.ErrDiskAccessFailed, err.Error())
	}
	if n != BlockSize {
		return errs.NewWithMessage(errs.ErrDiskAccessFailed, "short read")
	}
	return nil
}

// WriteBlock writes buf, which must be exactly BlockSize bytes, to the
// block at index.
func (d *Device) WriteBlock(index uint32, buf []byte) error {
	if len(buf) != BlockSize {
		return errs.NewWithMessage(errs.ErrDiskAccessFailed, "buffer is not one block")
	}
	if err := d.checkBounds(index); err != nil {
		return err
	}
	if err := d.seekToBlock(index); err != nil {
		return err
	}

	n, err := d.stream.Write(buf)
	if err != nil {
		return errs.NewWithMessage(errs.ErrDiskAccessFailed, err.Error())
	}
	if n != BlockSize {
		return errs.NewWithMessage(errs.ErrDiskAccessFailed, "short write")
	}
	return nil
}

// Close releases the underlying stream, if it supports closing. The Device
// must not be used afterwards.
func (d *Device) Close() error {
	if d.stream == nil {
		return errs.New(errs.ErrDiskInactive)
	}
	d.stream = nil

	if d.closer == nil {
		return nil
	}
	if err := d.closer.Close(); err != nil {
		return errs.NewWithMessage(errs.ErrSystemError, err.Error())
	}
	return nil
}
