// Package layout defines the byte-exact, little-endian, packed on-disk
// structures TinyFS blocks are serialized into (§3, §6), and the checksum
// discipline (§4.3) that seals and verifies them.
//
// Structured blocks are encoded with encoding/binary into a bytewriter
// target exactly the way the teacher's file_systems/unixv1/format.go
// builds its superblock/inode/dirent layout, rather than by hand-packing
// byte slices.
package layout

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/noxer/bytewriter"
)

// BlockSize is the size, in bytes, of every on-disk block (§3).
const BlockSize = 256

// InvalidBlock is the sentinel meaning "no block" (§3).
const InvalidBlock uint32 = 0xFFFFFFFF

// Fixed block indices (§3, §4.7).
const (
	SuperblockIndex = 0
	BitmapIndex     = 1
	RootInodeIndex  = 2
	RootDirIndex    = 3
)

// Inode type bytes (§3).
const (
	InodeTypeReadOnly  uint8 = 0x01
	InodeTypeReadWrite uint8 = 0x02
)

// SuperblockMagic is the magic byte identifying a TinyFS volume (§3).
const SuperblockMagic uint8 = 0x5A

// DataBytesPerBlock is the number of usable data bytes in a data block,
// after the trailing 16-bit checksum (§3).
const DataBytesPerBlock = BlockSize - 2

// DirentSize is the encoded size of one directory entry (§3).
const DirentSize = 8 + 4

// EntriesPerDirBlock is how many directory entries fit in one data block:
// floor(254/12) = 21 (§3).
const EntriesPerDirBlock = DataBytesPerBlock / DirentSize

// PointersPerIndirectBlock is how many 32-bit block pointers fit in one
// indirect block: floor(254/4) = 63 (§3).
const PointersPerIndirectBlock = DataBytesPerBlock / 4

// MaxFileSize is the largest file TinyFS can represent: two direct blocks
// plus a full indirect block's worth of data blocks (§3).
const MaxFileSize = 2*DataBytesPerBlock + PointersPerIndirectBlock*DataBytesPerBlock

// crc16Of seals or verifies a structured block by computing CRC-32 over
// data and keeping the low 16 bits, following §4.3 and the original
// implementation's tinyfs_crc.c. The polynomial (0xEDB88320, reflected,
// init/final XOR 0xFFFFFFFF) is the same one hash/crc32.IEEE implements,
// so there's no reason to hand-roll the table a second time.
func crc16Of(data []byte) uint16 {
	return uint16(crc32.ChecksumIEEE(data) & 0xFFFF)
}

// RawSuperblock is the on-disk layout of block 0 (§6).
type RawSuperblock struct {
	Type         uint8
	BitmapBlock  uint32
	RootDirInode uint32
	FSSize       uint32
	Checksum     uint16
}

// EncodeSuperblock seals and serializes sb into a BlockSize-byte buffer.
func EncodeSuperblock(sb RawSuperblock) []byte {
	sb.Checksum = 0
	buf := make([]byte, BlockSize)
	writeFields(buf, sb.Type, sb.BitmapBlock, sb.RootDirInode, sb.FSSize, uint16(0))
	sb.Checksum = crc16Of(buf)
	writeFields(buf, sb.Type, sb.BitmapBlock, sb.RootDirInode, sb.FSSize, sb.Checksum)
	return buf
}

func writeFields(buf []byte, typ uint8, bitmapBlock, rootDirInode, fsSize uint32, checksum uint16) {
	w := bytewriter.New(buf)
	binary.Write(w, binary.LittleEndian, typ)
	binary.Write(w, binary.LittleEndian, bitmapBlock)
	binary.Write(w, binary.LittleEndian, rootDirInode)
	binary.Write(w, binary.LittleEndian, fsSize)
	binary.Write(w, binary.LittleEndian, checksum)
}

// DecodeSuperblock parses a BlockSize-byte buffer into a RawSuperblock.
func DecodeSuperblock(buf []byte) RawSuperblock {
	r := bytes.NewReader(buf)
	var sb RawSuperblock
	binary.Read(r, binary.LittleEndian, &sb.Type)
	binary.Read(r, binary.LittleEndian, &sb.BitmapBlock)
	binary.Read(r, binary.LittleEndian, &sb.RootDirInode)
	binary.Read(r, binary.LittleEndian, &sb.FSSize)
	binary.Read(r, binary.LittleEndian, &sb.Checksum)
	return sb
}

// VerifySuperblockChecksum reports whether buf's stored checksum matches
// its recomputed value (§4.3).
func VerifySuperblockChecksum(buf []byte) bool {
	stored := DecodeSuperblock(buf).Checksum
	unsealed := make([]byte, BlockSize)
	copy(unsealed, buf)
	// The checksum field follows type, bitmap, root-inode and size: bytes 13-14.
	unsealed[13], unsealed[14] = 0, 0
	return crc16Of(unsealed) == stored
}

// RawInode is the on-disk layout of an inode block (§6).
type RawInode struct {
	Type     uint8
	Size     uint32
	Direct   [2]uint32
	Indirect uint32
	Checksum uint16
}

// EncodeInode seals and serializes ino into a BlockSize-byte buffer.
func EncodeInode(ino RawInode) []byte {
	buf := make([]byte, BlockSize)
	writeInodeFields(buf, ino, 0)
	checksum := crc16Of(buf)
	writeInodeFields(buf, ino, checksum)
	return buf
}

func writeInodeFields(buf []byte, ino RawInode, checksum uint16) {
	w := bytewriter.New(buf)
	binary.Write(w, binary.LittleEndian, ino.Type)
	binary.Write(w, binary.LittleEndian, ino.Size)
	binary.Write(w, binary.LittleEndian, ino.Direct)
	binary.Write(w, binary.LittleEndian, ino.Indirect)
	binary.Write(w, binary.LittleEndian, checksum)
}

// DecodeInode parses a BlockSize-byte buffer into a RawInode.
func DecodeInode(buf []byte) RawInode {
	r := bytes.NewReader(buf)
	var ino RawInode
	binary.Read(r, binary.LittleEndian, &ino.Type)
	binary.Read(r, binary.LittleEndian, &ino.Size)
	binary.Read(r, binary.LittleEndian, &ino.Direct)
	binary.Read(r, binary.LittleEndian, &ino.Indirect)
	binary.Read(r, binary.LittleEndian, &ino.Checksum)
	return ino
}

// VerifyInodeChecksum reports whether buf's stored checksum matches its
// recomputed value (§4.3).
func VerifyInodeChecksum(buf []byte) bool {
	stored := DecodeInode(buf).Checksum
	unsealed := make([]byte, BlockSize)
	copy(unsealed, buf)
	// The checksum field follows type, size, two directs and indirect: bytes 17-18.
	unsealed[17], unsealed[18] = 0, 0
	return crc16Of(unsealed) == stored
}

// EncodeDataBlock seals data (which must be DataBytesPerBlock bytes or
// fewer, zero-padded) into a BlockSize-byte buffer whose trailing 16 bits
// are the checksum of the data bytes alone (§4.3).
func EncodeDataBlock(data []byte) []byte {
	buf := make([]byte, BlockSize)
	copy(buf, data)
	checksum := crc16Of(buf[:DataBytesPerBlock])
	binary.LittleEndian.PutUint16(buf[DataBytesPerBlock:], checksum)
	return buf
}

// DataPayload returns the DataBytesPerBlock data bytes of a data block,
// discarding the checksum trailer.
func DataPayload(buf []byte) []byte {
	return buf[:DataBytesPerBlock]
}

// VerifyDataBlockChecksum reports whether buf's trailing checksum matches
// the recomputed checksum of its data bytes (§4.3).
func VerifyDataBlockChecksum(buf []byte) bool {
	stored := binary.LittleEndian.Uint16(buf[DataBytesPerBlock:])
	return crc16Of(buf[:DataBytesPerBlock]) == stored
}

// Dirent is a single directory entry (§3).
type Dirent struct {
	Name       [8]byte
	InodeBlock uint32
}

// EncodeDirent serializes a directory entry into its 12-byte wire form.
func EncodeDirent(d Dirent) []byte {
	buf := make([]byte, DirentSize)
	copy(buf[:8], d.Name[:])
	binary.LittleEndian.PutUint32(buf[8:], d.InodeBlock)
	return buf
}

// DecodeDirent parses a 12-byte buffer into a Dirent.
func DecodeDirent(buf []byte) Dirent {
	var d Dirent
	copy(d.Name[:], buf[:8])
	d.InodeBlock = binary.LittleEndian.Uint32(buf[8:])
	return d
}

// EncodeName copies up to 7 bytes of name into an 8-byte field, forcing
// the 8th byte to zero (§4.6).
func EncodeName(name string) [8]byte {
	var out [8]byte
	n := len(name)
	if n > 7 {
		n = 7
	}
	copy(out[:n], name[:n])
	out[7] = 0
	return out
}

// NameString returns the printable portion of an on-disk name field, up to
// the first NUL byte.
func NameString(name [8]byte) string {
	end := bytes.IndexByte(name[:], 0)
	if end < 0 {
		end = len(name)
	}
	return string(name[:end])
}

// EncodeIndirectBlock serializes up to PointersPerIndirectBlock block
// pointers into a sealed data block.
func EncodeIndirectBlock(pointers [PointersPerIndirectBlock]uint32) []byte {
	data := make([]byte, DataBytesPerBlock)
	for i, p := range pointers {
		binary.LittleEndian.PutUint32(data[i*4:], p)
	}
	return EncodeDataBlock(data)
}

// DecodeIndirectBlock parses a data block's payload as an array of block
// pointers.
func DecodeIndirectBlock(buf []byte) [PointersPerIndirectBlock]uint32 {
	var pointers [PointersPerIndirectBlock]uint32
	payload := DataPayload(buf)
	for i := range pointers {
		pointers[i] = binary.LittleEndian.Uint32(payload[i*4:])
	}
	return pointers
}
