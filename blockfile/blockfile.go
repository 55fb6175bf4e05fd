// Package blockfile implements the append-only, 4096-byte-block file
// layer the couchrepair core treats as an opaque collaborator: random
// reads, logical (depadded) appends, header-slot read/write, and fsync.
//
// Every block's first byte is reserved. It is never part of a term: a
// value of markerData (0x00) means "this block continues the previous
// logical stream", markerHeader (0x01) means "this block starts a
// header record". Logical readers/writers skip the reserved byte
// transparently; the signature scanner deliberately does not, because
// tolerating that single stray byte at block boundaries is the whole
// reason the node-term signature needs truncated alternatives.
package blockfile

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"

	"github.com/barrelfile/couchrepair/utils"
	"golang.org/x/sys/unix"
)

const (
	// BlockSize is the fixed block granularity of the file format.
	BlockSize = 4096

	markerData   byte = 0x00
	markerHeader byte = 0x01
)

var (
	ErrNoHeader      = errors.New("blockfile: no header found")
	ErrHeaderCorrupt = errors.New("blockfile: header checksum mismatch")
)

// File is a single .couch-format file.
type File struct {
	path string
	fd   *os.File
}

// Open opens (creating if necessary) the file at path for read/write use.
// The parent directory is created if it does not already exist, so a
// target database under lost+found/ can be opened without a separate
// mkdir step.
func Open(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &File{path: path, fd: fd}, nil
}

// OpenReadOnly opens the file for scan/repair probing only.
func OpenReadOnly(path string) (*File, error) {
	fd, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return &File{path: path, fd: fd}, nil
}

func (f *File) Close() error {
	return f.fd.Close()
}

// Size returns the current raw file size.
func (f *File) Size() (int64, error) {
	info, err := f.fd.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Sync flushes the file and, best-effort, the directory entry so a
// renamed/replaced header is durable across a crash, not just the bytes.
func (f *File) Sync() error {
	if err := f.fd.Sync(); err != nil {
		return err
	}
	dir, err := os.Open(filepath.Dir(f.path))
	if err != nil {
		return nil // best effort; directory fsync is a durability nicety
	}
	defer dir.Close()
	_ = unix.Fsync(int(dir.Fd()))
	return nil
}

// RawRead reads n raw bytes (including any reserved block-marker bytes)
// starting at offset. Used by the signature scanner, which must see the
// padding to recognize a truncated signature.
func (f *File) RawRead(offset int64, n int64) ([]byte, error) {
	buf := make([]byte, n)
	read, err := f.fd.ReadAt(buf, offset)
	if err != nil && read == 0 {
		return nil, err
	}
	return buf[:read], nil
}

func isMarkerOffset(off int64) bool {
	return off%BlockSize == 0
}

func bytesLeftInBlock(off int64) int64 {
	return BlockSize - off%BlockSize
}

// ReadLogical reads n logical bytes starting at a non-marker raw offset,
// transparently skipping the single reserved byte at each block boundary
// it crosses. It returns the logical bytes and the number of raw bytes
// consumed (which is n plus one byte for every block boundary crossed).
func (f *File) ReadLogical(offset int64, n int64) ([]byte, int64, error) {
	out := make([]byte, 0, n)
	raw := offset
	for int64(len(out)) < n {
		if isMarkerOffset(raw) {
			raw++
			continue
		}
		chunk := bytesLeftInBlock(raw)
		want := n - int64(len(out))
		if chunk > want {
			chunk = want
		}
		buf, err := f.RawRead(raw, chunk)
		if err != nil {
			return nil, 0, err
		}
		if int64(len(buf)) < chunk {
			return nil, 0, os.ErrClosed // short read past EOF
		}
		out = append(out, buf...)
		raw += chunk
	}
	return out, raw - offset, nil
}

// AppendTerm writes a length-prefixed term (4-byte big-endian length
// followed by the term bytes) as a logical stream, inserting the
// reserved marker byte whenever the write crosses a block boundary.
// It returns the raw offset of the length prefix: the decode point a
// caller passes back to DecodeTermAt.
func (f *File) AppendTerm(term []byte) (int64, error) {
	size, err := f.Size()
	if err != nil {
		return 0, err
	}
	start := size
	lenPrefix := make([]byte, 4)
	binary.BigEndian.PutUint32(lenPrefix, uint32(len(term)))
	payload := append(lenPrefix, term...)
	if err := f.writeLogical(size, payload); err != nil {
		return 0, err
	}
	return start, nil
}

func (f *File) writeLogical(at int64, data []byte) error {
	raw := at
	for len(data) > 0 {
		if isMarkerOffset(raw) {
			if _, err := f.fd.WriteAt([]byte{markerData}, raw); err != nil {
				return err
			}
			raw++
			continue
		}
		chunk := bytesLeftInBlock(raw)
		if chunk > int64(len(data)) {
			chunk = int64(len(data))
		}
		if _, err := f.fd.WriteAt(data[:chunk], raw); err != nil {
			return err
		}
		data = data[chunk:]
		raw += chunk
	}
	return nil
}

// DecodeTermAt reads the 4-byte length prefix and term body starting at
// the given decode point, returning the logical (depadded) term bytes.
// It is the term reader's entry point used by the Root Prober and Tail
// Scanner; any failure (short read, offset past EOF) is a decode
// failure the caller is expected to treat as a silent skip.
func (f *File) DecodeTermAt(offset int64) ([]byte, error) {
	if offset < 0 {
		return nil, os.ErrInvalid
	}
	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	if offset >= size {
		return nil, os.ErrInvalid
	}
	lenBuf, rawConsumed, err := f.ReadLogical(offset, 4)
	if err != nil {
		return nil, err
	}
	termLen := int64(binary.BigEndian.Uint32(lenBuf))
	if termLen <= 0 || termLen > size {
		return nil, os.ErrInvalid
	}
	body, _, err := f.ReadLogical(offset+rawConsumed, termLen)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// WriteHeader appends a new header record at the next block boundary
// (padding out the remainder of the current block if necessary) and
// syncs it. Returns the raw offset of the header's data block.
func (f *File) WriteHeader(data []byte) (int64, error) {
	size, err := f.Size()
	if err != nil {
		return 0, err
	}
	if !isMarkerOffset(size) {
		pad := bytesLeftInBlock(size)
		filler := make([]byte, pad)
		filler[0] = markerData
		if _, err := f.fd.WriteAt(filler, size); err != nil {
			return 0, err
		}
		size += pad
	}
	if len(data)+9 > BlockSize {
		return 0, errors.New("blockfile: header too large for a single block")
	}
	block := make([]byte, BlockSize)
	block[0] = markerHeader
	binary.BigEndian.PutUint32(block[1:5], uint32(len(data)))
	binary.BigEndian.PutUint32(block[5:9], utils.GenerateCrc(data))
	copy(block[9:], data)
	if _, err := f.fd.WriteAt(block, size); err != nil {
		return 0, err
	}
	if err := f.Sync(); err != nil {
		return 0, err
	}
	return size, nil
}

// ReadHeader scans blocks backward from EOF for the newest header
// block and returns its payload and raw offset. ErrNoHeader is
// returned when the file contains no header block at all.
func (f *File) ReadHeader() ([]byte, int64, error) {
	size, err := f.Size()
	if err != nil {
		return nil, 0, err
	}
	for off := size - size%BlockSize; off >= 0; off -= BlockSize {
		block, err := f.RawRead(off, BlockSize)
		if err != nil || len(block) < 9 {
			continue
		}
		if block[0] != markerHeader {
			continue
		}
		n := binary.BigEndian.Uint32(block[1:5])
		crc := binary.BigEndian.Uint32(block[5:9])
		if int(n) > BlockSize-9 {
			continue
		}
		payload := block[9 : 9+int(n)]
		if !utils.CheckCrc(crc, payload) {
			continue
		}
		return payload, off, nil
	}
	return nil, 0, ErrNoHeader
}
