package couchrepair

import "encoding/binary"

// RootPointer is a tree root's offset and cached reduction: the
// by_id_root/by_seq_root shape a header record carries.
type RootPointer struct {
	Offset    int64
	Reduction []byte
}

// Header is the decoded form of a header record. Opaque carries every
// field the core does not interpret, preserved verbatim across repair.
type Header struct {
	UpdateSeq uint64
	ByIDRoot  RootPointer
	BySeqRoot RootPointer
	Opaque    []byte
}

func putBytes(buf []byte, b []byte) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	buf = append(buf, n[:]...)
	return append(buf, b...)
}

func takeBytes(buf []byte, pos int) ([]byte, int, bool) {
	if pos+4 > len(buf) {
		return nil, pos, false
	}
	n := int(binary.BigEndian.Uint32(buf[pos : pos+4]))
	pos += 4
	if pos+n > len(buf) {
		return nil, pos, false
	}
	out := append([]byte(nil), buf[pos:pos+n]...)
	return out, pos + n, true
}

// EncodeHeader serializes a Header into its raw payload form, as
// written by blockfile.File.WriteHeader.
func EncodeHeader(h *Header) []byte {
	buf := make([]byte, 0, 32+len(h.ByIDRoot.Reduction)+len(h.BySeqRoot.Reduction)+len(h.Opaque))
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], h.UpdateSeq)
	buf = append(buf, seq[:]...)

	var off [8]byte
	binary.BigEndian.PutUint64(off[:], uint64(h.ByIDRoot.Offset))
	buf = append(buf, off[:]...)
	buf = putBytes(buf, h.ByIDRoot.Reduction)

	binary.BigEndian.PutUint64(off[:], uint64(h.BySeqRoot.Offset))
	buf = append(buf, off[:]...)
	buf = putBytes(buf, h.BySeqRoot.Reduction)

	buf = putBytes(buf, h.Opaque)
	return buf
}

// DecodeHeader parses a header payload produced by EncodeHeader.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < 24 {
		return nil, ErrDecodeFailure
	}
	h := &Header{}
	h.UpdateSeq = binary.BigEndian.Uint64(data[0:8])
	h.ByIDRoot.Offset = int64(binary.BigEndian.Uint64(data[8:16]))

	pos := 16
	var ok bool
	h.ByIDRoot.Reduction, pos, ok = takeBytes(data, pos)
	if !ok {
		return nil, ErrDecodeFailure
	}
	if pos+8 > len(data) {
		return nil, ErrDecodeFailure
	}
	h.BySeqRoot.Offset = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
	pos += 8
	h.BySeqRoot.Reduction, pos, ok = takeBytes(data, pos)
	if !ok {
		return nil, ErrDecodeFailure
	}
	h.Opaque, pos, ok = takeBytes(data, pos)
	if !ok {
		return nil, ErrDecodeFailure
	}
	return h, nil
}
