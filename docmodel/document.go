// Package docmodel defines the document/revision shapes the merge
// service replicates, the way cqkv/model defines Record/RecordPos for
// its key-value records.
package docmodel

import (
	"encoding/binary"
	"fmt"
)

// Revision identifies one edit of a document in a conflict-tolerant
// revision tree (a generation counter plus a content hash, as CouchDB
// revisions are structured).
type Revision struct {
	Seq  uint64
	Hash []byte
}

func (r Revision) String() string {
	return fmt.Sprintf("%d-%x", r.Seq, r.Hash)
}

// Document is one leaf of a by-id B-tree: an id, its winning revision,
// a deleted flag, and the body bytes for that revision. The salvage
// core never inspects Body; it is opaque payload handed to the merge
// service.
type Document struct {
	ID       []byte
	Rev      Revision
	Deleted  bool
	Body     []byte
}

// MarshalSummary encodes a Document into the opaque leaf value a
// kv_node entry carries on disk.
func MarshalSummary(d *Document) []byte {
	buf := make([]byte, 0, 16+len(d.Rev.Hash)+len(d.Body))
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], d.Rev.Seq)
	buf = append(buf, seq[:]...)
	buf = append(buf, byte(len(d.Rev.Hash)))
	buf = append(buf, d.Rev.Hash...)
	if d.Deleted {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, d.Body...)
	return buf
}

// UnmarshalSummary decodes the bytes MarshalSummary produced, given the
// document's id (the by-id tree's key, carried alongside the leaf
// value rather than inside it).
func UnmarshalSummary(id []byte, data []byte) (*Document, error) {
	if len(data) < 9 {
		return nil, fmt.Errorf("docmodel: summary too short")
	}
	seq := binary.BigEndian.Uint64(data[:8])
	hashLen := int(data[8])
	if len(data) < 9+hashLen+1 {
		return nil, fmt.Errorf("docmodel: summary truncated")
	}
	hash := append([]byte(nil), data[9:9+hashLen]...)
	deleted := data[9+hashLen] == 1
	body := append([]byte(nil), data[9+hashLen+1:]...)
	return &Document{
		ID:      append([]byte(nil), id...),
		Rev:     Revision{Seq: seq, Hash: hash},
		Deleted: deleted,
		Body:    body,
	}, nil
}
