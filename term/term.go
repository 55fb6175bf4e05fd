// Package term implements the on-disk serializer/deserializer for the
// B-tree node terms and header records the couchrepair core scans for.
// The wire format mirrors the shape the format demands (a fixed 13-byte
// kv_node/kp_node signature, a tagged entry list) but is otherwise this
// package's own design: nothing in the example pack implements the
// exact legacy term format the signature bytes come from, so the rest
// of the framing (list/tuple/atom/binary/integer tags) is hand-rolled
// the way cqkv/codec hand-rolls its own record header codec.
package term

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Tag bytes borrowed from the external term format this file layout
// is derived from. Only the handful this package needs are named.
const (
	tagVersion     byte = 0x83
	tagSmallTuple  byte = 0x68
	tagAtom        byte = 0x64
	tagList        byte = 0x6c
	tagNil         byte = 0x6a
	tagBinary      byte = 0x6d
	tagInteger     byte = 0x62
	tagSmallInt    byte = 0x61
)

// Kind distinguishes a leaf node from an interior node.
type Kind int

const (
	KindUnknown Kind = iota
	KindKV           // kv_node: leaf
	KindKP           // kp_node: interior
)

func (k Kind) String() string {
	switch k {
	case KindKV:
		return "kv_node"
	case KindKP:
		return "kp_node"
	default:
		return "unknown"
	}
}

// Signature is the 13-byte on-disk prefix identifying a kv_node term,
// exactly as specified.
var Signature = []byte{0x83, 0x68, 0x02, 0x64, 0x00, 0x07, 'k', 'v', '_', 'n', 'o', 'd', 'e'}

// KPSignature is the sibling prefix for interior nodes. It shares the
// first six bytes with Signature.
var KPSignature = []byte{0x83, 0x68, 0x02, 0x64, 0x00, 0x07, 'k', 'p', '_', 'n', 'o', 'd', 'e'}

const atomLen = 7 // len("kv_node") == len("kp_node")

var (
	ErrBadMagic   = errors.New("term: bad version byte")
	ErrBadTuple   = errors.New("term: expected a 2-tuple")
	ErrBadAtom    = errors.New("term: unrecognized node tag atom")
	ErrTruncated  = errors.New("term: truncated term")
	ErrBadKeyType = errors.New("term: key is neither binary nor integer")
)

// LocalPrefix marks documents that are never salvaged.
var LocalPrefix = []byte("_local/")

// IsLocalKey reports whether key begins with the reserved "_local/" prefix.
func IsLocalKey(key []byte) bool {
	if len(key) < len(LocalPrefix) {
		return false
	}
	for i, b := range LocalPrefix {
		if key[i] != b {
			return false
		}
	}
	return true
}

// Key is either a []byte (by-id) or an int64 (by-seq).
type Key interface{}

// Entry is one slot of a node's entry list. For a kv_node, Value holds
// the opaque leaf payload. For a kp_node, ChildOffset/Reduction hold
// the pointer to, and cached reduction of, the child subtree.
type Entry struct {
	Key         Key
	Value       []byte
	ChildOffset int64
	Reduction   []byte
}

// Node is a decoded kv_node or kp_node term.
type Node struct {
	Kind    Kind
	Entries []Entry
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func encodeKey(buf []byte, key Key) ([]byte, error) {
	switch v := key.(type) {
	case []byte:
		buf = append(buf, tagBinary)
		buf = appendUint32(buf, uint32(len(v)))
		buf = append(buf, v...)
		return buf, nil
	case int64:
		buf = append(buf, tagInteger)
		buf = appendUint32(buf, uint32(int32(v)))
		return buf, nil
	case int:
		return encodeKey(buf, int64(v))
	default:
		return nil, fmt.Errorf("term: unsupported key type %T", key)
	}
}

func encodeBinary(buf []byte, data []byte) []byte {
	buf = append(buf, tagBinary)
	buf = appendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

// Encode serializes a Node into its on-disk form, including the fixed
// 13-byte signature for its Kind.
func Encode(n *Node) ([]byte, error) {
	var sig []byte
	switch n.Kind {
	case KindKV:
		sig = Signature
	case KindKP:
		sig = KPSignature
	default:
		return nil, fmt.Errorf("term: cannot encode node of kind %v", n.Kind)
	}

	buf := make([]byte, 0, 64+len(n.Entries)*32)
	buf = append(buf, sig...)

	buf = append(buf, tagList)
	buf = appendUint32(buf, uint32(len(n.Entries)))
	for _, e := range n.Entries {
		var err error
		switch n.Kind {
		case KindKV:
			buf = append(buf, tagSmallTuple, 2)
			buf, err = encodeKey(buf, e.Key)
			if err != nil {
				return nil, err
			}
			buf = encodeBinary(buf, e.Value)
		case KindKP:
			buf = append(buf, tagSmallTuple, 2)
			buf, err = encodeKey(buf, e.Key)
			if err != nil {
				return nil, err
			}
			// child pointer sub-tuple: {ChildOffset, Reduction}
			buf = append(buf, tagSmallTuple, 2)
			buf = append(buf, tagInteger)
			buf = appendUint32(buf, uint32(int32(e.ChildOffset)))
			buf = encodeBinary(buf, e.Reduction)
		}
	}
	buf = append(buf, tagNil)
	return buf, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return ErrTruncated
	}
	return nil
}

func (r *reader) byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) decodeKey() (Key, error) {
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagBinary:
		n, err := r.uint32()
		if err != nil {
			return nil, err
		}
		b, err := r.take(int(n))
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	case tagInteger:
		n, err := r.uint32()
		if err != nil {
			return nil, err
		}
		return int64(int32(n)), nil
	case tagSmallInt:
		b, err := r.byte()
		if err != nil {
			return nil, err
		}
		return int64(b), nil
	default:
		return nil, ErrBadKeyType
	}
}

func (r *reader) decodeBinary() ([]byte, error) {
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}
	if tag != tagBinary {
		return nil, ErrTruncated
	}
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Decode parses raw logical term bytes (as returned by the block-file
// layer's depadded term reader) into a Node. Any malformed input
// surfaces as an error; callers performing a byte-granularity search
// treat that as a silent skip, not a terminal error.
func Decode(data []byte) (*Node, error) {
	r := &reader{data: data}

	version, err := r.byte()
	if err != nil {
		return nil, err
	}
	if version != tagVersion {
		return nil, ErrBadMagic
	}

	tupleTag, err := r.byte()
	if err != nil {
		return nil, err
	}
	if tupleTag != tagSmallTuple {
		return nil, ErrBadTuple
	}
	arity, err := r.byte()
	if err != nil {
		return nil, err
	}
	if arity != 2 {
		return nil, ErrBadTuple
	}

	atomTag, err := r.byte()
	if err != nil {
		return nil, err
	}
	if atomTag != tagAtom {
		return nil, ErrBadAtom
	}
	alen, err := r.uint16()
	if err != nil {
		return nil, err
	}
	if alen != atomLen {
		return nil, ErrBadAtom
	}
	name, err := r.take(int(alen))
	if err != nil {
		return nil, err
	}

	var kind Kind
	switch string(name) {
	case "kv_node":
		kind = KindKV
	case "kp_node":
		kind = KindKP
	default:
		return nil, ErrBadAtom
	}

	listTag, err := r.byte()
	if err != nil {
		return nil, err
	}
	if listTag != tagList {
		return nil, ErrTruncated
	}
	count, err := r.uint32()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		tTag, err := r.byte()
		if err != nil {
			return nil, err
		}
		if tTag != tagSmallTuple {
			return nil, ErrBadTuple
		}
		if _, err := r.byte(); err != nil { // arity, always 2
			return nil, err
		}
		key, err := r.decodeKey()
		if err != nil {
			return nil, err
		}
		var entry Entry
		entry.Key = key
		if kind == KindKV {
			val, err := r.decodeBinary()
			if err != nil {
				return nil, err
			}
			entry.Value = val
		} else {
			cTag, err := r.byte()
			if err != nil {
				return nil, err
			}
			if cTag != tagSmallTuple {
				return nil, ErrBadTuple
			}
			if _, err := r.byte(); err != nil {
				return nil, err
			}
			offTag, err := r.byte()
			if err != nil {
				return nil, err
			}
			if offTag != tagInteger {
				return nil, ErrTruncated
			}
			off, err := r.uint32()
			if err != nil {
				return nil, err
			}
			entry.ChildOffset = int64(int32(off))
			red, err := r.decodeBinary()
			if err != nil {
				return nil, err
			}
			entry.Reduction = red
		}
		entries = append(entries, entry)
	}
	if nilTag, err := r.byte(); err != nil || nilTag != tagNil {
		return nil, ErrTruncated
	}

	return &Node{Kind: kind, Entries: entries}, nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}
