package couchrepair

import (
	"github.com/barrelfile/couchrepair/blockfile"
	"github.com/barrelfile/couchrepair/btreeio"
	"github.com/barrelfile/couchrepair/term"
)

// ChunkSize is the amount of raw file read per iteration of the
// Signature Scanner.
const ChunkSize = 1 << 20 // 1,048,576 bytes

// FindNodesQuickly is the Signature Scanner: read the file backwards
// in ChunkSize chunks, test every byte
// position against the kv_node signature (full or block-truncated),
// and run each candidate through the Node Acceptor. Chunks are
// scanned high-to-low; positions within a chunk low-to-high; the
// result is the concatenation of per-chunk accepted offsets in that
// order, which callers treat as an unordered set of by-id leaf roots.
func FindNodesQuickly(file *blockfile.File) ([]int64, error) {
	reader := btreeio.NewReader(file)
	size, err := file.Size()
	if err != nil {
		return nil, err
	}

	found := newOffsetSet()
	end := size
	for end > 0 {
		start := end - ChunkSize
		if start < 0 {
			start = 0
		}
		chunk, err := file.RawRead(start, end-start)
		if err != nil {
			return nil, err
		}
		scanChunk(file, reader, start, chunk, found)
		end = start
	}
	return found.offsets(), nil
}

// scanChunk tests every byte position in chunk (which starts at
// absolute offset base) against the 13 signature alternatives and
// feeds every match to the node acceptor.
func scanChunk(file *blockfile.File, reader *btreeio.Reader, base int64, chunk []byte, found *offsetSet) {
	for p := 0; p < len(chunk); p++ {
		abs := base + int64(p)
		if !signatureMatchesAt(chunk, p, abs) {
			continue
		}
		candidate := abs - 4
		if offset, ok := acceptNode(file, candidate); ok {
			found.addIfNew(offset)
		}
	}
}

// signatureMatchesAt reports whether one of the 12 truncated
// alternatives or the full 13-byte signature matches chunk at index p
// (whose absolute file offset is abs), accounting for the single
// reserved marker byte the block-file layer inserts at abs%4096==0.
func signatureMatchesAt(chunk []byte, p int, abs int64) bool {
	remaining := blockfile.BlockSize - abs%blockfile.BlockSize
	sig := term.Signature

	if remaining >= int64(len(sig)) {
		return bytesEqualAt(chunk, p, sig)
	}

	k := int(remaining)
	if k < 1 || k > len(sig)-1 {
		return false
	}
	// first k bytes of the signature, then the reserved marker byte,
	// then the remaining len(sig)-k bytes right after it.
	if !bytesEqualAt(chunk, p, sig[:k]) {
		return false
	}
	return bytesEqualAt(chunk, p+k+1, sig[k:])
}

func bytesEqualAt(chunk []byte, p int, want []byte) bool {
	if p < 0 || p+len(want) > len(chunk) {
		return false
	}
	for i, b := range want {
		if chunk[p+i] != b {
			return false
		}
	}
	return true
}

// acceptNode is the Node Acceptor: decode the term at candidate; on
// failure retry once at candidate-1 (recovering
// from a one-byte offset introduced by a block boundary between the
// length prefix and the term); keep only kv_node leaves whose first
// entry's key is a non-"_local/" byte string.
func acceptNode(file *blockfile.File, candidate int64) (int64, bool) {
	node, offset, err := decodeAt(file, candidate)
	if err != nil {
		if candidate-1 < 0 {
			return 0, false
		}
		node, offset, err = decodeAt(file, candidate-1)
		if err != nil {
			return 0, false
		}
	}

	if node.Kind != term.KindKV || len(node.Entries) == 0 {
		return 0, false
	}
	firstKey, ok := node.Entries[0].Key.([]byte)
	if !ok {
		return 0, false
	}
	if term.IsLocalKey(firstKey) {
		return 0, false
	}
	return offset, true
}

func decodeAt(file *blockfile.File, offset int64) (*term.Node, int64, error) {
	if offset < 0 {
		return nil, 0, ErrDecodeFailure
	}
	raw, err := file.DecodeTermAt(offset)
	if err != nil {
		return nil, 0, err
	}
	node, err := term.Decode(raw)
	if err != nil {
		return nil, 0, err
	}
	return node, offset, nil
}
