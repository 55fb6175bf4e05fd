package couchrepair

import (
	"github.com/barrelfile/couchrepair/btreeio"
	"github.com/barrelfile/couchrepair/term"
)

// TailResult is what the Tail Scanner found: the node's offset, the
// tree kind it turned out to be, and its last (greatest) key.
type TailResult struct {
	Offset  int64
	Kind    TreeKind
	LastKey term.Key
}

// TailScan is the Tail Scanner: walk offsets downward one byte at a
// time from start, probing each one, and
// return the first offset that probes as the wanted kind. Decode and
// probe failures are silently skipped — this is a byte-granularity
// search over a term-length-prefixed format, so most offsets never
// decode to anything at all.
func TailScan(reader *btreeio.Reader, kind TreeKind, start int64) (*TailResult, error) {
	for p := start; p >= 0; p-- {
		probed, key, err := ProbeRoot(reader, p)
		if err != nil {
			continue
		}
		if probed == kind {
			return &TailResult{Offset: p, Kind: probed, LastKey: key}, nil
		}
	}
	return nil, ErrNoNewRoots
}
