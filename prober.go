package couchrepair

import (
	"github.com/barrelfile/couchrepair/btreeio"
	"github.com/barrelfile/couchrepair/term"
)

// ProbeRoot is the Root Prober: open a tree rooted at offset with a
// zero reduction placeholder, fold in the
// reverse direction to the first entry, and classify that key. Any
// failure along the way — decode failure, an empty node, an
// unclassifiable key — surfaces uniformly as "not a root" so callers
// can keep searching without special-casing the reason.
func ProbeRoot(reader *btreeio.Reader, offset int64) (TreeKind, term.Key, error) {
	tree, err := reader.Open(offset)
	if err != nil {
		return KindUnknown, nil, ErrNotARoot
	}
	key, ok := tree.LastKey()
	if !ok {
		return KindUnknown, nil, ErrNotARoot
	}
	kind, err := Classify(key)
	if err != nil {
		return KindUnknown, nil, ErrNotARoot
	}
	return kind, key, nil
}
