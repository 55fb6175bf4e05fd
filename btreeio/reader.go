// Package btreeio is the B-tree reader the core treats as an opaque
// collaborator: open a node term at a file offset and fold its entries
// in either direction. Internally it loads a decoded node's entries
// into an ephemeral github.com/google/btree.BTree — the same in-memory
// B-tree cqkv/keydir/btree.go uses for its keydir — so folding is just
// Ascend/Descend over that tree rather than hand-rolled traversal.
package btreeio

import (
	"bytes"
	"fmt"

	"github.com/barrelfile/couchrepair/blockfile"
	"github.com/barrelfile/couchrepair/term"
	"github.com/google/btree"
)

const defaultDegree = 32

// Item adapts a decoded term.Entry to btree.Item. Keys within a single
// node are homogeneous (by-id nodes carry []byte keys throughout,
// by-seq nodes carry int64 keys throughout), so Less never needs to
// compare across key types.
type Item struct {
	Key   term.Key
	Entry term.Entry
}

func (i Item) Less(than btree.Item) bool {
	other := than.(Item)
	switch k := i.Key.(type) {
	case []byte:
		o, ok := other.Key.([]byte)
		if !ok {
			return false
		}
		return bytes.Compare(k, o) < 0
	case int64:
		o, ok := other.Key.(int64)
		if !ok {
			return false
		}
		return k < o
	default:
		return false
	}
}

// Tree is a single opened node, viewed as a root for folding purposes.
// It does not recurse into children: the Root Prober only ever needs
// the last key of the node it opens directly.
type Tree struct {
	node *term.Node
	bt   *btree.BTree
}

// Reader opens node terms out of a block file.
type Reader struct {
	file *blockfile.File
}

func NewReader(f *blockfile.File) *Reader {
	return &Reader{file: f}
}

// Open decodes the term at offset and returns it as a foldable Tree
// rooted there with a zero reduction placeholder: a tree rooted at
// (offset, 0). A decode failure or a term that isn't a kv_node/kp_node
// surfaces as an error; callers treat that as "not a root" and keep
// searching.
func (r *Reader) Open(offset int64) (*Tree, error) {
	raw, err := r.file.DecodeTermAt(offset)
	if err != nil {
		return nil, err
	}
	node, err := term.Decode(raw)
	if err != nil {
		return nil, err
	}
	if node.Kind != term.KindKV && node.Kind != term.KindKP {
		return nil, fmt.Errorf("btreeio: term at %d is not a node", offset)
	}

	bt := btree.New(defaultDegree)
	for _, e := range node.Entries {
		bt.ReplaceOrInsert(Item{Key: e.Key, Entry: e})
	}
	return &Tree{node: node, bt: bt}, nil
}

// Kind reports whether the opened node is a leaf or interior node.
func (t *Tree) Kind() term.Kind {
	return t.node.Kind
}

// LastKey folds the tree in the reverse (descending) direction and
// stops at the first entry, returning the greatest key in the node.
// It reports false if the node has no entries.
func (t *Tree) LastKey() (term.Key, bool) {
	var key term.Key
	var found bool
	t.bt.Descend(func(item btree.Item) bool {
		key = item.(Item).Key
		found = true
		return false
	})
	return key, found
}

// FirstKey folds the tree in the forward (ascending) direction and
// stops at the first entry, returning the least key in the node.
func (t *Tree) FirstKey() (term.Key, bool) {
	var key term.Key
	var found bool
	t.bt.Ascend(func(item btree.Item) bool {
		key = item.(Item).Key
		found = true
		return false
	})
	return key, found
}

// Entries folds the whole tree ascending and returns every entry in
// key order. Used by the lost-and-found driver to enumerate documents
// out of a salvaged by-id leaf.
func (t *Tree) Entries() []term.Entry {
	out := make([]term.Entry, 0, t.bt.Len())
	t.bt.Ascend(func(item btree.Item) bool {
		out = append(out, item.(Item).Entry)
		return true
	})
	return out
}

// Len reports the number of entries in the node.
func (t *Tree) Len() int {
	return t.bt.Len()
}
