package couchrepair

import "github.com/barrelfile/couchrepair/term"

// TreeKind identifies which of the two B-trees a root/key belongs to.
type TreeKind int

const (
	KindUnknown TreeKind = iota
	ByID                 // keyed by document id, byte-string keys
	BySeq                // keyed by update sequence, integer keys
)

func (k TreeKind) String() string {
	switch k {
	case ByID:
		return "by_id"
	case BySeq:
		return "by_seq"
	default:
		return "unknown"
	}
}

// Classify is the Key Classifier: an integer key belongs to the
// by-seq tree, a byte-string key to the by-id tree.
// Any other decoded key type is never expected from a valid node term.
func Classify(key term.Key) (TreeKind, error) {
	switch key.(type) {
	case []byte:
		return ByID, nil
	case int64:
		return BySeq, nil
	default:
		return KindUnknown, ErrBadKeyType
	}
}
