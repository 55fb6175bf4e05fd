package couchrepair

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barrelfile/couchrepair/blockfile"
	"github.com/barrelfile/couchrepair/term"
)

func openTestFile(t *testing.T) *blockfile.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.couch")
	f, err := blockfile.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func appendKVNode(t *testing.T, f *blockfile.File, entries []term.Entry) int64 {
	t.Helper()
	data, err := term.Encode(&term.Node{Kind: term.KindKV, Entries: entries})
	require.NoError(t, err)
	offset, err := f.AppendTerm(data)
	require.NoError(t, err)
	return offset
}

func appendKPNode(t *testing.T, f *blockfile.File, entries []term.Entry) int64 {
	t.Helper()
	data, err := term.Encode(&term.Node{Kind: term.KindKP, Entries: entries})
	require.NoError(t, err)
	offset, err := f.AppendTerm(data)
	require.NoError(t, err)
	return offset
}

func byIDEntry(id string, value []byte) term.Entry {
	return term.Entry{Key: []byte(id), Value: value}
}

func bySeqEntry(seq int64, value []byte) term.Entry {
	return term.Entry{Key: seq, Value: value}
}
