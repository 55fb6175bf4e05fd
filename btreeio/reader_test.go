package btreeio

import (
	"testing"

	"github.com/barrelfile/couchrepair/blockfile"
	"github.com/barrelfile/couchrepair/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNode(t *testing.T, f *blockfile.File, n *term.Node) int64 {
	t.Helper()
	data, err := term.Encode(n)
	require.NoError(t, err)
	offset, err := f.AppendTerm(data)
	require.NoError(t, err)
	return offset
}

func TestOpenAndLastKeyByID(t *testing.T) {
	f, err := blockfile.Open(t.TempDir() + "/t.couch")
	require.NoError(t, err)
	defer f.Close()

	offset := writeNode(t, f, &term.Node{
		Kind: term.KindKV,
		Entries: []term.Entry{
			{Key: []byte("aaa"), Value: []byte("1")},
			{Key: []byte("zzz"), Value: []byte("2")},
			{Key: []byte("mmm"), Value: []byte("3")},
		},
	})

	r := NewReader(f)
	tree, err := r.Open(offset)
	require.NoError(t, err)
	assert.Equal(t, term.KindKV, tree.Kind())

	last, ok := tree.LastKey()
	require.True(t, ok)
	assert.Equal(t, []byte("zzz"), last)

	first, ok := tree.FirstKey()
	require.True(t, ok)
	assert.Equal(t, []byte("aaa"), first)

	assert.Len(t, tree.Entries(), 3)
}

func TestOpenAndLastKeyBySeq(t *testing.T) {
	f, err := blockfile.Open(t.TempDir() + "/t.couch")
	require.NoError(t, err)
	defer f.Close()

	offset := writeNode(t, f, &term.Node{
		Kind: term.KindKV,
		Entries: []term.Entry{
			{Key: int64(5), Value: []byte("a")},
			{Key: int64(100), Value: []byte("b")},
			{Key: int64(42), Value: []byte("c")},
		},
	})

	r := NewReader(f)
	tree, err := r.Open(offset)
	require.NoError(t, err)

	last, ok := tree.LastKey()
	require.True(t, ok)
	assert.Equal(t, int64(100), last)
}

func TestOpenFailsOnGarbage(t *testing.T) {
	f, err := blockfile.Open(t.TempDir() + "/t.couch")
	require.NoError(t, err)
	defer f.Close()

	offset, err := f.AppendTerm([]byte("not a node term at all"))
	require.NoError(t, err)

	r := NewReader(f)
	_, err = r.Open(offset)
	assert.Error(t, err)
}

func TestKPNodeEntries(t *testing.T) {
	f, err := blockfile.Open(t.TempDir() + "/t.couch")
	require.NoError(t, err)
	defer f.Close()

	offset := writeNode(t, f, &term.Node{
		Kind: term.KindKP,
		Entries: []term.Entry{
			{Key: []byte("m"), ChildOffset: 123, Reduction: []byte("r1")},
			{Key: []byte("z"), ChildOffset: 456, Reduction: []byte("r2")},
		},
	})

	r := NewReader(f)
	tree, err := r.Open(offset)
	require.NoError(t, err)
	assert.Equal(t, term.KindKP, tree.Kind())

	last, ok := tree.LastKey()
	require.True(t, ok)
	assert.Equal(t, []byte("z"), last)
}
