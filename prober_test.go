package couchrepair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrelfile/couchrepair/btreeio"
	"github.com/barrelfile/couchrepair/term"
)

func TestProbeRootByID(t *testing.T) {
	f := openTestFile(t)
	offset := appendKVNode(t, f, []term.Entry{
		byIDEntry("doc-a", []byte("a")),
		byIDEntry("doc-b", []byte("b")),
	})

	kind, key, err := ProbeRoot(btreeio.NewReader(f), offset)
	require.NoError(t, err)
	assert.Equal(t, ByID, kind)
	assert.Equal(t, []byte("doc-b"), key)
}

func TestProbeRootBySeq(t *testing.T) {
	f := openTestFile(t)
	offset := appendKVNode(t, f, []term.Entry{
		bySeqEntry(1, []byte("a")),
		bySeqEntry(2, []byte("b")),
	})

	kind, key, err := ProbeRoot(btreeio.NewReader(f), offset)
	require.NoError(t, err)
	assert.Equal(t, BySeq, kind)
	assert.Equal(t, int64(2), key)
}

func TestProbeRootNotATerm(t *testing.T) {
	f := openTestFile(t)
	_, _, err := ProbeRoot(btreeio.NewReader(f), 0)
	assert.ErrorIs(t, err, ErrNotARoot)
}

func TestProbeRootEmptyNode(t *testing.T) {
	f := openTestFile(t)
	offset := appendKVNode(t, f, nil)

	_, _, err := ProbeRoot(btreeio.NewReader(f), offset)
	assert.ErrorIs(t, err, ErrNotARoot)
}
