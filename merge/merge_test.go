package merge

import (
	"path/filepath"
	"testing"

	"github.com/barrelfile/couchrepair/docmodel"
	"github.com/barrelfile/couchrepair/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func docEntry(id string, seq uint64, body string) term.Entry {
	doc := &docmodel.Document{
		ID:   []byte(id),
		Rev:  docmodel.Revision{Seq: seq, Hash: []byte{0x01}},
		Body: []byte(body),
	}
	return term.Entry{Key: doc.ID, Value: docmodel.MarshalSummary(doc)}
}

func TestToFileReplicatesDocuments(t *testing.T) {
	log := zap.NewNop()
	path := filepath.Join(t.TempDir(), "target.couch")
	target, err := OpenTarget(path)
	require.NoError(t, err)

	view := SourceView{Entries: []term.Entry{
		docEntry("a", 1, "body-a"),
		docEntry("b", 1, "body-b"),
		docEntry("c", 1, "body-c"),
	}}

	require.NoError(t, ToFile(log, view, target))
	require.NoError(t, target.Close())

	reopened, err := OpenTarget(path)
	require.NoError(t, err)
	assert.Len(t, reopened.docs, 3)
	assert.Equal(t, []byte("body-a"), reopened.docs["a"].Body)
}

func TestMergeIsIdempotentAcrossRoots(t *testing.T) {
	log := zap.NewNop()
	path := filepath.Join(t.TempDir(), "target.couch")
	target, err := OpenTarget(path)
	require.NoError(t, err)

	require.NoError(t, ToFile(log, SourceView{Entries: []term.Entry{docEntry("a", 1, "old")}}, target))
	require.NoError(t, target.Close())

	target2, err := OpenTarget(path)
	require.NoError(t, err)
	require.NoError(t, ToFile(log, SourceView{Entries: []term.Entry{docEntry("a", 2, "new")}}, target2))
	require.NoError(t, target2.Close())

	final, err := OpenTarget(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), final.docs["a"].Body)
	assert.Equal(t, uint64(2), final.docs["a"].Rev.Seq)
}

func TestMergeKeepsHigherRevisionOnConflict(t *testing.T) {
	log := zap.NewNop()
	path := filepath.Join(t.TempDir(), "target.couch")
	target, err := OpenTarget(path)
	require.NoError(t, err)

	view := SourceView{Entries: []term.Entry{
		docEntry("a", 5, "newer"),
		docEntry("a", 2, "older"),
	}}
	require.NoError(t, ToFile(log, view, target))
	require.NoError(t, target.Close())

	final, err := OpenTarget(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("newer"), final.docs["a"].Body)
}

func TestToFileBatchesAtBatchSize(t *testing.T) {
	log := zap.NewNop()
	path := filepath.Join(t.TempDir(), "target.couch")
	target, err := OpenTarget(path)
	require.NoError(t, err)

	entries := make([]term.Entry, 0, BatchSize+10)
	for i := 0; i < BatchSize+10; i++ {
		entries = append(entries, docEntry(string(rune('a'+i%26))+string(rune(i)), 1, "x"))
	}
	require.NoError(t, ToFile(log, SourceView{Entries: entries}, target))
	require.NoError(t, target.Close())
}
