package benchmark

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/barrelfile/couchrepair"
	"github.com/barrelfile/couchrepair/blockfile"
	"github.com/barrelfile/couchrepair/term"
)

func mustEncode(b *testing.B, kind term.Kind, entries []term.Entry) []byte {
	b.Helper()
	data, err := term.Encode(&term.Node{Kind: kind, Entries: entries})
	require.NoError(b, err)
	return data
}

func seededFile(b *testing.B, nodes int) *blockfile.File {
	b.Helper()
	path := filepath.Join(b.TempDir(), "bench.couch")
	f, err := blockfile.Open(path)
	require.NoError(b, err)
	b.Cleanup(func() { f.Close() })

	for i := 0; i < nodes; i++ {
		data := mustEncode(b, term.KindKV, []term.Entry{
			{Key: []byte(fmt.Sprintf("doc-%08d", i)), Value: []byte("value")},
		})
		_, err = f.AppendTerm(data)
		require.NoError(b, err)
	}
	return f
}

// Benchmark_FindNodesQuickly measures the signature scanner walking a
// file backward in 1 MiB chunks over a run of salvageable leaf nodes.
func Benchmark_FindNodesQuickly(b *testing.B) {
	f := seededFile(b, 500)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := couchrepair.FindNodesQuickly(f)
		require.NoError(b, err)
	}
}

// Benchmark_Repair measures a full Header Repair pass: tail-scanning
// for both tree kinds past a stale header, then writing the new one.
func Benchmark_Repair(b *testing.B) {
	log := zap.NewNop()

	for i := 0; i < b.N; i++ {
		f := seededFile(b, 50)
		byID, err := f.AppendTerm(mustEncode(b, term.KindKV, []term.Entry{{Key: []byte("doc-id"), Value: []byte("v")}}))
		require.NoError(b, err)
		bySeq, err := f.AppendTerm(mustEncode(b, term.KindKV, []term.Entry{{Key: int64(1), Value: []byte("v")}}))
		require.NoError(b, err)
		_, err = f.WriteHeader(couchrepair.EncodeHeader(&couchrepair.Header{
			ByIDRoot:  couchrepair.RootPointer{Offset: byID},
			BySeqRoot: couchrepair.RootPointer{Offset: bySeq},
		}))
		require.NoError(b, err)

		_, err = f.AppendTerm(mustEncode(b, term.KindKV, []term.Entry{{Key: []byte("doc-id-2"), Value: []byte("v")}}))
		require.NoError(b, err)
		_, err = f.AppendTerm(mustEncode(b, term.KindKV, []term.Entry{{Key: int64(2), Value: []byte("v")}}))
		require.NoError(b, err)

		_, err = couchrepair.Repair(log, f)
		require.NoError(b, err)
		f.Close()
	}
}
