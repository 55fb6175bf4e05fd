package couchrepair

import (
	"go.uber.org/zap"

	"github.com/barrelfile/couchrepair/blockfile"
	"github.com/barrelfile/couchrepair/btreeio"
	"github.com/barrelfile/couchrepair/merge"
)

// RunLostAndFound is the Lost-and-Found Driver: signature-scan source
// for by-id leaf roots, then merge each one's documents into
// targetPath. A failure on one root is logged and does not abort the
// remaining roots.
func RunLostAndFound(log *zap.Logger, source *blockfile.File, targetPath string) error {
	offsets, err := FindNodesQuickly(source)
	if err != nil {
		return err
	}

	target, err := merge.OpenTarget(targetPath)
	if err != nil {
		return err
	}

	reader := btreeio.NewReader(source)
	for _, offset := range offsets {
		tree, err := reader.Open(offset)
		if err != nil {
			log.Warn("lost-and-found root failed to open, skipping", zap.Int64("offset", offset), zap.Error(err))
			continue
		}

		view := merge.SourceView{Entries: tree.Entries()}
		if err := merge.ToFile(log, view, target); err != nil {
			log.Warn("lost-and-found root failed to merge, skipping", zap.Int64("offset", offset), zap.Error(err))
			continue
		}
	}

	return target.Close()
}
