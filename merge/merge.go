// Package merge implements the document-level merge service that
// streams documents out of a salvaged source view into a target
// database. It is grounded on cqkv/merge.go's own merge pass — read
// from a source, decide what is live, append it to a target, sync,
// record progress — adapted from bitcask key-liveness compaction to
// document-revision replication.
package merge

import (
	"sort"

	"github.com/barrelfile/couchrepair/blockfile"
	"github.com/barrelfile/couchrepair/docmodel"
	"github.com/barrelfile/couchrepair/term"
	"go.uber.org/zap"
)

// BatchSize is the number of documents folded from the source view and
// applied to the target in one replicated-changes batch.
const BatchSize = 1000

// SourceView is a salvaged by-id leaf, seen as a flat list of document
// entries. The signature scanner only ever emits leaf roots, so a view
// never needs to recurse into children.
type SourceView struct {
	Entries []term.Entry
}

// Target is an open target database that documents are replicated into.
type Target struct {
	file *blockfile.File
	docs map[string]*docmodel.Document
}

// OpenTarget opens or creates the target database file and loads its
// current by-id root (if any) so repeated merges against the same
// target, across multiple source roots, are idempotent with respect
// to revisions: the merge service is the authority on conflicting
// revisions across roots.
func OpenTarget(path string) (*Target, error) {
	f, err := blockfile.Open(path)
	if err != nil {
		return nil, err
	}
	t := &Target{file: f, docs: make(map[string]*docmodel.Document)}

	header, _, err := f.ReadHeader()
	if err == nil {
		if err := t.loadExisting(header); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Target) loadExisting(headerPayload []byte) error {
	rootOffset, ok := decodeByIDRootOffset(headerPayload)
	if !ok {
		return nil
	}
	raw, err := t.file.DecodeTermAt(rootOffset)
	if err != nil {
		return nil // a damaged existing root is not fatal to a merge run
	}
	node, err := term.Decode(raw)
	if err != nil || node.Kind != term.KindKV {
		return nil
	}
	for _, e := range node.Entries {
		key, ok := e.Key.([]byte)
		if !ok {
			continue
		}
		doc, err := docmodel.UnmarshalSummary(key, e.Value)
		if err != nil {
			continue
		}
		t.docs[string(key)] = doc
	}
	return nil
}

// Docs returns the target's currently accumulated document set, keyed
// by id. Callers must treat it as read-only.
func (t *Target) Docs() map[string]*docmodel.Document {
	return t.docs
}

func (t *Target) merge(doc *docmodel.Document) {
	existing, ok := t.docs[string(doc.ID)]
	if !ok || doc.Rev.Seq >= existing.Rev.Seq {
		t.docs[string(doc.ID)] = doc
	}
}

// commit writes the accumulated document set as a fresh by-id leaf
// term and a new header pointing at it, syncing before the header
// write completes (a "before_header" sync policy) so the merge is
// crash-safe in increments rather than all-or-nothing.
func (t *Target) commit() error {
	ids := make([]string, 0, len(t.docs))
	for id := range t.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]term.Entry, 0, len(ids))
	for _, id := range ids {
		doc := t.docs[id]
		entries = append(entries, term.Entry{
			Key:   []byte(id),
			Value: docmodel.MarshalSummary(doc),
		})
	}

	nodeData, err := term.Encode(&term.Node{Kind: term.KindKV, Entries: entries})
	if err != nil {
		return err
	}
	rootOffset, err := t.file.AppendTerm(nodeData)
	if err != nil {
		return err
	}
	if err := t.file.Sync(); err != nil {
		return err
	}
	header := encodeByIDRootHeader(rootOffset, uint64(len(entries)))
	_, err = t.file.WriteHeader(header)
	return err
}

// Close flushes any pending documents and closes the target file.
func (t *Target) Close() error {
	defer t.file.Close()
	if len(t.docs) == 0 {
		return nil
	}
	return t.commit()
}

// ToFile replicates every document in view into the target in batches
// of BatchSize, committing (append + sync + header write) after each
// batch so a crash mid-merge loses at most one batch's progress.
func ToFile(log *zap.Logger, view SourceView, target *Target) error {
	count := 0
	for _, e := range view.Entries {
		key, ok := e.Key.([]byte)
		if !ok {
			continue
		}
		doc, err := docmodel.UnmarshalSummary(key, e.Value)
		if err != nil {
			log.Warn("merge: skipping undecodable leaf entry", zap.Binary("key", key), zap.Error(err))
			continue
		}
		target.merge(doc)
		count++
		if count%BatchSize == 0 {
			if err := target.commit(); err != nil {
				return err
			}
		}
	}
	if count%BatchSize != 0 {
		return target.commit()
	}
	return nil
}
