package couchrepair

import (
	"errors"

	"go.uber.org/zap"

	"github.com/barrelfile/couchrepair/blockfile"
	"github.com/barrelfile/couchrepair/btreeio"
)

// RepairReport is the outcome of a Repair run.
type RepairReport struct {
	Status string // "no_header", "ok", or "repaired"

	HeaderOffset int64

	ByIDOffset  int64
	BySeqOffset int64
	UpdateSeq   uint64
}

const (
	StatusNoHeader = "no_header"
	StatusOK       = "ok"
	StatusRepaired = "repaired"
)

// Repair is Header Repair: read the trailing header, tail-scan for
// newer by-seq and by-id roots, and write a new header pointing at
// them if one exists strictly beyond the old one.
func Repair(log *zap.Logger, file *blockfile.File) (*RepairReport, error) {
	payload, headerOffset, err := file.ReadHeader()
	if err != nil {
		if errors.Is(err, blockfile.ErrNoHeader) {
			return &RepairReport{Status: StatusNoHeader}, nil
		}
		return nil, err
	}

	prev, err := DecodeHeader(payload)
	if err != nil {
		return nil, err
	}

	size, err := file.Size()
	if err != nil {
		return nil, err
	}

	reader := btreeio.NewReader(file)

	bySeq, err := TailScan(reader, BySeq, size-1)
	if err != nil || bySeq.Offset <= headerOffset {
		log.Debug("no new by-seq root beyond header", zap.Int64("header_offset", headerOffset))
		return &RepairReport{Status: StatusOK, HeaderOffset: headerOffset}, nil
	}

	byID, err := TailScan(reader, ByID, size-1)
	if err != nil {
		log.Debug("by-seq root found but no by-id root; leaving file untouched")
		return &RepairReport{Status: StatusOK, HeaderOffset: headerOffset}, nil
	}

	updateSeq := uint64(bySeq.LastKey.(int64))

	next := &Header{
		UpdateSeq: updateSeq,
		ByIDRoot:  RootPointer{Offset: byID.Offset, Reduction: prev.ByIDRoot.Reduction},
		BySeqRoot: RootPointer{Offset: bySeq.Offset, Reduction: prev.BySeqRoot.Reduction},
		Opaque:    prev.Opaque,
	}

	if _, err := file.WriteHeader(EncodeHeader(next)); err != nil {
		return nil, err
	}

	log.Info("repaired header",
		zap.Int64("by_id_offset", byID.Offset),
		zap.Int64("by_seq_offset", bySeq.Offset),
		zap.Uint64("update_seq", updateSeq),
	)

	return &RepairReport{
		Status:       StatusRepaired,
		HeaderOffset: headerOffset,
		ByIDOffset:   byID.Offset,
		BySeqOffset:  bySeq.Offset,
		UpdateSeq:    updateSeq,
	}, nil
}
