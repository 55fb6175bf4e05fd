package couchrepair

import (
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/barrelfile/couchrepair/blockfile"
	"github.com/barrelfile/couchrepair/dbconfig"
	"github.com/barrelfile/couchrepair/merge"
)

// RepairByName implements the repair(db_name) operation: resolve
// db_name through the configuration lookup, open the file under an
// exclusive lock, run Header Repair, and close the file.
func RepairByName(log *zap.Logger, cfg *dbconfig.Config, dbName string) (*RepairReport, error) {
	runID := uuid.New()
	log = log.With(zap.String("run_id", runID.String()), zap.String("db", dbName), zap.String("op", "repair"))

	path := cfg.DatabasePath(dbName)
	lock := blockfile.NewFlock(filepath.Dir(path))
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	defer lock.Unlock()

	file, err := blockfile.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Repair(log, file)
}

// MakeLostAndFound implements make_lost_and_found(db_name): the
// target database name is lost+found/db_name.
func MakeLostAndFound(log *zap.Logger, cfg *dbconfig.Config, dbName string) error {
	runID := uuid.New()
	log = log.With(zap.String("run_id", runID.String()), zap.String("db", dbName), zap.String("op", "lost_and_found"))

	sourcePath := cfg.DatabasePath(dbName)
	lock := blockfile.NewFlock(filepath.Dir(sourcePath))
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	source, err := blockfile.OpenReadOnly(sourcePath)
	if err != nil {
		return err
	}
	defer source.Close()

	targetPath := cfg.LostAndFoundPath(dbName)
	return RunLostAndFound(log, source, targetPath)
}

// FindNodesQuicklyByName implements the find_nodes_quickly(db_name)
// variant that opens and closes the file itself.
func FindNodesQuicklyByName(cfg *dbconfig.Config, dbName string) ([]int64, error) {
	path := cfg.DatabasePath(dbName)
	file, err := blockfile.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return FindNodesQuickly(file)
}

// MergeToFile implements merge_to_file(source_view, target_name):
// opens or creates the target database and folds the source view's
// documents into it in batches.
func MergeToFile(log *zap.Logger, view merge.SourceView, targetPath string) error {
	target, err := merge.OpenTarget(targetPath)
	if err != nil {
		return err
	}

	if err := merge.ToFile(log, view, target); err != nil {
		target.Close()
		return err
	}

	return target.Close()
}
