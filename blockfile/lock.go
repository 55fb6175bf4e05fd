package blockfile

import (
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockName = "flock"

// NewFlock returns the exclusive-access lock for a database directory.
// A repair run holds it for the duration of the run so a second repair
// (or a second lost-and-found pass) against the same file cannot race it.
func NewFlock(dirPath string) *flock.Flock {
	return flock.New(filepath.Join(dirPath, lockName))
}
