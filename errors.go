package couchrepair

import "fmt"

// Sentinel errors for the repair core, returned as-is (not wrapped) at
// their call sites so callers can use errors.Is. Named and prefixed the way
// cqkv/errors.go's addPrefix names and prefixes its own sentinels.
var (
	ErrHeaderAbsent  = addPrefix("no valid header found")
	ErrNoNewRoots    = addPrefix("no new roots beyond the current header")
	ErrNotARoot      = addPrefix("candidate offset is not a tree root")
	ErrDecodeFailure = addPrefix("term decode failed at offset")
	ErrBadKeyType    = addPrefix("decoded key is neither an integer nor a byte string")
)

func addPrefix(msg string) error {
	return fmt.Errorf("couchrepair: %s", msg)
}
