package couchrepair

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyByID(t *testing.T) {
	kind, err := Classify([]byte("doc-1"))
	assert.NoError(t, err)
	assert.Equal(t, ByID, kind)
}

func TestClassifyBySeq(t *testing.T) {
	kind, err := Classify(int64(42))
	assert.NoError(t, err)
	assert.Equal(t, BySeq, kind)
}

func TestClassifyRejectsUnknownType(t *testing.T) {
	kind, err := Classify(3.14)
	assert.Error(t, err)
	assert.Equal(t, KindUnknown, kind)
}

func TestTreeKindString(t *testing.T) {
	assert.Equal(t, "by_id", ByID.String())
	assert.Equal(t, "by_seq", BySeq.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
