package couchrepair

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffsetSetDedupesAndPreservesOrder(t *testing.T) {
	s := newOffsetSet()

	assert.True(t, s.addIfNew(30))
	assert.True(t, s.addIfNew(10))
	assert.False(t, s.addIfNew(30), "a repeated offset must not be re-added")
	assert.True(t, s.addIfNew(20))

	assert.Equal(t, []int64{30, 10, 20}, s.offsets(), "order reflects discovery order, not numeric order")
}

func TestOffsetSetEmpty(t *testing.T) {
	s := newOffsetSet()
	assert.Empty(t, s.offsets())
}
