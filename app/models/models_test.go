package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRawEventIsProcessed(t *testing.T) {
	var nilEvent *RawEvent
	assert.False(t, nilEvent.IsProcessed())
	assert.False(t, (&RawEvent{}).IsProcessed())

	now := time.Now()
	assert.True(t, (&RawEvent{ProcessedAt: &now}).IsProcessed())
}

func TestAllListsParentsFirst(t *testing.T) {
	all := All()
	index := func(v interface{}) int {
		for i, m := range all {
			if assert.ObjectsAreEqual(m, v) {
				return i
			}
		}
		return -1
	}
	assert.Len(t, all, 12)
	assert.Less(t, index(&Order{}), index(&OrderItem{}))
	assert.Less(t, index(&Order{}), index(&Payment{}))
	assert.Less(t, index(&Customer{}), index(&Order{}))
}
