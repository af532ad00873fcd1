package snowflake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode_RejectsOutOfRangeIDs(t *testing.T) {
	for _, id := range []int64{-1, 1024} {
		_, err := NewNode(id)
		assert.Error(t, err, "node %d", id)
	}
}

// Temporary client-side message IDs are negative, so persisted IDs
// being strictly positive is what keeps the two ID spaces disjoint.
func TestGenerate_IDsArePositiveAndIncreasing(t *testing.T) {
	node, err := NewNode(3)
	require.NoError(t, err)

	prev := int64(0)
	for i := 0; i < 10000; i++ {
		id := node.Generate()
		require.Positive(t, id)
		require.Greater(t, id, prev)
		prev = id
	}
}
