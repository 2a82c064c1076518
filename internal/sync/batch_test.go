package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferryhq/ferrytask/internal/model"
)

func item(id, taskID string, op model.Operation) model.QueueItem {
	return model.QueueItem{ID: id, TaskID: taskID, Operation: op}
}

func TestGroupByTaskPreservesOrder(t *testing.T) {
	items := []model.QueueItem{
		item("1", "a", model.OpCreate),
		item("2", "a", model.OpUpdate),
		item("3", "b", model.OpCreate),
		item("4", "a", model.OpDelete),
	}

	groups := GroupByTask(items)
	require.Len(t, groups, 2)

	assert.Equal(t, []string{"1", "2", "4"}, ids(groups[0]))
	assert.Equal(t, []string{"3"}, ids(groups[1]))
}

func TestPackBatchesSplitsGroupInOrder(t *testing.T) {
	// Create, update, delete of one task with batch size 2: the group
	// spans two batches but never leaves mutation order.
	groups := [][]model.QueueItem{{
		item("1", "a", model.OpCreate),
		item("2", "a", model.OpUpdate),
		item("3", "a", model.OpDelete),
	}}

	batches := PackBatches(groups, 2)
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"1", "2"}, ids(batches[0]))
	assert.Equal(t, []string{"3"}, ids(batches[1]))
}

func TestPackBatchesWalksGroupsInOrder(t *testing.T) {
	groups := [][]model.QueueItem{
		{item("1", "a", model.OpCreate), item("2", "a", model.OpUpdate)},
		{item("3", "b", model.OpCreate)},
		{item("4", "c", model.OpCreate)},
	}

	batches := PackBatches(groups, 3)
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"1", "2", "3"}, ids(batches[0]))
	assert.Equal(t, []string{"4"}, ids(batches[1]))
}

func TestPackBatchesSizeOne(t *testing.T) {
	groups := [][]model.QueueItem{
		{item("1", "a", model.OpCreate), item("2", "a", model.OpUpdate)},
		{item("3", "b", model.OpCreate)},
	}

	batches := PackBatches(groups, 1)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"1"}, ids(batches[0]))
	assert.Equal(t, []string{"2"}, ids(batches[1]))
	assert.Equal(t, []string{"3"}, ids(batches[2]))
}

// P3: for any two intents of the same task, queue order survives into
// every batch that contains both.
func TestBatchingNeverReordersWithinTask(t *testing.T) {
	items := []model.QueueItem{
		item("1", "a", model.OpCreate),
		item("2", "b", model.OpCreate),
		item("3", "a", model.OpUpdate),
		item("4", "b", model.OpUpdate),
		item("5", "a", model.OpDelete),
	}

	for size := 1; size <= 5; size++ {
		pos := make(map[string]int)
		n := 0
		for _, batch := range PackBatches(GroupByTask(items), size) {
			for _, it := range batch {
				pos[it.ID] = n
				n++
			}
		}

		assert.Less(t, pos["1"], pos["3"], "size %d", size)
		assert.Less(t, pos["3"], pos["5"], "size %d", size)
		assert.Less(t, pos["2"], pos["4"], "size %d", size)
	}
}

func ids(items []model.QueueItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
