package sync

import "github.com/ferryhq/ferrytask/internal/model"

// GroupByTask partitions drained intents by task id, preserving the
// drained order inside each group and first-seen order across groups.
// Grouping is what makes batch boundaries safe: items from different
// tasks may be reordered across batches, items of the same task may not.
func GroupByTask(items []model.QueueItem) [][]model.QueueItem {
	index := make(map[string]int)
	var groups [][]model.QueueItem

	for _, item := range items {
		i, ok := index[item.TaskID]
		if !ok {
			i = len(groups)
			index[item.TaskID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], item)
	}

	return groups
}

// PackBatches walks the groups in order and appends members to the
// current batch, cutting a new batch when size is reached. A group may
// span batches but its members never leave mutation order.
func PackBatches(groups [][]model.QueueItem, size int) [][]model.QueueItem {
	if size < 1 {
		size = 1
	}

	var batches [][]model.QueueItem
	var current []model.QueueItem

	for _, group := range groups {
		for _, item := range group {
			if len(current) == size {
				batches = append(batches, current)
				current = nil
			}
			current = append(current, item)
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}
