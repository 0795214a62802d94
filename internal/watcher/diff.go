package watcher

import "afterschool/internal/feed"

// DiffResult is the outcome of comparing one poll against the known ids.
type DiffResult struct {
	NewlyAdded      []feed.Item
	NextKnownIDs    map[string]struct{}
	NextHasBaseline bool
}

// Diff computes which items are new relative to known.
//
// Without a baseline nothing is new and the poll's ids become the baseline.
// With a baseline, items whose id is not in known are new, in feed order.
// Either way NextKnownIDs is exactly the id set of items: it replaces known,
// it is never merged with it.
func Diff(items []feed.Item, known map[string]struct{}, hasBaseline bool) DiffResult {
	next := IDSet(items)
	if !hasBaseline {
		return DiffResult{NewlyAdded: []feed.Item{}, NextKnownIDs: next, NextHasBaseline: true}
	}
	added := make([]feed.Item, 0)
	for _, it := range items {
		if _, ok := known[it.ID]; !ok {
			added = append(added, it)
		}
	}
	return DiffResult{NewlyAdded: added, NextKnownIDs: next, NextHasBaseline: true}
}

// IDSet returns the set of item ids.
func IDSet(items []feed.Item) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it.ID] = struct{}{}
	}
	return out
}

// UnreadCount counts items not marked read.
func UnreadCount(items []feed.Item) int {
	n := 0
	for _, it := range items {
		if !it.IsRead {
			n++
		}
	}
	return n
}
