package view

import (
	"sort"
	"time"
)

// orderStable sorts items by timestamp, newest first unless ascending is
// set. Items with equal timestamps keep their previous display position;
// items new to the screen go after known ones and are ordered by id among
// themselves. It returns the resulting id order.
func orderStable[T any](items []T, previous map[string]int, id func(T) string, ts func(T) time.Time, ascending bool) map[string]int {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := ts(items[i]), ts(items[j])
		if !ti.Equal(tj) {
			if ascending {
				return ti.Before(tj)
			}
			return ti.After(tj)
		}
		pi, iKnown := previous[id(items[i])]
		pj, jKnown := previous[id(items[j])]
		switch {
		case iKnown && jKnown:
			return pi < pj
		case iKnown != jKnown:
			return iKnown
		default:
			return id(items[i]) < id(items[j])
		}
	})

	positions := make(map[string]int, len(items))
	for i, item := range items {
		positions[id(item)] = i
	}
	return positions
}
