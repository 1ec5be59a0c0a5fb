// Package order sorts timestamped items by recency, optionally keeping only
// the K most extreme ones in O(K) memory.
package order

import (
	"iter"
	"slices"
	"sort"
	"time"
)

// Direction selects which end of the timeline comes first.
type Direction int

const (
	// NewestFirst orders by descending time.
	NewestFirst Direction = iota
	// OldestFirst orders by ascending time.
	OldestFirst
)

func (d Direction) String() string {
	if d == OldestFirst {
		return "oldest-first"
	}

	return "newest-first"
}

// compare orders a before b (negative), after b (positive) or as a tie (0)
// for the given direction.
func compare(dir Direction, a, b time.Time) int {
	if dir == NewestFirst {
		return b.Compare(a)
	}

	return a.Compare(b)
}

// Sort drains seq and returns its items ordered by timeOf in direction dir.
//
// With limit <= 0 every item is returned. With limit K > 0 only the first K
// items of the full ordering are returned and at most K items are held at any
// time. Ties keep the order in which seq produced them.
func Sort[T any](seq iter.Seq[T], timeOf func(T) time.Time, dir Direction, limit int) []T {
	if limit <= 0 {
		items := slices.Collect(seq)
		slices.SortStableFunc(items, func(a, b T) int {
			return compare(dir, timeOf(a), timeOf(b))
		})

		return items
	}

	// grows with the items held, not with limit
	var buf []T

	for item := range seq {
		at := timeOf(item)

		// insert after every element that is not strictly after item
		pos := sort.Search(len(buf), func(i int) bool {
			return compare(dir, at, timeOf(buf[i])) < 0
		})

		if pos >= limit {
			continue
		}

		buf = slices.Insert(buf, pos, item)
		if len(buf) > limit {
			clear(buf[limit:])
			buf = buf[:limit]
		}
	}

	return buf
}
