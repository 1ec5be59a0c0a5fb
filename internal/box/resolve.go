package box

import (
	"fmt"
	"iter"
	"math"

	"github.com/calvinalkan/bead/internal/archive"
	"github.com/calvinalkan/bead/internal/order"
)

// Resolve returns the archive selected by spec in this box, if any.
//
// A TIMESTAMP-N spec considers only the versions frozen exactly at
// TIMESTAMP and clamps N to the oldest of them, so it never walks past the
// anchor's own versions.
func (b Box) Resolve(spec VersionSpec) (*archive.Archive, bool) {
	candidates := b.FindByName(spec.Name)
	limit := sortLimit(spec.Offset)

	if spec.Time == nil {
		newest := order.Sort(candidates, freezeTimeOf, order.NewestFirst, limit)
		if len(newest) <= spec.Offset {
			return nil, false
		}

		return newest[spec.Offset], true
	}

	anchored := order.Sort(frozenAt(candidates, spec), freezeTimeOf, order.NewestFirst, limit)
	if len(anchored) == 0 {
		return nil, false
	}

	return anchored[min(spec.Offset, len(anchored)-1)], true
}

// sortLimit is the number of versions needed to reach offset. An offset too
// large to count past falls back to an unbounded sort.
func sortLimit(offset int) int {
	if offset >= math.MaxInt-1 {
		return 0
	}

	return offset + 1
}

func frozenAt(seq iter.Seq[*archive.Archive], spec VersionSpec) iter.Seq[*archive.Archive] {
	return func(yield func(*archive.Archive) bool) {
		for a := range seq {
			if a.FreezeTime().Equal(*spec.Time) && !yield(a) {
				return
			}
		}
	}
}

// Resolve searches the boxes in registry order; the first box with a match wins.
func (r *Registry) Resolve(spec VersionSpec) (*archive.Archive, error) {
	for _, b := range r.boxes {
		if a, ok := b.Resolve(spec); ok {
			return a, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, spec)
}

// ResolveString parses s as a version spec and resolves it.
func (r *Registry) ResolveString(s string) (*archive.Archive, error) {
	spec, err := ParseVersionSpec(s)
	if err != nil {
		return nil, err
	}

	return r.Resolve(spec)
}

// Package returns the first archive with the given identity in any box.
func (r *Registry) Package(kind, contentID string) (*archive.Archive, error) {
	for _, b := range r.boxes {
		for a := range b.FindByIdentity(kind, contentID) {
			return a, nil
		}
	}

	return nil, fmt.Errorf("%w: kind %s content id %s", ErrNotFound, kind, contentID)
}

// Newest returns the most recently frozen archive of kind across every box.
func (r *Registry) Newest(kind string) (*archive.Archive, error) {
	all := func(yield func(*archive.Archive) bool) {
		for _, b := range r.boxes {
			for a := range b.FindByIdentity(kind, "") {
				if !yield(a) {
					return
				}
			}
		}
	}

	newest := order.Sort(all, freezeTimeOf, order.NewestFirst, 1)
	if len(newest) == 0 {
		return nil, fmt.Errorf("%w: kind %s", ErrNotFound, kind)
	}

	return newest[0], nil
}
