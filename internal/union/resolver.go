package union

import (
	"fmt"
	"sort"
)

// Resolve orders the variants of the union rooted at root for dispatch.
//
// The result contains only concrete variants, deepest first: a variant is
// always placed before every variant it descends from. Dispatch arms tested
// top to bottom with subtype-polymorphic type tests therefore select the
// exact variant of a value and never one of its ancestors.
//
// Variants are placed breadth-first from the root. Each pass scans the
// unplaced variants from the last to the first and appends those whose base
// is already placed; a variant placed earlier in the same pass can be the
// base of one scanned later. The placed list is then stripped of abstract
// variants and reversed.
//
// The feed is ordered by Variant.Order first. Variants sharing an Order keep
// their position in variants, so the result only ignores how variants is
// shuffled when every Order is distinct.
//
// A pass that places nothing while variants remain means the feed is not a
// tree rooted at root; Resolve then fails with an error matching
// ErrCyclicOrUnresolvableHierarchy and returns no partial order.
func Resolve(root TypeRef, variants []Variant) ([]Case, error) {
	feed, err := canonicalFeed(root, variants)
	if err != nil {
		return nil, err
	}

	placed := make([]Variant, 0, len(feed))
	placedIDs := make(map[string]struct{}, len(feed))
	var remaining []Variant
	for _, v := range feed {
		if v.Base.ID == root.ID {
			placed = append(placed, v)
			placedIDs[v.Type.ID] = struct{}{}
			continue
		}
		remaining = append(remaining, v)
	}

	for len(remaining) > 0 {
		progress := false
		for i := len(remaining) - 1; i >= 0; i-- {
			v := remaining[i]
			if _, ok := placedIDs[v.Base.ID]; !ok {
				continue
			}
			placed = append(placed, v)
			placedIDs[v.Type.ID] = struct{}{}
			remaining = append(remaining[:i], remaining[i+1:]...)
			progress = true
		}
		if !progress {
			herr := &HierarchyError{Union: root.ID}
			for _, v := range remaining {
				herr.Unresolved = append(herr.Unresolved, Edge{Variant: v.Type.ID, Base: v.Base.ID})
			}
			return nil, herr
		}
	}

	concrete := placed[:0:0]
	for _, v := range placed {
		if !v.Abstract {
			concrete = append(concrete, v)
		}
	}
	for i, j := 0, len(concrete)-1; i < j; i, j = i+1, j-1 {
		concrete[i], concrete[j] = concrete[j], concrete[i]
	}

	names := assignArgNames(root, concrete)
	cases := make([]Case, len(concrete))
	for i, v := range concrete {
		cases[i] = Case{Variant: v, ArgName: names[i]}
	}
	return cases, nil
}

// canonicalFeed copies variants, stable-sorted by Order, and rejects
// duplicate identities.
func canonicalFeed(root TypeRef, variants []Variant) ([]Variant, error) {
	feed := make([]Variant, len(variants))
	copy(feed, variants)
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Order < feed[j].Order
	})

	seen := make(map[string]struct{}, len(feed))
	for _, v := range feed {
		if v.Type.ID == root.ID {
			return nil, fmt.Errorf("union %s: %w: the root is listed as its own variant", root.ID, ErrDuplicateVariant)
		}
		if _, dup := seen[v.Type.ID]; dup {
			return nil, fmt.Errorf("union %s: %w: %s", root.ID, ErrDuplicateVariant, v.Type.ID)
		}
		seen[v.Type.ID] = struct{}{}
	}
	return feed, nil
}
