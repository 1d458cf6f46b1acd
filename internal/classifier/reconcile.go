package classifier

import "sort"

// Reconcile merges entity lists from any number of detectors into one
// sequence sorted by Start with no overlapping spans.
//
// The lists are concatenated in argument order and stable-sorted by Start.
// Walking left to right, a candidate that begins before the last accepted
// entity ends is dropped. Among equal starts the earlier list wins.
// Entities are never modified or reclassified.
func Reconcile(lists ...[]PIIEntity) []PIIEntity {
	var all []PIIEntity
	for _, l := range lists {
		all = append(all, l...)
	}
	if len(all) == 0 {
		return nil
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start < all[j].Start
	})

	accepted := make([]PIIEntity, 0, len(all))
	for _, e := range all {
		if n := len(accepted); n > 0 && e.Start < accepted[n-1].End {
			continue
		}
		accepted = append(accepted, e)
	}
	return accepted
}
