package schedule

import "slices"

// MergeIntervals returns the union of intervals as an ascending list of
// disjoint intervals. Overlapping and touching intervals are merged, so
// (09:00,10:00) and (10:00,11:00) become (09:00,11:00). The input is not
// modified.
func MergeIntervals(intervals []TimeInterval) []TimeInterval {
	merged := []TimeInterval{}
	if len(intervals) == 0 {
		return merged
	}

	sorted := slices.Clone(intervals)
	slices.SortStableFunc(sorted, func(a, b TimeInterval) int {
		return a.Start.Compare(b.Start)
	})

	current := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start.After(current.End) {
			merged = append(merged, current)
			current = next
			continue
		}
		if next.End.After(current.End) {
			current.End = next.End
		}
	}
	return append(merged, current)
}

// GapsInIntervals returns the free intervals inside bounds that are not
// covered by busy. busy must already be merged and ascending; it is not
// re-sorted here. Zero-length gaps are never produced. Busy time outside
// bounds is ignored.
func GapsInIntervals(busy []TimeInterval, bounds TimeInterval) []TimeInterval {
	gaps := []TimeInterval{}
	cursor := bounds.Start

	for _, interval := range busy {
		gapEnd := interval.Start
		if gapEnd.After(bounds.End) {
			gapEnd = bounds.End
		}
		if cursor.Before(gapEnd) {
			gaps = append(gaps, TimeInterval{Start: cursor, End: gapEnd})
		}
		if interval.End.After(cursor) {
			cursor = interval.End
		}
	}
	if cursor.Before(bounds.End) {
		gaps = append(gaps, TimeInterval{Start: cursor, End: bounds.End})
	}
	return gaps
}

// IntervalContainsInterval reports whether candidate lies entirely inside a
// single interval of containers. Two adjacent containers whose union covers
// the candidate do not count.
func IntervalContainsInterval(candidate TimeInterval, containers []TimeInterval) bool {
	for _, c := range containers {
		if !c.Start.After(candidate.Start) && !c.End.Before(candidate.End) {
			return true
		}
	}
	return false
}

// FirstGap returns the earliest interval in free that lasts at least minutes.
func FirstGap(free []TimeInterval, minutes int) (TimeInterval, bool) {
	for _, interval := range free {
		if interval.Minutes() >= minutes {
			return interval, true
		}
	}
	return TimeInterval{}, false
}
