package timeline

import "sort"

// Merge combines two event collections into one deduplicated window sorted
// newest first. Entries from incoming overwrite existing entries with the
// same identity key, so callers must pass the newer or more authoritative
// data as incoming. Re-applying a payload the window already holds is a
// no-op in effect, which is what makes push redelivery idempotent.
//
// Merge never mutates its arguments. It is used both for appending history
// pages (incoming is the older page) and for applying a single push event
// (incoming is that one event).
func Merge(existing, incoming []Event) []Event {
	merged := make(map[Key]Event, len(existing)+len(incoming))
	for _, e := range existing {
		merged[e.Key()] = e
	}
	for _, e := range incoming {
		merged[e.Key()] = e
	}

	out := make([]Event, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	sortWindow(out)
	return out
}

// sortWindow orders events newest first: timestamp descending with id
// descending as the tiebreak, so colliding or absent timestamps still yield
// a deterministic total order.
func sortWindow(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		if a.identity() != b.identity() {
			return a.identity() > b.identity()
		}
		return a.Kind > b.Kind
	})
}
