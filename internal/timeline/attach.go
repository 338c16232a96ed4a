package timeline

import "sort"

// Attach folds a tool_call event into the tool_calls collection of its
// parent completion, when that completion is present in the window. A tool
// call is a sub-step of a completion, not a sibling row. The second return
// reports whether the event was folded; when it is false the caller merges
// the event as an ordinary top-level row.
//
// The transform is copy-on-write: the window slice, the parent completion,
// and its tool_calls are copied before modification, so earlier snapshots
// stay valid. A tool call already present under the parent is skipped, which
// makes redelivery a no-op. The nested collection is kept oldest first,
// independent of the parent window's descending order.
//
// When the parent completion has not arrived yet there is no deferred
// reconciliation: a tool call inserted as a top-level row stays top-level
// even if its completion shows up later.
func Attach(window []Event, ev Event) ([]Event, bool) {
	if ev.Kind != KindToolCall || ev.CompletionID == "" {
		return window, false
	}

	for i, row := range window {
		if row.Kind != KindCompletion || row.ID != ev.CompletionID {
			continue
		}
		for _, tc := range row.ToolCalls {
			if tc.ID == ev.ID {
				return window, true
			}
		}

		parent := row.Clone()
		parent.ToolCalls = append(parent.ToolCalls, ev)
		sort.SliceStable(parent.ToolCalls, func(a, b int) bool {
			x, y := parent.ToolCalls[a], parent.ToolCalls[b]
			if x.Timestamp != y.Timestamp {
				return x.Timestamp < y.Timestamp
			}
			return x.ID < y.ID
		})

		out := make([]Event, len(window))
		copy(out, window)
		out[i] = parent
		return out, true
	}

	return window, false
}
