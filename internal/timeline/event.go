package timeline

import "encoding/json"

// Kind discriminates the event union carried in the timeline window.
type Kind string

const (
	KindCompletion    Kind = "completion"
	KindToolCall      Kind = "tool_call"
	KindMessage       Kind = "message"
	KindRunStarted    Kind = "run_started"
	KindSystemMessage Kind = "system_message"
	KindStep          Kind = "step"
)

// windowKinds are the kinds that materialize as timeline rows.
var windowKinds = map[Kind]bool{
	KindCompletion:    true,
	KindToolCall:      true,
	KindMessage:       true,
	KindRunStarted:    true,
	KindSystemMessage: true,
	KindStep:          true,
}

// Event is a single timeline row. One struct covers every kind; fields that
// do not apply to a kind stay zero and are omitted on the wire.
type Event struct {
	Kind Kind `json:"kind"`
	// ID is unique within the event's kind. run_started events carry no
	// standalone id and are identified by RunID instead.
	ID    string `json:"id,omitempty"`
	RunID string `json:"run_id,omitempty"`
	// Timestamp is the ISO-8601 creation time as received from the backend.
	// Not-yet-resolved events arrive with a null timestamp, which decodes to
	// "" and sorts after every concrete time under the window's descending
	// order.
	Timestamp string `json:"timestamp,omitempty"`

	// message / system_message
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`

	// completion / step
	Model        string  `json:"model,omitempty"`
	Status       string  `json:"status,omitempty"`
	Error        string  `json:"error,omitempty"`
	InputTokens  int64   `json:"input_tokens,omitempty"`
	OutputTokens int64   `json:"output_tokens,omitempty"`
	CostUSD      float64 `json:"cost_usd,omitempty"`
	// ToolCalls holds the tool_call events folded under a completion. Only
	// Attach writes here, and only on a clone; a published event is never
	// mutated in place.
	ToolCalls []Event `json:"tool_calls,omitempty"`

	// tool_call. CompletionID is a back-reference to the logical parent,
	// used for attachment lookup only, never an ownership link.
	CompletionID string          `json:"completion_id,omitempty"`
	Name         string          `json:"name,omitempty"`
	Arguments    json.RawMessage `json:"arguments,omitempty"`
	Result       string          `json:"result,omitempty"`

	// run_started
	Trigger string `json:"trigger,omitempty"`
}

// Key is the composite identity used for deduplication. Two events with
// equal keys are the same logical occurrence; the later-applied one wins.
type Key struct {
	Kind Kind
	ID   string
}

// identity returns the id that names the event within its kind.
func (e Event) identity() string {
	if e.Kind == KindRunStarted {
		return e.RunID
	}
	return e.ID
}

// Key returns the event's composite identity key.
func (e Event) Key() Key {
	return Key{Kind: e.Kind, ID: e.identity()}
}

// Clone returns a copy of the event whose tool_calls slice is independent of
// the receiver's.
func (e Event) Clone() Event {
	out := e
	if e.ToolCalls != nil {
		out.ToolCalls = make([]Event, len(e.ToolCalls))
		copy(out.ToolCalls, e.ToolCalls)
	}
	return out
}
