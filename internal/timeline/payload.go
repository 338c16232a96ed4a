package timeline

import (
	"encoding/json"
	"fmt"
)

// KindProcessingStatus is a control kind: it toggles the store's processing
// flag and never becomes a window row.
const KindProcessingStatus Kind = "processing_status"

// Payload is the validated form of one inbound realtime push message. For a
// well-formed payload exactly one of Event and Active is set: window kinds
// carry an Event, processing_status carries Active.
type Payload struct {
	Kind   Kind
	Event  *Event
	Active *bool
}

// DecodePayload validates an untyped push message into a tagged variant.
// A payload without a kind fails with ErrMissingKind and an unrecognized
// kind fails with ErrUnknownKind; nothing loosely typed crosses this
// boundary into the merge path.
func DecodePayload(raw []byte) (Payload, error) {
	var probe struct {
		Kind   Kind  `json:"kind"`
		Active *bool `json:"active"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Payload{}, fmt.Errorf("decode realtime payload: %w", err)
	}
	if probe.Kind == "" {
		return Payload{}, ErrMissingKind
	}

	switch {
	case probe.Kind == KindProcessingStatus:
		active := probe.Active != nil && *probe.Active
		return Payload{Kind: probe.Kind, Active: &active}, nil
	case windowKinds[probe.Kind]:
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return Payload{}, fmt.Errorf("decode %s event: %w", probe.Kind, err)
		}
		return Payload{Kind: probe.Kind, Event: &ev}, nil
	default:
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownKind, probe.Kind)
	}
}
