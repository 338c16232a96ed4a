package timeline

import (
	"errors"
	"fmt"
)

// Decode failures for realtime payloads. The store drops these silently;
// they are exported so the trust boundary can be tested in isolation.
var (
	ErrMissingKind = errors.New("realtime payload has no kind")
	ErrUnknownKind = errors.New("unrecognized realtime payload kind")
)

// LoadError reports a failed history fetch: the request was rejected or the
// response could not be decoded. The store converts it into the snapshot's
// Error string; a still-valid prior window is retained.
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// InvalidTimestampError reports a JumpToTime argument that does not parse as
// a date. Nothing beyond the surfaced error message is mutated.
type InvalidTimestampError struct {
	Value string
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp %q", e.Value)
}
