package runtime

import (
	"errors"
	"fmt"
)

var (
	// ErrReplayStopped is returned by activity calls once the pass was stopped
	// because the history does not yet hold their outcome.
	ErrReplayStopped = errors.New("orchestration pass stopped: waiting for new history")

	// ErrUnknownOrchestration means no orchestration is registered under the requested name.
	ErrUnknownOrchestration = errors.New("unknown orchestration")

	// ErrUnknownEngine means no host is registered for an orchestration's engine.
	ErrUnknownEngine = errors.New("no host registered for engine")
)

// NondeterminismError reports that the orchestration body called a different
// activity than the one history recorded at the same point. This happens when
// the orchestration code changed between replays.
type NondeterminismError struct {
	Expected string // activity name recorded in history
	Actual   string // activity name the body called
	EventID  int
}

func (e *NondeterminismError) Error() string {
	return fmt.Sprintf("nondeterministic orchestration: history scheduled %q (event %d) but the body called %q",
		e.Expected, e.EventID, e.Actual)
}
