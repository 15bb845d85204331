package runtime

import "fmt"

// FailureCode identifies known failure codes.
// Orchestration code may raise any string value.
type FailureCode string

const (
	// ErrorCodeActivityFailed marks an activity that failed on every allowed attempt.
	ErrorCodeActivityFailed FailureCode = "ACTIVITY_FAILED"

	// Default code used when raise() is called without arguments.
	ErrorCodeRaise FailureCode = "RAISE"
)

// OrchestrationFailure ends an orchestration with a modeled failure. A pass
// that unwinds with it still produces a done decision carrying the failure.
//
// It is JSON-serializable so it can travel inside the decision payload.
type OrchestrationFailure struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Activity string         `json:"activity,omitempty"`
	Attempts int            `json:"attempts"`
	Details  string         `json:"details,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
}

func (e *OrchestrationFailure) Error() string {
	if e.Activity == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s (activity: %s, attempts: %d)", e.Code, e.Message, e.Activity, e.Attempts)
}

// ToMap converts the failure to a map suitable for injection into Risor/expr-lang contexts.
func (e *OrchestrationFailure) ToMap() map[string]any {
	m := map[string]any{
		"code":     e.Code,
		"message":  e.Message,
		"activity": e.Activity,
		"attempts": e.Attempts,
		"details":  e.Details,
	}
	if len(e.Meta) > 0 {
		m["meta"] = e.Meta
	}
	return m
}

// ActivityFailure builds the failure reported when an activity exhausts its attempts.
// reason is the first failure recorded for the call.
func ActivityFailure(activity, reason, details string, attempts int) *OrchestrationFailure {
	return &OrchestrationFailure{
		Code:     string(ErrorCodeActivityFailed),
		Message:  reason,
		Activity: activity,
		Attempts: attempts,
		Details:  details,
	}
}
