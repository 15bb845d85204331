package plugin

import (
	"time"

	"github.com/BDNK1/durable/runtime"
	"github.com/BDNK1/durable/runtime/retry"
)

// Policy controls how the host retries an activity.
type Policy = retry.Policy

// Failure ends an orchestration with a modeled error.
type Failure = runtime.OrchestrationFailure

// NewPolicy returns a validated policy. Optional fields are set with
// retry.WithBackoffCoefficient, retry.WithMaxRetryInterval and
// retry.WithRetryTimeout.
func NewPolicy(firstRetryInterval time.Duration, maxNumberOfAttempts int, opts ...retry.Option) (Policy, error) {
	return retry.NewPolicy(firstRetryInterval, maxNumberOfAttempts, opts...)
}

// Fail records a failure with code and message and returns it as the error
// the body should return.
//
//	if amount <= 0 {
//	    return nil, plugin.Fail(exec, "INVALID_AMOUNT", "amount must be positive", nil)
//	}
func Fail(exec *Execution, code, message string, meta map[string]any) error {
	return exec.Fail(&Failure{Code: code, Message: message, Meta: meta})
}
