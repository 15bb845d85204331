// Package dsl runs orchestration bodies written as Risor scripts.
//
// A script is deterministic Risor code that calls activities through the
// activity module and evaluates to the orchestration output:
//
//	a := activity.call("SayHello", "Tokyo")
//	b := activity.call_with_retry("SayHello", "London", {
//	    firstRetryInterval: "5s",
//	    maxNumberOfAttempts: 3,
//	})
//	[a, b]
package dsl

import (
	"fmt"
	"log/slog"

	"github.com/BDNK1/durable/runtime"
)

// Host runs Risor orchestrations.
type Host struct {
	l *slog.Logger
}

var _ runtime.Host = (*Host)(nil)

func NewHost(l *slog.Logger) *Host {
	return &Host{l: l}
}

func (h *Host) Start(exec *runtime.Execution) runtime.Invocation {
	return runtime.Go(exec, h.run)
}

func (h *Host) run(exec *runtime.Execution) (any, error) {
	b := &bridge{exec: exec}

	output, err := eval(exec, exec.Orchestration.Body, b.globals())
	if err == nil {
		return output, nil
	}

	if f := exec.Failure(); f != nil {
		return nil, f
	}
	if b.err != nil {
		return nil, b.err
	}
	if exec.Collector().IsStopped() {
		return nil, runtime.ErrReplayStopped
	}

	h.l.ErrorContext(exec, fmt.Sprintf("Script error in orchestration %s", exec.Orchestration.Name),
		"source", exec.Orchestration.Source,
		"error", err)
	return nil, fmt.Errorf("script error: %w", err)
}
