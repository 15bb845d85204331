// Package yaml runs declarative orchestrations: a list of steps that call
// activities, assign values or fail, with expr-lang expressions for inputs,
// conditions and the output.
package yaml

import (
	"fmt"
	"log/slog"

	"github.com/BDNK1/durable/runtime"
)

// Host runs YAML orchestrations.
type Host struct {
	l         *slog.Logger
	evaluator runtime.ExpressionEvaluator
	steps     *StepExecutor
}

var _ runtime.Host = (*Host)(nil)

func NewHost(l *slog.Logger, evaluator runtime.ExpressionEvaluator) *Host {
	return &Host{
		l:         l,
		evaluator: evaluator,
		steps:     NewStepExecutor(evaluator, l),
	}
}

func (h *Host) Start(exec *runtime.Execution) runtime.Invocation {
	return runtime.Go(exec, h.run)
}

// run executes the steps in order, then evaluates the output.
func (h *Host) run(exec *runtime.Execution) (any, error) {
	for _, s := range exec.Orchestration.Steps {
		ok, err := h.evaluateCondition(exec, s)
		if err != nil {
			return nil, err
		}
		if !ok {
			h.l.DebugContext(exec, fmt.Sprintf("Skipping step: %s", s.ID))
			continue
		}

		if err := h.steps.ExecuteStep(exec, s); err != nil {
			return nil, err
		}
	}

	if exec.Orchestration.Output == nil {
		return nil, nil
	}
	output, err := h.steps.evaluateValue(exec, "output", "output", exec.Orchestration.Output)
	if err != nil {
		return nil, fmt.Errorf("error evaluating output: %w", err)
	}
	return output, nil
}

func (h *Host) evaluateCondition(exec *runtime.Execution, step runtime.Step) (bool, error) {
	if step.Condition == "" {
		return true, nil
	}

	result, err := h.evaluator.Eval(exec, step.Condition)
	if err != nil {
		h.l.ErrorContext(exec, fmt.Sprintf("Error evaluating condition for step %s", step.ID),
			"condition", step.Condition,
			"error", err)
		return false, fmt.Errorf("error evaluating condition %s: %w", step.Condition, err)
	}

	resultBool, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition %s evaluated to %T, expected boolean", step.Condition, result)
	}
	return resultBool, nil
}
