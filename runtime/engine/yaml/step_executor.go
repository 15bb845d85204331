package yaml

import (
	"fmt"
	"log/slog"

	"github.com/BDNK1/durable/runtime"
)

// StepExecutor dispatches a step on its type.
//
// Activity results are stored as {stepID}.result, assigned values as
// {stepID}.{key}, so later expressions read them with member access.
type StepExecutor struct {
	evaluator runtime.ExpressionEvaluator
	l         *slog.Logger
}

func NewStepExecutor(evaluator runtime.ExpressionEvaluator, l *slog.Logger) *StepExecutor {
	return &StepExecutor{
		evaluator: evaluator,
		l:         l,
	}
}

func (e *StepExecutor) ExecuteStep(execution *runtime.Execution, step runtime.Step) error {
	if step.CustomStatus != nil {
		status, err := e.evaluateValue(execution, step.ID, "customStatus", step.CustomStatus)
		if err != nil {
			return err
		}
		execution.SetCustomStatus(status)
	}

	switch step.Kind() {
	case runtime.StepAssign:
		return e.handleAssign(execution, step)
	case runtime.StepFail:
		return e.handleFail(execution, step)
	default:
		return e.handleActivity(execution, step)
	}
}

// handleActivity calls the step's activity. Errors from the call are
// returned unchanged so the runner sees stops and failures as they are.
func (e *StepExecutor) handleActivity(execution *runtime.Execution, step runtime.Step) error {
	input, err := e.evaluateValue(execution, step.ID, "input", step.Input)
	if err != nil {
		return err
	}

	var result any
	if step.Retry != nil {
		policy, err := runtime.DecodeRetryPolicy(step.Retry)
		if err != nil {
			return fmt.Errorf("step %s: %w", step.ID, err)
		}
		result, err = execution.CallActivityWithRetry(step.Activity, input, policy)
		if err != nil {
			return err
		}
	} else {
		result, err = execution.CallActivity(step.Activity, input)
		if err != nil {
			return err
		}
	}

	// SetNested copies maps so later assigns below the step never alias the result
	execution.Store.SetNested(fmt.Sprintf("%s.result", step.ID), result)
	return nil
}

func (e *StepExecutor) handleAssign(execution *runtime.Execution, step runtime.Step) error {
	args, err := e.evaluateArgs(execution, step)
	if err != nil {
		return err
	}
	for k, v := range args {
		execution.AddValue(fmt.Sprintf("%s.%s", step.ID, k), v)
	}
	return nil
}

// handleFail ends the orchestration with a failure built from args:
// code and message expressions, plus an optional meta map.
func (e *StepExecutor) handleFail(execution *runtime.Execution, step runtime.Step) error {
	args, err := e.evaluateArgs(execution, step)
	if err != nil {
		return err
	}

	f := &runtime.OrchestrationFailure{Code: string(runtime.ErrorCodeRaise)}
	if code, ok := args["code"]; ok && code != nil {
		f.Code = fmt.Sprint(code)
	}
	if msg, ok := args["message"]; ok && msg != nil {
		f.Message = fmt.Sprint(msg)
	}
	if meta, ok := args["meta"].(map[string]any); ok {
		f.Meta = meta
	}

	e.l.InfoContext(execution, fmt.Sprintf("Orchestration failed at step: %s", step.ID), "code", f.Code)
	return execution.Fail(f)
}

// evaluateArgs evaluates every arg before any is stored, so a failing
// expression leaves no partial assignment behind.
func (e *StepExecutor) evaluateArgs(execution *runtime.Execution, step runtime.Step) (map[string]any, error) {
	args := make(map[string]any, len(step.Args))
	for k, v := range step.Args {
		evaluated, err := e.evaluateValue(execution, step.ID, k, v)
		if err != nil {
			return nil, err
		}
		args[k] = evaluated
	}
	return args, nil
}

// evaluateValue evaluates strings as expressions and recurses into maps
// and slices. String literals need quoting: '"text"'.
func (e *StepExecutor) evaluateValue(execution *runtime.Execution, stepID string, path string, value any) (any, error) {
	switch v := value.(type) {
	case string:
		result, err := e.evaluator.Eval(execution, v)
		if err != nil {
			e.l.ErrorContext(execution, fmt.Sprintf("Error evaluating expression for step %s, path %s", stepID, path),
				"expression", v,
				"error", err)
			return nil, fmt.Errorf("error evaluating expression '%s': %w", v, err)
		}
		return result, nil
	case map[string]any:
		evaluated := make(map[string]any, len(v))
		for key, val := range v {
			nestedPath := fmt.Sprintf("%s.%s", path, key)
			evaluatedVal, err := e.evaluateValue(execution, stepID, nestedPath, val)
			if err != nil {
				return nil, err
			}
			evaluated[key] = evaluatedVal
		}
		return evaluated, nil
	case []any:
		evaluated := make([]any, len(v))
		for i, val := range v {
			nestedPath := fmt.Sprintf("%s[%d]", path, i)
			evaluatedVal, err := e.evaluateValue(execution, stepID, nestedPath, val)
			if err != nil {
				return nil, err
			}
			evaluated[i] = evaluatedVal
		}
		return evaluated, nil
	default:
		return value, nil
	}
}
