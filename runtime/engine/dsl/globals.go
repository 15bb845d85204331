package dsl

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/BDNK1/durable/runtime"
)

// bridge builds the globals a script sees for one pass and remembers the
// first error a builtin raised. Errors cross the VM as strings, so the host
// returns the remembered one to keep its type.
type bridge struct {
	exec *runtime.Execution
	err  error
}

// globals returns the execution values plus the builtins:
//
//	activity.call(name, input)
//	activity.call_with_retry(name, input, {firstRetryInterval: "5s", maxNumberOfAttempts: 3})
//	set_custom_status(value)
//	raise(code, message, meta)
//	log.info(msg) / log.warn(msg) / log.error(msg)
//	sprintf(format, args...)
func (b *bridge) globals() map[string]any {
	globals := make(map[string]any)
	for k, v := range b.exec.Values() {
		globals[k] = v
	}

	globals["activity"] = object.NewBuiltinsModule("activity", map[string]object.Object{
		"call":            object.NewBuiltin("activity.call", b.call),
		"call_with_retry": object.NewBuiltin("activity.call_with_retry", b.callWithRetry),
	})
	globals["log"] = object.NewBuiltinsModule("log", map[string]object.Object{
		"info":  object.NewBuiltin("log.info", b.logFunc("info")),
		"warn":  object.NewBuiltin("log.warn", b.logFunc("warn")),
		"error": object.NewBuiltin("log.error", b.logFunc("error")),
	})
	globals["set_custom_status"] = object.NewBuiltin("set_custom_status", b.setCustomStatus)
	globals["raise"] = object.NewBuiltin("raise", b.raise)
	globals["sprintf"] = object.NewBuiltin("sprintf", sprintf)

	return globals
}

func (b *bridge) call(ctx context.Context, args ...object.Object) object.Object {
	name, input, err := activityArgs("activity.call", args, 2)
	if err != nil {
		return err
	}
	return b.result(b.exec.CallActivity(name, input))
}

func (b *bridge) callWithRetry(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 3 {
		return object.Errorf("activity.call_with_retry: expected 3 arguments (name, input, options), got %d", len(args))
	}
	name, input, errObj := activityArgs("activity.call_with_retry", args[:2], 2)
	if errObj != nil {
		return errObj
	}

	opts, ok := toGo(args[2]).(map[string]any)
	if !ok {
		return object.Errorf("activity.call_with_retry: options must be a map, got %s", args[2].Type())
	}
	policy, err := runtime.DecodeRetryPolicy(opts)
	if err != nil {
		return b.fail(err)
	}
	return b.result(b.exec.CallActivityWithRetry(name, input, policy))
}

func (b *bridge) setCustomStatus(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 1 {
		return object.Errorf("set_custom_status: expected 1 argument, got %d", len(args))
	}
	b.exec.SetCustomStatus(toGo(args[0]))
	return object.Nil
}

// raise fails the orchestration. Arguments are optional: code (default
// RAISE), message and a meta map.
func (b *bridge) raise(ctx context.Context, args ...object.Object) object.Object {
	if len(args) > 3 {
		return object.Errorf("raise: expected at most 3 arguments, got %d", len(args))
	}

	f := &runtime.OrchestrationFailure{Code: string(runtime.ErrorCodeRaise)}
	if len(args) > 0 {
		f.Code = fmt.Sprint(toGo(args[0]))
	}
	if len(args) > 1 {
		f.Message = fmt.Sprint(toGo(args[1]))
	}
	if len(args) > 2 {
		meta, ok := toGo(args[2]).(map[string]any)
		if !ok {
			return object.Errorf("raise: meta must be a map, got %s", args[2].Type())
		}
		f.Meta = meta
	}
	return b.fail(b.exec.Fail(f))
}

func (b *bridge) logFunc(level string) object.BuiltinFunction {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) == 0 {
			return object.Errorf("log.%s: expected a message", level)
		}
		msg := fmt.Sprint(toGo(args[0]))
		attrs := []any{"orchestration", b.exec.Orchestration.Name, "instance_id", b.exec.InstanceID}
		for _, a := range args[1:] {
			attrs = append(attrs, toGo(a))
		}

		l := b.exec.Logger()
		switch level {
		case "warn":
			l.WarnContext(b.exec, msg, attrs...)
		case "error":
			l.ErrorContext(b.exec, msg, attrs...)
		default:
			l.InfoContext(b.exec, msg, attrs...)
		}
		return object.Nil
	}
}

func sprintf(ctx context.Context, args ...object.Object) object.Object {
	if len(args) == 0 {
		return object.Errorf("sprintf: expected a format string")
	}
	format, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("sprintf: format must be a string, got %s", args[0].Type())
	}
	values := make([]any, len(args)-1)
	for i, a := range args[1:] {
		values[i] = toGo(a)
	}
	return object.NewString(fmt.Sprintf(format.Value(), values...))
}

func (b *bridge) result(v any, err error) object.Object {
	if err != nil {
		return b.fail(err)
	}
	return toObject(v)
}

func (b *bridge) fail(err error) object.Object {
	if b.err == nil {
		b.err = err
	}
	return object.NewError(err)
}

// activityArgs reads (name, input) where input is optional.
func activityArgs(fn string, args []object.Object, max int) (string, any, object.Object) {
	if len(args) == 0 || len(args) > max {
		return "", nil, object.Errorf("%s: expected 1 to %d arguments, got %d", fn, max, len(args))
	}
	name, ok := args[0].(*object.String)
	if !ok {
		return "", nil, object.Errorf("%s: activity name must be a string, got %s", fn, args[0].Type())
	}
	var input any
	if len(args) > 1 {
		input = toGo(args[1])
	}
	return name.Value(), input, nil
}
