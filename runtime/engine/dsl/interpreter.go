package dsl

import (
	"context"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
)

// eval runs code in a sandbox: WithoutDefaultGlobals removes the os, exec
// and file builtins, so scripts only see the globals passed in.
func eval(ctx context.Context, code string, globals map[string]any) (any, error) {
	converted := make(map[string]any, len(globals))
	for k, v := range globals {
		converted[k] = toObject(v)
	}

	result, err := risor.Eval(ctx, code,
		risor.WithoutDefaultGlobals(),
		risor.WithGlobals(converted),
	)
	if err != nil {
		return nil, err
	}
	return toGo(result), nil
}

// toObject converts a Go value to a Risor object. Maps are converted level
// by level so builtins nested in maps survive as callables.
func toObject(v any) object.Object {
	switch val := v.(type) {
	case nil:
		return object.Nil
	case object.Object:
		return val
	case map[string]any:
		m := make(map[string]object.Object, len(val))
		for k, item := range val {
			m[k] = toObject(item)
		}
		return object.NewMap(m)
	case []any:
		items := make([]object.Object, len(val))
		for i, item := range val {
			items[i] = toObject(item)
		}
		return object.NewList(items)
	}

	obj := object.FromGoType(v)
	if obj == nil {
		return object.Nil
	}
	return obj
}

// toGo converts a Risor object back to plain Go values: maps, slices,
// strings, int64, float64, bool and nil.
func toGo(obj object.Object) any {
	if obj == nil {
		return nil
	}

	switch o := obj.(type) {
	case *object.Map:
		m := make(map[string]any)
		for k, v := range o.Value() {
			m[k] = toGo(v)
		}
		return m
	case *object.List:
		items := o.Value()
		out := make([]any, len(items))
		for i, v := range items {
			out[i] = toGo(v)
		}
		return out
	case *object.NilType:
		return nil
	default:
		return obj.Interface()
	}
}
