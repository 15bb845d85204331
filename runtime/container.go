package runtime

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Container tracks components and the lifecycle of everything registered
// with the App.
type Container struct {
	components map[string]any
	lifecycle  []Lifecycle
}

func NewContainer() *Container {
	return &Container{
		components: make(map[string]any),
	}
}

// RegisterComponent stores a component instance and discovers its
// orchestration methods. Exported methods with the signature
//
//	func (c *Component) Name(exec *Execution) (any, error)
//
// are returned keyed "component.name" (first letter lowercased).
func (c *Container) RegisterComponent(name string, component any) (map[string]OrchestrationFunc, error) {
	if component == nil {
		return nil, fmt.Errorf("component cannot be nil")
	}
	if _, exists := c.components[name]; exists {
		return nil, fmt.Errorf("component %q already registered", name)
	}
	c.components[name] = component
	c.track(component)

	funcs := make(map[string]OrchestrationFunc)
	componentType := reflect.TypeOf(component)
	componentValue := reflect.ValueOf(component)

	for i := 0; i < componentType.NumMethod(); i++ {
		method := componentType.Method(i)
		if !method.IsExported() || !isOrchestrationSignature(method.Type) {
			continue
		}

		orchestration := fmt.Sprintf("%s.%s", name, toLowerFirst(method.Name))
		funcs[orchestration] = methodFunc(componentValue, method)
	}

	if len(funcs) == 0 {
		return nil, fmt.Errorf("component %q has no orchestration methods", name)
	}
	return funcs, nil
}

// Component returns a registered component by name.
func (c *Container) Component(name string) any {
	return c.components[name]
}

// track remembers v for Initialize/Shutdown if it implements Lifecycle.
func (c *Container) track(v any) {
	l, ok := v.(Lifecycle)
	if !ok {
		return
	}
	if reflect.TypeOf(l).Comparable() {
		for _, existing := range c.lifecycle {
			if existing == l {
				return
			}
		}
	}
	c.lifecycle = append(c.lifecycle, l)
}

// Initialize calls Initialize in registration order and stops at the first failure.
func (c *Container) Initialize(ctx context.Context) error {
	for i, l := range c.lifecycle {
		if err := l.Initialize(ctx); err != nil {
			return fmt.Errorf("%T (#%d) initialization failed: %w", l, i, err)
		}
	}
	return nil
}

// Shutdown calls Shutdown in reverse order of initialization and reports
// every failure.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(c.lifecycle) - 1; i >= 0; i-- {
		if err := c.lifecycle[i].Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%T (#%d) shutdown failed: %w", c.lifecycle[i], i, err))
		}
	}
	return errors.Join(errs...)
}

var (
	executionPtrType = reflect.TypeOf((*Execution)(nil))
	anyType          = reflect.TypeOf((*any)(nil)).Elem()
	errorType        = reflect.TypeOf((*error)(nil)).Elem()
)

// isOrchestrationSignature checks for func(receiver, *Execution) (any, error).
func isOrchestrationSignature(methodType reflect.Type) bool {
	if methodType.NumIn() != 2 || methodType.NumOut() != 2 {
		return false
	}
	return methodType.In(1) == executionPtrType &&
		methodType.Out(0) == anyType &&
		methodType.Out(1) == errorType
}

func toLowerFirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func methodFunc(receiver reflect.Value, method reflect.Method) OrchestrationFunc {
	return func(exec *Execution) (any, error) {
		results := method.Func.Call([]reflect.Value{receiver, reflect.ValueOf(exec)})

		var err error
		if !results[1].IsNil() {
			err = results[1].Interface().(error)
		}
		return results[0].Interface(), err
	}
}
