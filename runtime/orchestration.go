package runtime

import (
	"errors"
	"fmt"
)

// Engine names select the Host that runs an orchestration.
const (
	EngineFunc  = "func"
	EngineRisor = "risor"
	EngineYAML  = "yaml"
)

// Orchestration is a registered workflow body.
type Orchestration struct {
	Name       string         `yaml:"name" validate:"required"`
	Engine     string         `yaml:"-" validate:"required"`
	Source     string         `yaml:"-"` // file the definition was loaded from
	Properties map[string]any `yaml:"properties"`

	// YAML engine
	Steps  []Step `yaml:"steps" validate:"dive"`
	Output any    `yaml:"output"`

	// Risor engine
	Body string `yaml:"-"`

	// Func engine
	Func OrchestrationFunc `yaml:"-"`
}

// Step types understood by the YAML engine.
const (
	StepActivity = "activity"
	StepAssign   = "assign"
	StepFail     = "fail"
)

type Step struct {
	ID        string `yaml:"id" validate:"required"`
	Type      string `yaml:"type,omitempty" validate:"omitempty,oneof=activity assign fail"`
	Condition string `yaml:"condition,omitempty"`

	// activity
	Activity string         `yaml:"activity,omitempty"`
	Input    any            `yaml:"input,omitempty"`
	Retry    map[string]any `yaml:"retry,omitempty"`

	// assign values, or code/message for fail
	Args map[string]any `yaml:"args,omitempty"`

	CustomStatus any `yaml:"customStatus,omitempty"`
}

// Kind returns the step type, defaulting to an activity call.
func (s Step) Kind() string {
	if s.Type == "" {
		return StepActivity
	}
	return s.Type
}

// Validate checks the definition before it is registered.
func (o *Orchestration) Validate() error {
	if err := validateConfig(o); err != nil {
		return fmt.Errorf("orchestration %q: %w", o.Name, err)
	}

	switch o.Engine {
	case EngineFunc:
		if o.Func == nil {
			return fmt.Errorf("orchestration %q: func engine requires a function", o.Name)
		}
	case EngineRisor:
		if o.Body == "" {
			return fmt.Errorf("orchestration %q: empty body", o.Name)
		}
	case EngineYAML:
		var errs []error
		seen := make(map[string]bool, len(o.Steps))
		for _, s := range o.Steps {
			if seen[s.ID] {
				errs = append(errs, fmt.Errorf("duplicate step id %q", s.ID))
			}
			seen[s.ID] = true
			if s.Kind() == StepActivity && s.Activity == "" {
				errs = append(errs, fmt.Errorf("step %q: activity is required", s.ID))
			}
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("orchestration %q: %w", o.Name, err)
		}
	}
	return nil
}
