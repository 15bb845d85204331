package runtime

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/BDNK1/durable/runtime/retry"
)

// DecodeRetryPolicy builds a validated retry policy from a script or YAML map:
//
//	{firstRetryInterval: "5s", maxNumberOfAttempts: 3, backoffCoefficient: 2}
//
// Durations accept Go duration strings or numbers of milliseconds.
func DecodeRetryPolicy(m map[string]any) (retry.Policy, error) {
	var p retry.Policy
	if err := decode(m, &p, "mapstructure"); err != nil {
		return retry.Policy{}, fmt.Errorf("%w: %v", retry.ErrInvalidPolicy, err)
	}
	if err := p.Validate(); err != nil {
		return retry.Policy{}, err
	}
	return p, nil
}

// decode converts a map[string]any to a struct using mapstructure, matching
// fields by tagName. Unknown keys are rejected.
func decode(m map[string]any, target any, tagName string) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: tagName,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			millisecondsToDurationHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		WeaklyTypedInput: true, // Allow type coercion (e.g., int -> float64)
		ErrorUnused:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(m); err != nil {
		return fmt.Errorf("failed to decode map to struct: %w", err)
	}

	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// millisecondsToDurationHook reads numbers as milliseconds when the target
// is a time.Duration.
func millisecondsToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	default:
		return data, nil
	}
}
