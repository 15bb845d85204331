package retry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BDNK1/durable/runtime/history"
)

var validate = validator.New()

// ErrInvalidPolicy is returned when a policy fails validation.
var ErrInvalidPolicy = errors.New("invalid retry policy")

// Policy describes how an activity call is retried.
//
// Only MaxNumberOfAttempts drives replay decisions. The interval and backoff
// fields are carried with the CallActivityWithRetry action for the host to
// schedule the retry timer, and are passed through without validation.
type Policy struct {
	// Delay before the first retry.
	FirstRetryInterval time.Duration `mapstructure:"firstRetryInterval"`

	// Total attempts including the first one. A value of 1 never retries.
	MaxNumberOfAttempts int `mapstructure:"maxNumberOfAttempts" validate:"gte=1"`

	// Multiplier applied to the interval after each retry.
	BackoffCoefficient *float64 `mapstructure:"backoffCoefficient"`

	// Cap on the interval between retries.
	MaxRetryInterval *time.Duration `mapstructure:"maxRetryInterval"`

	// Overall time budget for all retries.
	RetryTimeout *time.Duration `mapstructure:"retryTimeout"`
}

// Option sets one of the optional policy fields.
type Option func(*Policy)

func WithBackoffCoefficient(c float64) Option {
	return func(p *Policy) { p.BackoffCoefficient = &c }
}

func WithMaxRetryInterval(d time.Duration) Option {
	return func(p *Policy) { p.MaxRetryInterval = &d }
}

func WithRetryTimeout(d time.Duration) Option {
	return func(p *Policy) { p.RetryTimeout = &d }
}

// NewPolicy builds a validated policy. It fails only when
// maxNumberOfAttempts is below 1.
func NewPolicy(firstRetryInterval time.Duration, maxNumberOfAttempts int, opts ...Option) (Policy, error) {
	p := Policy{
		FirstRetryInterval:  firstRetryInterval,
		MaxNumberOfAttempts: maxNumberOfAttempts,
	}
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks field bounds.
func (p Policy) Validate() error {
	if err := validate.Struct(p); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			var msgs []string
			for _, fieldErr := range validationErrors {
				msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s, got %v",
					fieldErr.Field(), fieldErr.Tag(), fieldErr.Param(), fieldErr.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidPolicy, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return nil
}

// MarshalJSON encodes the policy in the host's retryOptions shape.
// Optional fields are omitted when unset; durations are milliseconds.
func (p Policy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Options())
}

// Options returns the host's retryOptions map for this policy.
func (p Policy) Options() map[string]any {
	opts := map[string]any{
		"firstRetryIntervalInMilliseconds": milliseconds(p.FirstRetryInterval),
		"maxNumberOfAttempts":              p.MaxNumberOfAttempts,
	}
	if p.BackoffCoefficient != nil {
		opts["backoffCoefficient"] = *p.BackoffCoefficient
	}
	if p.MaxRetryInterval != nil {
		opts["maxRetryIntervalInMilliseconds"] = milliseconds(*p.MaxRetryInterval)
	}
	if p.RetryTimeout != nil {
		opts["retryTimeoutInMilliseconds"] = milliseconds(*p.RetryTimeout)
	}
	return opts
}

// UnmarshalJSON decodes the retryOptions shape produced by MarshalJSON.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var raw struct {
		FirstRetryInterval  float64  `json:"firstRetryIntervalInMilliseconds"`
		MaxNumberOfAttempts int      `json:"maxNumberOfAttempts"`
		BackoffCoefficient  *float64 `json:"backoffCoefficient"`
		MaxRetryInterval    *float64 `json:"maxRetryIntervalInMilliseconds"`
		RetryTimeout        *float64 `json:"retryTimeoutInMilliseconds"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Policy{
		FirstRetryInterval:  fromMilliseconds(raw.FirstRetryInterval),
		MaxNumberOfAttempts: raw.MaxNumberOfAttempts,
		BackoffCoefficient:  raw.BackoffCoefficient,
	}
	if raw.MaxRetryInterval != nil {
		d := fromMilliseconds(*raw.MaxRetryInterval)
		p.MaxRetryInterval = &d
	}
	if raw.RetryTimeout != nil {
		d := fromMilliseconds(*raw.RetryTimeout)
		p.RetryTimeout = &d
	}
	return nil
}

func fromMilliseconds(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// ShouldRetry reports whether another attempt is allowed given every
// TaskFailed event in events. A nil policy never retries.
func ShouldRetry(events []history.Event, policy *Policy) bool {
	if policy == nil {
		return false
	}
	attempts := 0
	for _, e := range events {
		if e.Kind == history.TaskFailed {
			attempts++
		}
	}
	return attempts < policy.MaxNumberOfAttempts
}
