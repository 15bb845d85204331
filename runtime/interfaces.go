package runtime

import "context"

// Loader loads orchestration definitions from files.
type Loader interface {
	Extensions() []string
	Load(filePath string) (Orchestration, error)
}

// Host runs orchestration bodies of one engine.
type Host interface {
	// Start runs one pass of exec.Orchestration asynchronously.
	Start(exec *Execution) Invocation
}

// Invocation is one in-flight pass started by a Host.
type Invocation interface {
	// Done is closed when the body has returned.
	Done() <-chan struct{}
	// Result blocks until Done and returns the body's output.
	Result() (any, error)
	// Stop requests cancellation of the pass. It does not wait.
	Stop()
	// Close releases state buffered by the pass. Call it after Done.
	Close()
}

// ExpressionEvaluator evaluates an expression against the values of a pass.
// The evaluator must not mutate execution.Values().
type ExpressionEvaluator interface {
	Eval(execution *Execution, expression string) (any, error)
}

// ValueStore holds the values a pass exposes to scripts and expressions,
// addressed by dot-separated keys.
type ValueStore interface {
	Set(key string, value any)
	Get(key string) (any, bool)
	SetNested(prefix string, value any)
	All() map[string]any
}

// Lifecycle is implemented by hosts, loaders and components that hold
// resources. Initialize runs once at startup, Shutdown in reverse order.
type Lifecycle interface {
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
