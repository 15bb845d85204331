package runtime

import (
	"fmt"
	"path/filepath"
	"sort"
)

// App holds the registered orchestrations, the hosts that run them and the
// components that provide them.
type App struct {
	Container      *Container
	Orchestrations map[string]*Orchestration
	Properties     map[string]any

	hosts   map[string]Host
	loaders []Loader
}

// NewApp returns an App with the Go function host registered.
func NewApp() *App {
	app := &App{
		Container:      NewContainer(),
		Orchestrations: make(map[string]*Orchestration),
		Properties:     make(map[string]any),
		hosts:          make(map[string]Host),
	}
	app.RegisterHost(EngineFunc, NewFuncHost())
	return app
}

// RegisterHost binds an engine name to the host that runs its orchestrations.
// Hosts implementing Lifecycle are initialized with the container.
func (a *App) RegisterHost(engine string, host Host) {
	a.hosts[engine] = host
	a.Container.track(host)
}

// RegisterLoader adds a loader used by LoadDir.
func (a *App) RegisterLoader(loader Loader) {
	a.loaders = append(a.loaders, loader)
	a.Container.track(loader)
}

// RegisterFunc registers a Go orchestration under name.
func (a *App) RegisterFunc(name string, fn OrchestrationFunc) error {
	return a.Register(Orchestration{
		Name:   name,
		Engine: EngineFunc,
		Func:   fn,
	})
}

// RegisterComponent registers every orchestration method of component
// (see Container.RegisterComponent) as a Go orchestration.
func (a *App) RegisterComponent(name string, component any) error {
	funcs, err := a.Container.RegisterComponent(name, component)
	if err != nil {
		return err
	}
	for orchestration, fn := range funcs {
		if err := a.RegisterFunc(orchestration, fn); err != nil {
			return err
		}
	}
	return nil
}

// Register validates and adds an orchestration. Names must be unique.
func (a *App) Register(o Orchestration) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if existing, ok := a.Orchestrations[o.Name]; ok {
		return fmt.Errorf("orchestration %q already registered (from %s)", o.Name, sourceOf(existing))
	}
	a.Orchestrations[o.Name] = &o
	return nil
}

// LoadDir loads every file matching a registered loader's extensions.
func (a *App) LoadDir(dir string) error {
	for _, loader := range a.loaders {
		for _, pattern := range loader.Extensions() {
			files, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return fmt.Errorf("error reading directory: %w", err)
			}
			for _, file := range files {
				o, err := loader.Load(file)
				if err != nil {
					return err
				}
				if err := a.Register(o); err != nil {
					return fmt.Errorf("error registering %s: %w", file, err)
				}
			}
		}
	}
	return nil
}

// Orchestration looks up a registered orchestration by name.
func (a *App) Orchestration(name string) (*Orchestration, error) {
	o, ok := a.Orchestrations[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrchestration, name)
	}
	return o, nil
}

// Host returns the host registered for engine.
func (a *App) Host(engine string) (Host, error) {
	h, ok := a.hosts[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, engine)
	}
	return h, nil
}

// Names lists registered orchestrations in alphabetical order.
func (a *App) Names() []string {
	names := make([]string, 0, len(a.Orchestrations))
	for name := range a.Orchestrations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sourceOf(o *Orchestration) string {
	if o.Source == "" {
		return o.Engine
	}
	return o.Source
}
