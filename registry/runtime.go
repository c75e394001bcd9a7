package registry

import (
	"context"
	"sync"

	"github.com/goliatone/go-statemachine"
)

// RuntimeDependencies captures explicit runtime wiring dependencies.
type RuntimeDependencies struct {
	Registry *Registry

	Logger   statemachine.Logger
	Recorder statemachine.Recorder

	MachineDefaults []statemachine.Option
}

// Runtime is an instance-first composition container over a machine registry:
// hosts that want explicit wiring instead of the package-level default build
// one of these and thread it through.
type Runtime struct {
	mu   sync.Mutex
	deps RuntimeDependencies
	reg  *Registry
}

// NewRuntime builds a runtime with explicit dependencies.
func NewRuntime(deps RuntimeDependencies) *Runtime {
	reg := deps.Registry
	if reg == nil {
		reg = New()
	}
	reg.Configure(runtimeOptions(deps)...)

	return &Runtime{
		deps: deps,
		reg:  reg,
	}
}

// Dependencies returns a copy of runtime dependencies.
func (r *Runtime) Dependencies() RuntimeDependencies {
	if r == nil {
		return RuntimeDependencies{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copyDeps := r.deps
	if len(copyDeps.MachineDefaults) > 0 {
		copyDeps.MachineDefaults = append([]statemachine.Option(nil), copyDeps.MachineDefaults...)
	}
	return copyDeps
}

// Registry returns the backing machine registry instance.
func (r *Runtime) Registry() *Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Register queues a definition on the backing registry.
func (r *Runtime) Register(def statemachine.Definition) error {
	if r == nil || r.reg == nil {
		return nil
	}
	return r.reg.Register(def)
}

// RegisterSet queues every machine of a parsed definition set.
func (r *Runtime) RegisterSet(set statemachine.DefinitionSet) error {
	if r == nil || r.reg == nil {
		return nil
	}
	return r.reg.RegisterSet(set)
}

// RegisterMachine installs an already compiled machine.
func (r *Runtime) RegisterMachine(m *statemachine.Machine) error {
	if r == nil || r.reg == nil {
		return nil
	}
	return r.reg.RegisterMachine(m)
}

// Lookup resolves a resource's machine through the backing registry.
func (r *Runtime) Lookup(resource string) (*statemachine.Machine, error) {
	if r == nil || r.reg == nil {
		return nil, notInitialized()
	}
	return r.reg.Lookup(resource)
}

// Start initializes the backing registry.
func (r *Runtime) Start(_ context.Context) error {
	if r == nil || r.reg == nil {
		return nil
	}
	return r.reg.Initialize()
}

// Stop discards the backing registry and replaces it with a fresh one carrying
// the same dependencies, so a Start/Stop cycle can repeat.
func (r *Runtime) Stop(_ context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := New()
	reg.Configure(runtimeOptions(r.deps)...)
	r.reg = reg
	return nil
}

func runtimeOptions(deps RuntimeDependencies) []statemachine.Option {
	opts := make([]statemachine.Option, 0, len(deps.MachineDefaults)+2)
	if deps.Logger != nil {
		opts = append(opts, statemachine.WithLogger(deps.Logger))
	}
	if deps.Recorder != nil {
		opts = append(opts, statemachine.WithRecorder(deps.Recorder))
	}
	opts = append(opts, deps.MachineDefaults...)
	return opts
}
