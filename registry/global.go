package registry

import (
	"context"

	"github.com/goliatone/go-statemachine"
)

var globalRegistry = New()

// Configure appends machine options to the default registry.
func Configure(opts ...statemachine.Option) {
	globalRegistry.Configure(opts...)
}

// Register queues a definition on the default registry.
func Register(def statemachine.Definition) error {
	return globalRegistry.Register(def)
}

// RegisterSet queues every machine of a parsed definition set on the default
// registry.
func RegisterSet(set statemachine.DefinitionSet) error {
	return globalRegistry.RegisterSet(set)
}

// RegisterMachine installs an already compiled machine on the default
// registry.
func RegisterMachine(m *statemachine.Machine) error {
	return globalRegistry.RegisterMachine(m)
}

// Lookup resolves a resource's machine through the default registry.
func Lookup(resource string) (*statemachine.Machine, error) {
	return globalRegistry.Lookup(resource)
}

// Resources lists the default registry's configured resource keys.
func Resources() []string {
	return globalRegistry.Resources()
}

// Start initializes the default registry.
func Start(_ context.Context) error {
	return globalRegistry.Initialize()
}

// Stop discards the default registry, allowing a fresh Start.
func Stop(_ context.Context) error {
	globalRegistry = New()
	return nil
}

// WithTestRegistry swaps the default registry for a fresh one for the
// duration of fn, restoring the original afterwards.
func WithTestRegistry(fn func()) {
	old := globalRegistry
	defer func() { globalRegistry = old }()
	globalRegistry = New()
	fn()
}
