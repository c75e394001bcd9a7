// Package registry holds the process-wide map from resource type to compiled
// state machine. Definitions queue up during startup, Initialize compiles and
// freezes them, and lookups after that point are read-only and lock-cheap.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-statemachine"
)

const (
	ErrCodeAlreadyInitialized    = "FSM_REGISTRY_ALREADY_INITIALIZED"
	ErrCodeNotInitialized        = "FSM_REGISTRY_NOT_INITIALIZED"
	ErrCodeDuplicateResource     = "FSM_DUPLICATE_RESOURCE"
	ErrCodeResourceNotConfigured = "FSM_RESOURCE_NOT_CONFIGURED"
	ErrCodeNilMachine            = "FSM_NIL_MACHINE"
)

type Registry struct {
	mu          sync.RWMutex
	pending     []statemachine.Definition
	machines    map[string]*statemachine.Machine
	options     []statemachine.Option
	initialized bool
}

func New(opts ...statemachine.Option) *Registry {
	return &Registry{
		machines: make(map[string]*statemachine.Machine),
		options:  opts,
	}
}

// Configure appends machine options applied to every definition compiled at
// initialization time.
func (r *Registry) Configure(opts ...statemachine.Option) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options = append(r.options, opts...)
	return r
}

// Register queues a definition for compilation during Initialize.
func (r *Registry) Register(def statemachine.Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return errors.New("cannot register machines after registry has been initialized", errors.CategoryConflict).
			WithTextCode(ErrCodeAlreadyInitialized)
	}
	r.pending = append(r.pending, def)

	return nil
}

// RegisterSet queues every machine of a parsed definition set.
func (r *Registry) RegisterSet(set statemachine.DefinitionSet) error {
	for _, def := range set.Machines {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// RegisterMachine installs an already compiled machine.
func (r *Registry) RegisterMachine(m *statemachine.Machine) error {
	if m == nil {
		return errors.New("machine cannot be nil", errors.CategoryBadInput).
			WithTextCode(ErrCodeNilMachine)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return errors.New("cannot register machines after registry has been initialized", errors.CategoryConflict).
			WithTextCode(ErrCodeAlreadyInitialized)
	}
	key := resourceKey(m.Resource())
	if _, exists := r.machines[key]; exists {
		return duplicateResource(m.Resource())
	}
	r.machines[key] = m

	return nil
}

// Initialize compiles every queued definition and freezes the registry. Every
// compile failure is reported, and the registry freezes even then so broken
// configuration fails fast at lookup instead of accepting more machines.
func (r *Registry) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return errors.New("registry already initialized", errors.CategoryConflict).
			WithTextCode(ErrCodeAlreadyInitialized)
	}

	var errs error
	for _, def := range r.pending {
		m, err := statemachine.Compile(def, r.options...)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		key := resourceKey(m.Resource())
		if _, exists := r.machines[key]; exists {
			errs = errors.Join(errs, duplicateResource(m.Resource()))
			continue
		}
		r.machines[key] = m
	}

	r.pending = nil
	r.initialized = true

	return errs
}

// Lookup returns the machine governing a resource type, failing fast when the
// registry was never initialized or the resource never configured.
func (r *Registry) Lookup(resource string) (*statemachine.Machine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.initialized {
		return nil, notInitialized()
	}
	m, ok := r.machines[resourceKey(resource)]
	if !ok {
		return nil, errors.New(fmt.Sprintf("resource %q has no configured state machine", resource), errors.CategoryBadInput).
			WithTextCode(ErrCodeResourceNotConfigured)
	}
	return m, nil
}

// Resources returns the configured resource keys in sorted order.
func (r *Registry) Resources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.machines))
	for key := range r.machines {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Initialized reports whether the registry has been frozen.
func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

func resourceKey(resource string) string {
	return strings.ToLower(strings.TrimSpace(resource))
}

func duplicateResource(resource string) error {
	return errors.New(fmt.Sprintf("resource %q already has a registered machine", resource), errors.CategoryConflict).
		WithTextCode(ErrCodeDuplicateResource)
}

func notInitialized() error {
	return errors.New("registry not initialized", errors.CategoryConflict).
		WithTextCode(ErrCodeNotInitialized)
}
