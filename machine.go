// Package statemachine enforces a finite-state-machine contract attached to a
// persistent record type. A raw Definition is normalized into an immutable
// Machine at configuration-load time (wildcard expansion, state-universe
// derivation) and verified for structural consistency; at runtime the machine
// authorizes or rejects individual state-change requests. The machine itself
// performs no I/O and never mutates records; hosts apply authorized mutations
// through the changeset package.
package statemachine

import (
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

// Machine is a normalized, verified transition contract. It is immutable
// after construction and safe for unsynchronized concurrent use.
type Machine struct {
	resource            string
	stateAttribute      string
	initialStates       []string
	defaultInitialState string
	deprecatedStates    []string
	extraStates         []string
	allStates           []string
	transitions         []Transition
	actions             []Action

	initialSet map[string]struct{}
	allSet     map[string]struct{}

	logger   Logger
	recorder Recorder
}

// Option customizes machine runtime behavior.
type Option func(*Machine)

// WithLogger sets the operator-diagnostics logger.
func WithLogger(logger Logger) Option {
	return func(m *Machine) {
		m.logger = normalizeLogger(logger)
	}
}

// WithRecorder sets the telemetry recorder. A nil recorder disables telemetry.
func WithRecorder(recorder Recorder) Option {
	return func(m *Machine) {
		m.recorder = recorder
	}
}

// Compile validates, normalizes, and verifies a definition in one step. Use
// Normalize plus Verify directly when a machine that fails verification needs
// to stay introspectable.
func Compile(def Definition, opts ...Option) (*Machine, error) {
	if err := def.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryValidation, "invalid machine definition").
			WithTextCode(ErrCodeInvalidDefinition)
	}
	m := Normalize(def, opts...)
	if err := m.Verify(); err != nil {
		return nil, err
	}
	return m, nil
}

// Resource returns the record type this machine governs.
func (m *Machine) Resource() string { return m.resource }

// StateAttribute returns the record attribute holding the tracked state.
func (m *Machine) StateAttribute() string { return m.stateAttribute }

// AllStates returns the complete sorted state universe, deprecated states
// included.
func (m *Machine) AllStates() []string { return copySlice(m.allStates) }

// InitialStates returns the states a record may be created directly into.
func (m *Machine) InitialStates() []string { return copySlice(m.initialStates) }

// DefaultInitialState returns the creation default; empty when unset.
func (m *Machine) DefaultInitialState() string { return m.defaultInitialState }

// DeprecatedStates returns legacy states kept enumerable but excluded from
// wildcard expansion.
func (m *Machine) DeprecatedStates() []string { return copySlice(m.deprecatedStates) }

// ExtraStates returns states manually included in wildcard expansion.
func (m *Machine) ExtraStates() []string { return copySlice(m.extraStates) }

// IsState reports membership in the state universe.
func (m *Machine) IsState(name string) bool {
	_, ok := m.allSet[normalizeState(name)]
	return ok
}

// IsInitialState reports membership in the initial-state set.
func (m *Machine) IsInitialState(name string) bool {
	_, ok := m.initialSet[normalizeState(name)]
	return ok
}

// Transitions returns a copy of the expanded transition list in declaration
// order.
func (m *Machine) Transitions() []Transition {
	if len(m.transitions) == 0 {
		return nil
	}
	out := make([]Transition, len(m.transitions))
	for i, tr := range m.transitions {
		out[i] = Transition{
			ID:     tr.ID,
			Action: tr.Action,
			From:   copySlice(tr.From),
			To:     copySlice(tr.To),
		}
	}
	return out
}

// Actions returns the declared action set.
func (m *Machine) Actions() []Action {
	if len(m.actions) == 0 {
		return nil
	}
	out := make([]Action, len(m.actions))
	copy(out, m.actions)
	return out
}

// Definition renders the machine back to its authorable form with every
// wildcard expanded and every id assigned. Normalizing the result reproduces
// the machine.
func (m *Machine) Definition() Definition {
	def := Definition{
		Resource:            m.resource,
		StateAttribute:      m.stateAttribute,
		InitialStates:       copySlice(m.initialStates),
		DefaultInitialState: m.defaultInitialState,
		DeprecatedStates:    copySlice(m.deprecatedStates),
		ExtraStates:         copySlice(m.extraStates),
	}
	for _, action := range m.actions {
		def.Actions = append(def.Actions, ActionDefinition{Name: action.Name, Kind: action.Kind})
	}
	for _, tr := range m.transitions {
		def.Transitions = append(def.Transitions, TransitionDefinition{
			ID:     tr.ID,
			Action: tr.Action,
			From:   States(tr.From...),
			To:     States(tr.To...),
		})
	}
	return def
}

func (m *Machine) actionNames() map[string]ActionKind {
	out := make(map[string]ActionKind, len(m.actions))
	for _, action := range m.actions {
		out[strings.TrimSpace(action.Name)] = action.Kind
	}
	return out
}
