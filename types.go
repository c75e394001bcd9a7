package statemachine

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wildcard is the marker meaning "any declared state" in from/to position or
// "any update action" in action position. Declarations may also spell it ":*";
// normalization strips the leading colon.
const Wildcard = "*"

// DefaultStateAttribute is the record attribute a machine tracks when the
// definition does not name one.
const DefaultStateAttribute = "state"

// ActionKind classifies host actions by their persistence semantics.
type ActionKind string

const (
	ActionCreate  ActionKind = "create"
	ActionUpdate  ActionKind = "update"
	ActionDestroy ActionKind = "destroy"
)

// Canonical returns the kind in its comparable form: lowercased and trimmed.
// An unrecognized kind canonicalizes to whatever it spells; callers treat
// anything that is not create or destroy as update.
func (k ActionKind) Canonical() ActionKind {
	return normalizeActionKind(k)
}

func normalizeActionKind(kind ActionKind) ActionKind {
	return ActionKind(strings.ToLower(strings.TrimSpace(string(kind))))
}

func isValidActionKind(kind ActionKind) bool {
	switch kind {
	case ActionCreate, ActionUpdate, ActionDestroy:
		return true
	}
	return false
}

// StateSet is a transition endpoint as authored: either the wildcard or a
// concrete set of state names. Wildcards exist only before normalization;
// normalized transitions carry plain concrete slices and cannot express Any.
type StateSet struct {
	wildcard bool
	names    []string
}

// States builds a concrete set. Names are normalized and deduplicated,
// first-seen order preserved.
func States(names ...string) StateSet {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		n := normalizeState(name)
		if _, exists := seen[n]; exists {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return StateSet{names: out}
}

// AnyState builds the wildcard endpoint.
func AnyState() StateSet {
	return StateSet{wildcard: true}
}

// IsAny reports whether the set is the wildcard.
func (s StateSet) IsAny() bool { return s.wildcard }

// IsZero reports whether the set is neither the wildcard nor populated.
func (s StateSet) IsZero() bool { return !s.wildcard && len(s.names) == 0 }

// Contains reports concrete membership; always false for the wildcard, which
// has no members until expanded.
func (s StateSet) Contains(name string) bool {
	if s.wildcard {
		return false
	}
	n := normalizeState(name)
	for _, have := range s.names {
		if have == n {
			return true
		}
	}
	return false
}

// Names returns a copy of the concrete members; nil for the wildcard.
func (s StateSet) Names() []string {
	if s.wildcard {
		return nil
	}
	return copySlice(s.names)
}

// UnmarshalYAML accepts a bare state, a list of states, or the wildcard.
// JSON input works through the same path since YAML is a superset.
func (s *StateSet) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		if normalizeState(raw) == Wildcard {
			*s = AnyState()
			return nil
		}
		*s = States(raw)
		return nil
	case yaml.SequenceNode:
		var raw []string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*s = States(raw...)
		return nil
	default:
		return fmt.Errorf("state set must be a state name, a list of state names, or %q", Wildcard)
	}
}

// MarshalYAML renders the wildcard as its marker and concrete sets as lists.
func (s StateSet) MarshalYAML() (any, error) {
	if s.wildcard {
		return Wildcard, nil
	}
	return copySlice(s.names), nil
}

// TransitionDefinition is one declared transition rule as authored. The id is
// optional; normalization assigns an opaque one when absent.
type TransitionDefinition struct {
	ID     string   `json:"id,omitempty" yaml:"id,omitempty"`
	Action string   `json:"action" yaml:"action"`
	From   StateSet `json:"from" yaml:"from"`
	To     StateSet `json:"to" yaml:"to"`
}

// ActionDefinition declares one host action the machine participates in.
// Kind defaults to update.
type ActionDefinition struct {
	Name string     `json:"name" yaml:"name"`
	Kind ActionKind `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Definition is the raw, authorable form of a machine: what the configuration
// front end parses and what Normalize consumes. When Actions is empty the
// declared action set is derived from the transitions (each named action as an
// update action).
type Definition struct {
	Resource            string                 `json:"resource" yaml:"resource"`
	StateAttribute      string                 `json:"state_attribute,omitempty" yaml:"state_attribute,omitempty"`
	InitialStates       []string               `json:"initial_states" yaml:"initial_states"`
	DefaultInitialState string                 `json:"default_initial_state,omitempty" yaml:"default_initial_state,omitempty"`
	DeprecatedStates    []string               `json:"deprecated_states,omitempty" yaml:"deprecated_states,omitempty"`
	ExtraStates         []string               `json:"extra_states,omitempty" yaml:"extra_states,omitempty"`
	Actions             []ActionDefinition     `json:"actions,omitempty" yaml:"actions,omitempty"`
	Transitions         []TransitionDefinition `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

// Transition is a fully expanded rule inside a normalized machine: endpoints
// are concrete sorted state sets, never wildcards. Action is a concrete name
// or Wildcard.
type Transition struct {
	ID     string
	Action string
	From   []string
	To     []string
}

// Action is a declared host action inside a normalized machine.
type Action struct {
	Name string
	Kind ActionKind
}

// TransitionRequest is one state-change attempt presented to a machine. It is
// built per attempt, consumed by Authorize, and discarded.
type TransitionRequest struct {
	CurrentState string
	Action       string
	Kind         ActionKind
	Target       string
}

// CanonicalState returns the canonical spelling of a state name: trimmed,
// lowercased, leading colon stripped. Machines compare states in this form.
func CanonicalState(name string) string {
	return normalizeState(name)
}

// CanonicalAction returns the canonical spelling of an action name.
func CanonicalAction(name string) string {
	return normalizeAction(name)
}

func normalizeState(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ":"))
}

func normalizeAction(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ":"))
}

func normalizeStates(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		n := normalizeState(name)
		if _, exists := seen[n]; exists {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func containsState(states []string, name string) bool {
	for _, have := range states {
		if have == name {
			return true
		}
	}
	return false
}

func sortedMembers(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func copySlice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
