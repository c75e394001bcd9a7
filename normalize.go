package statemachine

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Normalize derives a machine from a raw definition: endpoints are coerced to
// concrete sets, wildcards are expanded against the derived state universe,
// and all_states is computed. Normalization is a pure derivation and raises
// nothing; structural consistency is Verify's job. Normalizing the rendered
// form of a normalized machine yields an identical machine.
func Normalize(def Definition, opts ...Option) *Machine {
	m := &Machine{
		resource:            strings.TrimSpace(def.Resource),
		stateAttribute:      strings.TrimSpace(def.StateAttribute),
		initialStates:       normalizeStates(def.InitialStates),
		defaultInitialState: normalizeState(def.DefaultInitialState),
		deprecatedStates:    normalizeStates(def.DeprecatedStates),
		extraStates:         normalizeStates(def.ExtraStates),
		logger:              NewFmtLogger(nil),
	}
	if m.stateAttribute == "" {
		m.stateAttribute = DefaultStateAttribute
	}

	base := make(map[string]struct{})
	for _, name := range m.initialStates {
		addState(base, name)
	}
	for _, td := range def.Transitions {
		for _, name := range td.From.Names() {
			addState(base, name)
		}
		for _, name := range td.To.Names() {
			addState(base, name)
		}
	}

	// Deprecated states stay out of the expansion set: wildcards never reach
	// them, but they remain enumerable through all_states.
	expansion := make(map[string]struct{}, len(base)+len(m.extraStates))
	for name := range base {
		expansion[name] = struct{}{}
	}
	for _, name := range m.extraStates {
		addState(expansion, name)
	}
	expanded := sortedMembers(expansion)

	m.transitions = make([]Transition, 0, len(def.Transitions))
	for _, td := range def.Transitions {
		tr := Transition{
			ID:     strings.TrimSpace(td.ID),
			Action: normalizeAction(td.Action),
			From:   endpointStates(td.From, expanded),
			To:     endpointStates(td.To, expanded),
		}
		if tr.ID == "" {
			tr.ID = uuid.NewString()
		}
		m.transitions = append(m.transitions, tr)
	}

	all := make(map[string]struct{}, len(expansion)+len(m.deprecatedStates))
	for name := range expansion {
		all[name] = struct{}{}
	}
	for _, name := range m.deprecatedStates {
		addState(all, name)
	}
	m.allStates = sortedMembers(all)
	m.allSet = all

	m.initialSet = make(map[string]struct{}, len(m.initialStates))
	for _, name := range m.initialStates {
		m.initialSet[name] = struct{}{}
	}

	m.actions = normalizeActions(def.Actions, m.transitions)

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// addState records a member, ignoring names that cannot be states.
func addState(set map[string]struct{}, name string) {
	if name == "" || name == Wildcard {
		return
	}
	set[name] = struct{}{}
}

func endpointStates(endpoint StateSet, expanded []string) []string {
	if endpoint.IsAny() {
		return copySlice(expanded)
	}
	out := make([]string, 0, len(endpoint.names))
	for _, name := range endpoint.names {
		if name == "" || name == Wildcard {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeActions(defs []ActionDefinition, transitions []Transition) []Action {
	if len(defs) > 0 {
		out := make([]Action, 0, len(defs))
		seen := make(map[string]struct{}, len(defs))
		for _, ad := range defs {
			name := normalizeAction(ad.Name)
			if _, exists := seen[name]; exists {
				continue
			}
			seen[name] = struct{}{}
			kind := normalizeActionKind(ad.Kind)
			if kind == "" {
				kind = ActionUpdate
			}
			out = append(out, Action{Name: name, Kind: kind})
		}
		return out
	}

	// No declared action set: derive one update action per named transition
	// action, first-seen order.
	var out []Action
	seen := make(map[string]struct{}, len(transitions))
	for _, tr := range transitions {
		if tr.Action == "" || tr.Action == Wildcard {
			continue
		}
		if _, exists := seen[tr.Action]; exists {
			continue
		}
		seen[tr.Action] = struct{}{}
		out = append(out, Action{Name: tr.Action, Kind: ActionUpdate})
	}
	return out
}
