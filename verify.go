package statemachine

import (
	"fmt"

	apperrors "github.com/goliatone/go-errors"
)

// Verify checks a normalized machine for structural consistency. Failures are
// build-time: they gate whether the resource configuration is usable at all
// and are never surfaced as runtime rejections. Every failure is reported, not
// just the first.
func (m *Machine) Verify() error {
	var errs error

	if len(m.initialStates) == 0 {
		errs = apperrors.Join(errs, cloneRejection(ErrInvalidDefinition,
			fmt.Sprintf("machine %q requires at least one initial state", m.resource),
			map[string]any{"resource": m.resource}))
	}

	errs = apperrors.Join(errs, m.verifyDefaultInitialState())
	errs = apperrors.Join(errs, m.verifyActions())

	return errs
}

func (m *Machine) verifyDefaultInitialState() error {
	var errs error

	if len(m.initialStates) > 1 && m.defaultInitialState == "" {
		errs = apperrors.Join(errs, cloneRejection(ErrMissingDefaultInitialState,
			fmt.Sprintf("machine %q declares %d initial states and must set a default initial state", m.resource, len(m.initialStates)),
			map[string]any{
				"resource":       m.resource,
				"initial_states": copySlice(m.initialStates),
			}))
	}
	if m.defaultInitialState != "" {
		if _, ok := m.initialSet[m.defaultInitialState]; !ok {
			errs = apperrors.Join(errs, cloneRejection(ErrMissingDefaultInitialState,
				fmt.Sprintf("machine %q default initial state %q is not an initial state", m.resource, m.defaultInitialState),
				map[string]any{
					"resource":              m.resource,
					"default_initial_state": m.defaultInitialState,
					"initial_states":        copySlice(m.initialStates),
				}))
		}
	}

	return errs
}

// verifyActions flags transitions naming actions that do not resolve against
// the declared action set, and declared update actions that no transition
// covers. Both hide silently-unreachable state changes if left unchecked.
func (m *Machine) verifyActions() error {
	var errs error
	kinds := m.actionNames()

	hasWildcardTransition := false
	covered := make(map[string]struct{}, len(m.transitions))
	for _, tr := range m.transitions {
		if tr.Action == Wildcard {
			hasWildcardTransition = true
			continue
		}
		if tr.Action == "" {
			errs = apperrors.Join(errs, cloneRejection(ErrUnknownAction,
				fmt.Sprintf("machine %q transition %s does not name an action", m.resource, tr.ID),
				map[string]any{"resource": m.resource, "transition_id": tr.ID}))
			continue
		}
		kind, declared := kinds[tr.Action]
		if !declared {
			errs = apperrors.Join(errs, cloneRejection(ErrUnknownAction,
				fmt.Sprintf("machine %q transition %s references unknown action %q", m.resource, tr.ID, tr.Action),
				map[string]any{"resource": m.resource, "transition_id": tr.ID, "action": tr.Action}))
			continue
		}
		if kind != ActionUpdate {
			errs = apperrors.Join(errs, cloneRejection(ErrUnknownAction,
				fmt.Sprintf("machine %q transition %s action %q is a %s action; transitions require update actions", m.resource, tr.ID, tr.Action, kind),
				map[string]any{"resource": m.resource, "transition_id": tr.ID, "action": tr.Action, "kind": string(kind)}))
			continue
		}
		covered[tr.Action] = struct{}{}
	}

	for _, action := range m.actions {
		if action.Kind != ActionUpdate {
			continue
		}
		if hasWildcardTransition {
			continue
		}
		if _, ok := covered[action.Name]; !ok {
			errs = apperrors.Join(errs, cloneRejection(ErrUnreachableAction,
				fmt.Sprintf("machine %q action %q has no covering transition", m.resource, action.Name),
				map[string]any{"resource": m.resource, "action": action.Name}))
		}
	}

	return errs
}
