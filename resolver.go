package statemachine

import (
	"fmt"
	"time"
)

// Candidates returns the sorted distinct set of states reachable from current
// via transitions matching the given update action. An empty action matches
// every transition. The current state is never its own candidate: staying put
// is not an advance, even when a self-transition is declared. The result is a
// pure function of the machine and its inputs; declaration order never
// influences it.
func (m *Machine) Candidates(current, action string) []string {
	current = normalizeState(current)
	action = normalizeAction(action)

	found := make(map[string]struct{})
	for _, tr := range m.transitions {
		if action != "" && tr.Action != Wildcard && tr.Action != action {
			continue
		}
		if !containsState(tr.From, current) {
			continue
		}
		for _, target := range tr.To {
			if target == current {
				continue
			}
			found[target] = struct{}{}
		}
	}
	return sortedMembers(found)
}

// ResolveSingle advances to the only state reachable from current via action.
// Zero candidates rejects with FSM_NO_TRANSITION_AVAILABLE; two or more reject
// with FSM_AMBIGUOUS_TRANSITION carrying the candidate set rather than
// silently picking one. Exactly one candidate delegates to Authorize and
// returns the chosen target.
func (m *Machine) ResolveSingle(current, action string) (string, error) {
	start := time.Now()
	current = normalizeState(current)
	action = normalizeAction(action)

	candidates := m.Candidates(current, action)
	switch len(candidates) {
	case 1:
		target := candidates[0]
		if err := m.Authorize(TransitionRequest{
			CurrentState: current,
			Action:       action,
			Kind:         ActionUpdate,
			Target:       target,
		}); err != nil {
			return "", err
		}
		return target, nil
	case 0:
		err := cloneRejection(ErrNoTransitionAvailable,
			fmt.Sprintf("no next state available from %q for action %q", current, action),
			map[string]any{
				"resource":      m.resource,
				"action":        action,
				"current_state": current,
			})
		m.record(action, time.Since(start), err)
		return "", err
	default:
		err := cloneRejection(ErrAmbiguousTransition,
			fmt.Sprintf("multiple next states available from %q for action %q", current, action),
			map[string]any{
				"resource":      m.resource,
				"action":        action,
				"current_state": current,
				"candidates":    candidates,
			})
		m.record(action, time.Since(start), err)
		return "", err
	}
}
