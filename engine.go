package statemachine

import (
	"fmt"
	"time"
)

// Authorize decides whether the requested state change is legal against this
// machine. A nil return authorizes the caller to force the state attribute to
// the target; a non-nil return is a structured rejection and nothing may be
// mutated. The engine itself never mutates the record.
func (m *Machine) Authorize(req TransitionRequest) error {
	start := time.Now()
	err := m.decide(req)
	m.record(normalizeAction(req.Action), time.Since(start), err)
	return err
}

func (m *Machine) decide(req TransitionRequest) error {
	current := normalizeState(req.CurrentState)
	action := normalizeAction(req.Action)
	target := normalizeState(req.Target)

	switch normalizeActionKind(req.Kind) {
	case ActionDestroy:
		return cloneRejection(ErrDestroyNotSupported, "", map[string]any{
			"resource": m.resource,
			"action":   action,
		})
	case ActionCreate:
		if _, ok := m.initialSet[target]; ok {
			return nil
		}
		return cloneRejection(ErrInvalidInitialState,
			fmt.Sprintf("cannot create %s in state %q: not an initial state", m.resource, target),
			map[string]any{
				"resource":       m.resource,
				"action":         action,
				"target":         target,
				"initial_states": copySlice(m.initialStates),
			})
	}

	// Update path. An unknown target can never match, but it gets its own
	// diagnostic so operators can tell a missing transition from a missing
	// extra_states entry.
	if _, known := m.allSet[target]; !known {
		logger := withLoggerFields(m.logger, map[string]any{
			"resource":      m.resource,
			"current_state": current,
			"action":        action,
			"target":        target,
		})
		logger.Warn("attempted transition to unknown state %q: declare a transition targeting it or list it in extra_states", target)
		return m.rejectNoMatch(current, action, target)
	}

	for _, tr := range m.transitions {
		if tr.Action != Wildcard && tr.Action != action {
			continue
		}
		if !containsState(tr.From, current) {
			continue
		}
		if containsState(tr.To, target) {
			return nil
		}
	}
	return m.rejectNoMatch(current, action, target)
}

func (m *Machine) rejectNoMatch(current, action, target string) error {
	return cloneRejection(ErrNoMatchingTransition,
		fmt.Sprintf("no transition from %q to %q for action %q", current, target, action),
		map[string]any{
			"resource":      m.resource,
			"action":        action,
			"current_state": current,
			"target":        target,
		})
}

func (m *Machine) record(action string, elapsed time.Duration, err error) {
	if m.recorder == nil {
		return
	}
	m.recorder.RecordDuration(m.resource, action, elapsed)
	if err != nil {
		m.recorder.RecordRejected(m.resource, action, ErrorCode(err))
		return
	}
	m.recorder.RecordAuthorized(m.resource, action)
}
