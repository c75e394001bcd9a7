// Package export renders compiled machines as Mermaid documents for review
// and documentation tooling.
package export

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-statemachine"
)

// Mermaid converts a compiled machine to a stateDiagram-v2 document.
func Mermaid(m *statemachine.Machine) (string, error) {
	return MermaidWithOptions(m, DefaultOptions())
}

// MermaidWithOptions renders the diagram with custom options.
func MermaidWithOptions(m *statemachine.Machine, opts Options) (string, error) {
	if m == nil {
		return "", errors.New("machine is required", errors.CategoryBadInput)
	}

	var sb strings.Builder

	if opts.Fence {
		sb.WriteString("```mermaid\n")
	}
	sb.WriteString("stateDiagram-v2\n")
	if opts.Direction != "" {
		sb.WriteString(fmt.Sprintf("    direction %s\n", opts.Direction))
	}

	// Declarations for states whose names are not valid Mermaid identifiers.
	for _, state := range m.AllStates() {
		if id := stateID(state); id != state {
			sb.WriteString(fmt.Sprintf("    %s: %s\n", id, state))
		}
	}

	for _, state := range m.InitialStates() {
		sb.WriteString(fmt.Sprintf("    [*] --> %s\n", stateID(state)))
	}

	hasOutgoing := make(map[string]bool)
	seen := make(map[string]bool)
	for _, transition := range m.Transitions() {
		label := ""
		if opts.ShowActions && transition.Action != "" {
			label = ": " + transition.Action
		}
		for _, from := range transition.From {
			hasOutgoing[from] = true
			for _, to := range transition.To {
				line := fmt.Sprintf("    %s --> %s%s\n", stateID(from), stateID(to), label)
				if seen[line] {
					continue
				}
				seen[line] = true
				sb.WriteString(line)
			}
		}
	}

	// States with no way out flow to the end marker.
	for _, state := range m.AllStates() {
		if !hasOutgoing[state] {
			sb.WriteString(fmt.Sprintf("    %s --> [*]\n", stateID(state)))
		}
	}

	highlighted := make(map[string]bool)
	for _, state := range opts.Highlight {
		highlighted[statemachine.CanonicalState(state)] = true
	}
	members := make(map[string]bool)
	for _, state := range m.AllStates() {
		members[state] = true
		if highlighted[state] {
			sb.WriteString(fmt.Sprintf("    class %s highlighted\n", stateID(state)))
		}
	}
	// Deprecated states only show up when an endpoint names them explicitly.
	for _, state := range m.DeprecatedStates() {
		if members[state] {
			sb.WriteString(fmt.Sprintf("    class %s deprecated\n", stateID(state)))
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")
	sb.WriteString("    classDef deprecated fill:#eceff1,stroke:#546e7a,stroke-dasharray: 5 5\n")

	if opts.Fence {
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}

// stateID maps a state name onto Mermaid's identifier alphabet.
func stateID(state string) string {
	var b strings.Builder
	for _, r := range state {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
