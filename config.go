package statemachine

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefinitionSet is a configuration document carrying one or more machine
// definitions.
type DefinitionSet struct {
	Version  int          `json:"version,omitempty" yaml:"version,omitempty"`
	Machines []Definition `json:"machines" yaml:"machines"`
}

// Validate performs structural validation over every member definition.
func (s DefinitionSet) Validate() error {
	for idx, def := range s.Machines {
		if err := def.Validate(); err != nil {
			return fmt.Errorf("machine[%d]: %w", idx, err)
		}
	}
	return nil
}

// ParseDefinition parses a single machine definition from YAML or JSON.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		// yaml can handle JSON too, so a single attempt is fine
		return def, err
	}
	return def, def.Validate()
}

// ParseDefinitionSet parses a multi-machine configuration document from YAML
// or JSON.
func ParseDefinitionSet(data []byte) (DefinitionSet, error) {
	var set DefinitionSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return set, err
	}
	return set, set.Validate()
}

// Validate ensures the definition is well formed before normalization: names
// present and non-wildcard where wildcards carry no meaning, no duplicate
// declarations. Semantic consistency (default initial state, action coverage)
// is Verify's job after normalization.
func (d Definition) Validate() error {
	resource := strings.TrimSpace(d.Resource)
	if resource == "" {
		return fmt.Errorf("resource is required")
	}
	if len(d.InitialStates) == 0 {
		return fmt.Errorf("machine %s requires at least one initial state", resource)
	}

	if err := validateStateList(resource, "initial state", d.InitialStates); err != nil {
		return err
	}
	if err := validateStateList(resource, "deprecated state", d.DeprecatedStates); err != nil {
		return err
	}
	if err := validateStateList(resource, "extra state", d.ExtraStates); err != nil {
		return err
	}
	if normalizeState(d.DefaultInitialState) == Wildcard {
		return fmt.Errorf("machine %s default initial state cannot be the wildcard", resource)
	}

	actionSet := make(map[string]struct{}, len(d.Actions))
	for _, action := range d.Actions {
		name := normalizeAction(action.Name)
		if name == "" {
			return fmt.Errorf("machine %s has an action without a name", resource)
		}
		if name == Wildcard {
			return fmt.Errorf("machine %s cannot declare an action named %q", resource, Wildcard)
		}
		if _, exists := actionSet[name]; exists {
			return fmt.Errorf("machine %s duplicate action %s", resource, action.Name)
		}
		actionSet[name] = struct{}{}
		if kind := normalizeActionKind(action.Kind); kind != "" && !isValidActionKind(kind) {
			return fmt.Errorf("machine %s action %s has invalid kind %q (%s|%s|%s)",
				resource, action.Name, action.Kind, ActionCreate, ActionUpdate, ActionDestroy)
		}
	}

	idSet := make(map[string]struct{}, len(d.Transitions))
	for idx, tr := range d.Transitions {
		label := strings.TrimSpace(tr.ID)
		if label == "" {
			label = fmt.Sprintf("%d", idx)
		}
		if normalizeAction(tr.Action) == "" {
			return fmt.Errorf("machine %s transition %s requires an action", resource, label)
		}
		if tr.From.IsZero() {
			return fmt.Errorf("machine %s transition %s requires from states", resource, label)
		}
		if tr.To.IsZero() {
			return fmt.Errorf("machine %s transition %s requires to states", resource, label)
		}
		if tr.From.Contains(Wildcard) || tr.To.Contains(Wildcard) {
			return fmt.Errorf("machine %s transition %s cannot mix the wildcard into a state list", resource, label)
		}
		if err := validateStateList(resource, "transition "+label+" from state", tr.From.Names()); err != nil {
			return err
		}
		if err := validateStateList(resource, "transition "+label+" to state", tr.To.Names()); err != nil {
			return err
		}
		if id := strings.TrimSpace(tr.ID); id != "" {
			if _, exists := idSet[id]; exists {
				return fmt.Errorf("machine %s duplicate transition id %s", resource, id)
			}
			idSet[id] = struct{}{}
		}
	}

	return nil
}

func validateStateList(resource, kind string, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		n := normalizeState(name)
		if n == "" {
			return fmt.Errorf("machine %s has an empty %s name", resource, kind)
		}
		if n == Wildcard {
			return fmt.Errorf("machine %s %s cannot be the wildcard", resource, kind)
		}
		if _, exists := seen[n]; exists {
			return fmt.Errorf("machine %s duplicate %s %s", resource, kind, name)
		}
		seen[n] = struct{}{}
	}
	return nil
}
