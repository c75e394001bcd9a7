package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-statemachine"
	"github.com/goliatone/go-statemachine/export"
)

// LintCmd compiles every machine in the given files and reports every
// failure instead of stopping at the first.
type LintCmd struct {
	Paths []string `arg:"" name:"path" help:"Definition files to check." type:"existingfile"`
}

func (c *LintCmd) Run(rc *runContext) error {
	problems := 0
	machines := 0
	for _, path := range c.Paths {
		defs, err := loadDefinitions(path)
		if err != nil {
			problems++
			fmt.Fprintf(rc.out, "%s: %v\n", path, err)
			continue
		}
		for _, def := range defs {
			machines++
			resource := strings.TrimSpace(def.Resource)
			if _, err := statemachine.Compile(def); err != nil {
				problems++
				fmt.Fprintf(rc.out, "%s: machine %s: %v\n", path, resource, err)
				continue
			}
			fmt.Fprintf(rc.out, "%s: machine %s ok\n", path, resource)
		}
	}
	rc.logger.Debug("lint checked %d machines across %d files", machines, len(c.Paths))
	if problems > 0 {
		return fmt.Errorf("lint found %d problem(s)", problems)
	}
	return nil
}

// ShowCmd prints the normalized shape of one compiled machine.
type ShowCmd struct {
	Path     string `arg:"" help:"Definition file." type:"existingfile"`
	Resource string `short:"r" help:"Machine to show when the file has several."`
}

func (c *ShowCmd) Run(rc *runContext) error {
	m, err := loadMachine(c.Path, c.Resource)
	if err != nil {
		return err
	}

	fmt.Fprintf(rc.out, "resource: %s\n", m.Resource())
	fmt.Fprintf(rc.out, "state attribute: %s\n", m.StateAttribute())
	fmt.Fprintf(rc.out, "states: %s\n", strings.Join(m.AllStates(), ", "))
	fmt.Fprintf(rc.out, "initial states: %s\n", strings.Join(m.InitialStates(), ", "))
	if def := m.DefaultInitialState(); def != "" {
		fmt.Fprintf(rc.out, "default initial state: %s\n", def)
	}
	if deprecated := m.DeprecatedStates(); len(deprecated) > 0 {
		fmt.Fprintf(rc.out, "deprecated states: %s\n", strings.Join(deprecated, ", "))
	}
	if extra := m.ExtraStates(); len(extra) > 0 {
		fmt.Fprintf(rc.out, "extra states: %s\n", strings.Join(extra, ", "))
	}

	fmt.Fprintln(rc.out, "actions:")
	for _, action := range m.Actions() {
		fmt.Fprintf(rc.out, "  %s (%s)\n", action.Name, action.Kind)
	}

	fmt.Fprintln(rc.out, "transitions:")
	for _, tr := range m.Transitions() {
		fmt.Fprintf(rc.out, "  [%s] %s: %s -> %s\n",
			tr.ID, tr.Action, strings.Join(tr.From, "|"), strings.Join(tr.To, "|"))
	}
	return nil
}

// NextCmd inspects the resolver for one record state.
type NextCmd struct {
	Path     string `arg:"" help:"Definition file." type:"existingfile"`
	State    string `required:"" help:"Current record state."`
	Action   string `help:"Limit candidates to one action."`
	Resource string `short:"r" help:"Machine to query when the file has several."`
	Resolve  bool   `help:"Resolve to the single next state instead of listing candidates."`
}

func (c *NextCmd) Run(rc *runContext) error {
	m, err := loadMachine(c.Path, c.Resource)
	if err != nil {
		return err
	}

	if c.Resolve {
		next, err := m.ResolveSingle(c.State, c.Action)
		if err != nil {
			return err
		}
		fmt.Fprintln(rc.out, next)
		return nil
	}

	candidates := m.Candidates(c.State, c.Action)
	if len(candidates) == 0 {
		fmt.Fprintln(rc.out, "no candidate next states")
		return nil
	}
	for _, state := range candidates {
		fmt.Fprintln(rc.out, state)
	}
	return nil
}

// ChartCmd renders one machine as a Mermaid document.
type ChartCmd struct {
	Path      string   `arg:"" help:"Definition file." type:"existingfile"`
	Resource  string   `short:"r" help:"Machine to render when the file has several."`
	Direction string   `enum:"TD,LR" default:"TD" help:"Diagram direction."`
	Raw       bool     `help:"Emit the diagram without a markdown fence."`
	Highlight []string `help:"States to highlight."`
}

func (c *ChartCmd) Run(rc *runContext) error {
	m, err := loadMachine(c.Path, c.Resource)
	if err != nil {
		return err
	}

	doc, err := export.MermaidWithOptions(m, export.DefaultOptions().
		WithDirection(c.Direction).
		WithFence(!c.Raw).
		WithHighlight(c.Highlight))
	if err != nil {
		return err
	}
	fmt.Fprint(rc.out, doc)
	return nil
}

// loadDefinitions reads a file holding either a multi-machine document or a
// single bare definition.
func loadDefinitions(path string) ([]statemachine.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Machines []yaml.Node `yaml:"machines"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if probe.Machines != nil {
		set, err := statemachine.ParseDefinitionSet(data)
		if err != nil {
			return nil, err
		}
		if len(set.Machines) == 0 {
			return nil, fmt.Errorf("%s declares no machines", path)
		}
		return set.Machines, nil
	}

	def, err := statemachine.ParseDefinition(data)
	if err != nil {
		return nil, err
	}
	return []statemachine.Definition{def}, nil
}

func loadMachine(path, resource string) (*statemachine.Machine, error) {
	defs, err := loadDefinitions(path)
	if err != nil {
		return nil, err
	}

	resource = strings.ToLower(strings.TrimSpace(resource))
	if resource == "" {
		if len(defs) > 1 {
			names := make([]string, 0, len(defs))
			for _, def := range defs {
				names = append(names, strings.TrimSpace(def.Resource))
			}
			return nil, fmt.Errorf("%s defines %d machines (%s), pick one with --resource",
				path, len(defs), strings.Join(names, ", "))
		}
		return statemachine.Compile(defs[0])
	}

	for _, def := range defs {
		if strings.ToLower(strings.TrimSpace(def.Resource)) == resource {
			return statemachine.Compile(def)
		}
	}
	return nil, fmt.Errorf("%s has no machine for resource %q", path, resource)
}
