package changeset

import (
	"fmt"

	"github.com/goliatone/go-statemachine"
)

// Binding ties a compiled machine to a host record type through an accessor
// pair. It is the only component that stages state mutations; the machine
// underneath it stays decision-only.
type Binding[T any] struct {
	machine  *statemachine.Machine
	accessor Accessor[T]
	logger   statemachine.Logger
}

// Option customizes binding behavior.
type Option[T any] func(*Binding[T])

// WithLogger sets the binding logger.
func WithLogger[T any](logger statemachine.Logger) Option[T] {
	return func(b *Binding[T]) {
		if logger == nil {
			logger = statemachine.NewFmtLogger(nil)
		}
		b.logger = logger
	}
}

// Bind constructs a binding. The accessor's Get is required; Set may be left
// nil when the host applies staged changes itself.
func Bind[T any](machine *statemachine.Machine, accessor Accessor[T], opts ...Option[T]) (*Binding[T], error) {
	if machine == nil {
		return nil, fmt.Errorf("machine required")
	}
	if accessor.Get == nil {
		return nil, fmt.Errorf("accessor requires a state getter")
	}
	b := &Binding[T]{
		machine:  machine,
		accessor: accessor,
		logger:   statemachine.NewFmtLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b, nil
}

// Machine returns the bound machine.
func (b *Binding[T]) Machine() *statemachine.Machine {
	return b.machine
}

// TransitionState asks the machine to authorize moving the request's record
// to target and stages the state change when authorized. A rejection attaches
// to the request and nothing is staged; either way the same request comes
// back and the pipeline keeps flowing. Create requests with no target fall
// back to the machine's default initial state.
func (b *Binding[T]) TransitionState(req *Request[T], target string) *Request[T] {
	if req == nil {
		return nil
	}
	goal := statemachine.CanonicalState(target)
	if goal == "" && req.Kind.Canonical() == statemachine.ActionCreate {
		goal = b.defaultInitialState()
	}
	err := b.machine.Authorize(statemachine.TransitionRequest{
		CurrentState: b.currentState(req),
		Action:       req.Action,
		Kind:         req.Kind,
		Target:       goal,
	})
	if err != nil {
		b.logRejection(req, goal, err)
		return req.AddError(err)
	}
	return req.ForceChangeAttribute(b.machine.StateAttribute(), goal)
}

// AutoAdvance stages a move to the only state reachable from the record's
// current state via the request's action. Zero or multiple candidates attach
// the resolver's rejection instead.
func (b *Binding[T]) AutoAdvance(req *Request[T]) *Request[T] {
	if req == nil {
		return nil
	}
	target, err := b.machine.ResolveSingle(b.currentState(req), req.Action)
	if err != nil {
		b.logRejection(req, "", err)
		return req.AddError(err)
	}
	return req.ForceChangeAttribute(b.machine.StateAttribute(), target)
}

// PossibleNextStates returns every state reachable from the record's current
// state via any update action.
func (b *Binding[T]) PossibleNextStates(record T) []string {
	return b.machine.Candidates(b.accessor.Get(record), "")
}

// PossibleNextStatesFor returns every state reachable from the record's
// current state via the given action.
func (b *Binding[T]) PossibleNextStatesFor(record T, action string) []string {
	return b.machine.Candidates(b.accessor.Get(record), action)
}

// Apply copies the staged state change onto the proposed record through the
// accessor's setter. A dirty request returns its accumulated rejections with
// nothing applied.
func (b *Binding[T]) Apply(req *Request[T]) (T, error) {
	if req == nil {
		var zero T
		return zero, fmt.Errorf("request required")
	}
	if err := req.Err(); err != nil {
		return req.Data, err
	}
	state, ok := req.Change(b.machine.StateAttribute())
	if !ok {
		return req.Data, nil
	}
	if b.accessor.Set == nil {
		return req.Data, fmt.Errorf("accessor requires a state setter to apply changes")
	}
	return b.accessor.Set(req.Data, state), nil
}

// Change is one step of a host action pipeline over a request.
type Change[T any] func(*Request[T]) *Request[T]

// Pipeline composes steps left to right, skipping nil steps.
func Pipeline[T any](steps ...Change[T]) Change[T] {
	return func(req *Request[T]) *Request[T] {
		for _, step := range steps {
			if step == nil {
				continue
			}
			req = step(req)
		}
		return req
	}
}

// TransitionTo returns a pipeline step staging a transition to a fixed target.
func (b *Binding[T]) TransitionTo(target string) Change[T] {
	return func(req *Request[T]) *Request[T] {
		return b.TransitionState(req, target)
	}
}

// Advance returns a pipeline step that auto-advances through the resolver.
func (b *Binding[T]) Advance() Change[T] {
	return func(req *Request[T]) *Request[T] {
		return b.AutoAdvance(req)
	}
}

// currentState reads the persisted record's state. Create requests have no
// persisted record, so their current state is empty.
func (b *Binding[T]) currentState(req *Request[T]) string {
	if req.Kind.Canonical() == statemachine.ActionCreate {
		return ""
	}
	return b.accessor.Get(req.Current)
}

// defaultInitialState resolves the create-path fallback: the declared default
// when set, the sole initial state otherwise.
func (b *Binding[T]) defaultInitialState() string {
	if d := b.machine.DefaultInitialState(); d != "" {
		return d
	}
	if initial := b.machine.InitialStates(); len(initial) == 1 {
		return initial[0]
	}
	return ""
}

func (b *Binding[T]) logRejection(req *Request[T], target string, err error) {
	logger := b.logger
	if logger == nil {
		logger = statemachine.NewFmtLogger(nil)
	}
	fields := map[string]any{
		"resource": b.machine.Resource(),
		"action":   req.Action,
		"code":     statemachine.ErrorCode(err),
	}
	if target != "" {
		fields["target"] = target
	}
	if fl, ok := logger.(statemachine.FieldsLogger); ok {
		logger = fl.WithFields(fields)
	}
	logger.Debug("transition rejected: %v", err)
}
