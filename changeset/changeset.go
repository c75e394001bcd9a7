// Package changeset is the host-side integration surface: it carries a
// proposed record mutation through a state-machine binding without the
// machine ever learning the host's record representation. Hosts hand the
// binding an accessor pair over their record type; rejections accumulate on
// the request instead of aborting the host's control flow.
package changeset

import (
	apperrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-statemachine"
)

// Accessor reads and writes the tracked state attribute on an opaque record
// type. Get is required by every binding operation; Set is only required when
// the host applies forced changes through Apply.
type Accessor[T any] struct {
	Get func(record T) string
	Set func(record T, state string) T
}

// Request is one proposed record mutation moving through a host action
// pipeline. Data is the record as it would be persisted, Current the record
// as persisted now (zero for create actions). Rejections attach through
// AddError and never halt the pipeline; forced attribute values collect
// separately from Data so the host controls when they land.
type Request[T any] struct {
	Resource string
	Action   string
	Kind     statemachine.ActionKind
	Data     T
	Current  T

	errs   []error
	forced map[string]string
}

// New builds a request. Pass the zero value as current for create actions.
func New[T any](resource, action string, kind statemachine.ActionKind, data, current T) *Request[T] {
	return &Request[T]{
		Resource: resource,
		Action:   action,
		Kind:     kind,
		Data:     data,
		Current:  current,
	}
}

// AddError attaches a rejection to the request. Nil errors are ignored.
func (r *Request[T]) AddError(err error) *Request[T] {
	if err != nil {
		r.errs = append(r.errs, err)
	}
	return r
}

// Errors returns the accumulated rejections in arrival order.
func (r *Request[T]) Errors() []error {
	if len(r.errs) == 0 {
		return nil
	}
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

// Err joins the accumulated rejections into one error, nil when the request
// is clean.
func (r *Request[T]) Err() error {
	return apperrors.Join(r.errs...)
}

// Valid reports whether no rejection has been attached.
func (r *Request[T]) Valid() bool {
	return len(r.errs) == 0
}

// ForceChangeAttribute stages an attribute value to be applied regardless of
// what Data proposes. The binding uses it for the state attribute on the
// authorized path; hosts may stage additional attributes.
func (r *Request[T]) ForceChangeAttribute(name, value string) *Request[T] {
	if r.forced == nil {
		r.forced = make(map[string]string, 1)
	}
	r.forced[name] = value
	return r
}

// Change returns a staged attribute value.
func (r *Request[T]) Change(name string) (string, bool) {
	value, ok := r.forced[name]
	return value, ok
}

// Changes returns a copy of every staged attribute.
func (r *Request[T]) Changes() map[string]string {
	if len(r.forced) == 0 {
		return nil
	}
	out := make(map[string]string, len(r.forced))
	for k, v := range r.forced {
		out[k] = v
	}
	return out
}
