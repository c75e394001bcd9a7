package statemachine

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestVerifyPassesWellFormedMachine(t *testing.T) {
	if err := Normalize(approvalDefinition()).Verify(); err != nil {
		t.Fatalf("expected verification to pass, got %v", err)
	}
}

func TestVerifyRequiresDefaultWithMultipleInitialStates(t *testing.T) {
	err := Normalize(Definition{
		Resource:      "order",
		InitialStates: []string{"draft", "submitted"},
		Transitions: []TransitionDefinition{
			{Action: "approve", From: States("submitted"), To: States("approved")},
		},
	}).Verify()

	if ErrorCode(err) != ErrCodeMissingDefaultInitialState {
		t.Fatalf("expected missing default initial state failure, got %v", err)
	}
	var ge *goerrors.Error
	if !errors.As(err, &ge) {
		t.Fatalf("expected structured failure, got %v", err)
	}
	got, ok := ge.Metadata["initial_states"].([]string)
	if !ok {
		t.Fatalf("expected initial_states metadata, got %v", ge.Metadata)
	}
	if !reflect.DeepEqual(got, []string{"draft", "submitted"}) {
		t.Fatalf("expected initial states in metadata, got %v", got)
	}
}

func TestVerifyDefaultMustBeAnInitialState(t *testing.T) {
	err := Normalize(Definition{
		Resource:            "order",
		InitialStates:       []string{"draft", "submitted"},
		DefaultInitialState: "approved",
		Transitions: []TransitionDefinition{
			{Action: "approve", From: States("submitted"), To: States("approved")},
		},
	}).Verify()

	if ErrorCode(err) != ErrCodeMissingDefaultInitialState {
		t.Fatalf("expected missing default initial state failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "not an initial state") {
		t.Fatalf("expected membership detail in %q", err.Error())
	}
}

func TestVerifySingleInitialStateNeedsNoDefault(t *testing.T) {
	if err := Normalize(approvalDefinition()).Verify(); err != nil {
		t.Fatalf("expected single initial state to verify without a default, got %v", err)
	}
}

func TestVerifyRequiresInitialStates(t *testing.T) {
	err := Normalize(Definition{Resource: "order"}).Verify()
	if ErrorCode(err) != ErrCodeInvalidDefinition {
		t.Fatalf("expected invalid definition failure, got %v", err)
	}
}

func TestVerifyFlagsUnknownTransitionAction(t *testing.T) {
	err := Normalize(Definition{
		Resource:      "ticket",
		InitialStates: []string{"pending"},
		Actions: []ActionDefinition{
			{Name: "approve"},
		},
		Transitions: []TransitionDefinition{
			{ID: "approve-pending", Action: "approve", From: States("pending"), To: States("approved")},
			{ID: "reject-pending", Action: "reject", From: States("pending"), To: States("rejected")},
		},
	}).Verify()

	if ErrorCode(err) != ErrCodeUnknownAction {
		t.Fatalf("expected unknown action failure, got %v", err)
	}
	if !strings.Contains(err.Error(), `unknown action "reject"`) {
		t.Fatalf("expected offending action in %q", err.Error())
	}
}

func TestVerifyFlagsNonUpdateTransitionAction(t *testing.T) {
	err := Normalize(Definition{
		Resource:      "ticket",
		InitialStates: []string{"pending"},
		Actions: []ActionDefinition{
			{Name: "open", Kind: ActionCreate},
			{Name: "approve"},
		},
		Transitions: []TransitionDefinition{
			{ID: "approve-pending", Action: "approve", From: States("pending"), To: States("approved")},
			{ID: "open-pending", Action: "open", From: States("pending"), To: States("approved")},
		},
	}).Verify()

	if ErrorCode(err) != ErrCodeUnknownAction {
		t.Fatalf("expected unknown action failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "transitions require update actions") {
		t.Fatalf("expected kind detail in %q", err.Error())
	}
}

func TestVerifyFlagsUnreachableAction(t *testing.T) {
	err := Normalize(Definition{
		Resource:      "ticket",
		InitialStates: []string{"pending"},
		Actions: []ActionDefinition{
			{Name: "approve"},
			{Name: "escalate"},
		},
		Transitions: []TransitionDefinition{
			{ID: "approve-pending", Action: "approve", From: States("pending"), To: States("approved")},
		},
	}).Verify()

	if ErrorCode(err) != ErrCodeUnreachableAction {
		t.Fatalf("expected unreachable action failure, got %v", err)
	}
	if !strings.Contains(err.Error(), `action "escalate" has no covering transition`) {
		t.Fatalf("expected offending action in %q", err.Error())
	}
}

func TestVerifyWildcardTransitionCoversEveryUpdateAction(t *testing.T) {
	err := Normalize(Definition{
		Resource:      "ticket",
		InitialStates: []string{"pending"},
		Actions: []ActionDefinition{
			{Name: "approve"},
			{Name: "escalate"},
			{Name: "purge", Kind: ActionDestroy},
		},
		Transitions: []TransitionDefinition{
			{ID: "any-advance", Action: "*", From: States("pending"), To: States("approved", "escalated")},
		},
	}).Verify()

	if err != nil {
		t.Fatalf("expected wildcard transition to cover every update action, got %v", err)
	}
}

func TestVerifyNonUpdateActionsNeedNoCoverage(t *testing.T) {
	err := Normalize(Definition{
		Resource:      "ticket",
		InitialStates: []string{"pending"},
		Actions: []ActionDefinition{
			{Name: "open", Kind: ActionCreate},
			{Name: "purge", Kind: ActionDestroy},
			{Name: "approve"},
		},
		Transitions: []TransitionDefinition{
			{ID: "approve-pending", Action: "approve", From: States("pending"), To: States("approved")},
		},
	}).Verify()

	if err != nil {
		t.Fatalf("expected create/destroy actions to verify without coverage, got %v", err)
	}
}

func TestVerifyReportsEveryFailure(t *testing.T) {
	err := Normalize(Definition{
		Resource:      "order",
		InitialStates: []string{"draft", "imported"},
		Actions: []ActionDefinition{
			{Name: "approve"},
			{Name: "escalate"},
		},
		Transitions: []TransitionDefinition{
			{ID: "approve-draft", Action: "approve", From: States("draft"), To: States("approved")},
			{ID: "bogus", Action: "reject", From: States("draft"), To: States("rejected")},
		},
	}).Verify()

	if err == nil {
		t.Fatalf("expected aggregated verification failures")
	}
	text := err.Error()
	for _, want := range []string{
		"must set a default initial state",
		`unknown action "reject"`,
		`action "escalate" has no covering transition`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in aggregated failure %q", want, text)
		}
	}
}
