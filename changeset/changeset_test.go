package changeset

import (
	"fmt"
	"testing"

	"github.com/goliatone/go-statemachine"
)

func TestRequestAccumulatesErrors(t *testing.T) {
	req := New("document", "submit", statemachine.ActionUpdate, document{ID: "doc-1"}, document{})

	if !req.Valid() {
		t.Fatalf("expected fresh request to be valid")
	}
	if req.Err() != nil {
		t.Fatalf("expected no joined error on fresh request")
	}

	req.AddError(fmt.Errorf("first"))
	req.AddError(nil)
	req.AddError(fmt.Errorf("second"))

	if req.Valid() {
		t.Fatalf("expected request with errors to be invalid")
	}
	errs := req.Errors()
	if len(errs) != 2 {
		t.Fatalf("expected two accumulated errors, got %d", len(errs))
	}
	if errs[0].Error() != "first" || errs[1].Error() != "second" {
		t.Fatalf("expected arrival order, got %v", errs)
	}
	if req.Err() == nil {
		t.Fatalf("expected joined error")
	}
}

func TestRequestErrorsReturnsCopy(t *testing.T) {
	req := New("document", "submit", statemachine.ActionUpdate, document{}, document{})
	req.AddError(fmt.Errorf("first"))

	errs := req.Errors()
	errs[0] = fmt.Errorf("mutated")

	if req.Errors()[0].Error() != "first" {
		t.Fatalf("expected accumulated errors to survive caller mutation")
	}
}

func TestRequestStagesForcedChanges(t *testing.T) {
	req := New("document", "submit", statemachine.ActionUpdate, document{}, document{})

	if _, ok := req.Change("status"); ok {
		t.Fatalf("expected no staged change on fresh request")
	}
	req.ForceChangeAttribute("status", "submitted")
	req.ForceChangeAttribute("reviewed_by", "editor")

	if value, ok := req.Change("status"); !ok || value != "submitted" {
		t.Fatalf("expected staged status, got %q %v", value, ok)
	}
	changes := req.Changes()
	if len(changes) != 2 {
		t.Fatalf("expected two staged changes, got %v", changes)
	}
	changes["status"] = "mutated"
	if value, _ := req.Change("status"); value != "submitted" {
		t.Fatalf("expected staged changes to survive caller mutation, got %q", value)
	}
}
