package statemachine

import (
	stderrors "errors"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

// Runtime rejection codes. Rejections describe data, never abort control flow.
const (
	ErrCodeInvalidInitialState   = "FSM_INVALID_INITIAL_STATE"
	ErrCodeNoMatchingTransition  = "FSM_NO_MATCHING_TRANSITION"
	ErrCodeDestroyNotSupported   = "FSM_DESTROY_NOT_SUPPORTED"
	ErrCodeAmbiguousTransition   = "FSM_AMBIGUOUS_TRANSITION"
	ErrCodeNoTransitionAvailable = "FSM_NO_TRANSITION_AVAILABLE"
)

// Build-time failure codes. These abort configuration loading.
const (
	ErrCodeMissingDefaultInitialState = "FSM_MISSING_DEFAULT_INITIAL_STATE"
	ErrCodeUnreachableAction          = "FSM_UNREACHABLE_ACTION"
	ErrCodeUnknownAction              = "FSM_UNKNOWN_ACTION"
	ErrCodeInvalidDefinition          = "FSM_INVALID_DEFINITION"
)

var (
	ErrInvalidInitialState = apperrors.New("invalid initial state", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeInvalidInitialState)
	ErrNoMatchingTransition = apperrors.New("no matching transition", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeNoMatchingTransition)
	ErrDestroyNotSupported = apperrors.New("state transitions are not supported on destroy actions", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeDestroyNotSupported)
	ErrAmbiguousTransition = apperrors.New("multiple next states available", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeAmbiguousTransition)
	ErrNoTransitionAvailable = apperrors.New("no next state available", apperrors.CategoryBadInput).
					WithTextCode(ErrCodeNoTransitionAvailable)

	ErrMissingDefaultInitialState = apperrors.New("default initial state required", apperrors.CategoryValidation).
					WithTextCode(ErrCodeMissingDefaultInitialState)
	ErrUnreachableAction = apperrors.New("action has no covering transition", apperrors.CategoryValidation).
				WithTextCode(ErrCodeUnreachableAction)
	ErrUnknownAction = apperrors.New("transition references unknown action", apperrors.CategoryValidation).
				WithTextCode(ErrCodeUnknownAction)
	ErrInvalidDefinition = apperrors.New("invalid machine definition", apperrors.CategoryValidation).
				WithTextCode(ErrCodeInvalidDefinition)
)

func cloneRejection(base *apperrors.Error, message string, metadata map[string]any) *apperrors.Error {
	if base == nil {
		base = ErrNoMatchingTransition
	}
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// ErrorCode extracts the machine-readable code from a rejection or build
// failure; empty for foreign errors.
func ErrorCode(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// IsRejection reports whether err is one of the runtime rejection codes, as
// opposed to a build-time failure or a foreign error.
func IsRejection(err error) bool {
	switch ErrorCode(err) {
	case ErrCodeInvalidInitialState, ErrCodeNoMatchingTransition, ErrCodeDestroyNotSupported,
		ErrCodeAmbiguousTransition, ErrCodeNoTransitionAvailable:
		return true
	}
	return false
}
