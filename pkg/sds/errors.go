package sds

import "fmt"

// NotFoundError reports a document, section, or review that does not exist
// or is not visible to the caller's tenant. Cross-tenant references are
// indistinguishable from absent ones.
type NotFoundError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// StateError is a structured error for operations the lifecycle does not
// permit, with a machine-readable code.
type StateError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *StateError) Error() string {
	return e.Message
}

// State error codes.
const (
	CodeInvalidTransition  = "DOCUMENT_INVALID_TRANSITION"
	CodeReviewPending      = "REVIEW_ALREADY_PENDING"
	CodeReviewDecided      = "REVIEW_ALREADY_DECIDED"
	CodeReviewNotAssigned  = "REVIEW_NOT_ASSIGNED"
	CodeVersionChainCyclic = "VERSION_CHAIN_CYCLIC"
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
