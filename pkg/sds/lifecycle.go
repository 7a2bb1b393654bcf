package sds

import "fmt"

// TransitionRule defines an allowed document status transition.
type TransitionRule struct {
	From DocumentStatus
	To   DocumentStatus
}

// DefaultTransitions defines the allowed document status transitions.
// Approved and rejected documents re-enter draft only through creation of a
// new version, never by a direct transition. Submission is permitted from any
// non-archived status; the single-pending-review guard in the review workflow
// is what prevents duplicate concurrent reviews.
var DefaultTransitions = []TransitionRule{
	{From: StatusDraft, To: StatusUnderReview},
	{From: StatusApproved, To: StatusUnderReview},
	{From: StatusRejected, To: StatusUnderReview},
	{From: StatusUnderReview, To: StatusApproved},
	{From: StatusUnderReview, To: StatusRejected},
	{From: StatusDraft, To: StatusArchived},
	{From: StatusUnderReview, To: StatusArchived},
	{From: StatusApproved, To: StatusArchived},
	{From: StatusRejected, To: StatusArchived},
}

// LifecycleMachine validates document status transitions.
type LifecycleMachine struct {
	transitions []TransitionRule
}

// NewLifecycleMachine creates a machine with the default rules.
func NewLifecycleMachine() *LifecycleMachine {
	return &LifecycleMachine{transitions: DefaultTransitions}
}

// ValidateTransition checks if a transition from->to is allowed.
// Returns nil if allowed, a *StateError if not. Same-state is a no-op.
func (m *LifecycleMachine) ValidateTransition(from, to DocumentStatus) error {
	if from == to {
		return nil
	}
	for _, t := range m.transitions {
		if t.From == from && t.To == to {
			return nil
		}
	}
	return &StateError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("no transition defined from %s to %s", from, to),
	}
}

// AllowedTransitions returns all valid target statuses from the given status.
func (m *LifecycleMachine) AllowedTransitions(from DocumentStatus) []DocumentStatus {
	var allowed []DocumentStatus
	for _, t := range m.transitions {
		if t.From == from {
			allowed = append(allowed, t.To)
		}
	}
	return allowed
}
