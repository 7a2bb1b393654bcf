package sds

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/solaius/sds-registry/pkg/audit"
)

// ReviewWorkflow drives documents through submission and review decisions.
// A document carries at most one pending review at a time, and only the
// assigned reviewer may decide it.
type ReviewWorkflow struct {
	store    *DocumentStore
	recorder audit.Recorder
	machine  *LifecycleMachine
	logger   *slog.Logger
}

// NewReviewWorkflow creates a ReviewWorkflow.
func NewReviewWorkflow(store *DocumentStore, recorder audit.Recorder, machine *LifecycleMachine, logger *slog.Logger) *ReviewWorkflow {
	if machine == nil {
		machine = NewLifecycleMachine()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewWorkflow{store: store, recorder: recorder, machine: machine, logger: logger}
}

// SubmitOptions carries the optional submission payload.
type SubmitOptions struct {
	DiffSummary     string
	ChangedSections []int
}

// SubmitForReview moves a document into under_review and creates a pending
// review assigned to the given reviewer. Fails if the document already has a
// pending review or its status does not permit submission.
func (w *ReviewWorkflow) SubmitForReview(ctx context.Context, tenantID, documentID, submitter, reviewerID string, opts SubmitOptions) (*ReviewRecord, error) {
	if reviewerID == "" {
		return nil, &ValidationError{Field: "reviewerId", Message: "must not be empty"}
	}
	for _, n := range opts.ChangedSections {
		if !ValidSectionNumber(n) {
			return nil, &ValidationError{Field: "changedSections", Message: fmt.Sprintf("%d is outside 1..%d", n, SectionCount)}
		}
	}

	doc, err := w.store.GetDocument(tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFound("document", documentID)
	}

	pending, err := w.store.PendingReview(doc.ID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, &StateError{
			Code:    CodeReviewPending,
			Message: fmt.Sprintf("document %s already has pending review %s", doc.ID, pending.ID),
		}
	}

	if err := w.machine.ValidateTransition(DocumentStatus(doc.Status), StatusUnderReview); err != nil {
		return nil, err
	}

	review := &ReviewRecord{
		ID:              uuid.New().String(),
		DocumentID:      doc.ID,
		ReviewerID:      reviewerID,
		Status:          string(ReviewPending),
		DiffSummary:     opts.DiffSummary,
		ChangedSections: JSONIntSlice(opts.ChangedSections),
	}
	if err := w.store.SubmitReview(doc.ID, review); err != nil {
		return nil, err
	}

	w.record(ctx, audit.Fact{
		TenantID:    tenantID,
		ActorID:     submitter,
		EntityType:  audit.EntityReview,
		EntityID:    review.ID,
		Action:      audit.ActionSubmit,
		Description: fmt.Sprintf("submitted document %s for review by %s", doc.DocumentNumber, reviewerID),
		OldValue:    map[string]any{"documentStatus": doc.Status},
		NewValue:    map[string]any{"documentStatus": string(StatusUnderReview), "reviewerId": reviewerID},
	})
	return review, nil
}

// DecideReview records a terminal disposition on a pending review and
// reconciles the owning document:
//
//   - approved: the document becomes approved with approver and timestamp
//     stamped, and every section's change marker is cleared.
//   - rejected: the document becomes rejected.
//   - changes_requested: only the review is completed; the document stays
//     under review until resubmission or a new version.
//
// Only the assigned reviewer may decide, and a review is decided at most once.
func (w *ReviewWorkflow) DecideReview(ctx context.Context, tenantID, reviewID string, decision ReviewStatus, comments, changeRequest, reviewer string) (*ReviewRecord, error) {
	if !ValidDecision(decision) {
		return nil, &ValidationError{Field: "decision", Message: fmt.Sprintf("%q is not a valid decision", decision)}
	}

	review, err := w.store.GetReview(tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, notFound("review", reviewID)
	}
	if review.Status != string(ReviewPending) {
		return nil, &StateError{
			Code:    CodeReviewDecided,
			Message: fmt.Sprintf("review %s was already decided as %s", review.ID, review.Status),
		}
	}
	if reviewer != review.ReviewerID {
		return nil, &StateError{
			Code:    CodeReviewNotAssigned,
			Message: fmt.Sprintf("review %s is assigned to %s", review.ID, review.ReviewerID),
		}
	}

	doc, err := w.store.GetDocument(tenantID, review.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFound("document", review.DocumentID)
	}

	review.Status = string(decision)
	review.Comments = comments
	review.ChangeRequest = changeRequest
	review.CompletedAt = touch()

	var documentUpdates map[string]any
	clearFlags := false
	action := audit.ActionRequestChanges

	switch decision {
	case ReviewApproved:
		if err := w.machine.ValidateTransition(DocumentStatus(doc.Status), StatusApproved); err != nil {
			return nil, err
		}
		documentUpdates = map[string]any{
			"status":      string(StatusApproved),
			"approved_by": reviewer,
			"approved_at": review.CompletedAt,
			"reviewed_at": review.CompletedAt,
		}
		clearFlags = true
		action = audit.ActionApprove
	case ReviewRejected:
		if err := w.machine.ValidateTransition(DocumentStatus(doc.Status), StatusRejected); err != nil {
			return nil, err
		}
		documentUpdates = map[string]any{"status": string(StatusRejected)}
		action = audit.ActionReject
	case ReviewChangesRequested:
		// Document status is untouched; the author edits and resubmits.
	}

	if err := w.store.ApplyDecision(review, documentUpdates, clearFlags); err != nil {
		return nil, err
	}

	w.record(ctx, audit.Fact{
		TenantID:    tenantID,
		ActorID:     reviewer,
		EntityType:  audit.EntityReview,
		EntityID:    review.ID,
		Action:      action,
		Description: fmt.Sprintf("decided review of document %s as %s", doc.DocumentNumber, decision),
		OldValue:    map[string]any{"documentStatus": doc.Status, "reviewStatus": string(ReviewPending)},
		NewValue:    map[string]any{"reviewStatus": string(decision)},
	})
	return review, nil
}

// PendingReview returns the pending review of a document, or a NotFoundError
// when none exists.
func (w *ReviewWorkflow) PendingReview(ctx context.Context, tenantID, documentID string) (*ReviewRecord, error) {
	doc, err := w.store.GetDocument(tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFound("document", documentID)
	}
	review, err := w.store.PendingReview(doc.ID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, notFound("pending review for document", documentID)
	}
	return review, nil
}

// ListReviews returns the review history of a document, newest first.
func (w *ReviewWorkflow) ListReviews(ctx context.Context, tenantID, documentID string, status ReviewStatus) ([]ReviewRecord, error) {
	doc, err := w.store.GetDocument(tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFound("document", documentID)
	}
	return w.store.ListReviews(doc.ID, status)
}

func (w *ReviewWorkflow) record(ctx context.Context, fact audit.Fact) {
	if w.recorder == nil {
		return
	}
	if err := w.recorder.Record(ctx, fact); err != nil {
		w.logger.Error("failed to record audit event",
			"action", fact.Action, "entityId", fact.EntityID, "error", err)
	}
}
