package sds

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solaius/sds-registry/pkg/audit"
)

func newTestWorkflow(t *testing.T) (*ReviewWorkflow, *VersionManager, *DocumentStore, *memRecorder) {
	t.Helper()
	store := newTestStore(t)
	recorder := &memRecorder{}
	manager := NewVersionManager(store, recorder, nil)
	workflow := NewReviewWorkflow(store, recorder, nil, nil)
	return workflow, manager, store, recorder
}

func TestReviewWorkflow_SubmitForReview(t *testing.T) {
	ctx := context.Background()
	workflow, manager, store, recorder := newTestWorkflow(t)

	doc, err := manager.CreateDocument(ctx, "acme", "SDS-001", "alice", nil)
	require.NoError(t, err)

	review, err := workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "bob", SubmitOptions{
		DiffSummary:     "initial draft",
		ChangedSections: []int{1, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, string(ReviewPending), review.Status)
	assert.Equal(t, "bob", review.ReviewerID)
	assert.Equal(t, "initial draft", review.DiffSummary)
	assert.Equal(t, JSONIntSlice{1, 3}, review.ChangedSections)
	assert.Nil(t, review.CompletedAt)

	// Document moved to under_review in the same operation.
	got, err := store.GetDocument("acme", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusUnderReview), got.Status)

	// A second submission is blocked while a review is pending.
	_, err = workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "carol", SubmitOptions{})
	var se *StateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, CodeReviewPending, se.Code)

	last := recorder.facts[len(recorder.facts)-1]
	assert.Equal(t, audit.ActionSubmit, last.Action)
	assert.Equal(t, audit.EntityReview, last.EntityType)
}

func TestReviewWorkflow_SubmitForReview_Errors(t *testing.T) {
	ctx := context.Background()
	workflow, manager, store, _ := newTestWorkflow(t)

	doc, err := manager.CreateDocument(ctx, "acme", "SDS-002", "alice", nil)
	require.NoError(t, err)

	var ve *ValidationError
	_, err = workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "", SubmitOptions{})
	require.True(t, errors.As(err, &ve))

	_, err = workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "bob", SubmitOptions{ChangedSections: []int{0}})
	require.True(t, errors.As(err, &ve))

	var nf *NotFoundError
	_, err = workflow.SubmitForReview(ctx, "acme", "no-such-doc", "alice", "bob", SubmitOptions{})
	require.True(t, errors.As(err, &nf))

	// Archived documents cannot be submitted.
	require.NoError(t, store.UpdateDocument(doc.ID, map[string]any{"status": string(StatusArchived)}))
	var se *StateError
	_, err = workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "bob", SubmitOptions{})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, CodeInvalidTransition, se.Code)
}

func TestReviewWorkflow_DecideReview_Approved(t *testing.T) {
	ctx := context.Background()
	workflow, manager, store, recorder := newTestWorkflow(t)
	editor := NewSectionEditor(store, nil)

	doc, err := manager.CreateDocument(ctx, "acme", "SDS-003", "alice", nil)
	require.NoError(t, err)
	_, err = editor.UpdateSection(ctx, "acme", doc.ID, 2, "hazard text", "", "alice")
	require.NoError(t, err)

	review, err := workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "bob", SubmitOptions{})
	require.NoError(t, err)

	decided, err := workflow.DecideReview(ctx, "acme", review.ID, ReviewApproved, "looks good", "", "bob")
	require.NoError(t, err)
	assert.Equal(t, string(ReviewApproved), decided.Status)
	assert.Equal(t, "looks good", decided.Comments)
	require.NotNil(t, decided.CompletedAt)

	got, err := store.GetDocument("acme", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusApproved), got.Status)
	assert.Equal(t, "bob", got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)

	// Approval clears every section's change marker.
	sections, err := store.GetSections(doc.ID)
	require.NoError(t, err)
	for _, s := range sections {
		assert.False(t, s.HasChanges, "section %d", s.Number)
	}

	last := recorder.facts[len(recorder.facts)-1]
	assert.Equal(t, audit.ActionApprove, last.Action)
}

func TestReviewWorkflow_DecideReview_Rejected(t *testing.T) {
	ctx := context.Background()
	workflow, manager, store, recorder := newTestWorkflow(t)
	editor := NewSectionEditor(store, nil)

	doc, err := manager.CreateDocument(ctx, "acme", "SDS-004", "alice", nil)
	require.NoError(t, err)
	_, err = editor.UpdateSection(ctx, "acme", doc.ID, 5, "fire measures", "", "alice")
	require.NoError(t, err)

	review, err := workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "bob", SubmitOptions{})
	require.NoError(t, err)

	_, err = workflow.DecideReview(ctx, "acme", review.ID, ReviewRejected, "incomplete", "", "bob")
	require.NoError(t, err)

	got, err := store.GetDocument("acme", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusRejected), got.Status)
	assert.Empty(t, got.ApprovedBy)
	assert.Nil(t, got.ApprovedAt)

	// Rejection keeps the change markers so the author can see what was
	// under review.
	section, err := store.GetSection(doc.ID, 5)
	require.NoError(t, err)
	assert.True(t, section.HasChanges)

	last := recorder.facts[len(recorder.facts)-1]
	assert.Equal(t, audit.ActionReject, last.Action)

	// A rejected document can be resubmitted.
	_, err = workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "carol", SubmitOptions{})
	require.NoError(t, err)
}

func TestReviewWorkflow_DecideReview_ChangesRequested(t *testing.T) {
	ctx := context.Background()
	workflow, manager, store, recorder := newTestWorkflow(t)

	doc, err := manager.CreateDocument(ctx, "acme", "SDS-005", "alice", nil)
	require.NoError(t, err)

	review, err := workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "bob", SubmitOptions{})
	require.NoError(t, err)

	decided, err := workflow.DecideReview(ctx, "acme", review.ID, ReviewChangesRequested, "", "expand section 8", "bob")
	require.NoError(t, err)
	assert.Equal(t, string(ReviewChangesRequested), decided.Status)
	assert.Equal(t, "expand section 8", decided.ChangeRequest)
	require.NotNil(t, decided.CompletedAt)

	// The document status is untouched.
	got, err := store.GetDocument("acme", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusUnderReview), got.Status)

	// With no pending review left, the author can resubmit.
	_, err = workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "bob", SubmitOptions{})
	require.NoError(t, err)

	var actions []string
	for _, f := range recorder.facts {
		actions = append(actions, f.Action)
	}
	assert.Contains(t, actions, audit.ActionRequestChanges)
}

func TestReviewWorkflow_DecideReview_Guards(t *testing.T) {
	ctx := context.Background()
	workflow, manager, _, _ := newTestWorkflow(t)

	doc, err := manager.CreateDocument(ctx, "acme", "SDS-006", "alice", nil)
	require.NoError(t, err)
	review, err := workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "bob", SubmitOptions{})
	require.NoError(t, err)

	// Only terminal dispositions are accepted.
	var ve *ValidationError
	_, err = workflow.DecideReview(ctx, "acme", review.ID, ReviewPending, "", "", "bob")
	require.True(t, errors.As(err, &ve))
	_, err = workflow.DecideReview(ctx, "acme", review.ID, "maybe", "", "", "bob")
	require.True(t, errors.As(err, &ve))

	// Only the assigned reviewer may decide.
	var se *StateError
	_, err = workflow.DecideReview(ctx, "acme", review.ID, ReviewApproved, "", "", "mallory")
	require.True(t, errors.As(err, &se))
	assert.Equal(t, CodeReviewNotAssigned, se.Code)

	// Reviews from other tenants are invisible.
	var nf *NotFoundError
	_, err = workflow.DecideReview(ctx, "globex", review.ID, ReviewApproved, "", "", "bob")
	require.True(t, errors.As(err, &nf))

	_, err = workflow.DecideReview(ctx, "acme", review.ID, ReviewApproved, "", "", "bob")
	require.NoError(t, err)

	// A decided review cannot be decided again.
	_, err = workflow.DecideReview(ctx, "acme", review.ID, ReviewRejected, "", "", "bob")
	require.True(t, errors.As(err, &se))
	assert.Equal(t, CodeReviewDecided, se.Code)
}

func TestReviewWorkflow_PendingAndList(t *testing.T) {
	ctx := context.Background()
	workflow, manager, _, _ := newTestWorkflow(t)

	doc, err := manager.CreateDocument(ctx, "acme", "SDS-007", "alice", nil)
	require.NoError(t, err)

	var nf *NotFoundError
	_, err = workflow.PendingReview(ctx, "acme", doc.ID)
	require.True(t, errors.As(err, &nf))

	review, err := workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "bob", SubmitOptions{})
	require.NoError(t, err)

	pending, err := workflow.PendingReview(ctx, "acme", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, review.ID, pending.ID)

	_, err = workflow.DecideReview(ctx, "acme", review.ID, ReviewChangesRequested, "", "tighten section 2", "bob")
	require.NoError(t, err)
	_, err = workflow.SubmitForReview(ctx, "acme", doc.ID, "alice", "carol", SubmitOptions{})
	require.NoError(t, err)

	all, err := workflow.ListReviews(ctx, "acme", doc.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pendingOnly, err := workflow.ListReviews(ctx, "acme", doc.ID, ReviewPending)
	require.NoError(t, err)
	require.Len(t, pendingOnly, 1)
	assert.Equal(t, "carol", pendingOnly[0].ReviewerID)
}
