package sds

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solaius/sds-registry/pkg/audit"
)

// memRecorder captures audit facts in memory.
type memRecorder struct {
	facts []audit.Fact
}

func (r *memRecorder) Record(_ context.Context, fact audit.Fact) error {
	r.facts = append(r.facts, fact)
	return nil
}

func newTestVersionManager(t *testing.T) (*VersionManager, *DocumentStore, *memRecorder) {
	t.Helper()
	store := newTestStore(t)
	recorder := &memRecorder{}
	return NewVersionManager(store, recorder, nil), store, recorder
}

func TestVersionManager_CreateDocument(t *testing.T) {
	ctx := context.Background()
	manager, store, recorder := newTestVersionManager(t)

	product := "Acetone"
	doc, err := manager.CreateDocument(ctx, "acme", "SDS-001", "alice", &DocumentMetadata{
		ProductName: &product,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, string(StatusDraft), doc.Status)
	assert.True(t, doc.IsLatest)
	assert.Nil(t, doc.PreviousVersionID)
	assert.Equal(t, "alice", doc.CreatedBy)
	assert.Equal(t, "Acetone", doc.ProductName)

	// All 16 sections exist with their canonical titles and empty content.
	sections, err := store.GetSections(doc.ID)
	require.NoError(t, err)
	require.Len(t, sections, SectionCount)
	for i, s := range sections {
		assert.Equal(t, i+1, s.Number)
		assert.Equal(t, SectionTitle(i+1), s.Title)
		assert.Empty(t, s.Content)
		assert.Equal(t, 1, s.Version)
		assert.False(t, s.HasChanges)
	}

	require.Len(t, recorder.facts, 1)
	assert.Equal(t, audit.ActionCreate, recorder.facts[0].Action)
	assert.Equal(t, audit.EntityDocument, recorder.facts[0].EntityType)
}

func TestVersionManager_CreateDocument_Validation(t *testing.T) {
	ctx := context.Background()
	manager, _, _ := newTestVersionManager(t)

	_, err := manager.CreateDocument(ctx, "acme", "", "alice", nil)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))

	_, err = manager.CreateDocument(ctx, "acme", "SDS-001", "alice", nil)
	require.NoError(t, err)

	// The engine itself is not idempotent: a second create with the same
	// number starts an independent chain. Uniqueness is the API boundary's
	// concern.
	dup, err := manager.CreateDocument(ctx, "acme", "SDS-001", "alice", nil)
	require.NoError(t, err)
	assert.Nil(t, dup.PreviousVersionID)

	// The same number in another tenant is likewise independent.
	_, err = manager.CreateDocument(ctx, "globex", "SDS-001", "bob", nil)
	require.NoError(t, err)
}

func TestVersionManager_CreateNewVersion(t *testing.T) {
	ctx := context.Background()
	manager, store, _ := newTestVersionManager(t)
	editor := NewSectionEditor(store, nil)

	product := "Toluene"
	v1, err := manager.CreateDocument(ctx, "acme", "SDS-002", "alice", &DocumentMetadata{ProductName: &product})
	require.NoError(t, err)

	_, err = editor.UpdateSection(ctx, "acme", v1.ID, 3, "updated composition", "", "alice")
	require.NoError(t, err)

	v2, err := manager.CreateNewVersion(ctx, "acme", v1.ID, "bob")
	require.NoError(t, err)

	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, string(StatusDraft), v2.Status)
	assert.True(t, v2.IsLatest)
	require.NotNil(t, v2.PreviousVersionID)
	assert.Equal(t, v1.ID, *v2.PreviousVersionID)
	assert.Equal(t, "Toluene", v2.ProductName)
	assert.Equal(t, "bob", v2.CreatedBy)

	// The source is no longer latest but remains readable.
	source, err := store.GetDocument("acme", v1.ID)
	require.NoError(t, err)
	assert.False(t, source.IsLatest)

	// Sections were deep-copied with content, version counter, and change
	// marker intact, under fresh IDs.
	srcSections, err := store.GetSections(v1.ID)
	require.NoError(t, err)
	newSections, err := store.GetSections(v2.ID)
	require.NoError(t, err)
	require.Len(t, newSections, SectionCount)
	for i := range newSections {
		assert.NotEqual(t, srcSections[i].ID, newSections[i].ID)
		assert.Equal(t, srcSections[i].Content, newSections[i].Content)
		assert.Equal(t, srcSections[i].Version, newSections[i].Version)
		assert.Equal(t, srcSections[i].HasChanges, newSections[i].HasChanges)
	}
	assert.Equal(t, "updated composition", newSections[2].Content)
	assert.True(t, newSections[2].HasChanges)

	// Editing the copy leaves the source untouched.
	_, err = editor.UpdateSection(ctx, "acme", v2.ID, 3, "v2 only", "", "bob")
	require.NoError(t, err)
	srcSection, err := store.GetSection(v1.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "updated composition", srcSection.Content)

	_, err = manager.CreateNewVersion(ctx, "acme", "no-such-id", "bob")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestVersionManager_VersionHistory(t *testing.T) {
	ctx := context.Background()
	manager, _, _ := newTestVersionManager(t)

	v1, err := manager.CreateDocument(ctx, "acme", "SDS-003", "alice", nil)
	require.NoError(t, err)
	v2, err := manager.CreateNewVersion(ctx, "acme", v1.ID, "alice")
	require.NoError(t, err)
	v3, err := manager.CreateNewVersion(ctx, "acme", v2.ID, "alice")
	require.NoError(t, err)

	// Walking from any version yields the chain reachable from it, oldest
	// first.
	history, err := manager.VersionHistory(ctx, "acme", v3.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{history[0].Version, history[1].Version, history[2].Version})
	assert.Equal(t, v1.ID, history[0].ID)

	history, err = manager.VersionHistory(ctx, "acme", v2.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	// Unknown starting document yields an empty history.
	history, err = manager.VersionHistory(ctx, "acme", "no-such-id")
	require.NoError(t, err)
	assert.Empty(t, history)

	// Cross-tenant walk sees nothing.
	history, err = manager.VersionHistory(ctx, "globex", v3.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestVersionManager_VersionHistory_CycleDetected(t *testing.T) {
	ctx := context.Background()
	manager, store, _ := newTestVersionManager(t)

	v1, err := manager.CreateDocument(ctx, "acme", "SDS-004", "alice", nil)
	require.NoError(t, err)
	v2, err := manager.CreateNewVersion(ctx, "acme", v1.ID, "alice")
	require.NoError(t, err)

	// Corrupt the chain so v1 points back at v2.
	require.NoError(t, store.UpdateDocument(v1.ID, map[string]any{"previous_version_id": v2.ID}))

	_, err = manager.VersionHistory(ctx, "acme", v2.ID)
	var se *StateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, CodeVersionChainCyclic, se.Code)
}

func TestVersionManager_UpdateMetadata(t *testing.T) {
	ctx := context.Background()
	manager, _, recorder := newTestVersionManager(t)

	doc, err := manager.CreateDocument(ctx, "acme", "SDS-005", "alice", nil)
	require.NoError(t, err)

	product := "Xylene"
	supplier := "ChemCo"
	updated, err := manager.UpdateMetadata(ctx, "acme", doc.ID, "bob", &DocumentMetadata{
		ProductName:  &product,
		SupplierName: &supplier,
	})
	require.NoError(t, err)
	assert.Equal(t, "Xylene", updated.ProductName)
	assert.Equal(t, "ChemCo", updated.SupplierName)
	assert.Equal(t, "bob", updated.UpdatedBy)
	require.NotNil(t, updated.UpdatedAt)

	// Nil fields are untouched, and an empty patch is a no-op.
	same, err := manager.UpdateMetadata(ctx, "acme", doc.ID, "carol", &DocumentMetadata{})
	require.NoError(t, err)
	assert.Equal(t, "Xylene", same.ProductName)
	assert.Equal(t, "bob", same.UpdatedBy)

	// create + update facts recorded.
	require.Len(t, recorder.facts, 2)
	assert.Equal(t, audit.ActionUpdate, recorder.facts[1].Action)
	assert.Equal(t, "Xylene", recorder.facts[1].NewValue["product_name"])

	_, err = manager.UpdateMetadata(ctx, "globex", doc.ID, "mallory", &DocumentMetadata{ProductName: &product})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
}
