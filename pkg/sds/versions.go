package sds

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/solaius/sds-registry/pkg/audit"
)

// maxVersionHops bounds the backward walk through a version chain. A chain
// longer than this is treated as corrupted.
const maxVersionHops = 1000

// VersionManager creates documents, derives new versions, and walks version
// chains. Version records are immutable once superseded; a new version always
// points back at its source through previous_version_id and the source loses
// its is_latest flag in the same transaction.
type VersionManager struct {
	store    *DocumentStore
	recorder audit.Recorder
	logger   *slog.Logger
}

// NewVersionManager creates a VersionManager.
func NewVersionManager(store *DocumentStore, recorder audit.Recorder, logger *slog.Logger) *VersionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &VersionManager{store: store, recorder: recorder, logger: logger}
}

// CreateDocument creates a version-1 document in draft status, together with
// all 16 sections carrying their canonical titles and empty content.
//
// Not idempotent: two calls with the same document number create two
// independent chains. Callers that want unique numbers check for an existing
// latest document first, as the HTTP layer does.
func (m *VersionManager) CreateDocument(ctx context.Context, tenantID, documentNumber, creator string, metadata *DocumentMetadata) (*DocumentRecord, error) {
	if documentNumber == "" {
		return nil, &ValidationError{Field: "documentNumber", Message: "must not be empty"}
	}

	doc := &DocumentRecord{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		DocumentNumber: documentNumber,
		Version:        1,
		Status:         string(StatusDraft),
		IsLatest:       true,
		CreatedBy:      creator,
	}
	applyMetadata(doc, metadata)

	sections := make([]SectionRecord, 0, SectionCount)
	for n := 1; n <= SectionCount; n++ {
		sections = append(sections, SectionRecord{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Number:     n,
			Title:      SectionTitle(n),
			Version:    1,
		})
	}

	if err := m.store.CreateDocumentWithSections(doc, sections); err != nil {
		return nil, err
	}

	m.record(ctx, audit.Fact{
		TenantID:    tenantID,
		ActorID:     creator,
		EntityType:  audit.EntityDocument,
		EntityID:    doc.ID,
		Action:      audit.ActionCreate,
		Description: fmt.Sprintf("created document %s", documentNumber),
		NewValue:    map[string]any{"documentNumber": documentNumber, "version": 1},
	})
	return doc, nil
}

// CreateNewVersion derives the next version from an existing document. The
// new record starts in draft regardless of the source status, carries a copy
// of the source metadata and sections, and becomes the latest version of its
// document number. Section change markers and version counters carry over so
// the diff against the last reviewed state stays visible.
func (m *VersionManager) CreateNewVersion(ctx context.Context, tenantID, sourceID, creator string) (*DocumentRecord, error) {
	source, err := m.store.GetDocument(tenantID, sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, notFound("document", sourceID)
	}

	doc := &DocumentRecord{
		ID:                 uuid.New().String(),
		TenantID:           source.TenantID,
		DocumentNumber:     source.DocumentNumber,
		RevisionLabel:      source.RevisionLabel,
		Version:            source.Version + 1,
		Status:             string(StatusDraft),
		Title:              source.Title,
		ProductName:        source.ProductName,
		CasNumber:          source.CasNumber,
		SupplierName:       source.SupplierName,
		EffectiveDate:      source.EffectiveDate,
		ReviewedAt:         source.ReviewedAt,
		NextReviewAt:       source.NextReviewAt,
		PreviousVersionID:  &source.ID,
		IsLatest:           true,
		IsRestricted:       source.IsRestricted,
		IsShared:           source.IsShared,
		InSharedRepository: source.InSharedRepository,
		CreatedBy:          creator,
	}

	srcSections, err := m.store.GetSections(source.ID)
	if err != nil {
		return nil, err
	}
	sections := make([]SectionRecord, 0, len(srcSections))
	for _, s := range srcSections {
		sections = append(sections, SectionRecord{
			ID:              uuid.New().String(),
			DocumentID:      doc.ID,
			Number:          s.Number,
			Title:           s.Title,
			Content:         s.Content,
			RenderedContent: s.RenderedContent,
			Version:         s.Version,
			HasChanges:      s.HasChanges,
			UpdatedBy:       s.UpdatedBy,
			UpdatedAt:       s.UpdatedAt,
		})
	}

	if err := m.store.CreateVersion(source.ID, doc, sections); err != nil {
		return nil, err
	}

	m.record(ctx, audit.Fact{
		TenantID:    tenantID,
		ActorID:     creator,
		EntityType:  audit.EntityDocument,
		EntityID:    doc.ID,
		Action:      audit.ActionCreate,
		Description: fmt.Sprintf("created version %d of document %s", doc.Version, doc.DocumentNumber),
		OldValue:    map[string]any{"sourceId": source.ID, "version": source.Version},
		NewValue:    map[string]any{"version": doc.Version},
	})
	return doc, nil
}

// VersionHistory walks the chain backward from the given document and returns
// every version, oldest first. An unknown starting document yields an empty
// slice. A chain containing a cycle or exceeding the hop bound returns a
// StateError rather than looping.
func (m *VersionManager) VersionHistory(ctx context.Context, tenantID, documentID string) ([]DocumentRecord, error) {
	visited := mapset.NewSet[string]()
	var history []DocumentRecord

	current, err := m.store.GetDocument(tenantID, documentID)
	if err != nil {
		return nil, err
	}
	for current != nil {
		if visited.Contains(current.ID) {
			return nil, &StateError{
				Code:    CodeVersionChainCyclic,
				Message: fmt.Sprintf("version chain of document %s contains a cycle at %s", documentID, current.ID),
			}
		}
		if visited.Cardinality() >= maxVersionHops {
			return nil, &StateError{
				Code:    CodeVersionChainCyclic,
				Message: fmt.Sprintf("version chain of document %s exceeds %d hops", documentID, maxVersionHops),
			}
		}
		visited.Add(current.ID)
		history = append(history, *current)

		if current.PreviousVersionID == nil {
			break
		}
		current, err = m.store.GetDocument(tenantID, *current.PreviousVersionID)
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(history, func(i, j int) bool { return history[i].Version < history[j].Version })
	return history, nil
}

// GetDocument retrieves a document with its sections populated.
func (m *VersionManager) GetDocument(ctx context.Context, tenantID, documentID string) (*DocumentRecord, []SectionRecord, error) {
	doc, err := m.store.GetDocument(tenantID, documentID)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, notFound("document", documentID)
	}
	sections, err := m.store.GetSections(doc.ID)
	if err != nil {
		return nil, nil, err
	}
	return doc, sections, nil
}

// GetLatestByNumber retrieves the latest version of a document number.
func (m *VersionManager) GetLatestByNumber(ctx context.Context, tenantID, documentNumber string) (*DocumentRecord, error) {
	doc, err := m.store.GetLatestByNumber(tenantID, documentNumber)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFound("document", documentNumber)
	}
	return doc, nil
}

// UpdateMetadata applies the non-nil metadata fields to a document and stamps
// the updater. The document number, version, and status are not touchable
// through this path.
func (m *VersionManager) UpdateMetadata(ctx context.Context, tenantID, documentID, actor string, metadata *DocumentMetadata) (*DocumentRecord, error) {
	doc, err := m.store.GetDocument(tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFound("document", documentID)
	}

	updates := metadataUpdates(metadata)
	if len(updates) == 0 {
		return doc, nil
	}
	old := snapshotFields(doc, updates)
	updates["updated_by"] = actor
	updates["updated_at"] = touch()

	if err := m.store.UpdateDocument(doc.ID, updates); err != nil {
		return nil, err
	}

	m.record(ctx, audit.Fact{
		TenantID:    tenantID,
		ActorID:     actor,
		EntityType:  audit.EntityDocument,
		EntityID:    doc.ID,
		Action:      audit.ActionUpdate,
		Description: fmt.Sprintf("updated metadata of document %s", doc.DocumentNumber),
		OldValue:    old,
		NewValue:    updates,
	})

	return m.store.GetDocument(tenantID, documentID)
}

// record appends an audit fact, logging failures without failing the
// operation that triggered them.
func (m *VersionManager) record(ctx context.Context, fact audit.Fact) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Record(ctx, fact); err != nil {
		m.logger.Error("failed to record audit event",
			"action", fact.Action, "entityId", fact.EntityID, "error", err)
	}
}

// applyMetadata copies the non-nil metadata fields onto a fresh record.
func applyMetadata(doc *DocumentRecord, md *DocumentMetadata) {
	if md == nil {
		return
	}
	if md.Title != nil {
		doc.Title = *md.Title
	}
	if md.ProductName != nil {
		doc.ProductName = *md.ProductName
	}
	if md.CasNumber != nil {
		doc.CasNumber = *md.CasNumber
	}
	if md.SupplierName != nil {
		doc.SupplierName = *md.SupplierName
	}
	if md.RevisionLabel != nil {
		doc.RevisionLabel = *md.RevisionLabel
	}
	if md.EffectiveDate != nil {
		doc.EffectiveDate = md.EffectiveDate
	}
	if md.ReviewedAt != nil {
		doc.ReviewedAt = md.ReviewedAt
	}
	if md.NextReviewAt != nil {
		doc.NextReviewAt = md.NextReviewAt
	}
	if md.IsRestricted != nil {
		doc.IsRestricted = *md.IsRestricted
	}
	if md.IsShared != nil {
		doc.IsShared = *md.IsShared
	}
	if md.InSharedRepository != nil {
		doc.InSharedRepository = *md.InSharedRepository
	}
}

// metadataUpdates converts non-nil metadata fields to a column update map.
func metadataUpdates(md *DocumentMetadata) map[string]any {
	updates := map[string]any{}
	if md == nil {
		return updates
	}
	if md.Title != nil {
		updates["title"] = *md.Title
	}
	if md.ProductName != nil {
		updates["product_name"] = *md.ProductName
	}
	if md.CasNumber != nil {
		updates["cas_number"] = *md.CasNumber
	}
	if md.SupplierName != nil {
		updates["supplier_name"] = *md.SupplierName
	}
	if md.RevisionLabel != nil {
		updates["revision_label"] = *md.RevisionLabel
	}
	if md.EffectiveDate != nil {
		updates["effective_date"] = md.EffectiveDate
	}
	if md.ReviewedAt != nil {
		updates["reviewed_at"] = md.ReviewedAt
	}
	if md.NextReviewAt != nil {
		updates["next_review_at"] = md.NextReviewAt
	}
	if md.IsRestricted != nil {
		updates["is_restricted"] = *md.IsRestricted
	}
	if md.IsShared != nil {
		updates["is_shared"] = *md.IsShared
	}
	if md.InSharedRepository != nil {
		updates["in_shared_repository"] = *md.InSharedRepository
	}
	return updates
}

// snapshotFields captures the current values of the columns about to change,
// for the audit trail.
func snapshotFields(doc *DocumentRecord, updates map[string]any) map[string]any {
	current := map[string]any{
		"title":                doc.Title,
		"product_name":         doc.ProductName,
		"cas_number":           doc.CasNumber,
		"supplier_name":        doc.SupplierName,
		"revision_label":       doc.RevisionLabel,
		"effective_date":       doc.EffectiveDate,
		"reviewed_at":          doc.ReviewedAt,
		"next_review_at":       doc.NextReviewAt,
		"is_restricted":        doc.IsRestricted,
		"is_shared":            doc.IsShared,
		"in_shared_repository": doc.InSharedRepository,
	}
	old := make(map[string]any, len(updates))
	for column := range updates {
		if v, ok := current[column]; ok {
			old[column] = v
		}
	}
	return old
}
