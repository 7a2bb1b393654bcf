package sds

import (
	"context"
	"log/slog"
	"time"
)

// SearchService answers latest-version document queries for a tenant.
// Superseded versions are invisible to every query it serves.
type SearchService struct {
	store  *DocumentStore
	logger *slog.Logger
}

// NewSearchService creates a SearchService.
func NewSearchService(store *DocumentStore, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{store: store, logger: logger}
}

// Search returns the matching latest-version documents, ordered by document
// number. All provided filters combine with AND; an empty SearchOptions
// returns every latest version the tenant owns.
func (s *SearchService) Search(ctx context.Context, tenantID string, opts SearchOptions) ([]Document, error) {
	records, err := s.store.Search(tenantID, opts)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(records))
	for i := range records {
		docs = append(docs, recordToDocument(&records[i], nil))
	}
	return docs, nil
}

// recordToDocument converts a stored document, and optionally its sections,
// to the API shape.
func recordToDocument(r *DocumentRecord, sections []SectionRecord) Document {
	doc := Document{
		ID:                 r.ID,
		TenantID:           r.TenantID,
		DocumentNumber:     r.DocumentNumber,
		RevisionLabel:      r.RevisionLabel,
		Version:            r.Version,
		Status:             DocumentStatus(r.Status),
		Title:              r.Title,
		ProductName:        r.ProductName,
		CasNumber:          r.CasNumber,
		SupplierName:       r.SupplierName,
		EffectiveDate:      formatTime(r.EffectiveDate),
		ReviewedAt:         formatTime(r.ReviewedAt),
		NextReviewAt:       formatTime(r.NextReviewAt),
		IsLatest:           r.IsLatest,
		IsRestricted:       r.IsRestricted,
		IsShared:           r.IsShared,
		InSharedRepository: r.InSharedRepository,
		CreatedBy:          r.CreatedBy,
		CreatedAt:          r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedBy:          r.UpdatedBy,
		UpdatedAt:          formatTime(r.UpdatedAt),
		ApprovedBy:         r.ApprovedBy,
		ApprovedAt:         formatTime(r.ApprovedAt),
	}
	if r.PreviousVersionID != nil {
		doc.PreviousVersionID = *r.PreviousVersionID
	}
	for i := range sections {
		doc.Sections = append(doc.Sections, recordToSection(&sections[i]))
	}
	return doc
}

func recordToSection(r *SectionRecord) Section {
	return Section{
		ID:              r.ID,
		DocumentID:      r.DocumentID,
		Number:          r.Number,
		Title:           r.Title,
		Content:         r.Content,
		RenderedContent: r.RenderedContent,
		Version:         r.Version,
		HasChanges:      r.HasChanges,
		UpdatedBy:       r.UpdatedBy,
		UpdatedAt:       formatTime(r.UpdatedAt),
	}
}

func recordToReview(r *ReviewRecord) Review {
	return Review{
		ID:              r.ID,
		DocumentID:      r.DocumentID,
		ReviewerID:      r.ReviewerID,
		Status:          ReviewStatus(r.Status),
		Comments:        r.Comments,
		ChangeRequest:   r.ChangeRequest,
		DiffSummary:     r.DiffSummary,
		ChangedSections: []int(r.ChangedSections),
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339),
		CompletedAt:     formatTime(r.CompletedAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
