package sds

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solaius/sds-registry/pkg/audit"
)

// SectionEditor mutates the content of individual document sections and
// tracks their change state.
type SectionEditor struct {
	store  *DocumentStore
	logger *slog.Logger
}

// NewSectionEditor creates a SectionEditor.
func NewSectionEditor(store *DocumentStore, logger *slog.Logger) *SectionEditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SectionEditor{store: store, logger: logger}
}

// UpdateSection replaces the content of one section, stamps the editor and
// update time, marks the section as having unreviewed changes, and increments
// its version counter by exactly 1.
//
// Concurrent edits to the same section are last-write-wins; there is no
// optimistic-concurrency token. The editor itself records no audit fact;
// that is the calling layer's responsibility.
func (e *SectionEditor) UpdateSection(ctx context.Context, tenantID, documentID string, number int, content, renderedContent, editor string) (*SectionRecord, error) {
	if !ValidSectionNumber(number) {
		return nil, &ValidationError{Field: "sectionNumber", Message: fmt.Sprintf("%d is outside 1..%d", number, SectionCount)}
	}

	doc, err := e.store.GetDocument(tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFound("document", documentID)
	}

	section, err := e.store.GetSection(documentID, number)
	if err != nil {
		return nil, err
	}
	if section == nil {
		// Every document is created with all 16 sections; a missing row means
		// a broken template, not a user error.
		e.logger.Error("section row missing for existing document",
			"documentId", documentID, "section", number)
		return nil, notFound("section", fmt.Sprintf("%s/%d", documentID, number))
	}

	section.Content = content
	if renderedContent != "" {
		section.RenderedContent = renderedContent
	}
	section.UpdatedAt = touch()
	section.UpdatedBy = editor
	section.HasChanges = true
	section.Version++

	if err := e.store.SaveSection(section); err != nil {
		return nil, err
	}
	return section, nil
}

// sectionEditFact builds the audit fact for a section content change.
func sectionEditFact(tenantID, actor string, section *SectionRecord) audit.Fact {
	return audit.Fact{
		TenantID:    tenantID,
		ActorID:     actor,
		EntityType:  audit.EntitySection,
		EntityID:    section.ID,
		Action:      audit.ActionUpdate,
		Description: fmt.Sprintf("edited section %d of document %s", section.Number, section.DocumentID),
		NewValue:    map[string]any{"section": section.Number, "version": section.Version},
	}
}
