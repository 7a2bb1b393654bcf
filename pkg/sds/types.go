// Package sds implements the document lifecycle engine for Safety Data Sheet
// (SDS) registries: section editing, immutable version chains, the review
// workflow, and latest-version search. All operations are tenant-scoped and
// take explicit tenant/actor identifiers; the engine holds no ambient state.
package sds

import "time"

// DocumentStatus represents the lifecycle status of a document.
type DocumentStatus string

const (
	StatusDraft       DocumentStatus = "draft"
	StatusUnderReview DocumentStatus = "under_review"
	StatusApproved    DocumentStatus = "approved"
	StatusRejected    DocumentStatus = "rejected"
	// StatusArchived is terminal. No engine operation produces it; it is set
	// by an external archival process.
	StatusArchived DocumentStatus = "archived"
)

// ReviewStatus represents the disposition of a single review.
type ReviewStatus string

const (
	ReviewPending          ReviewStatus = "pending"
	ReviewApproved         ReviewStatus = "approved"
	ReviewRejected         ReviewStatus = "rejected"
	ReviewChangesRequested ReviewStatus = "changes_requested"
)

// ValidDecision reports whether s is a terminal review disposition.
func ValidDecision(s ReviewStatus) bool {
	switch s {
	case ReviewApproved, ReviewRejected, ReviewChangesRequested:
		return true
	}
	return false
}

// SectionCount is the fixed number of sections every document carries,
// per the GHS/OSHA HazCom 16-section format.
const SectionCount = 16

// sectionTitles maps section numbers to their canonical regulatory titles.
var sectionTitles = [SectionCount + 1]string{
	1:  "Identification",
	2:  "Hazard(s) identification",
	3:  "Composition/information on ingredients",
	4:  "First-aid measures",
	5:  "Fire-fighting measures",
	6:  "Accidental release measures",
	7:  "Handling and storage",
	8:  "Exposure controls/personal protection",
	9:  "Physical and chemical properties",
	10: "Stability and reactivity",
	11: "Toxicological information",
	12: "Ecological information",
	13: "Disposal considerations",
	14: "Transport information",
	15: "Regulatory information",
	16: "Other information",
}

// SectionTitle returns the canonical title for a section number.
// Returns "" for numbers outside 1..16.
func SectionTitle(n int) string {
	if !ValidSectionNumber(n) {
		return ""
	}
	return sectionTitles[n]
}

// ValidSectionNumber reports whether n is a recognized section number.
func ValidSectionNumber(n int) bool {
	return n >= 1 && n <= SectionCount
}

// DocumentMetadata carries optional descriptive fields for a document.
// Nil fields are left untouched when applied.
type DocumentMetadata struct {
	Title              *string    `json:"title,omitempty"`
	ProductName        *string    `json:"productName,omitempty"`
	CasNumber          *string    `json:"casNumber,omitempty"`
	SupplierName       *string    `json:"supplierName,omitempty"`
	RevisionLabel      *string    `json:"revisionLabel,omitempty"`
	EffectiveDate      *time.Time `json:"effectiveDate,omitempty"`
	ReviewedAt         *time.Time `json:"reviewedAt,omitempty"`
	NextReviewAt       *time.Time `json:"nextReviewAt,omitempty"`
	IsRestricted       *bool      `json:"isRestricted,omitempty"`
	IsShared           *bool      `json:"isShared,omitempty"`
	InSharedRepository *bool      `json:"inSharedRepository,omitempty"`
}

// Document is the API-facing document shape.
type Document struct {
	ID                 string         `json:"id"`
	TenantID           string         `json:"tenantId"`
	DocumentNumber     string         `json:"documentNumber"`
	RevisionLabel      string         `json:"revisionLabel,omitempty"`
	Version            int            `json:"version"`
	Status             DocumentStatus `json:"status"`
	Title              string         `json:"title,omitempty"`
	ProductName        string         `json:"productName,omitempty"`
	CasNumber          string         `json:"casNumber,omitempty"`
	SupplierName       string         `json:"supplierName,omitempty"`
	EffectiveDate      string         `json:"effectiveDate,omitempty"` // RFC3339
	ReviewedAt         string         `json:"reviewedAt,omitempty"`
	NextReviewAt       string         `json:"nextReviewAt,omitempty"`
	PreviousVersionID  string         `json:"previousVersionId,omitempty"`
	IsLatest           bool           `json:"isLatest"`
	IsRestricted       bool           `json:"isRestricted,omitempty"`
	IsShared           bool           `json:"isShared,omitempty"`
	InSharedRepository bool           `json:"inSharedRepository,omitempty"`
	CreatedBy          string         `json:"createdBy,omitempty"`
	CreatedAt          string         `json:"createdAt"`
	UpdatedBy          string         `json:"updatedBy,omitempty"`
	UpdatedAt          string         `json:"updatedAt,omitempty"`
	ApprovedBy         string         `json:"approvedBy,omitempty"`
	ApprovedAt         string         `json:"approvedAt,omitempty"`
	Sections           []Section      `json:"sections,omitempty"`
}

// Section is the API-facing section shape.
type Section struct {
	ID              string `json:"id"`
	DocumentID      string `json:"documentId"`
	Number          int    `json:"number"`
	Title           string `json:"title"`
	Content         string `json:"content,omitempty"`
	RenderedContent string `json:"renderedContent,omitempty"`
	Version         int    `json:"version"`
	HasChanges      bool   `json:"hasChanges"`
	UpdatedBy       string `json:"updatedBy,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

// Review is the API-facing review shape.
type Review struct {
	ID              string       `json:"id"`
	DocumentID      string       `json:"documentId"`
	ReviewerID      string       `json:"reviewerId"`
	Status          ReviewStatus `json:"status"`
	Comments        string       `json:"comments,omitempty"`
	ChangeRequest   string       `json:"changeRequest,omitempty"`
	DiffSummary     string       `json:"diffSummary,omitempty"`
	ChangedSections []int        `json:"changedSections,omitempty"`
	CreatedAt       string       `json:"createdAt"`
	CompletedAt     string       `json:"completedAt,omitempty"`
}
