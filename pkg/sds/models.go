package sds

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONIntSlice is a custom GORM type for []int stored as JSON.
type JSONIntSlice []int

// Scan implements the sql.Scanner interface for JSONIntSlice.
func (s *JSONIntSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONIntSlice: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for JSONIntSlice.
func (s JSONIntSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// DocumentRecord stores one versioned document instance. Records are never
// physically deleted, only superseded by a newer version. The set of records
// sharing (tenant_id, document_number) forms a backward-linked chain through
// previous_version_id, terminating at the version-1 record.
type DocumentRecord struct {
	ID                 string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	TenantID           string     `gorm:"column:tenant_id;index:idx_doc_tenant_number,priority:1;not null"`
	DocumentNumber     string     `gorm:"column:document_number;index:idx_doc_tenant_number,priority:2;not null"`
	RevisionLabel      string     `gorm:"column:revision_label"`
	Version            int        `gorm:"column:version;not null"`
	Status             string     `gorm:"column:status;default:draft;not null"`
	Title              string     `gorm:"column:title"`
	ProductName        string     `gorm:"column:product_name;index"`
	CasNumber          string     `gorm:"column:cas_number;index"`
	SupplierName       string     `gorm:"column:supplier_name"`
	EffectiveDate      *time.Time `gorm:"column:effective_date"`
	ReviewedAt         *time.Time `gorm:"column:reviewed_at"`
	NextReviewAt       *time.Time `gorm:"column:next_review_at"`
	PreviousVersionID  *string    `gorm:"column:previous_version_id;type:varchar(36)"`
	IsLatest           bool       `gorm:"column:is_latest;index:idx_doc_tenant_number,priority:3;not null"`
	IsRestricted       bool       `gorm:"column:is_restricted;not null;default:false"`
	IsShared           bool       `gorm:"column:is_shared;not null;default:false"`
	InSharedRepository bool       `gorm:"column:in_shared_repository;not null;default:false"`
	CreatedBy          string     `gorm:"column:created_by"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedBy          string     `gorm:"column:updated_by"`
	UpdatedAt          *time.Time `gorm:"column:updated_at"`
	ApprovedBy         string     `gorm:"column:approved_by"`
	ApprovedAt         *time.Time `gorm:"column:approved_at"`
}

// TableName returns the GORM table name.
func (DocumentRecord) TableName() string { return "sds_documents" }

// SectionRecord stores one of the 16 fixed sections of a document. Sections
// are created atomically with their document and cascade with it.
type SectionRecord struct {
	ID              string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	DocumentID      string     `gorm:"column:document_id;uniqueIndex:idx_section_doc_number,priority:1;type:varchar(36);not null"`
	Number          int        `gorm:"column:number;uniqueIndex:idx_section_doc_number,priority:2;not null"`
	Title           string     `gorm:"column:title;not null"`
	Content         string     `gorm:"column:content;type:text"`
	RenderedContent string     `gorm:"column:rendered_content;type:text"`
	Version         int        `gorm:"column:version;not null"`
	HasChanges      bool       `gorm:"column:has_changes;not null;default:false"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       *time.Time `gorm:"column:updated_at"`
	UpdatedBy       string     `gorm:"column:updated_by"`
}

// TableName returns the GORM table name.
func (SectionRecord) TableName() string { return "sds_sections" }

// ReviewRecord stores one reviewer's pending or completed disposition of a
// document. Reviews are mutated exactly once, when decided, and never deleted.
type ReviewRecord struct {
	ID              string       `gorm:"primaryKey;column:id;type:varchar(36)"`
	DocumentID      string       `gorm:"column:document_id;index:idx_review_doc_status,priority:1;type:varchar(36);not null"`
	ReviewerID      string       `gorm:"column:reviewer_id;not null"`
	Status          string       `gorm:"column:status;index:idx_review_doc_status,priority:2;default:pending;not null"`
	Comments        string       `gorm:"column:comments;type:text"`
	ChangeRequest   string       `gorm:"column:change_request;type:text"`
	DiffSummary     string       `gorm:"column:diff_summary;type:text"`
	ChangedSections JSONIntSlice `gorm:"column:changed_sections;type:text"`
	CreatedAt       time.Time    `gorm:"column:created_at;autoCreateTime"`
	CompletedAt     *time.Time   `gorm:"column:completed_at"`
}

// TableName returns the GORM table name.
func (ReviewRecord) TableName() string { return "sds_reviews" }
