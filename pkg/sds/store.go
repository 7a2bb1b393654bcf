package sds

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DocumentStore provides tenant-scoped persistence for documents, sections,
// and reviews. Every lookup takes a mandatory tenant identifier; records
// belonging to another tenant behave as absent. Multi-entity mutations run
// inside a single transaction.
type DocumentStore struct {
	db *gorm.DB
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// AutoMigrate creates or updates the document, section, and review tables.
func (s *DocumentStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&DocumentRecord{}); err != nil {
		return fmt.Errorf("auto-migrate sds_documents: %w", err)
	}
	if err := s.db.AutoMigrate(&SectionRecord{}); err != nil {
		return fmt.Errorf("auto-migrate sds_sections: %w", err)
	}
	if err := s.db.AutoMigrate(&ReviewRecord{}); err != nil {
		return fmt.Errorf("auto-migrate sds_reviews: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID within a tenant.
// Returns nil, nil if no such document exists.
func (s *DocumentStore) GetDocument(tenantID, id string) (*DocumentRecord, error) {
	var record DocumentRecord
	err := s.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &record, nil
}

// GetLatestByNumber retrieves the single latest-version document for a
// document number within a tenant. Returns nil, nil if none exists.
func (s *DocumentStore) GetLatestByNumber(tenantID, number string) (*DocumentRecord, error) {
	var record DocumentRecord
	err := s.db.Where(
		"tenant_id = ? AND document_number = ? AND is_latest = ?",
		tenantID, number, true,
	).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest document by number: %w", err)
	}
	return &record, nil
}

// GetSections returns all sections of a document ordered by section number.
func (s *DocumentStore) GetSections(documentID string) ([]SectionRecord, error) {
	var records []SectionRecord
	if err := s.db.Where("document_id = ?", documentID).Order("number ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("get sections: %w", err)
	}
	return records, nil
}

// GetSection retrieves one section by (document, number).
// Returns nil, nil if no such section exists.
func (s *DocumentStore) GetSection(documentID string, number int) (*SectionRecord, error) {
	var record SectionRecord
	err := s.db.Where("document_id = ? AND number = ?", documentID, number).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get section: %w", err)
	}
	return &record, nil
}

// SaveSection persists a mutated section.
func (s *DocumentStore) SaveSection(record *SectionRecord) error {
	if err := s.db.Save(record).Error; err != nil {
		return fmt.Errorf("save section: %w", err)
	}
	return nil
}

// GetReview retrieves a review by ID within a tenant. The tenant scope is
// enforced through the owning document. Returns nil, nil if absent or owned
// by another tenant.
func (s *DocumentStore) GetReview(tenantID, id string) (*ReviewRecord, error) {
	var record ReviewRecord
	err := s.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	doc, err := s.GetDocument(tenantID, record.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return &record, nil
}

// PendingReview returns the most recently created pending review for a
// document, or nil, nil if none exists.
func (s *DocumentStore) PendingReview(documentID string) (*ReviewRecord, error) {
	var record ReviewRecord
	err := s.db.Where("document_id = ? AND status = ?", documentID, string(ReviewPending)).
		Order("created_at DESC").First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get pending review: %w", err)
	}
	return &record, nil
}

// ListReviews returns all reviews for a document, newest first,
// optionally filtered by status.
func (s *DocumentStore) ListReviews(documentID string, status ReviewStatus) ([]ReviewRecord, error) {
	query := s.db.Where("document_id = ?", documentID).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	var records []ReviewRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return records, nil
}

// CreateDocumentWithSections persists a new document and its sections as one
// atomic unit.
func (s *DocumentStore) CreateDocumentWithSections(doc *DocumentRecord, sections []SectionRecord) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		if len(sections) > 0 {
			if err := tx.Create(&sections).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create document with sections: %w", err)
	}
	return nil
}

// CreateVersion flips the source document's is_latest flag and persists the
// new version and its copied sections, all as one atomic unit.
func (s *DocumentStore) CreateVersion(sourceID string, doc *DocumentRecord, sections []SectionRecord) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&DocumentRecord{}).Where("id = ?", sourceID).
			Update("is_latest", false).Error; err != nil {
			return err
		}
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		if len(sections) > 0 {
			if err := tx.Create(&sections).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create document version: %w", err)
	}
	return nil
}

// UpdateDocument persists field updates on a document.
func (s *DocumentStore) UpdateDocument(id string, updates map[string]any) error {
	if err := s.db.Model(&DocumentRecord{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// SubmitReview persists the document status change and the new review as one
// atomic unit.
func (s *DocumentStore) SubmitReview(documentID string, review *ReviewRecord) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&DocumentRecord{}).Where("id = ?", documentID).
			Update("status", string(StatusUnderReview)).Error; err != nil {
			return err
		}
		return tx.Create(review).Error
	})
	if err != nil {
		return fmt.Errorf("submit review: %w", err)
	}
	return nil
}

// ApplyDecision persists a review decision and the resulting document changes
// as one atomic unit. documentUpdates may be nil when the decision does not
// touch the document (changes requested). clearSectionFlags resets the
// has_changes marker on every section of the document.
func (s *DocumentStore) ApplyDecision(review *ReviewRecord, documentUpdates map[string]any, clearSectionFlags bool) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(review).Error; err != nil {
			return err
		}
		if len(documentUpdates) > 0 {
			if err := tx.Model(&DocumentRecord{}).Where("id = ?", review.DocumentID).
				Updates(documentUpdates).Error; err != nil {
				return err
			}
		}
		if clearSectionFlags {
			if err := tx.Model(&SectionRecord{}).Where("document_id = ?", review.DocumentID).
				Update("has_changes", false).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply review decision: %w", err)
	}
	return nil
}

// SearchOptions are the filters accepted by Search. Zero-valued filters are
// ignored; provided filters combine with logical AND.
type SearchOptions struct {
	// FreeText matches as a substring of product name, document number,
	// or CAS number.
	FreeText string
	// CasNumber requires an exact match.
	CasNumber string
	// Supplier matches as a substring of supplier name.
	Supplier string
	// FilterQuery is an optional structured filter expression,
	// see ParseFilterQuery.
	FilterQuery string
}

// Search returns the latest-version documents of a tenant matching the given
// filters. Superseded versions never appear.
func (s *DocumentStore) Search(tenantID string, opts SearchOptions) ([]DocumentRecord, error) {
	query := s.db.Where("tenant_id = ? AND is_latest = ?", tenantID, true)

	if opts.FreeText != "" {
		pattern := "%" + opts.FreeText + "%"
		query = query.Where(
			"product_name LIKE ? OR document_number LIKE ? OR cas_number LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if opts.CasNumber != "" {
		query = query.Where("cas_number = ?", opts.CasNumber)
	}
	if opts.Supplier != "" {
		query = query.Where("supplier_name LIKE ?", "%"+opts.Supplier+"%")
	}
	if opts.FilterQuery != "" {
		conds, args, err := ParseFilterQuery(opts.FilterQuery)
		if err != nil {
			return nil, err
		}
		for i, cond := range conds {
			query = query.Where(cond, args[i])
		}
	}

	var records []DocumentRecord
	if err := query.Order("document_number ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return records, nil
}

// touch returns the current time as a pointer, for nullable timestamp columns.
func touch() *time.Time {
	now := time.Now().UTC()
	return &now
}
