package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fact describes one action taken on an entity, as reported by the operation
// layer.
type Fact struct {
	TenantID    string
	ActorID     string
	EntityType  string
	EntityID    string
	Action      string
	Description string
	OldValue    map[string]any
	NewValue    map[string]any
}

// Recorder records audit facts. Implementations must persist the fact before
// returning; the registry engine invokes Record synchronously within each
// state-mutating operation.
type Recorder interface {
	Record(ctx context.Context, fact Fact) error
}

// Store provides append-only operations for audit event records.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new audit Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the audit_events table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&EventRecord{}); err != nil {
		return fmt.Errorf("auto-migrate audit_events: %w", err)
	}
	return nil
}

// Record implements Recorder.
func (s *Store) Record(ctx context.Context, fact Fact) error {
	record := &EventRecord{
		ID:          uuid.New().String(),
		TenantID:    fact.TenantID,
		ActorID:     fact.ActorID,
		EntityType:  fact.EntityType,
		EntityID:    fact.EntityID,
		Action:      fact.Action,
		Description: fact.Description,
		OldValue:    JSONAny(fact.OldValue),
		NewValue:    JSONAny(fact.NewValue),
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListFilter narrows audit event listings. TenantID is mandatory; the other
// fields are optional.
type ListFilter struct {
	TenantID   string
	EntityType string
	EntityID   string
	ActorID    string
	Action     string
	Since      *time.Time
	Until      *time.Time
}

// List returns paginated audit events for a tenant, newest first.
// pageToken is an RFC3339Nano timestamp; events created before it are
// returned.
func (s *Store) List(filter ListFilter, pageSize int, pageToken string) ([]EventRecord, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	applyFilter := func(q *gorm.DB) *gorm.DB {
		q = q.Where("tenant_id = ?", filter.TenantID)
		if filter.EntityType != "" {
			q = q.Where("entity_type = ?", filter.EntityType)
		}
		if filter.EntityID != "" {
			q = q.Where("entity_id = ?", filter.EntityID)
		}
		if filter.ActorID != "" {
			q = q.Where("actor_id = ?", filter.ActorID)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.Since != nil {
			q = q.Where("created_at >= ?", *filter.Since)
		}
		if filter.Until != nil {
			q = q.Where("created_at <= ?", *filter.Until)
		}
		return q
	}

	var totalSize int64
	if err := applyFilter(s.db.Model(&EventRecord{})).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count audit events: %w", err)
	}

	query := applyFilter(s.db).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var records []EventRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list audit events: %w", err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}

	return records, nextToken, int(totalSize), nil
}

// DeleteOlderThan deletes audit events created before the given cutoff time.
// Returns the number of deleted records.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", cutoff).Delete(&EventRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old audit events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
