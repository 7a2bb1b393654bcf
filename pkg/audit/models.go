// Package audit provides the append-only audit log for the registry:
// a GORM-backed event store, a retention sweeper, and read-side HTTP
// handlers. Events are recorded synchronously by the operation that
// triggered them; a failed append is logged but never blocks the mutation.
package audit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Audit actions.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionSubmit  = "submit"
	ActionApprove = "approve"
	ActionReject  = "reject"
	// ActionRequestChanges marks a review sent back to the author without
	// changing the document status.
	ActionRequestChanges = "request_changes"
)

// Audited entity types.
const (
	EntityDocument = "document"
	EntitySection  = "section"
	EntityReview   = "review"
)

// JSONAny is a custom GORM type for map[string]any stored as JSON.
type JSONAny map[string]any

// Scan implements the sql.Scanner interface for JSONAny.
func (m *JSONAny) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONAny: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements the driver.Valuer interface for JSONAny.
func (m JSONAny) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// EventRecord is an immutable audit log entry.
type EventRecord struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	TenantID    string    `gorm:"column:tenant_id;index:idx_audit_tenant_time,priority:1;not null"`
	ActorID     string    `gorm:"column:actor_id;index"`
	EntityType  string    `gorm:"column:entity_type;index:idx_audit_entity,priority:1"`
	EntityID    string    `gorm:"column:entity_id;index:idx_audit_entity,priority:2"`
	Action      string    `gorm:"column:action;not null"`
	Description string    `gorm:"column:description"`
	OldValue    JSONAny   `gorm:"column:old_value;type:text"`
	NewValue    JSONAny   `gorm:"column:new_value;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;index:idx_audit_tenant_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (EventRecord) TableName() string { return "audit_events" }

// Event is the API-facing audit event.
type Event struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenantId"`
	ActorID     string         `json:"actorId,omitempty"`
	EntityType  string         `json:"entityType"`
	EntityID    string         `json:"entityId,omitempty"`
	Action      string         `json:"action"`
	Description string         `json:"description,omitempty"`
	OldValue    map[string]any `json:"oldValue,omitempty"`
	NewValue    map[string]any `json:"newValue,omitempty"`
	CreatedAt   string         `json:"createdAt"` // RFC3339
}

// EventList is a paginated list of audit events.
type EventList struct {
	Events        []Event `json:"events"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	TotalSize     int     `json:"totalSize"`
}
