// pkg/model/audit.go
package model

import (
	"time"
)

// AuditAction is the kind of action an audit entry describes.
type AuditAction string

const (
	ActionRepaired         AuditAction = "repaired"
	ActionDropped          AuditAction = "dropped"
	ActionDuplicateRemoved AuditAction = "duplicate-removed"
)

// AuditEntry records a single correction or rejection performed by a
// cleaning stage. Entries are created once and never mutated afterwards.
type AuditEntry struct {
	Stage         string      // stage that performed the action
	RowIdentifier string      // shipment ID, or "row:N" if the ID itself was invalid
	Action        AuditAction // repaired | dropped | duplicate-removed
	Field         string      // field affected
	OriginalValue string      // value before the action (may be empty)
	NewValue      string      // value after the action; empty when dropped
	Reason        string      // human-readable reason
	LoggedAt      time.Time   // when the entry was produced
}

// NewAuditEntry creates an audit entry stamped with the current time.
func NewAuditEntry(stage string, rec ShipmentRecord, action AuditAction, field, original, newValue, reason string) AuditEntry {
	return AuditEntry{
		Stage:         stage,
		RowIdentifier: rec.RowIdentifier(),
		Action:        action,
		Field:         field,
		OriginalValue: original,
		NewValue:      newValue,
		Reason:        reason,
		LoggedAt:      time.Now().UTC(),
	}
}

// CleaningResult is the aggregate output of one stage run: the retained set
// (ordered by original ingestion order), the rejected set, and the audit
// entries produced, in production order.
type CleaningResult struct {
	Retained []ShipmentRecord
	Rejected []ShipmentRecord
	Entries  []AuditEntry
}
