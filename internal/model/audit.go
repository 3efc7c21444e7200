package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Actor      string          `db:"actor" json:"actor"`
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   string          `db:"entity_id" json:"entity_id"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	IPAddress  string          `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
	AuditActionLogin  = "login"
	AuditActionSend   = "send"

	AuditEntityDonor    = "donor"
	AuditEntityEmailJob = "email_job"
	AuditEntityPage     = "page"
	AuditEntityReminder = "reminder"
	AuditEntityAdmin    = "admin"
)

type AuditFilters struct {
	Actor      string
	Action     string
	EntityType string
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}
