package models

import "time"

// Audit actions recorded by the portal.
const (
	AuditActionLogin           = "LOGIN"
	AuditActionLogout          = "LOGOUT"
	AuditActionSubmitRequest   = "SUBMIT_REQUEST"
	AuditActionApproveRequest  = "APPROVE_REQUEST"
	AuditActionRejectRequest   = "REJECT_REQUEST"
	AuditActionAllowListAdd    = "ALLOWLIST_ADD"
	AuditActionAllowListRemove = "ALLOWLIST_REMOVE"
	AuditActionAllowListImport = "ALLOWLIST_IMPORT"
)

// AuditLog is an append-only record of a principal acting on a resource.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
