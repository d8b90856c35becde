package domain

import (
	"fmt"
	"time"
)

// AuditAction is the closed vocabulary of audited actions.
type AuditAction string

// Audited actions.
const (
	ActionUpload          AuditAction = "UPLOAD"
	ActionUpdate          AuditAction = "UPDATE"
	ActionProcessComplete AuditAction = "PROCESS_COMPLETE"
	ActionProcessFailed   AuditAction = "PROCESS_FAILED"
	ActionChatQuery       AuditAction = "CHAT_QUERY"
	ActionChatError       AuditAction = "CHAT_ERROR"
)

// IsValid returns true if the action is recognised.
func (a AuditAction) IsValid() bool {
	switch a {
	case ActionUpload, ActionUpdate, ActionProcessComplete,
		ActionProcessFailed, ActionChatQuery, ActionChatError:
		return true
	default:
		return false
	}
}

// SystemActor is recorded for events raised by background ingestion.
const SystemActor = "system"

// Actor identifies who performed an operation.
// Network fields are optional provenance.
type Actor struct {
	ID        string
	IPAddress string
	UserAgent string
}

// AuditEvent is an append-only record of a mutation or query.
type AuditEvent struct {
	// ID is assigned by the store on append.
	ID int64 `json:"id"`

	// Actor is who performed the action.
	Actor string `json:"actor"`

	// Action is what happened.
	Action AuditAction `json:"action"`

	// DocumentID is the affected document version, if any.
	DocumentID string `json:"document_id,omitempty"`

	// Details is a structured outcome summary.
	Details map[string]any `json:"details"`

	// Timestamp is when the event was recorded.
	Timestamp time.Time `json:"timestamp"`

	// IPAddress is the caller's address, if known.
	IPAddress string `json:"ip_address,omitempty"`

	// UserAgent is the caller's client, if known.
	UserAgent string `json:"user_agent,omitempty"`
}

// MaxAuditLimit caps the number of events a listing returns.
const MaxAuditLimit = 100

// AuditFilter selects audit events. Zero values match everything.
type AuditFilter struct {
	Start      *time.Time
	End        *time.Time
	Actor      string
	Action     AuditAction
	DocumentID string
	Limit      int
}

// Normalise clamps the limit into [1, MaxAuditLimit] and checks the
// action and date range.
func (f AuditFilter) Normalise() (AuditFilter, error) {
	if f.Action != "" && !f.Action.IsValid() {
		return f, fmt.Errorf("%w: unknown action %q", ErrValidation, f.Action)
	}
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return f, fmt.Errorf("%w: end date before start date", ErrValidation)
	}
	if f.Limit <= 0 || f.Limit > MaxAuditLimit {
		f.Limit = MaxAuditLimit
	}
	return f, nil
}

// Matches reports whether e passes the filter. Used by in-memory stores.
func (f AuditFilter) Matches(e *AuditEvent) bool {
	if f.Start != nil && e.Timestamp.Before(*f.Start) {
		return false
	}
	if f.End != nil && e.Timestamp.After(*f.End) {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.DocumentID != "" && e.DocumentID != f.DocumentID {
		return false
	}
	return true
}
