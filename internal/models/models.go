package models

import "time"

// User represents a registered user. PartnerID is symmetric: if it points at
// another user, that user's PartnerID points back.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	PartnerID      *string   `json:"partner_id,omitempty"`
	PinnedMemoryID *string   `json:"pinned_memory_id,omitempty"`
	PushToken      *string   `json:"push_token,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Memory represents a recurring anniversary. RecurrenceKey is the MMDD key
// derived from EventDate on every write; it is never set by callers.
type Memory struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Title         string    `json:"title"`
	Detail        string    `json:"detail"`
	EventDate     time.Time `json:"event_date"`
	RecurrenceKey string    `json:"recurrence_key"`
	IsShared      bool      `json:"is_shared"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Invitation is a pairing invite. The code doubles as the storage key.
type Invitation struct {
	Code      string    `json:"code"`
	IssuerID  string    `json:"issuer_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Photo represents a photo attached to a memory
type Photo struct {
	ID        string    `json:"id"`
	MemoryID  string    `json:"memory_id"`
	OwnerID   string    `json:"owner_id"`
	S3URL     string    `json:"s3_url"`
	CreatedAt time.Time `json:"created_at"`
}
