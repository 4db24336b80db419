package audit

import "time"

// Event is an immutable, append-only record of a staff mutation.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor and IP capture are best-effort; audit failures never block the
//   mutation that caused them.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated staff member, if any.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// EntityType/EntityID identify the mutated row ("contact", 42).
	EntityType string `json:"entity_type" db:"entity_type"`
	EntityID   int64  `json:"entity_id,omitempty" db:"entity_id"`

	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventContactCreated  EventType = "contact_created"
	EventContactUpdated  EventType = "contact_updated"
	EventContactDeleted  EventType = "contact_deleted"
	EventDefaultCreated  EventType = "default_created"
	EventDefaultUpdated  EventType = "default_updated"
	EventDefaultDeleted  EventType = "default_deleted"
	EventDirectoryResync EventType = "directory_resync"
)
