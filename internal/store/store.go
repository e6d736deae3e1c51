package store

import "time"

// Host statuses derived from a round.
const (
	// StatusOK means values were collected and nothing but value warnings
	// were logged.
	StatusOK = "ok"
	// StatusPartial means values were collected but a collection error ended
	// the host's work early.
	StatusPartial = "partial"
	// StatusDown means a collection error was logged and no values arrived.
	StatusDown = "down"
)

// Value is one decoded result row.
type Value struct {
	// VarBind is the root identifier whose column the row belongs to.
	VarBind string `json:"var_bind"`

	// OID is the identifier the agent returned.
	OID string `json:"oid"`

	// Type is the value's protocol type name (e.g., "OctetString").
	Type string `json:"type"`

	// Value is the value rendered as text.
	Value string `json:"value"`

	// Truncated is set when the row's capacity cut the identifier or value.
	Truncated bool `json:"truncated,omitempty"`
}

// HostSnapshot is the outcome of the latest round for one host.
//
// HostSnapshot is optimized for JSON serialization (used by the REST API and
// SSE). It is decoupled from the engine's types to allow independent
// evolution.
type HostSnapshot struct {
	ID       uint64 `json:"id"`
	Hostname string `json:"hostname"`

	Labels map[string]string `json:"labels,omitempty"`

	// Status is one of StatusOK, StatusPartial or StatusDown.
	Status string `json:"status"`

	// RoundID identifies the round that produced the snapshot.
	RoundID string `json:"round_id"`

	// CheckedAt is when that round started.
	CheckedAt time.Time `json:"checked_at"`

	Values []Value `json:"values"`

	// Errors holds the messages of every error logged for the host,
	// value warnings included.
	Errors []string `json:"errors"`
}

// Store defines the interface for storing and subscribing to host snapshots.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update stores a snapshot and notifies all subscribers.
	// Snapshots are keyed by ID, so later updates replace earlier ones.
	Update(snapshot HostSnapshot)

	// Get returns the snapshot for a host ID.
	Get(id uint64) (HostSnapshot, bool)

	// GetAll returns all stored snapshots ordered by host ID.
	// The returned slice is a snapshot; modifications do not affect the store.
	GetAll() []HostSnapshot

	// Subscribe returns a channel that receives snapshot updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan HostSnapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan HostSnapshot)
}
