// Package queue defines message payloads exchanged over the message broker
// plus the publisher and background consumer for cafe domain events.
package queue

// CafeCreatedEvent is published when an administrator adds a cafe.  It
// carries enough information for downstream consumers to log or notify
// without querying the primary database.
type CafeCreatedEvent struct {
	CafeID    uint64 `json:"cafe_id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	CityName  string `json:"city"`
	State     string `json:"state"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}
