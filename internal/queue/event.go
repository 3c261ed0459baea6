// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketCreatedEvent is published when a new service ticket is opened.
// It carries enough context for downstream consumers to log or notify
// without querying the primary database.
type TicketCreatedEvent struct {
	TicketID     uint64 `json:"ticket_id"`
	VIN          string `json:"vin"`
	Description  string `json:"description"`
	CustomerID   uint64 `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	CreatedAt    string `json:"created_at"`
}

// TicketPartsAddedEvent is published after parts were attached to a
// ticket. ResolvedCount is how many of the requested part ids existed in
// inventory and were applied.
type TicketPartsAddedEvent struct {
	TicketID      uint64   `json:"ticket_id"`
	PartIDs       []uint64 `json:"part_ids"`
	ResolvedCount int      `json:"resolved_count"`
	AddedAt       string   `json:"added_at"`
}
