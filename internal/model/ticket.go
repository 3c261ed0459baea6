package model

// ServiceTicket represents a row in the `service_tickets` table.  A ticket
// is owned by exactly one customer and carries two many-to-many
// association sets: assigned mechanics (service_ticket_mechanics) and
// consumed parts (service_ticket_parts).  Both link tables hold only the
// two foreign keys and a composite unique key, so a pair is a set member.
//
// Fields:
//
//	ID          – primary key identifier of the ticket.
//	Description – free-form description of the requested work.
//	VIN         – vehicle identification number, unique across tickets.
//	CustomerID  – owning customer, required.
type ServiceTicket struct {
	ID          uint64 // service_tickets.id
	Description string // service_tickets.description
	VIN         string // service_tickets.vin
	CustomerID  uint64 // service_tickets.customer_id
}
