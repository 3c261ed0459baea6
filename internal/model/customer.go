package model

// Customer represents a row in the `customers` table.  Customers own
// service tickets; a customer may only read tickets whose customer_id
// matches their own id.  The password hash never leaves the repository
// layer: handlers define separate response types without it.
//
// Fields:
//
//	ID           – primary key identifier of the customer.
//	Name         – display name.
//	Email        – unique email address, stored lowercase.
//	PasswordHash – bcrypt hashed password.
//	Address      – postal address.
//	Phone        – unique phone number.
type Customer struct {
	ID           uint64 // customers.id
	Name         string // customers.name
	Email        string // customers.email
	PasswordHash string // customers.password_hash
	Address      string // customers.address
	Phone        string // customers.phone
}
