package model

// Mechanic represents a row in the `mechanics` table.  Mechanics and
// customers are disjoint identity spaces: an id resolves in at most one
// of the two tables, which is what role resolution relies on.
//
// Fields:
//
//	ID           – primary key identifier of the mechanic.
//	Name         – display name.
//	Email        – unique email address, stored lowercase.
//	PasswordHash – bcrypt hashed password.
//	Address      – postal address.
//	Phone        – unique phone number.
//	Specialty    – area of expertise (e.g. "brakes", "transmission").
//	Salary       – salary in the workshop's base currency.
type Mechanic struct {
	ID           uint64  // mechanics.id
	Name         string  // mechanics.name
	Email        string  // mechanics.email
	PasswordHash string  // mechanics.password_hash
	Address      string  // mechanics.address
	Phone        string  // mechanics.phone
	Specialty    string  // mechanics.specialty
	Salary       float64 // mechanics.salary
}
