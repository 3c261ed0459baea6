// Package repository implements the data access layer on top of MySQL.
// This file defines sentinel errors shared across repositories so that
// handlers can map failure scenarios to the right HTTP status without
// inspecting driver errors: uniqueness collisions become 400s, missing
// rows 404s, and so on.
package repository

import "errors"

// ErrNotFound is returned when a requested row (customer, mechanic,
// ticket or part) does not exist.  Handlers translate this into 404.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a create or update would collide with
// another row's email address.  Handlers translate this into 400.
var ErrEmailExists = errors.New("email already registered")

// ErrPhoneExists is returned when a create or update would collide with
// another row's phone number.  Handlers translate this into 400.
var ErrPhoneExists = errors.New("phone already registered")

// ErrDuplicateVIN is returned when creating a service ticket whose VIN is
// already present.  The check runs before the insert so callers get a
// clean 400 instead of a raw constraint violation.
var ErrDuplicateVIN = errors.New("vin already exists")

// ErrDuplicateSKU is returned when a part's SKU collides with an existing
// row.  Handlers translate this into 400.
var ErrDuplicateSKU = errors.New("sku already exists")

// ErrDuplicateName is returned when a part's name collides with an
// existing row.  Handlers translate this into 400.
var ErrDuplicateName = errors.New("name already exists")

// ErrNotAssociated is returned when removing a part from a ticket the
// part was never added to.  Handlers translate this into 404.
var ErrNotAssociated = errors.New("not associated")

// ErrNoValidParts is returned by AddParts when none of the supplied part
// ids resolve to existing rows.  A partially valid batch is not an error:
// the resolvable subset is applied.  Handlers translate this into 404.
var ErrNoValidParts = errors.New("no valid parts")
