// Package auth classifies authenticated subjects into workshop roles.
// The role is never carried inside the access token: it is derived from
// the identity store on every request, so a deleted account loses its
// access the moment the row is gone, token or no token.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/mechworks/workshop-api/internal/model"
	"github.com/mechworks/workshop-api/internal/repository"
)

// RoleKind tags the variants of the Role union.
type RoleKind string

const (
	// RoleMechanic marks a subject id found in the mechanics table.
	RoleMechanic RoleKind = "MECHANIC"
	// RoleCustomer marks a subject id found in the customers table.
	RoleCustomer RoleKind = "CUSTOMER"
	// RoleUnauthenticated marks a subject id found in neither table.
	RoleUnauthenticated RoleKind = ""
)

// Role is the resolved classification of an authenticated subject.  It is
// resolved once per request and passed explicitly to handlers instead of
// being re-queried ad hoc at each call site.
type Role struct {
	Kind      RoleKind
	SubjectID uint64
}

// IsMechanic reports whether the role grants mechanic privileges.
func (r Role) IsMechanic() bool { return r.Kind == RoleMechanic }

// IsCustomer reports whether the role grants customer privileges.
func (r Role) IsCustomer() bool { return r.Kind == RoleCustomer }

// MechanicFinder looks up a mechanic by id.
type MechanicFinder interface {
	GetByID(ctx context.Context, id uint64) (model.Mechanic, error)
}

// CustomerFinder looks up a customer by id.
type CustomerFinder interface {
	GetByID(ctx context.Context, id uint64) (model.Customer, error)
}

// Resolver classifies subject ids against the two identity spaces.
type Resolver struct {
	mechanics MechanicFinder
	customers CustomerFinder
}

// NewResolver constructs a Resolver over the two identity stores.
func NewResolver(mechanics MechanicFinder, customers CustomerFinder) *Resolver {
	if mechanics == nil || customers == nil {
		panic("nil store passed to NewResolver")
	}
	return &Resolver{mechanics: mechanics, customers: customers}
}

// Resolve probes the mechanics table first and falls back to customers.
// The two tables share no keys, so at most one probe can succeed.  A
// subject found in neither yields RoleUnauthenticated with a nil error;
// storage failures are propagated so callers can answer 500 rather than
// silently denying access.
func (r *Resolver) Resolve(ctx context.Context, subjectID uint64) (Role, error) {
	if _, err := r.mechanics.GetByID(ctx, subjectID); err == nil {
		return Role{Kind: RoleMechanic, SubjectID: subjectID}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Role{}, fmt.Errorf("resolve mechanic %d: %w", subjectID, err)
	}
	if _, err := r.customers.GetByID(ctx, subjectID); err == nil {
		return Role{Kind: RoleCustomer, SubjectID: subjectID}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Role{}, fmt.Errorf("resolve customer %d: %w", subjectID, err)
	}
	return Role{Kind: RoleUnauthenticated, SubjectID: subjectID}, nil
}
