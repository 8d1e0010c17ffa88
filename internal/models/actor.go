package models

import (
	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleUniversity Role = "university"
	RoleAdmin      Role = "admin"
)

// Actor is the authenticated caller
// Identity is asserted by the external auth system, the ledger only records it
type Actor struct {
	ID           uuid.UUID
	Role         Role
	UniversityID *uuid.UUID // set for university staff
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ActsFor reports whether the actor is staff of the university
func (a Actor) ActsFor(universityID uuid.UUID) bool {
	return a.Role == RoleUniversity && a.UniversityID != nil && *a.UniversityID == universityID
}
