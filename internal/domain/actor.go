package domain

import "strings"

// ActorKind differentiates customer-company members from creatives.
type ActorKind string

const (
	ActorKindCustomer ActorKind = "CUSTOMER"
	ActorKindCreative ActorKind = "CREATIVE"
)

// CompanyRole is the role a customer member holds inside their company.
type CompanyRole string

const (
	CompanyRoleOwner   CompanyRole = "OWNER"
	CompanyRolePM      CompanyRole = "PM"
	CompanyRoleBilling CompanyRole = "BILLING"
	CompanyRoleMember  CompanyRole = "MEMBER"
)

// Valid reports whether the role is recognized.
func (r CompanyRole) Valid() bool {
	switch r {
	case CompanyRoleOwner, CompanyRolePM, CompanyRoleBilling, CompanyRoleMember:
		return true
	}
	return false
}

// ParseCompanyRole normalizes a role name; unknown names are returned as-is
// so that capability resolution can fail closed.
func ParseCompanyRole(raw string) CompanyRole {
	return CompanyRole(strings.ToUpper(strings.TrimSpace(raw)))
}

// Actor is the authenticated caller acting on a company's board.
type Actor struct {
	ID        string
	Kind      ActorKind
	CompanyID string
	Role      CompanyRole
}

// IsCreative reports whether the actor produces work for tickets.
func (a Actor) IsCreative() bool {
	return a.Kind == ActorKindCreative
}

// IsCustomer reports whether the actor belongs to the customer company.
func (a Actor) IsCustomer() bool {
	return a.Kind == ActorKindCustomer
}
