package workflow

import (
	"github.com/spec-kit/creative-board/internal/domain"
)

// Capabilities are read-only permissions projected from an actor's kind and role.
type Capabilities struct {
	CanMoveOnBoard    bool `json:"can_move_on_board"`
	CanEditTickets    bool `json:"can_edit_tickets"`
	CanManageTags     bool `json:"can_manage_tags"`
	CanManageProjects bool `json:"can_manage_projects"`
	CanManageBilling  bool `json:"can_manage_billing"`
	CanMarkDone       bool `json:"can_mark_done"`
}

// ReadOnly is the most restrictive capability set.
var ReadOnly = Capabilities{}

// creativeCapabilities apply to every creative: they move their own assigned
// tickets among the creative-side statuses and never approve work.
var creativeCapabilities = Capabilities{CanMoveOnBoard: true}

// Resolver maps actors to capabilities according to a Policy.
type Resolver struct {
	move     map[domain.CompanyRole]struct{}
	edit     map[domain.CompanyRole]struct{}
	billing  map[domain.CompanyRole]struct{}
	markDone map[domain.CompanyRole]struct{}
}

// NewResolver builds a resolver; unknown roles in the policy are ignored.
func NewResolver(policy Policy) *Resolver {
	return &Resolver{
		move:     roleSet(policy.MoveRoles),
		edit:     roleSet(policy.EditRoles),
		billing:  roleSet(policy.BillingRoles),
		markDone: roleSet(policy.MarkDoneRoles),
	}
}

// DefaultResolver uses DefaultPolicy.
func DefaultResolver() *Resolver {
	return NewResolver(DefaultPolicy())
}

// CapabilitiesFor resolves the capability set. Unrecognized kinds or roles
// fail closed to ReadOnly.
func (r *Resolver) CapabilitiesFor(kind domain.ActorKind, role domain.CompanyRole) Capabilities {
	switch kind {
	case domain.ActorKindCreative:
		return creativeCapabilities
	case domain.ActorKindCustomer:
	default:
		return ReadOnly
	}
	if !role.Valid() {
		return ReadOnly
	}

	caps := Capabilities{
		CanMoveOnBoard:   has(r.move, role),
		CanEditTickets:   has(r.edit, role),
		CanManageBilling: has(r.billing, role),
		CanMarkDone:      has(r.markDone, role),
	}
	caps.CanManageTags = caps.CanEditTickets
	caps.CanManageProjects = caps.CanEditTickets
	return caps
}

// For is shorthand for CapabilitiesFor(actor.Kind, actor.Role).
func (r *Resolver) For(actor domain.Actor) Capabilities {
	return r.CapabilitiesFor(actor.Kind, actor.Role)
}

func roleSet(roles []domain.CompanyRole) map[domain.CompanyRole]struct{} {
	set := make(map[domain.CompanyRole]struct{}, len(roles))
	for _, role := range roles {
		if role.Valid() {
			set[role] = struct{}{}
		}
	}
	return set
}

func has(set map[domain.CompanyRole]struct{}, role domain.CompanyRole) bool {
	_, ok := set[role]
	return ok
}
