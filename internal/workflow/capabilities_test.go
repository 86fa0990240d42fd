package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/creative-board/internal/domain"
)

func TestCapabilitiesForCustomerRoles(t *testing.T) {
	t.Parallel()

	resolver := DefaultResolver()

	owner := resolver.CapabilitiesFor(domain.ActorKindCustomer, domain.CompanyRoleOwner)
	assert.Equal(t, Capabilities{
		CanMoveOnBoard:    true,
		CanEditTickets:    true,
		CanManageTags:     true,
		CanManageProjects: true,
		CanManageBilling:  true,
		CanMarkDone:       true,
	}, owner)

	pm := resolver.CapabilitiesFor(domain.ActorKindCustomer, domain.CompanyRolePM)
	assert.True(t, pm.CanMoveOnBoard)
	assert.True(t, pm.CanEditTickets)
	assert.True(t, pm.CanMarkDone)
	assert.False(t, pm.CanManageBilling)

	billing := resolver.CapabilitiesFor(domain.ActorKindCustomer, domain.CompanyRoleBilling)
	assert.Equal(t, Capabilities{CanManageBilling: true}, billing)

	member := resolver.CapabilitiesFor(domain.ActorKindCustomer, domain.CompanyRoleMember)
	assert.Equal(t, ReadOnly, member)
}

func TestCapabilitiesForCreative(t *testing.T) {
	t.Parallel()

	caps := DefaultResolver().CapabilitiesFor(domain.ActorKindCreative, domain.CompanyRoleOwner)
	assert.True(t, caps.CanMoveOnBoard)
	assert.False(t, caps.CanMarkDone)
	assert.False(t, caps.CanEditTickets)
	assert.False(t, caps.CanManageTags)
}

func TestCapabilitiesFailClosed(t *testing.T) {
	t.Parallel()

	resolver := DefaultResolver()
	assert.Equal(t, ReadOnly, resolver.CapabilitiesFor(domain.ActorKindCustomer, domain.CompanyRole("SUPERUSER")))
	assert.Equal(t, ReadOnly, resolver.CapabilitiesFor(domain.ActorKind(""), domain.CompanyRoleOwner))
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	policy, err := ParsePolicy([]byte(`
move_roles: [owner, pm, billing]
mark_done_roles:
  - OWNER
`))
	require.NoError(t, err)
	assert.Equal(t, []domain.CompanyRole{domain.CompanyRoleOwner, domain.CompanyRolePM, domain.CompanyRoleBilling}, policy.MoveRoles)
	assert.Equal(t, []domain.CompanyRole{domain.CompanyRoleOwner}, policy.MarkDoneRoles)
	assert.Equal(t, DefaultPolicy().EditRoles, policy.EditRoles)

	resolver := NewResolver(policy)
	billing := resolver.CapabilitiesFor(domain.ActorKindCustomer, domain.CompanyRoleBilling)
	assert.True(t, billing.CanMoveOnBoard)
	assert.False(t, billing.CanMarkDone)

	_, err = ParsePolicy([]byte(`mark_done_roles: [ADMIN]`))
	assert.Error(t, err)

	_, err = ParsePolicy([]byte(`move_roles: {`))
	assert.Error(t, err)
}

func TestLoadPolicyWithoutPathUsesDefaults(t *testing.T) {
	t.Parallel()

	policy, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), policy)

	_, err = LoadPolicy("/nonexistent/policy.yaml")
	assert.Error(t, err)
}
