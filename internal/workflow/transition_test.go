package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/creative-board/internal/domain"
)

type actorCase struct {
	name string
	kind domain.ActorKind
	role domain.CompanyRole
}

var actorCases = []actorCase{
	{"creative", domain.ActorKindCreative, ""},
	{"owner", domain.ActorKindCustomer, domain.CompanyRoleOwner},
	{"pm", domain.ActorKindCustomer, domain.CompanyRolePM},
	{"billing", domain.ActorKindCustomer, domain.CompanyRoleBilling},
	{"member", domain.ActorKindCustomer, domain.CompanyRoleMember},
	{"unknown role", domain.ActorKindCustomer, domain.CompanyRole("INTERN")},
	{"unknown kind", domain.ActorKind("ROBOT"), domain.CompanyRoleOwner},
}

type pair struct{ from, to domain.TicketStatus }

var (
	todo       = domain.TicketStatusTodo
	inProgress = domain.TicketStatusInProgress
	inReview   = domain.TicketStatusInReview
	done       = domain.TicketStatusDone
)

func expectedAllowed(ac actorCase, from, to domain.TicketStatus) (bool, Effect) {
	if from == to {
		return true, EffectNone
	}
	if from == done {
		return false, ""
	}
	switch {
	case ac.kind == domain.ActorKindCreative:
		switch (pair{from, to}) {
		case pair{todo, inProgress}:
			return true, EffectStart
		case pair{inProgress, inReview}:
			return true, EffectSubmit
		case pair{inReview, inProgress}:
			return true, EffectPullBack
		}
	case ac.kind == domain.ActorKindCustomer && (ac.role == domain.CompanyRoleOwner || ac.role == domain.CompanyRolePM):
		switch (pair{from, to}) {
		case pair{inReview, inProgress}:
			return true, EffectRequestChanges
		case pair{inReview, done}:
			return true, EffectApprove
		}
	}
	return false, ""
}

func TestDecideMatchesTransitionTable(t *testing.T) {
	t.Parallel()

	resolver := DefaultResolver()
	for _, ac := range actorCases {
		caps := resolver.CapabilitiesFor(ac.kind, ac.role)
		for _, from := range domain.TicketStatuses {
			for _, to := range domain.TicketStatuses {
				name := fmt.Sprintf("%s %s->%s", ac.name, from, to)
				decision := Decide(Request{From: from, To: to, Actor: ac.kind, Capabilities: caps})

				wantAllowed, wantEffect := expectedAllowed(ac, from, to)
				require.Equal(t, wantAllowed, decision.Allowed, name)
				if wantAllowed {
					assert.Equal(t, wantEffect, decision.Effect, name)
					assert.Empty(t, decision.Reason, name)
					assert.Equal(t, DenialNone, decision.Denial, name)
					continue
				}
				assert.NotEmpty(t, decision.Reason, name)
				assert.NotEqual(t, DenialNone, decision.Denial, name)
			}
		}
	}
}

func TestDecideSameStatusIsAlwaysNoOp(t *testing.T) {
	t.Parallel()

	for _, ac := range actorCases {
		for _, status := range domain.TicketStatuses {
			decision := Decide(Request{From: status, To: status, Actor: ac.kind, Capabilities: ReadOnly})
			assert.True(t, decision.Allowed, "%s %s", ac.name, status)
			assert.Equal(t, EffectNone, decision.Effect)
		}
	}
}

func TestDecideDenialReasons(t *testing.T) {
	t.Parallel()

	resolver := DefaultResolver()
	creative := resolver.CapabilitiesFor(domain.ActorKindCreative, "")
	owner := resolver.CapabilitiesFor(domain.ActorKindCustomer, domain.CompanyRoleOwner)
	member := resolver.CapabilitiesFor(domain.ActorKindCustomer, domain.CompanyRoleMember)

	tests := []struct {
		name   string
		req    Request
		denial Denial
		reason string
	}{
		{
			name:   "member cannot drag to done",
			req:    Request{From: inReview, To: done, Actor: domain.ActorKindCustomer, Capabilities: member},
			denial: DenialUnauthorized,
			reason: reasonCannotMove,
		},
		{
			name:   "creative cannot approve",
			req:    Request{From: inReview, To: done, Actor: domain.ActorKindCreative, Capabilities: creative},
			denial: DenialIllegalTransition,
			reason: reasonCustomerOwned,
		},
		{
			name:   "customer cannot start work",
			req:    Request{From: todo, To: inProgress, Actor: domain.ActorKindCustomer, Capabilities: owner},
			denial: DenialIllegalTransition,
			reason: reasonCreativeOwned,
		},
		{
			name:   "customer cannot submit",
			req:    Request{From: inProgress, To: inReview, Actor: domain.ActorKindCustomer, Capabilities: owner},
			denial: DenialIllegalTransition,
			reason: reasonCreativeOwned,
		},
		{
			name:   "done is terminal",
			req:    Request{From: done, To: inProgress, Actor: domain.ActorKindCustomer, Capabilities: owner},
			denial: DenialIllegalTransition,
			reason: reasonCompleted,
		},
		{
			name:   "todo cannot skip to review",
			req:    Request{From: todo, To: inReview, Actor: domain.ActorKindCreative, Capabilities: creative},
			denial: DenialIllegalTransition,
			reason: "tickets cannot move from To Do to In Review",
		},
		{
			name:   "unknown target",
			req:    Request{From: todo, To: domain.TicketStatus("ARCHIVED"), Actor: domain.ActorKindCreative, Capabilities: creative},
			denial: DenialIllegalTransition,
			reason: `unknown target status "ARCHIVED"`,
		},
	}

	for _, tt := range tests {
		decision := Decide(tt.req)
		require.False(t, decision.Allowed, tt.name)
		assert.Equal(t, tt.denial, decision.Denial, tt.name)
		assert.Equal(t, tt.reason, decision.Reason, tt.name)
	}
}

func TestDecideMarkDoneRequiresCapability(t *testing.T) {
	t.Parallel()

	policy, err := DefaultPolicy().WithMarkDoneRoles([]string{"owner"})
	require.NoError(t, err)
	resolver := NewResolver(policy)

	pm := resolver.CapabilitiesFor(domain.ActorKindCustomer, domain.CompanyRolePM)
	require.True(t, pm.CanMoveOnBoard)
	require.False(t, pm.CanMarkDone)

	decision := Decide(Request{From: inReview, To: done, Actor: domain.ActorKindCustomer, Capabilities: pm})
	assert.False(t, decision.Allowed)
	assert.Equal(t, DenialUnauthorized, decision.Denial)
	assert.Equal(t, reasonCannotMarkDone, decision.Reason)

	requestChanges := Decide(Request{From: inReview, To: inProgress, Actor: domain.ActorKindCustomer, Capabilities: pm})
	assert.True(t, requestChanges.Allowed)
}

func TestCheckPayloadRequiresFeedbackForRequestChanges(t *testing.T) {
	t.Parallel()

	owner := DefaultResolver().CapabilitiesFor(domain.ActorKindCustomer, domain.CompanyRoleOwner)
	decision := Decide(Request{From: inReview, To: inProgress, Actor: domain.ActorKindCustomer, Capabilities: owner})
	require.True(t, decision.Allowed)

	missing := CheckPayload(decision, Payload{FeedbackMessage: "   "})
	assert.False(t, missing.Allowed)
	assert.Equal(t, DenialValidation, missing.Denial)
	assert.Equal(t, reasonFeedbackRequired, missing.Reason)

	present := CheckPayload(decision, Payload{FeedbackMessage: "make it bigger"})
	assert.True(t, present.Allowed)
	assert.Equal(t, EffectRequestChanges, present.Effect)

	creative := DefaultResolver().CapabilitiesFor(domain.ActorKindCreative, "")
	pullBack := Decide(Request{From: inReview, To: inProgress, Actor: domain.ActorKindCreative, Capabilities: creative})
	assert.True(t, CheckPayload(pullBack, Payload{}).Allowed)
}

func TestDecideBulk(t *testing.T) {
	t.Parallel()

	resolver := DefaultResolver()
	owner := resolver.CapabilitiesFor(domain.ActorKindCustomer, domain.CompanyRoleOwner)
	member := resolver.CapabilitiesFor(domain.ActorKindCustomer, domain.CompanyRoleMember)
	creative := resolver.CapabilitiesFor(domain.ActorKindCreative, "")

	requeue := DecideBulk(Request{From: inProgress, To: todo, Actor: domain.ActorKindCustomer, Capabilities: owner}, 0)
	assert.True(t, requeue.Allowed)
	assert.Equal(t, EffectRequeue, requeue.Effect)

	withRevisions := DecideBulk(Request{From: inProgress, To: todo, Actor: domain.ActorKindCustomer, Capabilities: owner}, 2)
	assert.False(t, withRevisions.Allowed)
	assert.Equal(t, reasonRequeueRevisions, withRevisions.Reason)

	fromDone := DecideBulk(Request{From: done, To: todo, Actor: domain.ActorKindCustomer, Capabilities: owner}, 0)
	assert.False(t, fromDone.Allowed)
	assert.Equal(t, reasonCompleted, fromDone.Reason)

	memberRequeue := DecideBulk(Request{From: inProgress, To: todo, Actor: domain.ActorKindCustomer, Capabilities: member}, 0)
	assert.False(t, memberRequeue.Allowed)
	assert.Equal(t, DenialUnauthorized, memberRequeue.Denial)

	creativeRequeue := DecideBulk(Request{From: inProgress, To: todo, Actor: domain.ActorKindCreative, Capabilities: creative}, 0)
	assert.False(t, creativeRequeue.Allowed)
	assert.NotEmpty(t, creativeRequeue.Reason)

	bulkFeedback := DecideBulk(Request{From: inReview, To: inProgress, Actor: domain.ActorKindCustomer, Capabilities: owner}, 1)
	assert.False(t, bulkFeedback.Allowed)
	assert.Equal(t, DenialValidation, bulkFeedback.Denial)

	approve := DecideBulk(Request{From: inReview, To: done, Actor: domain.ActorKindCustomer, Capabilities: owner}, 1)
	assert.True(t, approve.Allowed)
	assert.Equal(t, EffectApprove, approve.Effect)

	noop := DecideBulk(Request{From: todo, To: todo, Actor: domain.ActorKindCustomer, Capabilities: owner}, 0)
	assert.True(t, noop.Allowed)
	assert.Equal(t, EffectNone, noop.Effect)
}
