package workflow

import (
	"fmt"
	"strings"

	"github.com/spec-kit/creative-board/internal/domain"
)

// Effect is what an allowed transition does to the revision ledger.
type Effect string

const (
	EffectNone           Effect = "none"
	EffectStart          Effect = "start"
	EffectSubmit         Effect = "submit"
	EffectPullBack       Effect = "pull_back"
	EffectRequestChanges Effect = "request_changes"
	EffectApprove        Effect = "approve"
	EffectRequeue        Effect = "requeue"
)

// Denial classifies why a transition was refused.
type Denial string

const (
	DenialNone              Denial = ""
	DenialIllegalTransition Denial = "illegal_transition"
	DenialUnauthorized      Denial = "unauthorized"
	DenialValidation        Denial = "validation"
)

// Decision is the outcome of validating a transition. Reason is set on every denial.
type Decision struct {
	Allowed bool
	Reason  string
	Denial  Denial
	Effect  Effect
}

// Denied is the inverse of Allowed.
func (d Decision) Denied() bool {
	return !d.Allowed
}

// Request is the input to Decide.
type Request struct {
	From         domain.TicketStatus
	To           domain.TicketStatus
	Actor        domain.ActorKind
	Capabilities Capabilities
}

// Payload carries the optional messages sent with a transition.
type Payload struct {
	FeedbackMessage string
	CreativeMessage string
}

var creativeTransitions = map[domain.TicketStatus]map[domain.TicketStatus]Effect{
	domain.TicketStatusTodo: {
		domain.TicketStatusInProgress: EffectStart,
	},
	domain.TicketStatusInProgress: {
		domain.TicketStatusInReview: EffectSubmit,
	},
	domain.TicketStatusInReview: {
		domain.TicketStatusInProgress: EffectPullBack,
	},
}

var customerTransitions = map[domain.TicketStatus]map[domain.TicketStatus]Effect{
	domain.TicketStatusInReview: {
		domain.TicketStatusInProgress: EffectRequestChanges,
		domain.TicketStatusDone:       EffectApprove,
	},
}

const (
	reasonCompleted        = "this ticket is already completed and can no longer move"
	reasonCannotMove       = "insufficient permission: your role does not allow moving tickets on the board"
	reasonCannotMarkDone   = "insufficient permission: your role does not allow marking tickets as done"
	reasonUnknownActor     = "insufficient permission: unrecognized actor"
	reasonCreativeOwned    = "this status is controlled by the creative working on the ticket"
	reasonCustomerOwned    = "this status is controlled by the customer: only they can approve finished work"
	reasonFeedbackRequired = "requesting changes requires a feedback message"
	reasonBulkFeedback     = "requesting changes needs its own feedback message and cannot be done in bulk"
	reasonRequeueRevisions = "only tickets without submitted revisions can be moved back to To Do"
)

// Decide applies the board transition table for one actor. It is pure and is
// evaluated identically by clients (advisory) and the server (authoritative).
func Decide(req Request) Decision {
	if !req.From.Valid() {
		return illegal(fmt.Sprintf("unknown current status %q", req.From))
	}
	if !req.To.Valid() {
		return illegal(fmt.Sprintf("unknown target status %q", req.To))
	}
	if req.From == req.To {
		return Decision{Allowed: true, Effect: EffectNone}
	}
	if req.From == domain.TicketStatusDone {
		return illegal(reasonCompleted)
	}

	switch req.Actor {
	case domain.ActorKindCreative:
		if !req.Capabilities.CanMoveOnBoard {
			return unauthorized(reasonCannotMove)
		}
		if effect, ok := creativeTransitions[req.From][req.To]; ok {
			return allow(effect)
		}
		if _, ok := customerTransitions[req.From][req.To]; ok {
			return illegal(reasonCustomerOwned)
		}
		return illegal(pairReason(req.From, req.To))
	case domain.ActorKindCustomer:
		if !req.Capabilities.CanMoveOnBoard {
			return unauthorized(reasonCannotMove)
		}
		if effect, ok := customerTransitions[req.From][req.To]; ok {
			if effect == EffectApprove && !req.Capabilities.CanMarkDone {
				return unauthorized(reasonCannotMarkDone)
			}
			return allow(effect)
		}
		if _, ok := creativeTransitions[req.From][req.To]; ok {
			return illegal(reasonCreativeOwned)
		}
		return illegal(pairReason(req.From, req.To))
	default:
		return unauthorized(reasonUnknownActor)
	}
}

// CheckPayload rejects an allowed decision whose required message is missing.
func CheckPayload(decision Decision, payload Payload) Decision {
	if !decision.Allowed {
		return decision
	}
	if decision.Effect == EffectRequestChanges && strings.TrimSpace(payload.FeedbackMessage) == "" {
		return Decision{Reason: reasonFeedbackRequired, Denial: DenialValidation}
	}
	return decision
}

// DecideBulk validates one ticket of a bulk move. Bulk moves carry no
// messages, so request-changes is never eligible; customers who can edit
// tickets may additionally re-queue untouched tickets to TODO.
func DecideBulk(req Request, revisionCount int) Decision {
	decision := Decide(req)
	if decision.Allowed {
		if decision.Effect == EffectRequestChanges {
			return Decision{Reason: reasonBulkFeedback, Denial: DenialValidation}
		}
		return decision
	}
	if decision.Denial != DenialIllegalTransition || req.From == domain.TicketStatusDone {
		return decision
	}
	if req.To == domain.TicketStatusTodo && req.Actor == domain.ActorKindCustomer && req.Capabilities.CanEditTickets {
		if revisionCount > 0 {
			return illegal(reasonRequeueRevisions)
		}
		return allow(EffectRequeue)
	}
	return decision
}

func pairReason(from, to domain.TicketStatus) string {
	return fmt.Sprintf("tickets cannot move from %s to %s", from.Label(), to.Label())
}

func allow(effect Effect) Decision {
	return Decision{Allowed: true, Effect: effect}
}

func illegal(reason string) Decision {
	return Decision{Reason: reason, Denial: DenialIllegalTransition}
}

func unauthorized(reason string) Decision {
	return Decision{Reason: reason, Denial: DenialUnauthorized}
}
