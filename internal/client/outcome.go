package client

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/workflow"
	apperrors "github.com/spec-kit/creative-board/pkg/util/errorutil"
)

// OutcomeKind classifies how a coordinator invocation ended.
type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomePartial   OutcomeKind = "partial"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeDenied    OutcomeKind = "denied"
	OutcomeNoOp      OutcomeKind = "noop"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// FailureKind tells the caller which explanation to show.
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureIllegalTransition FailureKind = "illegal_transition"
	FailureUnauthorized      FailureKind = "unauthorized"
	FailureUnauthenticated   FailureKind = "unauthenticated"
	FailureValidation        FailureKind = "validation"
	FailureNotFound          FailureKind = "not_found"
	FailureConflict          FailureKind = "conflict"
	FailureUpload            FailureKind = "upload"
	FailureServer            FailureKind = "server"
	FailureTransport         FailureKind = "transport"
)

// ItemResult is one ticket's result inside a bulk outcome.
type ItemResult struct {
	TicketID string
	Success  bool
	Reason   string
	Changed  bool
}

// Outcome is the structured result every coordinator returns and notifies.
type Outcome struct {
	Kind      OutcomeKind
	Operation string
	TicketIDs []string
	Target    domain.TicketStatus
	Failure   FailureKind
	Message   string

	// Single moves.
	Ticket     *domain.Ticket
	RevisionID string

	// Bulk moves.
	SuccessCount int
	FailCount    int
	Results      []ItemResult
}

// FailedIDs lists the tickets a bulk move could not change.
func (o Outcome) FailedIDs() []string {
	var ids []string
	for _, r := range o.Results {
		if !r.Success {
			ids = append(ids, r.TicketID)
		}
	}
	return ids
}

// Notifier surfaces outcomes to the user. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, outcome Outcome)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, outcome Outcome)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, outcome Outcome) {
	f(ctx, outcome)
}

// LogNotifier writes outcomes to a zap logger at a level matching their severity.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the outcome.
func (n *LogNotifier) Notify(_ context.Context, outcome Outcome) {
	fields := []zap.Field{
		zap.String("operation", outcome.Operation),
		zap.String("kind", string(outcome.Kind)),
		zap.Strings("ticket_ids", outcome.TicketIDs),
		zap.String("target", string(outcome.Target)),
	}
	if outcome.Failure != FailureNone {
		fields = append(fields, zap.String("failure", string(outcome.Failure)))
	}
	if outcome.Operation == operationBulkMove {
		fields = append(fields,
			zap.Int("success_count", outcome.SuccessCount),
			zap.Int("fail_count", outcome.FailCount))
	}
	switch outcome.Kind {
	case OutcomeSucceeded, OutcomeNoOp:
		n.logger.Info(outcome.Message, fields...)
	case OutcomePartial, OutcomeDenied, OutcomeCancelled:
		n.logger.Warn(outcome.Message, fields...)
	default:
		n.logger.Error(outcome.Message, fields...)
	}
}

const (
	operationMove     = "move"
	operationBulkMove = "bulk_move"
)

// FailureOf maps an error returned by a Gateway to a FailureKind.
func FailureOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		return FailureTransport
	}
	switch domainErr.Code {
	case apperrors.CodeIllegalTransition:
		return FailureIllegalTransition
	case apperrors.CodeForbidden:
		return FailureUnauthorized
	case apperrors.CodeUnauthorized:
		return FailureUnauthenticated
	case apperrors.CodeValidation:
		return FailureValidation
	case apperrors.CodeNotFound:
		return FailureNotFound
	case apperrors.CodeConflict:
		return FailureConflict
	default:
		return FailureServer
	}
}

func denialFailure(denial workflow.Denial) FailureKind {
	switch denial {
	case workflow.DenialUnauthorized:
		return FailureUnauthorized
	case workflow.DenialValidation:
		return FailureValidation
	default:
		return FailureIllegalTransition
	}
}

// failureMessage prefers the server's explanation over the transport error.
func failureMessage(err error) string {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return fmt.Sprintf("the board could not be updated: %v", err)
}

func bulkMessage(success, total int, target domain.TicketStatus) string {
	switch {
	case success == total && total == 1:
		return fmt.Sprintf("Moved 1 ticket to %s", target.Label())
	case success == total:
		return fmt.Sprintf("Moved %d tickets to %s", total, target.Label())
	case success == 0:
		return fmt.Sprintf("None of the %d tickets could be moved to %s", total, target.Label())
	default:
		return fmt.Sprintf("%d of %d tickets moved to %s; %d could not be moved", success, total, target.Label(), total-success)
	}
}
