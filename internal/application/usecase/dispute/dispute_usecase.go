package dispute

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/internal/domain/dispute"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/logger"
)

type DisputeLedger interface {
	RaiseDispute(ctx context.Context, caller address.Address, jobID uint64, reason string) (*dispute.Dispute, error)
	ResolveDispute(ctx context.Context, caller address.Address, jobID uint64, o dispute.Outcome) (*dispute.Dispute, error)
	GetDisputes(jobID uint64) ([]dispute.Dispute, error)
	GetBalance(account, token address.Address) decimal.Decimal
}

var tracer = otel.Tracer("dispute_usecase")

type DisputeUseCase struct {
	ledger DisputeLedger
	logger logger.Logger
}

func NewDisputeUseCase(l DisputeLedger, log logger.Logger) *DisputeUseCase {
	return &DisputeUseCase{ledger: l, logger: log}
}

type RaiseDisputeInput struct {
	Caller address.Address
	JobID  uint64
	Reason string
}

func (uc *DisputeUseCase) ExecuteRaise(ctx context.Context, input RaiseDisputeInput) (*dispute.Dispute, error) {
	ctx, span := tracer.Start(ctx, "RaiseDispute")
	defer span.End()
	span.SetAttributes(attribute.Int64("job_id", int64(input.JobID)))

	d, err := uc.ledger.RaiseDispute(ctx, input.Caller, input.JobID, input.Reason)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	uc.logger.Warn("Dispute raised",
		zap.Uint64("dispute_id", d.ID),
		zap.Uint64("job_id", d.JobID),
		zap.String("raised_by", d.RaisedBy.String()),
	)
	return d, nil
}

type ResolveDisputeInput struct {
	Caller  address.Address
	JobID   uint64
	Outcome dispute.Outcome
}

func (uc *DisputeUseCase) ExecuteResolve(ctx context.Context, input ResolveDisputeInput) (*dispute.Dispute, error) {
	ctx, span := tracer.Start(ctx, "ResolveDispute")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("job_id", int64(input.JobID)),
		attribute.String("outcome", string(input.Outcome.Kind)),
	)

	d, err := uc.ledger.ResolveDispute(ctx, input.Caller, input.JobID, input.Outcome)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	uc.logger.Info("Dispute resolved",
		zap.Uint64("dispute_id", d.ID),
		zap.Uint64("job_id", d.JobID),
		zap.String("outcome", string(input.Outcome.Kind)),
		zap.String("freelancer_amount", d.FreelancerAmount.String()),
		zap.String("requester_amount", d.RequesterAmount.String()),
	)
	return d, nil
}

func (uc *DisputeUseCase) ExecuteList(ctx context.Context, jobID uint64) ([]dispute.Dispute, error) {
	_, span := tracer.Start(ctx, "ListDisputes")
	defer span.End()

	ds, err := uc.ledger.GetDisputes(jobID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return ds, nil
}

// ExecuteBalance reports the caller's net position in token, counting escrow releases already due.
func (uc *DisputeUseCase) ExecuteBalance(ctx context.Context, account, token address.Address) decimal.Decimal {
	_, span := tracer.Start(ctx, "GetBalance")
	defer span.End()
	return uc.ledger.GetBalance(account, token)
}
