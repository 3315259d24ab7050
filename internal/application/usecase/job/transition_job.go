package job

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/logger"
)

type JobActionInput struct {
	Caller address.Address
	JobID  uint64
}

type JobActionOutput struct {
	Job *job.Job
}

type PublishJobUseCase struct {
	ledger JobLedger
	logger logger.Logger
}

func NewPublishJobUseCase(l JobLedger, log logger.Logger) *PublishJobUseCase {
	return &PublishJobUseCase{ledger: l, logger: log}
}

func (uc *PublishJobUseCase) Execute(ctx context.Context, input JobActionInput) (*JobActionOutput, error) {
	ctx, span := tracer.Start(ctx, "PublishJob")
	defer span.End()
	span.SetAttributes(attribute.Int64("job_id", int64(input.JobID)))

	j, err := uc.ledger.PublishJob(ctx, input.Caller, input.JobID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	uc.logger.Info("Job published", zap.Uint64("job_id", j.ID))
	return &JobActionOutput{Job: j}, nil
}

type AssignJobUseCase struct {
	ledger JobLedger
	logger logger.Logger
}

func NewAssignJobUseCase(l JobLedger, log logger.Logger) *AssignJobUseCase {
	return &AssignJobUseCase{ledger: l, logger: log}
}

type AssignJobInput struct {
	Caller     address.Address
	Freelancer address.Address
	JobID      uint64
}

func (uc *AssignJobUseCase) Execute(ctx context.Context, input AssignJobInput) (*JobActionOutput, error) {
	ctx, span := tracer.Start(ctx, "AssignJob")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("job_id", int64(input.JobID)),
		attribute.String("freelancer", input.Freelancer.String()),
	)

	j, err := uc.ledger.AssignJob(ctx, input.Caller, input.Freelancer, input.JobID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	uc.logger.Info("Job assigned", zap.Uint64("job_id", j.ID), zap.String("freelancer", j.Freelancer.String()))
	return &JobActionOutput{Job: j}, nil
}

type CompleteJobUseCase struct {
	ledger JobLedger
	logger logger.Logger
}

func NewCompleteJobUseCase(l JobLedger, log logger.Logger) *CompleteJobUseCase {
	return &CompleteJobUseCase{ledger: l, logger: log}
}

type CompleteJobInput struct {
	Caller address.Address
	JobID  uint64
	Funds  decimal.Decimal
}

func (uc *CompleteJobUseCase) Execute(ctx context.Context, input CompleteJobInput) (*JobActionOutput, error) {
	ctx, span := tracer.Start(ctx, "CompleteJob")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("job_id", int64(input.JobID)),
		attribute.String("funds", input.Funds.String()),
	)

	j, err := uc.ledger.CompleteJob(ctx, input.Caller, input.JobID, input.Funds)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	uc.logger.Info("Job completed; confirmation window open",
		zap.Uint64("job_id", j.ID),
		zap.Time("deadline", j.WindowDeadline()),
	)
	return &JobActionOutput{Job: j}, nil
}

type DeleteJobUseCase struct {
	ledger JobLedger
	logger logger.Logger
}

func NewDeleteJobUseCase(l JobLedger, log logger.Logger) *DeleteJobUseCase {
	return &DeleteJobUseCase{ledger: l, logger: log}
}

func (uc *DeleteJobUseCase) Execute(ctx context.Context, input JobActionInput) error {
	ctx, span := tracer.Start(ctx, "DeleteJob")
	defer span.End()
	span.SetAttributes(attribute.Int64("job_id", int64(input.JobID)))

	if err := uc.ledger.DeleteJob(ctx, input.Caller, input.JobID); err != nil {
		span.RecordError(err)
		return err
	}
	uc.logger.Info("Job deleted", zap.Uint64("job_id", input.JobID))
	return nil
}

type SettleJobUseCase struct {
	ledger JobLedger
	logger logger.Logger
}

func NewSettleJobUseCase(l JobLedger, log logger.Logger) *SettleJobUseCase {
	return &SettleJobUseCase{ledger: l, logger: log}
}

func (uc *SettleJobUseCase) Execute(ctx context.Context, input JobActionInput) (*JobActionOutput, error) {
	ctx, span := tracer.Start(ctx, "SettleJob")
	defer span.End()
	span.SetAttributes(attribute.Int64("job_id", int64(input.JobID)))

	j, err := uc.ledger.SettleJob(ctx, input.Caller, input.JobID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	uc.logger.Info("Job settled after confirmation window", zap.Uint64("job_id", j.ID), zap.Bool("paid", j.Paid))
	return &JobActionOutput{Job: j}, nil
}
