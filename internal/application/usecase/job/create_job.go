package job

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/logger"
)

type CreateJobUseCase struct {
	ledger JobLedger
	logger logger.Logger
}

func NewCreateJobUseCase(l JobLedger, log logger.Logger) *CreateJobUseCase {
	return &CreateJobUseCase{ledger: l, logger: log}
}

type CreateJobInput struct {
	Caller address.Address
	Draft  job.Draft
}

type CreateJobOutput struct {
	Job *job.Job
}

func (uc *CreateJobUseCase) Execute(ctx context.Context, input CreateJobInput) (*CreateJobOutput, error) {
	ctx, span := tracer.Start(ctx, "CreateJob")
	defer span.End()

	j, err := uc.ledger.CreateJob(ctx, input.Caller, input.Draft)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("job_id", int64(j.ID)))
	uc.logger.Info("Job created",
		zap.Uint64("job_id", j.ID),
		zap.String("requester", j.Requester.String()),
		zap.String("amount", j.RequestedPaymentAmount.String()),
	)
	return &CreateJobOutput{Job: j}, nil
}
