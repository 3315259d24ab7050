package job

import (
	"context"
	"time"

	"github.com/khoahotran/detasker/internal/domain/escrow"
	"github.com/khoahotran/detasker/internal/domain/job"
)

type GetJobUseCase struct {
	ledger JobLedger
}

func NewGetJobUseCase(l JobLedger) *GetJobUseCase {
	return &GetJobUseCase{ledger: l}
}

type GetJobInput struct {
	JobID            uint64
	IncludeMovements bool
}

type GetJobOutput struct {
	Job       *job.Job
	Deadline  *time.Time
	Movements []escrow.Movement
}

func (uc *GetJobUseCase) Execute(ctx context.Context, input GetJobInput) (*GetJobOutput, error) {
	_, span := tracer.Start(ctx, "GetJob")
	defer span.End()

	j, err := uc.ledger.GetJobByID(input.JobID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out := &GetJobOutput{Job: j}
	if j.DateCompleted != nil {
		d := j.WindowDeadline()
		out.Deadline = &d
	}
	if input.IncludeMovements {
		out.Movements, err = uc.ledger.GetEscrowMovements(j.ID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	return out, nil
}

type JobCounts struct {
	Jobs uint64
	Tags uint64
}

func (uc *GetJobUseCase) Counts() JobCounts {
	return JobCounts{Jobs: uc.ledger.GetJobCount(), Tags: uc.ledger.GetTagCount()}
}

type WindowInfo struct {
	// Seconds is the protocol constant.
	Seconds int64
	// EffectiveSeconds is what newly completed jobs get.
	EffectiveSeconds int64
}

func (uc *GetJobUseCase) ConfirmationWindow() WindowInfo {
	return WindowInfo{
		Seconds:          int64(uc.ledger.TimeForConfirmation() / time.Second),
		EffectiveSeconds: int64(uc.ledger.ConfirmationWindow() / time.Second),
	}
}
