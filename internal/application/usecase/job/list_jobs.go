package job

import (
	"context"

	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/internal/ledger"
	"github.com/khoahotran/detasker/pkg/address"
)

type ListJobsUseCase struct {
	ledger JobLedger
}

func NewListJobsUseCase(l JobLedger) *ListJobsUseCase {
	return &ListJobsUseCase{ledger: l}
}

type ListJobsInput struct {
	Owner     *address.Address
	Published *bool
	Tag       string
	Status    job.Status
	Page      int
	Limit     int
}

type ListJobsOutput struct {
	Jobs  []*job.Job
	Total int
	Page  int
	Limit int
}

func (uc *ListJobsUseCase) Execute(ctx context.Context, input ListJobsInput) (*ListJobsOutput, error) {
	_, span := tracer.Start(ctx, "ListJobs")
	defer span.End()

	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 10
	}
	if input.Page <= 0 {
		input.Page = 1
	}

	jobs, total := uc.ledger.ListJobs(
		ledger.JobFilter{Owner: input.Owner, Published: input.Published, Tag: input.Tag, Status: input.Status},
		ledger.Page{Page: input.Page, Limit: input.Limit},
	)
	return &ListJobsOutput{Jobs: jobs, Total: total, Page: input.Page, Limit: input.Limit}, nil
}
