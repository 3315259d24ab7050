package job

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/khoahotran/detasker/internal/domain/escrow"
	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/internal/ledger"
	"github.com/khoahotran/detasker/pkg/address"
)

// JobLedger is the part of the ledger the job use cases drive.
type JobLedger interface {
	CreateJob(ctx context.Context, caller address.Address, d job.Draft) (*job.Job, error)
	PublishJob(ctx context.Context, caller address.Address, jobID uint64) (*job.Job, error)
	AssignJob(ctx context.Context, caller, freelancer address.Address, jobID uint64) (*job.Job, error)
	CompleteJob(ctx context.Context, caller address.Address, jobID uint64, funds decimal.Decimal) (*job.Job, error)
	DeleteJob(ctx context.Context, caller address.Address, jobID uint64) error
	SettleJob(ctx context.Context, caller address.Address, jobID uint64) (*job.Job, error)
	GetJobByID(id uint64) (*job.Job, error)
	GetJobCount() uint64
	GetTagCount() uint64
	ListJobs(f ledger.JobFilter, p ledger.Page) ([]*job.Job, int)
	GetEscrowMovements(jobID uint64) ([]escrow.Movement, error)
	TimeForConfirmation() time.Duration
	ConfirmationWindow() time.Duration
}

var tracer = otel.Tracer("job_usecase")
