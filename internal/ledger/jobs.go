package ledger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khoahotran/detasker/internal/domain/escrow"
	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
)

type createJob struct {
	Caller address.Address `json:"caller"`
	Draft  job.Draft       `json:"draft"`
}

func (c *createJob) name() string { return "create_job" }

func (c *createJob) run(t *tx) (any, error) {
	pid, ok := t.s.byAddress[c.Caller]
	if !ok {
		return nil, apperror.NewNotFound("profile", c.Caller.String())
	}
	if err := c.Draft.Validate(); err != nil {
		return nil, apperror.NewInvalidInput("invalid job", err)
	}
	d := c.Draft
	if d.Token.IsZero() {
		d.Token = t.cfg.DefaultToken
	}

	j := job.New(t.s.jobCount.next(), pid, c.Caller, d, t.now)
	t.s.jobs = append(t.s.jobs, j)
	t.touchedJobs[j.ID] = true

	p := t.profileMut(pid)
	p.JobIDs = append(p.JobIDs, j.ID)

	for _, tag := range j.Tags {
		idx := t.tags()
		if _, seen := idx[tag]; !seen {
			t.s.tagCount.next()
		}
		idx[tag] = append(idx[tag], j.ID)
	}

	t.emit(Event{Type: EventJobCreated, JobID: &j.ID, Address: c.Caller, Data: map[string]any{
		"title": j.Title, "amount": j.RequestedPaymentAmount.String(), "token": j.Token.String(), "tags": j.Tags,
	}})
	return j.Clone(), nil
}

// CreateJob posts a job owned by caller. The job starts unpublished.
func (l *Ledger) CreateJob(ctx context.Context, caller address.Address, d job.Draft) (*job.Job, error) {
	return exec[*job.Job](ctx, l, &createJob{Caller: caller, Draft: d})
}

func requireRequester(j *job.Job, caller address.Address, action string) error {
	if !j.IsRequester(caller) {
		return apperror.NewPermissionDenied(fmt.Sprintf("only the requester of job %d may %s it", j.ID, action))
	}
	return nil
}

type publishJob struct {
	Caller address.Address `json:"caller"`
	JobID  uint64          `json:"job_id"`
}

func (c *publishJob) name() string { return "publish_job" }

func (c *publishJob) run(t *tx) (any, error) {
	j, _, err := t.job(c.JobID)
	if err != nil {
		return nil, err
	}
	if err := requireRequester(j, c.Caller, "publish"); err != nil {
		return nil, err
	}
	if err := j.MarkPublished(t.now); err != nil {
		return nil, err
	}
	t.emit(Event{Type: EventJobPublished, JobID: &j.ID, Address: c.Caller})
	return j.Clone(), nil
}

func (l *Ledger) PublishJob(ctx context.Context, caller address.Address, jobID uint64) (*job.Job, error) {
	return exec[*job.Job](ctx, l, &publishJob{Caller: caller, JobID: jobID})
}

type assignJob struct {
	Caller     address.Address `json:"caller"`
	Freelancer address.Address `json:"freelancer"`
	JobID      uint64          `json:"job_id"`
}

func (c *assignJob) name() string { return "assign_job" }

func (c *assignJob) run(t *tx) (any, error) {
	j, _, err := t.job(c.JobID)
	if err != nil {
		return nil, err
	}
	if err := requireRequester(j, c.Caller, "assign"); err != nil {
		return nil, err
	}
	if err := j.CheckAssignable(); err != nil {
		return nil, err
	}

	fp, ok := t.s.profileByAddress(c.Freelancer)
	switch {
	case !ok:
		return nil, apperror.NewNotEligible(fmt.Sprintf("address %s has no profile", c.Freelancer))
	case !fp.Eligible():
		return nil, apperror.NewNotEligible(fmt.Sprintf("address %s has no active freelancer record", c.Freelancer))
	case c.Freelancer == j.Requester:
		return nil, apperror.NewNotEligible("a requester cannot be assigned to their own job")
	}

	if err := j.Assign(c.Freelancer, fp.ID); err != nil {
		return nil, err
	}
	t.emit(Event{Type: EventJobAssigned, JobID: &j.ID, Address: c.Freelancer, Data: map[string]any{
		"requester": j.Requester.String(),
	}})
	return j.Clone(), nil
}

// AssignJob binds freelancer to a published job. Only the requester may assign.
func (l *Ledger) AssignJob(ctx context.Context, caller, freelancer address.Address, jobID uint64) (*job.Job, error) {
	return exec[*job.Job](ctx, l, &assignJob{Caller: caller, Freelancer: freelancer, JobID: jobID})
}

type completeJob struct {
	Caller address.Address `json:"caller"`
	JobID  uint64          `json:"job_id"`
	Funds  decimal.Decimal `json:"funds"`
}

func (c *completeJob) name() string { return "complete_job" }

func (c *completeJob) run(t *tx) (any, error) {
	j, _, err := t.job(c.JobID)
	if err != nil {
		return nil, err
	}
	if err := requireRequester(j, c.Caller, "complete"); err != nil {
		return nil, err
	}
	if err := j.Complete(c.Funds, t.now, t.cfg.Window); err != nil {
		return nil, err
	}
	if j.HasFunds {
		t.move(j.ID, escrow.Hold, j.Requester, escrow.Account, j.Token, c.Funds, t.now)
		t.escrowed()[j.ID] = c.Funds
	}
	t.emit(Event{Type: EventJobCompleted, JobID: &j.ID, Address: j.Freelancer, Data: map[string]any{
		"amount":   c.Funds.String(),
		"deadline": j.WindowDeadline().Format(time.RFC3339),
	}})
	return j.Clone(), nil
}

// CompleteJob marks the work done and escrows funds, which must equal the requested amount.
// The confirmation window starts now.
func (l *Ledger) CompleteJob(ctx context.Context, caller address.Address, jobID uint64, funds decimal.Decimal) (*job.Job, error) {
	return exec[*job.Job](ctx, l, &completeJob{Caller: caller, JobID: jobID, Funds: funds})
}

type deleteJob struct {
	Caller address.Address `json:"caller"`
	JobID  uint64          `json:"job_id"`
}

func (c *deleteJob) name() string { return "delete_job" }

func (c *deleteJob) run(t *tx) (any, error) {
	j, _, err := t.job(c.JobID)
	if err != nil {
		return nil, err
	}
	if err := requireRequester(j, c.Caller, "delete"); err != nil {
		return nil, err
	}
	if err := j.Delete(); err != nil {
		return nil, err
	}
	t.emit(Event{Type: EventJobDeleted, JobID: &j.ID, Address: c.Caller})
	return struct{}{}, nil
}

func (l *Ledger) DeleteJob(ctx context.Context, caller address.Address, jobID uint64) error {
	_, err := l.apply(ctx, &deleteJob{Caller: caller, JobID: jobID})
	return err
}

type settleJob struct {
	Caller address.Address `json:"caller"`
	JobID  uint64          `json:"job_id"`
}

func (c *settleJob) name() string { return "settle_job" }

func (c *settleJob) run(t *tx) (any, error) {
	j, settled, err := t.job(c.JobID)
	if err != nil {
		return nil, err
	}
	if !settled {
		if j.Status == job.StatusCompleted {
			return nil, apperror.NewInvalidState(fmt.Sprintf("job %d is still inside its confirmation window until %s",
				j.ID, j.WindowDeadline().Format(time.RFC3339)))
		}
		return nil, apperror.NewInvalidState(fmt.Sprintf("job %d is %s; nothing to settle", j.ID, j.Status))
	}
	return j.Clone(), nil
}

// SettleJob records the settlement of a job whose confirmation window elapsed. Anyone may call it.
func (l *Ledger) SettleJob(ctx context.Context, caller address.Address, jobID uint64) (*job.Job, error) {
	return exec[*job.Job](ctx, l, &settleJob{Caller: caller, JobID: jobID})
}

// GetJobByID returns the job as of now; an elapsed confirmation window reads as settled.
func (l *Ledger) GetJobByID(id uint64) (*job.Job, error) {
	j, err := l.snapshot().jobAt(id)
	if err != nil {
		return nil, err
	}
	if j.Deleted {
		return nil, apperror.NewNotFound("job", fmt.Sprint(id))
	}
	return j.ViewAt(l.now()), nil
}

func (l *Ledger) GetJobCount() uint64 {
	return l.snapshot().jobCount.count()
}

func (l *Ledger) GetTagCount() uint64 {
	return l.snapshot().tagCount.count()
}

type JobFilter struct {
	Owner     *address.Address
	Published *bool
	Tag       string
	Status    job.Status
}

type Page struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func (p Page) bounds() (offset, limit int) {
	limit = p.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	page := max(p.Page, 1)
	return (page - 1) * limit, limit
}

// ListJobs returns non-deleted jobs matching f in id order, plus the total match count.
func (l *Ledger) ListJobs(f JobFilter, p Page) ([]*job.Job, int) {
	s := l.snapshot()
	now := l.now()

	candidates := s.jobs
	if f.Tag != "" {
		tagged := job.NormalizeTags([]string{f.Tag})
		if len(tagged) == 0 {
			return []*job.Job{}, 0
		}
		ids := s.tags[tagged[0]]
		candidates = make([]*job.Job, 0, len(ids))
		for _, id := range ids {
			candidates = append(candidates, s.jobs[id])
		}
	}
	if f.Owner != nil {
		pid, ok := s.byAddress[*f.Owner]
		if !ok {
			return []*job.Job{}, 0
		}
		owned := s.profiles[pid].JobIDs
		candidates = slices.DeleteFunc(slices.Clone(candidates), func(j *job.Job) bool {
			_, found := slices.BinarySearch(owned, j.ID)
			return !found
		})
	}

	matched := make([]*job.Job, 0, len(candidates))
	for _, j := range candidates {
		if j.Deleted {
			continue
		}
		if f.Published != nil && j.Publish != *f.Published {
			continue
		}
		v := j.ViewAt(now)
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		matched = append(matched, v)
	}

	offset, limit := p.bounds()
	total := len(matched)
	if offset >= total {
		return []*job.Job{}, total
	}
	return matched[offset:min(offset+limit, total)], total
}

// TimeForConfirmation is the protocol confirmation window, 2,592,000 seconds.
func (l *Ledger) TimeForConfirmation() time.Duration {
	return job.TimeForConfirmation
}

// ConfirmationWindow is the window newly completed jobs receive. It differs from
// TimeForConfirmation only when a staging override is configured.
func (l *Ledger) ConfirmationWindow() time.Duration {
	return l.cfg.Window
}
