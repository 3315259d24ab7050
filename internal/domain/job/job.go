package job

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
)

// TimeForConfirmation is how long a requester has to dispute a completed job
// before the escrow releases to the freelancer.
const TimeForConfirmation = 2_592_000 * time.Second

type Status string

const (
	StatusCreated   Status = "created"
	StatusPublished Status = "published"
	StatusAssigned  Status = "assigned"
	StatusCompleted Status = "completed"
	StatusDisputed  Status = "disputed"
	StatusSettled   Status = "settled"
	StatusDeleted   Status = "deleted"
)

type Job struct {
	ID                     uint64          `json:"id"`
	ProfileID              uint64          `json:"profile_id"`
	Owner                  address.Address `json:"owner"`
	Requester              address.Address `json:"requester"`
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	Documents              []string        `json:"documents"`
	Images                 []string        `json:"images"`
	RequestedPaymentAmount decimal.Decimal `json:"requested_payment_amount"`
	Token                  address.Address `json:"token"`
	Tags                   []string        `json:"tags"`

	Status   Status `json:"status"`
	HasFunds bool   `json:"has_funds"`
	Publish  bool   `json:"publish"`
	Assigned bool   `json:"assigned"`
	// Completed stays true through dispute and settlement.
	Completed bool `json:"completed"`
	Paid      bool `json:"paid"`
	Deleted   bool `json:"deleted"`

	Freelancer          address.Address `json:"freelancer,omitempty"`
	FreelancerProfileID *uint64         `json:"freelancer_profile_id,omitempty"`

	Date          time.Time  `json:"date"`
	PostedDate    time.Time  `json:"posted_date"`
	DatePublished *time.Time `json:"date_published,omitempty"`
	DateCompleted *time.Time `json:"date_completed,omitempty"`
	DatePaid      *time.Time `json:"date_paid,omitempty"`
	DateSettled   *time.Time `json:"date_settled,omitempty"`
	// ConfirmationWindow is fixed when the job completes.
	ConfirmationWindow time.Duration `json:"confirmation_window,omitempty"`

	Disputes      []uint64 `json:"disputes"`
	OpenDisputeID *uint64  `json:"open_dispute_id,omitempty"`
}

// Draft is what a requester submits when posting a job.
type Draft struct {
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	Documents              []string        `json:"documents"`
	Images                 []string        `json:"images"`
	RequestedPaymentAmount decimal.Decimal `json:"requested_payment_amount"`
	Token                  address.Address `json:"token"`
	Tags                   []string        `json:"tags"`
}

var ErrInvalidDraft = errors.New("invalid job draft")

func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidDraft)
	}
	if d.RequestedPaymentAmount.IsNegative() {
		return fmt.Errorf("%w: requested payment amount must not be negative", ErrInvalidDraft)
	}
	return nil
}

// NormalizeTags lowercases, trims and de-duplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func New(id, profileID uint64, owner address.Address, d Draft, now time.Time) *Job {
	return &Job{
		ID:                     id,
		ProfileID:              profileID,
		Owner:                  owner,
		Requester:              owner,
		Title:                  strings.TrimSpace(d.Title),
		Description:            d.Description,
		Documents:              slices.Clone(d.Documents),
		Images:                 slices.Clone(d.Images),
		RequestedPaymentAmount: d.RequestedPaymentAmount,
		Token:                  d.Token,
		Tags:                   NormalizeTags(d.Tags),
		Status:                 StatusCreated,
		Date:                   now,
		PostedDate:             now,
		Disputes:               []uint64{},
	}
}

func (j *Job) Clone() *Job {
	c := *j
	c.Documents = slices.Clone(j.Documents)
	c.Images = slices.Clone(j.Images)
	c.Tags = slices.Clone(j.Tags)
	c.Disputes = slices.Clone(j.Disputes)
	c.DatePublished = cloneTime(j.DatePublished)
	c.DateCompleted = cloneTime(j.DateCompleted)
	c.DatePaid = cloneTime(j.DatePaid)
	c.DateSettled = cloneTime(j.DateSettled)
	if j.FreelancerProfileID != nil {
		id := *j.FreelancerProfileID
		c.FreelancerProfileID = &id
	}
	if j.OpenDisputeID != nil {
		id := *j.OpenDisputeID
		c.OpenDisputeID = &id
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (j *Job) IsRequester(a address.Address) bool {
	return j.Requester == a
}

func (j *Job) IsParty(a address.Address) bool {
	return j.Requester == a || (j.Assigned && j.Freelancer == a)
}

func (j *Job) stateError(op string) error {
	if j.Deleted {
		return apperror.NewInvalidState(fmt.Sprintf("job %d is deleted; cannot %s", j.ID, op))
	}
	return apperror.NewInvalidState(fmt.Sprintf("job %d is %s; cannot %s", j.ID, j.Status, op))
}

func (j *Job) MarkPublished(now time.Time) error {
	if j.Status != StatusCreated {
		return j.stateError("publish")
	}
	j.Publish = true
	j.DatePublished = &now
	j.Status = StatusPublished
	return nil
}

// CheckAssignable reports why the job cannot take a freelancer, if it cannot.
func (j *Job) CheckAssignable() error {
	if j.Deleted {
		return j.stateError("assign")
	}
	if j.Assigned {
		return apperror.NewAlreadyAssigned(j.ID)
	}
	if j.Status != StatusPublished {
		return j.stateError("assign")
	}
	return nil
}

// Assign binds a freelancer. Eligibility of the freelancer is the caller's concern.
func (j *Job) Assign(freelancer address.Address, freelancerProfileID uint64) error {
	if err := j.CheckAssignable(); err != nil {
		return err
	}
	j.Assigned = true
	j.Freelancer = freelancer
	j.FreelancerProfileID = &freelancerProfileID
	j.Status = StatusAssigned
	return nil
}

// Complete marks the work done and takes the attached funds into escrow, opening a
// confirmation window of the given length. Funds must equal the requested amount exactly.
func (j *Job) Complete(funds decimal.Decimal, now time.Time, window time.Duration) error {
	if j.Status != StatusAssigned {
		return j.stateError("complete")
	}
	if !funds.Equal(j.RequestedPaymentAmount) {
		return apperror.NewFundsMismatch(j.RequestedPaymentAmount.String(), funds.String())
	}
	j.HasFunds = j.RequestedPaymentAmount.IsPositive()
	j.Completed = true
	j.DateCompleted = &now
	j.ConfirmationWindow = window
	j.Status = StatusCompleted
	return nil
}

func (j *Job) Delete() error {
	if j.Status != StatusCreated && j.Status != StatusPublished {
		return j.stateError("delete")
	}
	j.Deleted = true
	j.Status = StatusDeleted
	return nil
}

// Window is the confirmation window the job completed under. Records without one use
// TimeForConfirmation.
func (j *Job) Window() time.Duration {
	if j.ConfirmationWindow > 0 {
		return j.ConfirmationWindow
	}
	return TimeForConfirmation
}

// WindowDeadline is the instant the confirmation window closes. Zero if the job is not completed.
func (j *Job) WindowDeadline() time.Time {
	if j.DateCompleted == nil {
		return time.Time{}
	}
	return j.DateCompleted.Add(j.Window())
}

// WindowOpen is a pure function of now and dateCompleted.
func (j *Job) WindowOpen(now time.Time) bool {
	return j.DateCompleted != nil && now.Before(j.WindowDeadline())
}

// SettlementDue reports a completed job whose window elapsed with no open dispute.
func (j *Job) SettlementDue(now time.Time) bool {
	return j.Status == StatusCompleted && j.DateCompleted != nil && !j.WindowOpen(now)
}

func (j *Job) OpenDispute(disputeID uint64, now time.Time) error {
	if j.Status != StatusCompleted || !j.WindowOpen(now) {
		return j.stateError("raise a dispute")
	}
	j.Disputes = append(j.Disputes, disputeID)
	j.OpenDisputeID = &disputeID
	j.Status = StatusDisputed
	return nil
}

// CloseDispute ends the open dispute and settles. paid is true when the freelancer received funds.
func (j *Job) CloseDispute(paid bool, at time.Time) error {
	if j.Status != StatusDisputed {
		return j.stateError("resolve a dispute")
	}
	j.OpenDisputeID = nil
	j.settle(paid, at)
	return nil
}

// AutoSettle applies the elapsed-window settlement. It is stamped with the deadline,
// so the stored record matches what readers derived before it was written.
func (j *Job) AutoSettle() error {
	if j.Status != StatusCompleted || j.DateCompleted == nil {
		return j.stateError("settle")
	}
	j.settle(j.HasFunds, j.WindowDeadline())
	return nil
}

func (j *Job) settle(paid bool, at time.Time) {
	j.Status = StatusSettled
	j.DateSettled = &at
	if paid && j.HasFunds {
		j.Paid = true
		j.DatePaid = &at
	}
}

// ViewAt returns the job as it stands at now, projecting an elapsed confirmation window.
// The receiver is never modified.
func (j *Job) ViewAt(now time.Time) *Job {
	c := j.Clone()
	if c.SettlementDue(now) {
		_ = c.AutoSettle()
	}
	return c
}

// CheckInvariants verifies the flag ordering rules a job must satisfy in every state.
func (j *Job) CheckInvariants() error {
	switch {
	case j.Assigned && !j.Publish:
		return fmt.Errorf("job %d: assigned without publish", j.ID)
	case j.Completed && !j.Assigned:
		return fmt.Errorf("job %d: completed without assignment", j.ID)
	case j.Paid && !(j.Completed && j.HasFunds):
		return fmt.Errorf("job %d: paid without completed funds", j.ID)
	case j.Deleted && (j.Assigned || j.HasFunds):
		return fmt.Errorf("job %d: deleted after assignment", j.ID)
	case j.Status == StatusDisputed && j.OpenDisputeID == nil:
		return fmt.Errorf("job %d: disputed with no open dispute", j.ID)
	}
	return nil
}
