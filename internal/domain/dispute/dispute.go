package dispute

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
)

type OutcomeKind string

const (
	ReleaseToFreelancer OutcomeKind = "release_to_freelancer"
	RefundRequester     OutcomeKind = "refund_requester"
	Split               OutcomeKind = "split"
)

// splitPrecision is the number of decimal places kept on the freelancer's share.
const splitPrecision = 18

// Outcome is an arbiter's ruling. Ratio is the freelancer's share and only applies to Split.
type Outcome struct {
	Kind  OutcomeKind     `json:"kind"`
	Ratio decimal.Decimal `json:"ratio"`
}

func (o Outcome) Validate() error {
	switch o.Kind {
	case ReleaseToFreelancer, RefundRequester:
		return nil
	case Split:
		if o.Ratio.IsNegative() || o.Ratio.GreaterThan(decimal.NewFromInt(1)) {
			return apperror.NewInvalidInput("split ratio must be within [0, 1]", nil)
		}
		return nil
	}
	return apperror.NewInvalidInput(fmt.Sprintf("unknown dispute outcome %q", o.Kind), nil)
}

// Allocate divides amount between the parties. The two shares always sum to amount.
func (o Outcome) Allocate(amount decimal.Decimal) (freelancer, requester decimal.Decimal) {
	switch o.Kind {
	case ReleaseToFreelancer:
		return amount, decimal.Zero
	case RefundRequester:
		return decimal.Zero, amount
	}
	freelancer = amount.Mul(o.Ratio).Truncate(splitPrecision)
	return freelancer, amount.Sub(freelancer)
}

type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

type Dispute struct {
	ID         uint64          `json:"id"`
	JobID      uint64          `json:"job_id"`
	RaisedBy   address.Address `json:"raised_by"`
	Reason     string          `json:"reason"`
	Status     Status          `json:"status"`
	RaisedAt   time.Time       `json:"raised_at"`
	Outcome    *Outcome        `json:"outcome,omitempty"`
	ResolvedBy address.Address `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	// Amounts paid out on resolution.
	FreelancerAmount decimal.Decimal `json:"freelancer_amount"`
	RequesterAmount  decimal.Decimal `json:"requester_amount"`
}

func (d *Dispute) Clone() *Dispute {
	c := *d
	if d.Outcome != nil {
		o := *d.Outcome
		c.Outcome = &o
	}
	if d.ResolvedAt != nil {
		t := *d.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

func (d *Dispute) Resolve(o Outcome, by address.Address, freelancer, requester decimal.Decimal, at time.Time) {
	d.Status = StatusResolved
	d.Outcome = &o
	d.ResolvedBy = by
	d.ResolvedAt = &at
	d.FreelancerAmount = freelancer
	d.RequesterAmount = requester
}

// RaiserPolicy decides which job party may open a dispute.
type RaiserPolicy string

const (
	RaisersRequester  RaiserPolicy = "requester"
	RaisersFreelancer RaiserPolicy = "freelancer"
	RaisersEither     RaiserPolicy = "either"
)

func ParseRaiserPolicy(s string) (RaiserPolicy, error) {
	switch p := RaiserPolicy(s); p {
	case RaisersRequester, RaisersFreelancer, RaisersEither:
		return p, nil
	case "":
		return RaisersEither, nil
	}
	return "", fmt.Errorf("unknown dispute raiser policy %q", s)
}

func (p RaiserPolicy) Allows(caller, requester, freelancer address.Address) bool {
	switch p {
	case RaisersRequester:
		return caller == requester
	case RaisersFreelancer:
		return caller == freelancer
	case RaisersEither:
		return caller == requester || caller == freelancer
	}
	return false
}
