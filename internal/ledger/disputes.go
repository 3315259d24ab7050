package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/khoahotran/detasker/internal/domain/dispute"
	"github.com/khoahotran/detasker/internal/domain/escrow"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
)

const maxReasonLen = 4000

type raiseDispute struct {
	Caller address.Address `json:"caller"`
	JobID  uint64          `json:"job_id"`
	Reason string          `json:"reason"`
}

func (c *raiseDispute) name() string { return "raise_dispute" }

func (c *raiseDispute) run(t *tx) (any, error) {
	reason := strings.TrimSpace(c.Reason)
	if reason == "" || len(reason) > maxReasonLen {
		return nil, apperror.NewInvalidInput(fmt.Sprintf("reason must be 1 to %d bytes", maxReasonLen), nil)
	}
	j, _, err := t.job(c.JobID)
	if err != nil {
		return nil, err
	}
	if !t.cfg.DisputeRaisers.Allows(c.Caller, j.Requester, j.Freelancer) {
		return nil, apperror.NewPermissionDenied(fmt.Sprintf("%s may not raise a dispute on job %d under the %q policy",
			c.Caller, j.ID, t.cfg.DisputeRaisers))
	}

	id := t.s.disputeCount.count()
	if err := j.OpenDispute(id, t.now); err != nil {
		return nil, err
	}
	t.s.disputeCount.next()

	d := &dispute.Dispute{
		ID:               id,
		JobID:            j.ID,
		RaisedBy:         c.Caller,
		Reason:           reason,
		Status:           dispute.StatusOpen,
		RaisedAt:         t.now,
		FreelancerAmount: decimal.Zero,
		RequesterAmount:  decimal.Zero,
	}
	t.s.disputes = append(t.s.disputes, d)
	t.touchedDisputes[id] = true

	t.emit(Event{Type: EventDisputeRaised, JobID: &j.ID, Address: c.Caller, Data: map[string]any{
		"dispute_id": id, "reason": reason,
	}})
	return d.Clone(), nil
}

// RaiseDispute opens a dispute on a completed job inside its confirmation window,
// which freezes auto-settlement until the arbiter rules.
func (l *Ledger) RaiseDispute(ctx context.Context, caller address.Address, jobID uint64, reason string) (*dispute.Dispute, error) {
	return exec[*dispute.Dispute](ctx, l, &raiseDispute{Caller: caller, JobID: jobID, Reason: reason})
}

type resolveDispute struct {
	Caller  address.Address `json:"caller"`
	JobID   uint64          `json:"job_id"`
	Outcome dispute.Outcome `json:"outcome"`
}

func (c *resolveDispute) name() string { return "resolve_dispute" }

func (c *resolveDispute) run(t *tx) (any, error) {
	if err := c.Outcome.Validate(); err != nil {
		return nil, err
	}
	if t.cfg.Arbiter.IsZero() || c.Caller != t.cfg.Arbiter {
		return nil, apperror.NewPermissionDenied("only the ledger arbiter may resolve disputes")
	}
	j, _, err := t.job(c.JobID)
	if err != nil {
		return nil, err
	}
	if j.OpenDisputeID == nil {
		return nil, apperror.NewInvalidState(fmt.Sprintf("job %d has no open dispute", j.ID))
	}
	d := t.disputeMut(*j.OpenDisputeID)

	held := t.s.escrowed[j.ID]
	toFreelancer, toRequester := c.Outcome.Allocate(held)
	if toFreelancer.IsPositive() {
		t.move(j.ID, escrow.Release, escrow.Account, j.Freelancer, j.Token, toFreelancer, t.now)
	}
	if toRequester.IsPositive() {
		t.move(j.ID, escrow.Refund, escrow.Account, j.Requester, j.Token, toRequester, t.now)
	}
	if _, ok := t.s.escrowed[j.ID]; ok {
		delete(t.escrowed(), j.ID)
	}

	if err := j.CloseDispute(toFreelancer.IsPositive(), t.now); err != nil {
		return nil, err
	}
	d.Resolve(c.Outcome, c.Caller, toFreelancer, toRequester, t.now)

	t.emit(Event{Type: EventDisputeResolved, JobID: &j.ID, Address: c.Caller, Data: map[string]any{
		"dispute_id": d.ID, "outcome": string(c.Outcome.Kind),
		"freelancer_amount": toFreelancer.String(), "requester_amount": toRequester.String(),
	}})
	t.emit(Event{Type: EventJobSettled, JobID: &j.ID, Address: j.Freelancer, Data: map[string]any{
		"reason": "dispute_resolved", "paid": j.Paid,
	}})
	return d.Clone(), nil
}

// ResolveDispute applies the arbiter's outcome, moves the escrow and settles the job.
func (l *Ledger) ResolveDispute(ctx context.Context, caller address.Address, jobID uint64, o dispute.Outcome) (*dispute.Dispute, error) {
	return exec[*dispute.Dispute](ctx, l, &resolveDispute{Caller: caller, JobID: jobID, Outcome: o})
}

// GetDisputes lists every dispute raised on a job, oldest first.
func (l *Ledger) GetDisputes(jobID uint64) ([]dispute.Dispute, error) {
	s := l.snapshot()
	j, err := s.jobAt(jobID)
	if err != nil {
		return nil, err
	}
	out := make([]dispute.Dispute, 0, len(j.Disputes))
	for _, id := range j.Disputes {
		out = append(out, *s.disputes[id].Clone())
	}
	return out, nil
}

// GetBalance is the net position of account in token. Escrow owed by an elapsed but
// unsettled window is counted as already released.
func (l *Ledger) GetBalance(account, token address.Address) decimal.Decimal {
	s := l.snapshot()
	now := l.now()
	bal := s.balances.Get(account, token)
	for id, amt := range s.escrowed {
		j := s.jobs[id]
		if j.Token != token || !j.SettlementDue(now) {
			continue
		}
		switch account {
		case escrow.Account:
			bal = bal.Sub(amt)
		case j.Freelancer:
			bal = bal.Add(amt)
		}
	}
	return bal
}

// GetEscrowMovements lists the recorded fund movements for a job.
func (l *Ledger) GetEscrowMovements(jobID uint64) ([]escrow.Movement, error) {
	s := l.snapshot()
	if _, err := s.jobAt(jobID); err != nil {
		return nil, err
	}
	out := []escrow.Movement{}
	for _, m := range s.movements {
		if m.JobID == jobID {
			out = append(out, m)
		}
	}
	return out, nil
}
