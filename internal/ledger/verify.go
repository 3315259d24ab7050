package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/pkg/address"
)

// Verify checks the cross-collection invariants of the current snapshot. It returns every
// violation found, joined.
func (l *Ledger) Verify() error {
	s := l.snapshot()
	var errs []error

	for _, j := range s.jobs {
		if err := j.CheckInvariants(); err != nil {
			errs = append(errs, err)
		}
		held, inEscrow := s.escrowed[j.ID]
		pending := j.HasFunds && (j.Status == job.StatusCompleted || j.Status == job.StatusDisputed)
		switch {
		case pending && (!inEscrow || !held.Equal(j.RequestedPaymentAmount)):
			errs = append(errs, fmt.Errorf("job %d: escrow holds %s, expected %s", j.ID, held, j.RequestedPaymentAmount))
		case !pending && inEscrow:
			errs = append(errs, fmt.Errorf("job %d: dangling escrow of %s", j.ID, held))
		}
	}

	seen := map[uint64]bool{}
	for _, r := range s.ratings {
		if seen[r.JobID] {
			errs = append(errs, fmt.Errorf("job %d: more than one rating", r.JobID))
		}
		seen[r.JobID] = true
	}

	totals := map[address.Address]decimal.Decimal{}
	for _, tokens := range s.balances {
		for tok, amt := range tokens {
			totals[tok] = totals[tok].Add(amt)
		}
	}
	for tok, sum := range totals {
		if !sum.IsZero() {
			errs = append(errs, fmt.Errorf("token %s: balances sum to %s", tok, sum))
		}
	}

	counts := []struct {
		name string
		c    counter
		n    int
	}{
		{"users", s.userCount, len(s.profiles)},
		{"skills", s.skillCount, len(s.skills)},
		{"jobs", s.jobCount, len(s.jobs)},
		{"ratings", s.ratingCount, len(s.ratings)},
		{"disputes", s.disputeCount, len(s.disputes)},
		{"tags", s.tagCount, len(s.tags)},
	}
	for _, c := range counts {
		if c.c.count() != uint64(c.n) {
			errs = append(errs, fmt.Errorf("%s: counter %d, collection %d", c.name, c.c.count(), c.n))
		}
	}
	return errors.Join(errs...)
}
