package ledger

import (
	"context"
	"fmt"

	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/internal/domain/rating"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
)

type giveFeedback struct {
	Caller     address.Address  `json:"caller"`
	Freelancer address.Address  `json:"freelancer"`
	Rating     rating.NewRating `json:"rating"`
}

func (c *giveFeedback) name() string { return "give_feedback" }

func (c *giveFeedback) run(t *tx) (any, error) {
	if err := c.Rating.Validate(t.cfg.MinRating, t.cfg.MaxRating); err != nil {
		return nil, err
	}
	if _, err := t.s.jobAt(c.Rating.JobID); err != nil {
		return nil, err
	}
	if _, rated := t.s.ratingByJob[c.Rating.JobID]; rated {
		return nil, apperror.NewAlreadyRated(c.Rating.JobID)
	}

	j, _, err := t.job(c.Rating.JobID)
	if err != nil {
		return nil, err
	}
	if err := requireRequester(j, c.Caller, "rate"); err != nil {
		return nil, err
	}
	if !j.Assigned || j.Freelancer != c.Freelancer {
		return nil, apperror.NewInvalidInput(fmt.Sprintf("%s is not the freelancer of job %d", c.Freelancer, j.ID), nil)
	}
	if err := t.cfg.FeedbackPolicy.accepts(j); err != nil {
		return nil, err
	}

	r := &rating.Rating{
		ID:         t.s.ratingCount.next(),
		JobID:      j.ID,
		Freelancer: c.Freelancer,
		Rater:      c.Caller,
		Rating:     c.Rating.Rating,
		Review:     c.Rating.Review,
		CreatedAt:  t.now,
	}
	t.s.ratings = append(t.s.ratings, r)
	byFreelancer := t.ratingsByFreelancer()
	byFreelancer[c.Freelancer] = append(byFreelancer[c.Freelancer], r.ID)
	t.ratingByJob()[j.ID] = r.ID

	rep := t.s.reputation[c.Freelancer]
	rep.Freelancer = c.Freelancer
	rep = rep.Add(r.Rating)
	t.reputation()[c.Freelancer] = rep

	if pid, ok := t.s.byAddress[c.Freelancer]; ok {
		p := t.profileMut(pid)
		p.RatingIDs = append(p.RatingIDs, r.ID)
	}

	t.emit(Event{Type: EventRatingCreated, JobID: &j.ID, Address: c.Freelancer, Data: map[string]any{
		"rating_id": r.ID, "rating": r.Rating, "count": rep.Count, "total": rep.Total, "mean": rep.Mean,
	}})
	return *r, nil
}

func (p FeedbackPolicy) accepts(j *job.Job) error {
	switch {
	case p == FeedbackOnSettled && j.Status == job.StatusSettled:
		return nil
	case p == FeedbackOnCompleted && (j.Status == job.StatusCompleted || j.Status == job.StatusSettled):
		return nil
	}
	return apperror.NewInvalidState(fmt.Sprintf("job %d is %s; feedback requires a %s job", j.ID, j.Status, p))
}

// GiveFeedback records the requester's single rating of the job's freelancer.
func (l *Ledger) GiveFeedback(ctx context.Context, caller, freelancer address.Address, nr rating.NewRating) (rating.Rating, error) {
	return exec[rating.Rating](ctx, l, &giveFeedback{Caller: caller, Freelancer: freelancer, Rating: nr})
}

// GetRatingsArray lists a freelancer's ratings in insertion order.
func (l *Ledger) GetRatingsArray(freelancer address.Address) []rating.Rating {
	s := l.snapshot()
	ids := s.ratingsByFreelancer[freelancer]
	out := make([]rating.Rating, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.ratings[id])
	}
	return out
}

func (l *Ledger) GetReputation(freelancer address.Address) rating.Reputation {
	rep := l.snapshot().reputation[freelancer]
	rep.Freelancer = freelancer
	return rep
}

func (l *Ledger) GetRatingCount() uint64 {
	return l.snapshot().ratingCount.count()
}
