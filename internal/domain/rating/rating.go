package rating

import (
	"fmt"
	"strings"
	"time"

	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
)

// Rating is immutable once written. At most one exists per job.
type Rating struct {
	ID         uint64          `json:"id"`
	JobID      uint64          `json:"job_id"`
	Freelancer address.Address `json:"freelancer"`
	Rater      address.Address `json:"rater"`
	Rating     int             `json:"rating"`
	Review     string          `json:"review"`
	CreatedAt  time.Time       `json:"created_at"`
}

type NewRating struct {
	JobID  uint64 `json:"job_id"`
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

const maxReviewLen = 4000

func (r NewRating) Validate(min, max int) error {
	if r.Rating < min || r.Rating > max {
		return apperror.NewInvalidInput(fmt.Sprintf("rating must be between %d and %d", min, max), nil)
	}
	if len(strings.TrimSpace(r.Review)) > maxReviewLen {
		return apperror.NewInvalidInput(fmt.Sprintf("review must not exceed %d bytes", maxReviewLen), nil)
	}
	return nil
}

// Reputation is the running aggregate of a freelancer's ratings.
type Reputation struct {
	Freelancer address.Address `json:"freelancer"`
	Count      uint64          `json:"count"`
	Total      int64           `json:"total"`
	Mean       float64         `json:"mean"`
}

// Add folds one rating into the aggregate without rescanning history.
func (r Reputation) Add(score int) Reputation {
	r.Count++
	r.Total += int64(score)
	r.Mean += (float64(score) - r.Mean) / float64(r.Count)
	return r
}
