package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/detasker/pkg/address"
)

const (
	EventProfileCreated  = "profile.created"
	EventFreelancerSaved = "profile.freelancer_updated"
	EventSkillCreated    = "skill.created"
	EventJobCreated      = "job.created"
	EventJobPublished    = "job.published"
	EventJobAssigned     = "job.assigned"
	EventJobCompleted    = "job.completed"
	EventJobSettled      = "job.settled"
	EventJobDeleted      = "job.deleted"
	EventDisputeRaised   = "dispute.raised"
	EventDisputeResolved = "dispute.resolved"
	EventRatingCreated   = "rating.created"
)

// Event describes one committed change. Events are delivered after the change is visible.
type Event struct {
	ID      uuid.UUID       `json:"id"`
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq"`
	JobID   *uint64         `json:"job_id,omitempty"`
	Address address.Address `json:"address,omitempty"`
	At      time.Time       `json:"at"`
	Data    map[string]any  `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, events []Event) error
}
