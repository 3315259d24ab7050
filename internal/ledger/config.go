package ledger

import (
	"fmt"
	"time"

	"github.com/khoahotran/detasker/internal/config"
	"github.com/khoahotran/detasker/internal/domain/dispute"
	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/pkg/address"
)

// FeedbackPolicy selects the earliest job state that accepts a rating.
type FeedbackPolicy string

const (
	// FeedbackOnCompleted accepts ratings once the job is completed, during or after the window.
	FeedbackOnCompleted FeedbackPolicy = "completed"
	// FeedbackOnSettled accepts ratings only after settlement.
	FeedbackOnSettled FeedbackPolicy = "settled"
)

type Config struct {
	// Arbiter owns the ledger and is the only address allowed to resolve disputes.
	Arbiter        address.Address
	DefaultToken   address.Address
	FeedbackPolicy FeedbackPolicy
	DisputeRaisers dispute.RaiserPolicy
	Window         time.Duration
	MinRating      int
	MaxRating      int
	Clock          func() time.Time
}

// Policy is the part of Config that decides whether a command is accepted. Each journal
// entry records the policy it committed under and replays under it.
type Policy struct {
	Arbiter        address.Address      `json:"arbiter"`
	DefaultToken   address.Address      `json:"default_token"`
	FeedbackPolicy FeedbackPolicy       `json:"feedback_policy"`
	DisputeRaisers dispute.RaiserPolicy `json:"dispute_raisers"`
	Window         time.Duration        `json:"window"`
	MinRating      int                  `json:"min_rating"`
	MaxRating      int                  `json:"max_rating"`
}

func (c Config) Policy() Policy {
	return Policy{
		Arbiter:        c.Arbiter,
		DefaultToken:   c.DefaultToken,
		FeedbackPolicy: c.FeedbackPolicy,
		DisputeRaisers: c.DisputeRaisers,
		Window:         c.Window,
		MinRating:      c.MinRating,
		MaxRating:      c.MaxRating,
	}
}

// withPolicy returns c with p's rules. The clock is kept.
func (c Config) withPolicy(p Policy) Config {
	c.Arbiter = p.Arbiter
	c.DefaultToken = p.DefaultToken
	c.FeedbackPolicy = p.FeedbackPolicy
	c.DisputeRaisers = p.DisputeRaisers
	c.Window = p.Window
	c.MinRating, c.MaxRating = p.MinRating, p.MaxRating
	c.normalize()
	return c
}

func DefaultConfig() Config {
	return Config{
		DefaultToken:   address.Zero,
		FeedbackPolicy: FeedbackOnCompleted,
		DisputeRaisers: dispute.RaisersEither,
		Window:         job.TimeForConfirmation,
		MinRating:      1,
		MaxRating:      5,
		Clock:          time.Now,
	}
}

// ConfigFromSettings builds the ledger config from the loaded application settings.
func ConfigFromSettings(s config.LedgerConfig) (Config, error) {
	cfg := DefaultConfig()

	if s.Arbiter != "" {
		a, err := address.Parse(s.Arbiter)
		if err != nil {
			return cfg, fmt.Errorf("ledger.arbiter: %w", err)
		}
		cfg.Arbiter = a
	}
	if s.DefaultToken != "" {
		a, err := address.Parse(s.DefaultToken)
		if err != nil {
			return cfg, fmt.Errorf("ledger.default_token: %w", err)
		}
		cfg.DefaultToken = a
	}
	switch p := FeedbackPolicy(s.FeedbackPolicy); p {
	case FeedbackOnCompleted, FeedbackOnSettled:
		cfg.FeedbackPolicy = p
	case "":
	default:
		return cfg, fmt.Errorf("ledger.feedback_policy: unknown policy %q", s.FeedbackPolicy)
	}
	raisers, err := dispute.ParseRaiserPolicy(s.DisputeRaisers)
	if err != nil {
		return cfg, fmt.Errorf("ledger.dispute_raisers: %w", err)
	}
	cfg.DisputeRaisers = raisers
	if s.ConfirmationWindow > 0 {
		cfg.Window = s.ConfirmationWindow
	}
	if s.MinRating != 0 || s.MaxRating != 0 {
		cfg.MinRating, cfg.MaxRating = s.MinRating, s.MaxRating
	}
	return cfg, nil
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.DefaultToken == "" {
		c.DefaultToken = d.DefaultToken
	}
	if c.FeedbackPolicy == "" {
		c.FeedbackPolicy = d.FeedbackPolicy
	}
	if c.DisputeRaisers == "" {
		c.DisputeRaisers = d.DisputeRaisers
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.MinRating == 0 && c.MaxRating == 0 {
		c.MinRating, c.MaxRating = d.MinRating, d.MaxRating
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
}
