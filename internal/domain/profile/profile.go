package profile

import (
	"errors"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/khoahotran/detasker/internal/domain/skill"
	"github.com/khoahotran/detasker/pkg/address"
)

type Social struct {
	Platform string `json:"platform" validate:"required,max=40"`
	URL      string `json:"url" validate:"required,url"`
}

type ShowcaseWork struct {
	Title       string `json:"title" validate:"required,max=200"`
	URL         string `json:"url" validate:"omitempty,url"`
	Description string `json:"description" validate:"max=2000"`
}

// Freelancer is the optional sub-record that makes a profile assignable to jobs.
type Freelancer struct {
	ID           uint64   `json:"id"`
	IsFreelancer bool     `json:"is_freelancer"`
	Active       bool     `json:"active"`
	MainSkills   string   `json:"main_skills"`
	SkillIDs     []uint64 `json:"skill_ids"`
}

type Profile struct {
	ID           uint64          `json:"id"`
	Address      address.Address `json:"address"`
	FreelanceID  *uint64         `json:"freelance_id,omitempty"`
	Freelancer   *Freelancer     `json:"freelancer,omitempty"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Socials      []Social        `json:"socials"`
	ShowcaseWork []ShowcaseWork  `json:"showcase_work"`
	SignedUp     time.Time       `json:"signed_up"`
	Image        string          `json:"image"`
	JobIDs       []uint64        `json:"job_ids"`
	RatingIDs    []uint64        `json:"rating_ids"`
	SkillIDs     []uint64        `json:"skill_ids"`
}

type NewFreelancer struct {
	Active     bool   `json:"active"`
	MainSkills string `json:"main_skills" validate:"max=500"`
}

// NewProfile is the onboarding payload accepted by the identity registry.
type NewProfile struct {
	Name         string           `json:"name" validate:"required,max=120"`
	Email        string           `json:"email" validate:"omitempty,email"`
	// Image is a URL or a bare media reference.
	Image        string           `json:"image" validate:"max=2048"`
	Socials      []Social         `json:"socials" validate:"dive"`
	ShowcaseWork []ShowcaseWork   `json:"showcase_work" validate:"dive"`
	Freelance    *NewFreelancer   `json:"freelance,omitempty"`
	Skills       []skill.NewSkill `json:"skills" validate:"dive"`
}

var (
	ErrInvalidProfile = errors.New("invalid profile")
	validate          = validator.New()
)

func (p NewProfile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Join(ErrInvalidProfile, err)
	}
	return nil
}

// Eligible reports whether the profile can be assigned to a job.
func (p *Profile) Eligible() bool {
	return p.Freelancer != nil && p.Freelancer.IsFreelancer && p.Freelancer.Active
}

func (p *Profile) Clone() *Profile {
	c := *p
	if p.FreelanceID != nil {
		id := *p.FreelanceID
		c.FreelanceID = &id
	}
	if p.Freelancer != nil {
		f := *p.Freelancer
		f.SkillIDs = slices.Clone(p.Freelancer.SkillIDs)
		c.Freelancer = &f
	}
	c.Socials = slices.Clone(p.Socials)
	c.ShowcaseWork = slices.Clone(p.ShowcaseWork)
	c.JobIDs = slices.Clone(p.JobIDs)
	c.RatingIDs = slices.Clone(p.RatingIDs)
	c.SkillIDs = slices.Clone(p.SkillIDs)
	return &c
}

// AddSkill records a skill on the profile and, when present, on its freelancer record.
func (p *Profile) AddSkill(id uint64) {
	p.SkillIDs = append(p.SkillIDs, id)
	if p.Freelancer != nil {
		p.Freelancer.SkillIDs = append(p.Freelancer.SkillIDs, id)
	}
}
