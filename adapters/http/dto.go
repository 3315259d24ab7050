package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/khoahotran/detasker/internal/domain/dispute"
	"github.com/khoahotran/detasker/internal/domain/escrow"
	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/internal/domain/profile"
	"github.com/khoahotran/detasker/internal/domain/rating"
	"github.com/khoahotran/detasker/internal/domain/skill"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
)

// Profile DTOs
type CreateProfileRequest struct {
	Name         string                   `json:"name" binding:"required"`
	Email        string                   `json:"email"`
	Image        string                   `json:"image"`
	Socials      []profile.Social         `json:"socials"`
	ShowcaseWork []profile.ShowcaseWork   `json:"showcase_work"`
	Freelance    *UpdateFreelancerRequest `json:"freelance"`
	Skills       []CreateSkillRequest     `json:"skills"`
}

type UpdateFreelancerRequest struct {
	Active     bool   `json:"active"`
	MainSkills string `json:"main_skills"`
}

func (req *UpdateFreelancerRequest) ToDomain() profile.NewFreelancer {
	return profile.NewFreelancer{Active: req.Active, MainSkills: req.MainSkills}
}

func (req *CreateProfileRequest) ToDomain() profile.NewProfile {
	np := profile.NewProfile{
		Name:         req.Name,
		Email:        req.Email,
		Image:        req.Image,
		Socials:      req.Socials,
		ShowcaseWork: req.ShowcaseWork,
	}
	if req.Freelance != nil {
		f := req.Freelance.ToDomain()
		np.Freelance = &f
	}
	np.Skills = make([]skill.NewSkill, len(req.Skills))
	for i, s := range req.Skills {
		np.Skills[i] = s.ToDomain()
	}
	return np
}

type FreelancerDTO struct {
	ID         uint64   `json:"id"`
	Active     bool     `json:"active"`
	MainSkills string   `json:"main_skills"`
	SkillIDs   []uint64 `json:"skill_ids"`
}

type ProfileDTO struct {
	ID           uint64                 `json:"id"`
	Address      string                 `json:"address"`
	Name         string                 `json:"name"`
	Email        string                 `json:"email"`
	Image        string                 `json:"image"`
	Socials      []profile.Social       `json:"socials"`
	ShowcaseWork []profile.ShowcaseWork `json:"showcase_work"`
	Freelancer   *FreelancerDTO         `json:"freelancer,omitempty"`
	SignedUp     time.Time              `json:"signed_up"`
	JobIDs       []uint64               `json:"job_ids"`
	RatingIDs    []uint64               `json:"rating_ids"`
	SkillIDs     []uint64               `json:"skill_ids"`
}

func ToProfileDTO(p *profile.Profile) ProfileDTO {
	dto := ProfileDTO{
		ID:           p.ID,
		Address:      p.Address.String(),
		Name:         p.Name,
		Email:        p.Email,
		Image:        p.Image,
		Socials:      p.Socials,
		ShowcaseWork: p.ShowcaseWork,
		SignedUp:     p.SignedUp,
		JobIDs:       nonNil(p.JobIDs),
		RatingIDs:    nonNil(p.RatingIDs),
		SkillIDs:     nonNil(p.SkillIDs),
	}
	if p.Freelancer != nil && p.Freelancer.IsFreelancer {
		dto.Freelancer = &FreelancerDTO{
			ID:         p.Freelancer.ID,
			Active:     p.Freelancer.Active,
			MainSkills: p.Freelancer.MainSkills,
			SkillIDs:   nonNil(p.Freelancer.SkillIDs),
		}
	}
	return dto
}

// Skill DTOs
type CreateSkillRequest struct {
	Skill     string `json:"skill" binding:"required"`
	SkillName string `json:"skill_name" binding:"required"`
	URL       string `json:"url"`
}

func (req CreateSkillRequest) ToDomain() skill.NewSkill {
	return skill.NewSkill{Skill: req.Skill, SkillName: req.SkillName, URL: req.URL}
}

type SkillDTO struct {
	ID        uint64    `json:"id"`
	ProfileID uint64    `json:"profile_id"`
	Skill     string    `json:"skill"`
	SkillName string    `json:"skill_name"`
	URL       string    `json:"url"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

func ToSkillDTO(s skill.Skill) SkillDTO {
	return SkillDTO{
		ID:        s.ID,
		ProfileID: s.ProfileID,
		Skill:     s.Skill,
		SkillName: s.SkillName,
		URL:       s.URL,
		Owner:     s.Owner.String(),
		CreatedAt: s.CreatedAt,
	}
}

// Job DTOs
type CreateJobRequest struct {
	Title                  string          `json:"title" binding:"required"`
	Description            string          `json:"description"`
	Documents              []string        `json:"documents"`
	Images                 []string        `json:"images"`
	RequestedPaymentAmount decimal.Decimal `json:"requested_payment_amount"`
	Token                  string          `json:"token"`
	Tags                   []string        `json:"tags"`
}

func (req *CreateJobRequest) ToDomain() (job.Draft, error) {
	d := job.Draft{
		Title:                  req.Title,
		Description:            req.Description,
		Documents:              req.Documents,
		Images:                 req.Images,
		RequestedPaymentAmount: req.RequestedPaymentAmount,
		Tags:                   req.Tags,
	}
	if req.Token != "" {
		token, err := address.Parse(req.Token)
		if err != nil {
			return d, apperror.NewInvalidInput("invalid token address", err)
		}
		d.Token = token
	}
	return d, nil
}

type AssignJobRequest struct {
	Freelancer string `json:"freelancer" binding:"required"`
}

type CompleteJobRequest struct {
	Funds decimal.Decimal `json:"funds"`
}

type JobDTO struct {
	ID                     uint64          `json:"id"`
	ProfileID              uint64          `json:"profile_id"`
	Requester              string          `json:"requester"`
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	Documents              []string        `json:"documents"`
	Images                 []string        `json:"images"`
	RequestedPaymentAmount decimal.Decimal `json:"requested_payment_amount"`
	Token                  string          `json:"token"`
	Tags                   []string        `json:"tags"`
	Status                 job.Status      `json:"status"`
	HasFunds               bool            `json:"has_funds"`
	Published              bool            `json:"published"`
	Assigned               bool            `json:"assigned"`
	Completed              bool            `json:"completed"`
	Paid                   bool            `json:"paid"`
	Freelancer             string          `json:"freelancer,omitempty"`
	Date                   time.Time       `json:"date"`
	DatePublished          *time.Time      `json:"date_published,omitempty"`
	DateCompleted          *time.Time      `json:"date_completed,omitempty"`
	DatePaid               *time.Time      `json:"date_paid,omitempty"`
	DateSettled            *time.Time      `json:"date_settled,omitempty"`
	ConfirmationDeadline   *time.Time      `json:"confirmation_deadline,omitempty"`
	Disputes               []uint64        `json:"disputes"`
	Movements              []MovementDTO   `json:"movements,omitempty"`
}

func ToJobDTO(j *job.Job) JobDTO {
	dto := JobDTO{
		ID:                     j.ID,
		ProfileID:              j.ProfileID,
		Requester:              j.Requester.String(),
		Title:                  j.Title,
		Description:            j.Description,
		Documents:              nonNil(j.Documents),
		Images:                 nonNil(j.Images),
		RequestedPaymentAmount: j.RequestedPaymentAmount,
		Token:                  j.Token.String(),
		Tags:                   nonNil(j.Tags),
		Status:                 j.Status,
		HasFunds:               j.HasFunds,
		Published:              j.Publish,
		Assigned:               j.Assigned,
		Completed:              j.Completed,
		Paid:                   j.Paid,
		Date:                   j.Date,
		DatePublished:          j.DatePublished,
		DateCompleted:          j.DateCompleted,
		DatePaid:               j.DatePaid,
		DateSettled:            j.DateSettled,
		Disputes:               nonNil(j.Disputes),
	}
	if j.Assigned {
		dto.Freelancer = j.Freelancer.String()
	}
	return dto
}

type MovementDTO struct {
	ID     uint64          `json:"id"`
	Kind   escrow.Kind     `json:"kind"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Token  string          `json:"token"`
	Amount decimal.Decimal `json:"amount"`
	At     time.Time       `json:"at"`
}

func ToMovementDTO(m escrow.Movement) MovementDTO {
	return MovementDTO{
		ID:     m.ID,
		Kind:   m.Kind,
		From:   m.From.String(),
		To:     m.To.String(),
		Token:  m.Token.String(),
		Amount: m.Amount,
		At:     m.At,
	}
}

type JobListDTO struct {
	Jobs  []JobDTO `json:"jobs"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
}

// Reputation DTOs
type FeedbackRequest struct {
	Freelancer string `json:"freelancer" binding:"required"`
	Rating     int    `json:"rating" binding:"required"`
	Review     string `json:"review"`
}

type RatingDTO struct {
	ID         uint64    `json:"id"`
	JobID      uint64    `json:"job_id"`
	Freelancer string    `json:"freelancer"`
	Rater      string    `json:"rater"`
	Rating     int       `json:"rating"`
	Review     string    `json:"review"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToRatingDTO(r rating.Rating) RatingDTO {
	return RatingDTO{
		ID:         r.ID,
		JobID:      r.JobID,
		Freelancer: r.Freelancer.String(),
		Rater:      r.Rater.String(),
		Rating:     r.Rating,
		Review:     r.Review,
		CreatedAt:  r.CreatedAt,
	}
}

type ReputationDTO struct {
	Freelancer string  `json:"freelancer"`
	Count      uint64  `json:"count"`
	Total      int64   `json:"total"`
	Mean       float64 `json:"mean"`
}

func ToReputationDTO(r rating.Reputation) ReputationDTO {
	return ReputationDTO{
		Freelancer: r.Freelancer.String(),
		Count:      r.Count,
		Total:      r.Total,
		Mean:       r.Mean,
	}
}

// Dispute DTOs
type RaiseDisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ResolveDisputeRequest struct {
	Outcome dispute.OutcomeKind `json:"outcome" binding:"required"`
	Ratio   decimal.Decimal     `json:"ratio"`
}

type DisputeDTO struct {
	ID               uint64              `json:"id"`
	JobID            uint64              `json:"job_id"`
	RaisedBy         string              `json:"raised_by"`
	Reason           string              `json:"reason"`
	Status           dispute.Status      `json:"status"`
	RaisedAt         time.Time           `json:"raised_at"`
	Outcome          dispute.OutcomeKind `json:"outcome,omitempty"`
	Ratio            *decimal.Decimal    `json:"ratio,omitempty"`
	ResolvedBy       string              `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time          `json:"resolved_at,omitempty"`
	FreelancerAmount decimal.Decimal     `json:"freelancer_amount"`
	RequesterAmount  decimal.Decimal     `json:"requester_amount"`
}

func ToDisputeDTO(d dispute.Dispute) DisputeDTO {
	dto := DisputeDTO{
		ID:               d.ID,
		JobID:            d.JobID,
		RaisedBy:         d.RaisedBy.String(),
		Reason:           d.Reason,
		Status:           d.Status,
		RaisedAt:         d.RaisedAt,
		ResolvedAt:       d.ResolvedAt,
		FreelancerAmount: d.FreelancerAmount,
		RequesterAmount:  d.RequesterAmount,
	}
	if d.Outcome != nil {
		dto.Outcome = d.Outcome.Kind
		if d.Outcome.Kind == dispute.Split {
			ratio := d.Outcome.Ratio
			dto.Ratio = &ratio
		}
		dto.ResolvedBy = d.ResolvedBy.String()
	}
	return dto
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
