package ledger

import (
	"context"

	"github.com/khoahotran/detasker/internal/domain/profile"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
)

type createUser struct {
	Caller  address.Address    `json:"caller"`
	Profile profile.NewProfile `json:"profile"`
}

func (c *createUser) name() string { return "create_user" }

func (c *createUser) run(t *tx) (any, error) {
	if c.Caller.IsZero() {
		return nil, apperror.NewInvalidInput("caller address is required", nil)
	}
	if err := c.Profile.Validate(); err != nil {
		return nil, apperror.NewInvalidInput("invalid profile", err)
	}
	if _, exists := t.s.byAddress[c.Caller]; exists {
		return nil, apperror.NewDuplicateIdentity(c.Caller.String())
	}

	p := &profile.Profile{
		ID:           t.s.userCount.next(),
		Address:      c.Caller,
		Name:         c.Profile.Name,
		Email:        c.Profile.Email,
		Image:        c.Profile.Image,
		Socials:      append([]profile.Social{}, c.Profile.Socials...),
		ShowcaseWork: append([]profile.ShowcaseWork{}, c.Profile.ShowcaseWork...),
		SignedUp:     t.now,
		JobIDs:       []uint64{},
		RatingIDs:    []uint64{},
		SkillIDs:     []uint64{},
	}
	if nf := c.Profile.Freelance; nf != nil {
		fid := t.s.freelanceCount.next()
		p.FreelanceID = &fid
		p.Freelancer = &profile.Freelancer{
			ID:           fid,
			IsFreelancer: true,
			Active:       nf.Active,
			MainSkills:   nf.MainSkills,
			SkillIDs:     []uint64{},
		}
	}
	t.s.profiles = append(t.s.profiles, p)
	t.byAddress()[c.Caller] = p.ID
	t.touchedProfiles[p.ID] = true

	t.emit(Event{Type: EventProfileCreated, Address: c.Caller, Data: map[string]any{
		"profile_id": p.ID, "freelancer": p.Freelancer != nil,
	}})

	for _, ns := range c.Profile.Skills {
		t.addSkill(p, ns)
	}
	return p.Clone(), nil
}

// CreateUser registers a profile for caller, with its optional freelancer record and skills.
func (l *Ledger) CreateUser(ctx context.Context, caller address.Address, np profile.NewProfile) (*profile.Profile, error) {
	return exec[*profile.Profile](ctx, l, &createUser{Caller: caller, Profile: np})
}

type updateFreelancer struct {
	Caller    address.Address       `json:"caller"`
	Freelance profile.NewFreelancer `json:"freelance"`
}

func (c *updateFreelancer) name() string { return "update_freelancer" }

func (c *updateFreelancer) run(t *tx) (any, error) {
	id, ok := t.s.byAddress[c.Caller]
	if !ok {
		return nil, apperror.NewNotFound("profile", c.Caller.String())
	}
	p := t.profileMut(id)
	if p.Freelancer == nil {
		fid := t.s.freelanceCount.next()
		p.FreelanceID = &fid
		p.Freelancer = &profile.Freelancer{ID: fid, IsFreelancer: true, SkillIDs: append([]uint64{}, p.SkillIDs...)}
	}
	p.Freelancer.Active = c.Freelance.Active
	p.Freelancer.MainSkills = c.Freelance.MainSkills

	t.emit(Event{Type: EventFreelancerSaved, Address: c.Caller, Data: map[string]any{
		"profile_id": p.ID, "freelance_id": p.Freelancer.ID, "active": p.Freelancer.Active,
	}})
	return p.Clone(), nil
}

// UpdateFreelancer amends the caller's freelancer record, creating it on first use.
func (l *Ledger) UpdateFreelancer(ctx context.Context, caller address.Address, nf profile.NewFreelancer) (*profile.Profile, error) {
	return exec[*profile.Profile](ctx, l, &updateFreelancer{Caller: caller, Freelance: nf})
}

func (l *Ledger) GetProfile(addr address.Address) (*profile.Profile, error) {
	p, ok := l.snapshot().profileByAddress(addr)
	if !ok {
		return nil, apperror.NewNotFound("profile", addr.String())
	}
	return p.Clone(), nil
}

func (l *Ledger) GetUserCount() uint64 {
	return l.snapshot().userCount.count()
}

func (l *Ledger) GetFreelancerCount() uint64 {
	return l.snapshot().freelanceCount.count()
}

// GetOwner returns the arbiter address the ledger was configured with.
func (l *Ledger) GetOwner() address.Address {
	return l.cfg.Arbiter
}
