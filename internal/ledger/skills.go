package ledger

import (
	"context"

	"github.com/khoahotran/detasker/internal/domain/profile"
	"github.com/khoahotran/detasker/internal/domain/skill"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
)

type createSkill struct {
	Caller address.Address `json:"caller"`
	Skill  skill.NewSkill  `json:"skill"`
}

func (c *createSkill) name() string { return "create_skill" }

func (c *createSkill) run(t *tx) (any, error) {
	id, ok := t.s.byAddress[c.Caller]
	if !ok {
		return nil, apperror.NewNotFound("profile", c.Caller.String())
	}
	if err := c.Skill.Validate(); err != nil {
		return nil, apperror.NewInvalidInput("invalid skill", err)
	}
	s := t.addSkill(t.profileMut(id), c.Skill)
	return *s, nil
}

// addSkill appends to the global catalog and to the owner's skill set. p must be writable.
func (t *tx) addSkill(p *profile.Profile, ns skill.NewSkill) *skill.Skill {
	s := &skill.Skill{
		ID:        t.s.skillCount.next(),
		ProfileID: p.ID,
		Skill:     ns.Skill,
		SkillName: ns.SkillName,
		URL:       ns.URL,
		Owner:     p.Address,
		CreatedAt: t.now,
	}
	t.s.skills = append(t.s.skills, s)
	p.AddSkill(s.ID)

	t.emit(Event{Type: EventSkillCreated, Address: p.Address, Data: map[string]any{
		"skill_id": s.ID, "skill": s.Skill, "skill_name": s.SkillName,
	}})
	return s
}

func (l *Ledger) CreateSkill(ctx context.Context, caller address.Address, ns skill.NewSkill) (skill.Skill, error) {
	return exec[skill.Skill](ctx, l, &createSkill{Caller: caller, Skill: ns})
}

func (l *Ledger) GetSkill(id uint64) (skill.Skill, error) {
	s := l.snapshot()
	if id >= s.skillCount.count() {
		return skill.Skill{}, apperror.NewOutOfRange("skill", id, s.skillCount.count())
	}
	return *s.skills[id], nil
}

func (l *Ledger) GetSkillCount() uint64 {
	return l.snapshot().skillCount.count()
}

// SkillsByOwner lists an address's skills in creation order.
func (l *Ledger) SkillsByOwner(owner address.Address) ([]skill.Skill, error) {
	s := l.snapshot()
	p, ok := s.profileByAddress(owner)
	if !ok {
		return nil, apperror.NewNotFound("profile", owner.String())
	}
	out := make([]skill.Skill, 0, len(p.SkillIDs))
	for _, id := range p.SkillIDs {
		out = append(out, *s.skills[id])
	}
	return out, nil
}
