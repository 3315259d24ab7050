package skill

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/khoahotran/detasker/pkg/address"
)

// Skill entries are append-only; nothing mutates one after creation.
type Skill struct {
	ID        uint64          `json:"id"`
	ProfileID uint64          `json:"profile_id"`
	Skill     string          `json:"skill"`
	SkillName string          `json:"skill_name"`
	URL       string          `json:"url"`
	Owner     address.Address `json:"owner"`
	CreatedAt time.Time       `json:"created_at"`
}

type NewSkill struct {
	Skill     string `json:"skill" validate:"required,max=60"`
	SkillName string `json:"skill_name" validate:"required,max=120"`
	URL       string `json:"url" validate:"omitempty,url"`
}

var (
	ErrInvalidSkill = errors.New("invalid skill")
	validate        = validator.New()
)

func (s NewSkill) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Join(ErrInvalidSkill, err)
	}
	return nil
}
