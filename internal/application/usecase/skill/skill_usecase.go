package skill

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/internal/domain/skill"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/logger"
)

type SkillLedger interface {
	CreateSkill(ctx context.Context, caller address.Address, ns skill.NewSkill) (skill.Skill, error)
	GetSkill(id uint64) (skill.Skill, error)
	GetSkillCount() uint64
	SkillsByOwner(owner address.Address) ([]skill.Skill, error)
}

var tracer = otel.Tracer("skill_usecase")

type SkillUseCase struct {
	ledger SkillLedger
	logger logger.Logger
}

func NewSkillUseCase(l SkillLedger, log logger.Logger) *SkillUseCase {
	return &SkillUseCase{ledger: l, logger: log}
}

type CreateSkillInput struct {
	Caller address.Address
	Skill  skill.NewSkill
}

func (uc *SkillUseCase) ExecuteCreateSkill(ctx context.Context, input CreateSkillInput) (*skill.Skill, error) {
	ctx, span := tracer.Start(ctx, "CreateSkill")
	defer span.End()

	s, err := uc.ledger.CreateSkill(ctx, input.Caller, input.Skill)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	uc.logger.Info("Skill created", zap.Uint64("skill_id", s.ID), zap.String("owner", s.Owner.String()))
	return &s, nil
}

func (uc *SkillUseCase) ExecuteGetSkill(ctx context.Context, id uint64) (*skill.Skill, error) {
	_, span := tracer.Start(ctx, "GetSkill")
	defer span.End()

	s, err := uc.ledger.GetSkill(id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &s, nil
}

func (uc *SkillUseCase) ExecuteListByOwner(ctx context.Context, owner address.Address) ([]skill.Skill, error) {
	_, span := tracer.Start(ctx, "ListSkillsByOwner")
	defer span.End()

	skills, err := uc.ledger.SkillsByOwner(owner)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return skills, nil
}

func (uc *SkillUseCase) Count() uint64 {
	return uc.ledger.GetSkillCount()
}
