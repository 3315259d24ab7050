package profile

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/internal/domain/profile"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/logger"
)

type ProfileLedger interface {
	CreateUser(ctx context.Context, caller address.Address, np profile.NewProfile) (*profile.Profile, error)
	UpdateFreelancer(ctx context.Context, caller address.Address, nf profile.NewFreelancer) (*profile.Profile, error)
	GetProfile(addr address.Address) (*profile.Profile, error)
	GetUserCount() uint64
	GetFreelancerCount() uint64
	GetRatingCount() uint64
	GetOwner() address.Address
}

var tracer = otel.Tracer("profile_usecase")

type ProfileUseCase struct {
	ledger ProfileLedger
	logger logger.Logger
}

func NewProfileUseCase(l ProfileLedger, log logger.Logger) *ProfileUseCase {
	return &ProfileUseCase{ledger: l, logger: log}
}

type CreateProfileInput struct {
	Caller  address.Address
	Profile profile.NewProfile
}

type ProfileOutput struct {
	Profile *profile.Profile
}

func (uc *ProfileUseCase) ExecuteCreateProfile(ctx context.Context, input CreateProfileInput) (*ProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "CreateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("address", input.Caller.String()))

	p, err := uc.ledger.CreateUser(ctx, input.Caller, input.Profile)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	uc.logger.Info("Profile created", zap.Uint64("profile_id", p.ID), zap.String("address", p.Address.String()))
	return &ProfileOutput{Profile: p}, nil
}

type GetProfileInput struct {
	Address address.Address
}

func (uc *ProfileUseCase) ExecuteGetProfile(ctx context.Context, input GetProfileInput) (*ProfileOutput, error) {
	_, span := tracer.Start(ctx, "GetProfile")
	defer span.End()

	p, err := uc.ledger.GetProfile(input.Address)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &ProfileOutput{Profile: p}, nil
}

type UpdateFreelancerInput struct {
	Caller    address.Address
	Freelance profile.NewFreelancer
}

func (uc *ProfileUseCase) ExecuteUpdateFreelancer(ctx context.Context, input UpdateFreelancerInput) (*ProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "UpdateFreelancer")
	defer span.End()

	p, err := uc.ledger.UpdateFreelancer(ctx, input.Caller, input.Freelance)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	uc.logger.Info("Freelancer record saved", zap.String("address", p.Address.String()), zap.Bool("active", p.Freelancer.Active))
	return &ProfileOutput{Profile: p}, nil
}

type CountsOutput struct {
	Users       uint64
	Freelancers uint64
	Ratings     uint64
	Owner       address.Address
}

func (uc *ProfileUseCase) ExecuteCounts(ctx context.Context) *CountsOutput {
	return &CountsOutput{
		Users:       uc.ledger.GetUserCount(),
		Freelancers: uc.ledger.GetFreelancerCount(),
		Ratings:     uc.ledger.GetRatingCount(),
		Owner:       uc.ledger.GetOwner(),
	}
}
