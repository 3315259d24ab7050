package reputation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/internal/domain/rating"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/logger"
)

type ReputationLedger interface {
	GiveFeedback(ctx context.Context, caller, freelancer address.Address, nr rating.NewRating) (rating.Rating, error)
	GetRatingsArray(freelancer address.Address) []rating.Rating
	GetReputation(freelancer address.Address) rating.Reputation
}

var tracer = otel.Tracer("reputation_usecase")

type GiveFeedbackUseCase struct {
	ledger ReputationLedger
	logger logger.Logger
}

func NewGiveFeedbackUseCase(l ReputationLedger, log logger.Logger) *GiveFeedbackUseCase {
	return &GiveFeedbackUseCase{ledger: l, logger: log}
}

type GiveFeedbackInput struct {
	Caller     address.Address
	Freelancer address.Address
	Rating     rating.NewRating
}

type GiveFeedbackOutput struct {
	Rating     rating.Rating
	Reputation rating.Reputation
}

func (uc *GiveFeedbackUseCase) Execute(ctx context.Context, input GiveFeedbackInput) (*GiveFeedbackOutput, error) {
	ctx, span := tracer.Start(ctx, "GiveFeedback")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("job_id", int64(input.Rating.JobID)),
		attribute.String("freelancer", input.Freelancer.String()),
	)

	r, err := uc.ledger.GiveFeedback(ctx, input.Caller, input.Freelancer, input.Rating)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	rep := uc.ledger.GetReputation(input.Freelancer)
	uc.logger.Info("Feedback recorded",
		zap.Uint64("rating_id", r.ID),
		zap.Uint64("job_id", r.JobID),
		zap.Int("rating", r.Rating),
		zap.Float64("mean", rep.Mean),
	)
	return &GiveFeedbackOutput{Rating: r, Reputation: rep}, nil
}
