package reputation

import (
	"context"

	"github.com/khoahotran/detasker/internal/domain/rating"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/logger"
)

type GetReputationUseCase struct {
	ledger      ReputationLedger
	leaderboard rating.Leaderboard
	logger      logger.Logger
}

// NewGetReputationUseCase accepts a nil leaderboard; Top then answers with an empty list.
func NewGetReputationUseCase(l ReputationLedger, lb rating.Leaderboard, log logger.Logger) *GetReputationUseCase {
	return &GetReputationUseCase{ledger: l, leaderboard: lb, logger: log}
}

type GetReputationOutput struct {
	Reputation rating.Reputation
	Ratings    []rating.Rating
}

func (uc *GetReputationUseCase) Execute(ctx context.Context, freelancer address.Address) (*GetReputationOutput, error) {
	_, span := tracer.Start(ctx, "GetReputation")
	defer span.End()

	return &GetReputationOutput{
		Reputation: uc.ledger.GetReputation(freelancer),
		Ratings:    uc.ledger.GetRatingsArray(freelancer),
	}, nil
}

func (uc *GetReputationUseCase) ExecuteRatings(ctx context.Context, freelancer address.Address) []rating.Rating {
	_, span := tracer.Start(ctx, "GetRatingsArray")
	defer span.End()
	return uc.ledger.GetRatingsArray(freelancer)
}

// ExecuteTop reads the leaderboard projection, which trails the ledger by the event pipeline.
func (uc *GetReputationUseCase) ExecuteTop(ctx context.Context, limit int64) ([]rating.Reputation, error) {
	ctx, span := tracer.Start(ctx, "TopFreelancers")
	defer span.End()

	if uc.leaderboard == nil {
		return []rating.Reputation{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	top, err := uc.leaderboard.Top(ctx, limit)
	if err != nil {
		span.RecordError(err)
		uc.logger.Error("Failed to read reputation leaderboard", err)
		return nil, err
	}
	return top, nil
}
