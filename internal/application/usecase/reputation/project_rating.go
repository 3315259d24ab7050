package reputation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/khoahotran/detasker/internal/domain/rating"
	"github.com/khoahotran/detasker/internal/ledger"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

// ProjectRatingEventUseCase keeps the leaderboard in step with rating.created events.
type ProjectRatingEventUseCase struct {
	leaderboard rating.Leaderboard
	logger      logger.Logger
}

func NewProjectRatingEventUseCase(lb rating.Leaderboard, log logger.Logger) *ProjectRatingEventUseCase {
	return &ProjectRatingEventUseCase{leaderboard: lb, logger: log}
}

func (uc *ProjectRatingEventUseCase) Execute(ctx context.Context, e ledger.Event) error {
	ctx, span := tracer.Start(ctx, "ProjectRatingEvent")
	defer span.End()

	if e.Type != ledger.EventRatingCreated {
		return nil
	}

	rep := rating.Reputation{Freelancer: e.Address}
	count, okCount := e.Data["count"].(float64)
	total, okTotal := e.Data["total"].(float64)
	mean, okMean := e.Data["mean"].(float64)
	if !okCount || !okTotal || !okMean || e.Address.IsZero() {
		err := fmt.Errorf("malformed %s event %s", e.Type, e.ID)
		span.RecordError(err)
		return err
	}
	rep.Count, rep.Total, rep.Mean = uint64(count), int64(total), mean

	// Redelivered or reordered events must not roll the aggregate back.
	current, err := uc.leaderboard.Get(ctx, e.Address)
	switch {
	case err == nil && current.Count >= rep.Count:
		uc.logger.Debug("Skipping stale rating event", zap.String("freelancer", e.Address.String()), zap.Uint64("seq", e.Seq))
		return nil
	case err != nil && !errors.Is(err, apperror.ErrNotFound):
		span.RecordError(err)
		return err
	}

	if err := uc.leaderboard.Record(ctx, rep); err != nil {
		span.RecordError(err)
		return err
	}
	uc.logger.Info("Leaderboard updated", zap.String("freelancer", e.Address.String()), zap.Float64("mean", rep.Mean), zap.Uint64("count", rep.Count))
	return nil
}
