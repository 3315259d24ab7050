package persistence

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/khoahotran/detasker/internal/domain/rating"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

const (
	leaderboardKey       = "reputation:leaderboard"
	reputationHashPrefix = "reputation:freelancer:"
)

type redisLeaderboardRepo struct {
	rdb    *redis.Client
	logger logger.Logger
}

func NewRedisLeaderboardRepo(rdb *redis.Client, logger logger.Logger) rating.Leaderboard {
	return &redisLeaderboardRepo{rdb: rdb, logger: logger}
}

func (r *redisLeaderboardRepo) Record(ctx context.Context, rep rating.Reputation) error {
	member := rep.Freelancer.String()
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: rep.Mean, Member: member})
		pipe.HSet(ctx, reputationHashPrefix+member,
			"count", rep.Count,
			"total", rep.Total,
			"mean", strconv.FormatFloat(rep.Mean, 'f', -1, 64),
		)
		return nil
	})
	if err != nil {
		return apperror.NewInternal("failed to record reputation", err)
	}
	return nil
}

func (r *redisLeaderboardRepo) Top(ctx context.Context, limit int64) ([]rating.Reputation, error) {
	if limit <= 0 {
		limit = 10
	}
	members, err := r.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, limit-1).Result()
	if err != nil {
		return nil, apperror.NewInternal("failed to read leaderboard", err)
	}

	out := make([]rating.Reputation, 0, len(members))
	for _, z := range members {
		member, _ := z.Member.(string)
		rep, err := r.Get(ctx, address.Address(member))
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				rep = &rating.Reputation{Freelancer: address.Address(member)}
			} else {
				return nil, err
			}
		}
		rep.Mean = z.Score
		out = append(out, *rep)
	}
	return out, nil
}

func (r *redisLeaderboardRepo) Get(ctx context.Context, freelancer address.Address) (*rating.Reputation, error) {
	vals, err := r.rdb.HGetAll(ctx, reputationHashPrefix+freelancer.String()).Result()
	if err != nil {
		return nil, apperror.NewInternal("failed to read reputation", err)
	}
	if len(vals) == 0 {
		return nil, apperror.NewNotFound("reputation", freelancer.String())
	}

	rep := &rating.Reputation{Freelancer: freelancer}
	rep.Count, _ = strconv.ParseUint(vals["count"], 10, 64)
	rep.Total, _ = strconv.ParseInt(vals["total"], 10, 64)
	rep.Mean, _ = strconv.ParseFloat(vals["mean"], 64)
	return rep, nil
}
