package reputation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/detasker/internal/domain/rating"
	"github.com/khoahotran/detasker/internal/ledger"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

var bob = address.MustParse("0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359")

type memLeaderboard struct {
	reps    map[address.Address]rating.Reputation
	records int
	failGet error
}

func newMemLeaderboard() *memLeaderboard {
	return &memLeaderboard{reps: map[address.Address]rating.Reputation{}}
}

func (m *memLeaderboard) Record(_ context.Context, rep rating.Reputation) error {
	m.records++
	m.reps[rep.Freelancer] = rep
	return nil
}

func (m *memLeaderboard) Top(_ context.Context, limit int64) ([]rating.Reputation, error) {
	out := make([]rating.Reputation, 0, len(m.reps))
	for _, r := range m.reps {
		out = append(out, r)
	}
	return out, nil
}

func (m *memLeaderboard) Get(_ context.Context, a address.Address) (*rating.Reputation, error) {
	if m.failGet != nil {
		return nil, m.failGet
	}
	r, ok := m.reps[a]
	if !ok {
		return nil, apperror.NewNotFound("reputation", a.String())
	}
	return &r, nil
}

// ratingEvent mirrors what arrives from Kafka: JSON numbers decode as float64.
func ratingEvent(count, total, mean float64) ledger.Event {
	return ledger.Event{
		Type:    ledger.EventRatingCreated,
		Address: bob,
		Data:    map[string]any{"count": count, "total": total, "mean": mean},
	}
}

func TestProjectRating_RecordsAggregate(t *testing.T) {
	lb := newMemLeaderboard()
	uc := NewProjectRatingEventUseCase(lb, logger.NewNopLogger())

	require.NoError(t, uc.Execute(context.Background(), ratingEvent(1, 4, 4)))
	require.NoError(t, uc.Execute(context.Background(), ratingEvent(2, 9, 4.5)))

	assert.Equal(t, rating.Reputation{Freelancer: bob, Count: 2, Total: 9, Mean: 4.5}, lb.reps[bob])
}

func TestProjectRating_IgnoresStaleAndForeignEvents(t *testing.T) {
	lb := newMemLeaderboard()
	uc := NewProjectRatingEventUseCase(lb, logger.NewNopLogger())

	require.NoError(t, uc.Execute(context.Background(), ratingEvent(2, 9, 4.5)))
	require.NoError(t, uc.Execute(context.Background(), ratingEvent(1, 4, 4)))
	require.NoError(t, uc.Execute(context.Background(), ledger.Event{Type: ledger.EventJobSettled}))

	assert.Equal(t, 1, lb.records)
	assert.Equal(t, uint64(2), lb.reps[bob].Count)
}

func TestProjectRating_RejectsMalformedPayload(t *testing.T) {
	uc := NewProjectRatingEventUseCase(newMemLeaderboard(), logger.NewNopLogger())
	err := uc.Execute(context.Background(), ledger.Event{Type: ledger.EventRatingCreated, Address: bob, Data: map[string]any{"count": "one"}})
	assert.Error(t, err)
}

func TestProjectRating_PropagatesStoreFailure(t *testing.T) {
	lb := newMemLeaderboard()
	lb.failGet = errors.New("connection refused")
	uc := NewProjectRatingEventUseCase(lb, logger.NewNopLogger())

	err := uc.Execute(context.Background(), ratingEvent(1, 5, 5))
	assert.ErrorContains(t, err, "connection refused")
	assert.Zero(t, lb.records)
}

func TestGetReputation_TopWithoutLeaderboard(t *testing.T) {
	uc := NewGetReputationUseCase(nil, nil, logger.NewNopLogger())
	top, err := uc.ExecuteTop(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}
