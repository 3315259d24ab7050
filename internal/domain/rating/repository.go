package rating

import (
	"context"

	"github.com/khoahotran/detasker/pkg/address"
)

// Leaderboard is the read model of freelancer reputation kept outside the ledger.
type Leaderboard interface {
	Record(ctx context.Context, rep Reputation) error
	Top(ctx context.Context, limit int64) ([]Reputation, error)
	Get(ctx context.Context, freelancer address.Address) (*Reputation, error)
}
