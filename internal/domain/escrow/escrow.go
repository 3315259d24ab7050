package escrow

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/khoahotran/detasker/pkg/address"
)

// Account is the ledger-held escrow party every hold and payout passes through.
const Account address.Address = "ledger:escrow"

type Kind string

const (
	Hold    Kind = "hold"
	Release Kind = "release"
	Refund  Kind = "refund"
)

// Movement is one transfer of funds between two named parties.
type Movement struct {
	ID     uint64          `json:"id"`
	JobID  uint64          `json:"job_id"`
	Kind   Kind            `json:"kind"`
	From   address.Address `json:"from"`
	To     address.Address `json:"to"`
	Token  address.Address `json:"token"`
	Amount decimal.Decimal `json:"amount"`
	At     time.Time       `json:"at"`
}

// Balances maps account -> token -> amount.
type Balances map[address.Address]map[address.Address]decimal.Decimal

func (b Balances) Get(account, token address.Address) decimal.Decimal {
	return b[account][token]
}

// Clone copies both map levels.
func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for acct, tokens := range b {
		inner := make(map[address.Address]decimal.Decimal, len(tokens))
		for tok, amt := range tokens {
			inner[tok] = amt
		}
		out[acct] = inner
	}
	return out
}

// Apply debits From and credits To. The receiver must not be shared with a published snapshot.
func (b Balances) Apply(m Movement) {
	b.add(m.From, m.Token, m.Amount.Neg())
	b.add(m.To, m.Token, m.Amount)
}

func (b Balances) add(account, token address.Address, amt decimal.Decimal) {
	inner, ok := b[account]
	if !ok {
		inner = make(map[address.Address]decimal.Decimal)
		b[account] = inner
	}
	inner[token] = inner[token].Add(amt)
}
