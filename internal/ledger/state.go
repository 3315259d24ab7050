package ledger

import (
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khoahotran/detasker/internal/domain/dispute"
	"github.com/khoahotran/detasker/internal/domain/escrow"
	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/internal/domain/profile"
	"github.com/khoahotran/detasker/internal/domain/rating"
	"github.com/khoahotran/detasker/internal/domain/skill"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
)

// counter is a monotonic id allocator. It starts at -1 so the first id is 0.
type counter int64

const unset counter = -1

func (c *counter) next() uint64 {
	*c++
	return uint64(*c)
}

func (c counter) count() uint64 {
	return uint64(c + 1)
}

// state is one immutable snapshot of the ledger. Published snapshots are never written;
// a tx works on a shallow copy and replaces entries it touches.
type state struct {
	seq uint64

	userCount      counter
	freelanceCount counter
	skillCount     counter
	jobCount       counter
	ratingCount    counter
	tagCount       counter
	disputeCount   counter
	movementCount  counter

	profiles  []*profile.Profile
	byAddress map[address.Address]uint64

	skills []*skill.Skill
	jobs   []*job.Job
	tags   map[string][]uint64

	ratings             []*rating.Rating
	ratingsByFreelancer map[address.Address][]uint64
	ratingByJob         map[uint64]uint64
	reputation          map[address.Address]rating.Reputation

	disputes []*dispute.Dispute

	movements []escrow.Movement
	escrowed  map[uint64]decimal.Decimal
	balances  escrow.Balances
}

func newState() *state {
	return &state{
		userCount:           unset,
		freelanceCount:      unset,
		skillCount:          unset,
		jobCount:            unset,
		ratingCount:         unset,
		tagCount:            unset,
		disputeCount:        unset,
		movementCount:       unset,
		byAddress:           map[address.Address]uint64{},
		tags:                map[string][]uint64{},
		ratingsByFreelancer: map[address.Address][]uint64{},
		ratingByJob:         map[uint64]uint64{},
		reputation:          map[address.Address]rating.Reputation{},
		escrowed:            map[uint64]decimal.Decimal{},
		balances:            escrow.Balances{},
	}
}

func (s *state) profileByAddress(a address.Address) (*profile.Profile, bool) {
	id, ok := s.byAddress[a]
	if !ok {
		return nil, false
	}
	return s.profiles[id], true
}

// jobAt resolves a job id for reads, enforcing the id range.
func (s *state) jobAt(id uint64) (*job.Job, error) {
	if id >= s.jobCount.count() {
		return nil, apperror.NewOutOfRange("job", id, s.jobCount.count())
	}
	return s.jobs[id], nil
}

// tx is a copy-on-write view over a base snapshot. Slices are copied before an existing
// element is replaced; appends never disturb the base because it never reads past its length.
type tx struct {
	s   *state
	cfg *Config
	now time.Time

	events []Event

	profilesCopied, jobsCopied, disputesCopied bool
	touchedProfiles, touchedJobs, touchedDisputes map[uint64]bool

	copiedMaps map[string]bool
}

func newTx(base *state, cfg *Config, now time.Time) *tx {
	s := *base
	return &tx{
		s:               &s,
		cfg:             cfg,
		now:             now,
		touchedProfiles: map[uint64]bool{},
		touchedJobs:     map[uint64]bool{},
		touchedDisputes: map[uint64]bool{},
		copiedMaps:      map[string]bool{},
	}
}

func (t *tx) emit(e Event) {
	if e.At.IsZero() {
		e.At = t.now
	}
	t.events = append(t.events, e)
}

func (t *tx) profileMut(id uint64) *profile.Profile {
	if !t.profilesCopied {
		t.s.profiles = slices.Clone(t.s.profiles)
		t.profilesCopied = true
	}
	if !t.touchedProfiles[id] {
		t.s.profiles[id] = t.s.profiles[id].Clone()
		t.touchedProfiles[id] = true
	}
	return t.s.profiles[id]
}

func (t *tx) jobMut(id uint64) *job.Job {
	if !t.jobsCopied {
		t.s.jobs = slices.Clone(t.s.jobs)
		t.jobsCopied = true
	}
	if !t.touchedJobs[id] {
		t.s.jobs[id] = t.s.jobs[id].Clone()
		t.touchedJobs[id] = true
	}
	return t.s.jobs[id]
}

func (t *tx) disputeMut(id uint64) *dispute.Dispute {
	if !t.disputesCopied {
		t.s.disputes = slices.Clone(t.s.disputes)
		t.disputesCopied = true
	}
	if !t.touchedDisputes[id] {
		t.s.disputes[id] = t.s.disputes[id].Clone()
		t.touchedDisputes[id] = true
	}
	return t.s.disputes[id]
}

func cowMap[K comparable, V any](t *tx, name string, m *map[K]V) map[K]V {
	if !t.copiedMaps[name] {
		*m = maps.Clone(*m)
		t.copiedMaps[name] = true
	}
	return *m
}

func (t *tx) byAddress() map[address.Address]uint64 {
	return cowMap(t, "byAddress", &t.s.byAddress)
}

func (t *tx) tags() map[string][]uint64 {
	return cowMap(t, "tags", &t.s.tags)
}

func (t *tx) ratingsByFreelancer() map[address.Address][]uint64 {
	return cowMap(t, "ratingsByFreelancer", &t.s.ratingsByFreelancer)
}

func (t *tx) ratingByJob() map[uint64]uint64 {
	return cowMap(t, "ratingByJob", &t.s.ratingByJob)
}

func (t *tx) reputation() map[address.Address]rating.Reputation {
	return cowMap(t, "reputation", &t.s.reputation)
}

func (t *tx) escrowed() map[uint64]decimal.Decimal {
	return cowMap(t, "escrowed", &t.s.escrowed)
}

func (t *tx) balances() escrow.Balances {
	if !t.copiedMaps["balances"] {
		t.s.balances = t.s.balances.Clone()
		t.copiedMaps["balances"] = true
	}
	return t.s.balances
}

// move records a fund movement and applies it to the balance book.
func (t *tx) move(jobID uint64, kind escrow.Kind, from, to, token address.Address, amount decimal.Decimal, at time.Time) escrow.Movement {
	m := escrow.Movement{
		ID:     t.s.movementCount.next(),
		JobID:  jobID,
		Kind:   kind,
		From:   from,
		To:     to,
		Token:  token,
		Amount: amount,
		At:     at,
	}
	t.s.movements = append(t.s.movements, m)
	t.balances().Apply(m)
	return m
}

// job returns a writable job after materialising an elapsed confirmation window.
// settled reports whether that settlement happened in this call.
func (t *tx) job(id uint64) (j *job.Job, settled bool, err error) {
	if _, err := t.s.jobAt(id); err != nil {
		return nil, false, err
	}
	j = t.jobMut(id)
	if j.SettlementDue(t.now) {
		t.autoSettle(j)
		settled = true
	}
	return j, settled, nil
}

func (t *tx) autoSettle(j *job.Job) {
	_ = j.AutoSettle()
	at := j.WindowDeadline()
	data := map[string]any{"reason": "window_elapsed", "paid": j.Paid}
	if amt, ok := t.s.escrowed[j.ID]; ok {
		m := t.move(j.ID, escrow.Release, escrow.Account, j.Freelancer, j.Token, amt, at)
		delete(t.escrowed(), j.ID)
		data["amount"] = m.Amount.String()
	}
	t.emit(Event{Type: EventJobSettled, JobID: &j.ID, Address: j.Freelancer, At: at, Data: data})
}
