package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/detasker/internal/domain/dispute"
	"github.com/khoahotran/detasker/internal/domain/escrow"
	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/internal/domain/profile"
	"github.com/khoahotran/detasker/internal/domain/rating"
	"github.com/khoahotran/detasker/internal/domain/skill"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
)

var (
	alice   = address.MustParse("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	bob     = address.MustParse("0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359")
	carol   = address.MustParse("0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb")
	arbiter = address.MustParse("0xd1220a0cf47c7b9be7a2e6ba89f429762e7b9adb")
	usdt    = address.MustParse("0x55d398326f99059ff775485246999027b3197955")
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memJournal struct {
	mu      sync.Mutex
	entries []Entry
	failure error
}

func (m *memJournal) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memJournal) Load(_ context.Context, afterSeq uint64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.Seq > afterSeq {
			out = append(out, e)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, events []Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type LedgerTestSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *fakeClock
	journal *memJournal
	ledger  *Ledger
}

func TestLedgerTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (s *LedgerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = newFakeClock()
	s.journal = &memJournal{}
	s.ledger = New(s.config(), s.journal, nil, nil)
}

func (s *LedgerTestSuite) TearDownTest() {
	s.NoError(s.ledger.Verify())
}

func (s *LedgerTestSuite) config() Config {
	cfg := DefaultConfig()
	cfg.Arbiter = arbiter
	cfg.DefaultToken = usdt
	cfg.Clock = s.clock.Now
	return cfg
}

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (s *LedgerTestSuite) requester(addr address.Address) {
	_, err := s.ledger.CreateUser(s.ctx, addr, profile.NewProfile{Name: "requester"})
	s.Require().NoError(err)
}

func (s *LedgerTestSuite) freelancer(addr address.Address) {
	_, err := s.ledger.CreateUser(s.ctx, addr, profile.NewProfile{
		Name:      "freelancer",
		Freelance: &profile.NewFreelancer{Active: true, MainSkills: "solidity, go"},
	})
	s.Require().NoError(err)
}

// completedJob walks a fresh job from alice to bob through completion.
func (s *LedgerTestSuite) completedJob(pay string) *job.Job {
	s.requester(alice)
	s.freelancer(bob)
	j, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "audit", RequestedPaymentAmount: amount(pay)})
	s.Require().NoError(err)
	_, err = s.ledger.PublishJob(s.ctx, alice, j.ID)
	s.Require().NoError(err)
	_, err = s.ledger.AssignJob(s.ctx, alice, bob, j.ID)
	s.Require().NoError(err)
	j, err = s.ledger.CompleteJob(s.ctx, alice, j.ID, amount(pay))
	s.Require().NoError(err)
	return j
}

func (s *LedgerTestSuite) TestEndToEndScenario() {
	_, err := s.ledger.CreateUser(s.ctx, alice, profile.NewProfile{Name: "A"})
	s.Require().NoError(err)
	s.Equal(uint64(1), s.ledger.GetUserCount())

	j, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "logo", RequestedPaymentAmount: amount("0.002")})
	s.Require().NoError(err)
	s.Equal(uint64(1), s.ledger.GetJobCount())

	_, err = s.ledger.CreateSkill(s.ctx, alice, skill.NewSkill{Skill: "design", SkillName: "Logo design"})
	s.Require().NoError(err)
	s.Equal(uint64(1), s.ledger.GetSkillCount())

	_, err = s.ledger.CreateUser(s.ctx, bob, profile.NewProfile{Name: "B", Freelance: &profile.NewFreelancer{Active: true}})
	s.Require().NoError(err)

	_, err = s.ledger.PublishJob(s.ctx, alice, j.ID)
	s.Require().NoError(err)
	_, err = s.ledger.AssignJob(s.ctx, alice, bob, j.ID)
	s.Require().NoError(err)
	_, err = s.ledger.CompleteJob(s.ctx, alice, j.ID, amount("0.002"))
	s.Require().NoError(err)

	_, err = s.ledger.GiveFeedback(s.ctx, alice, bob, rating.NewRating{JobID: j.ID, Rating: 5, Review: "great"})
	s.Require().NoError(err)

	ratings := s.ledger.GetRatingsArray(bob)
	s.Require().Len(ratings, 1)
	s.Equal(5, ratings[0].Rating)

	rep := s.ledger.GetReputation(bob)
	s.Equal(uint64(1), rep.Count)
	s.InDelta(5.0, rep.Mean, 1e-9)
}

func (s *LedgerTestSuite) TestCountersStartEmpty() {
	s.Equal(uint64(0), s.ledger.GetUserCount())
	s.Equal(uint64(0), s.ledger.GetJobCount())
	s.Equal(uint64(0), s.ledger.GetSkillCount())
	s.Equal(uint64(0), s.ledger.GetTagCount())
	s.Equal(arbiter, s.ledger.GetOwner())
	s.Equal(2_592_000*time.Second, s.ledger.TimeForConfirmation())

	_, err := s.ledger.GetSkill(0)
	s.ErrorIs(err, apperror.ErrOutOfRange)
	_, err = s.ledger.GetJobByID(0)
	s.ErrorIs(err, apperror.ErrOutOfRange)
}

func (s *LedgerTestSuite) TestCreateUserRejectsDuplicate() {
	s.requester(alice)
	seq := s.ledger.Seq()

	_, err := s.ledger.CreateUser(s.ctx, alice, profile.NewProfile{Name: "again"})
	s.ErrorIs(err, apperror.ErrDuplicateIdentity)
	s.Equal(seq, s.ledger.Seq())
	s.Equal(uint64(1), s.ledger.GetUserCount())
}

func (s *LedgerTestSuite) TestCreateUserMaterializesFreelancerAndSkills() {
	p, err := s.ledger.CreateUser(s.ctx, bob, profile.NewProfile{
		Name:      "Bob",
		Socials:   []profile.Social{{Platform: "github", URL: "https://github.com/bob"}},
		Freelance: &profile.NewFreelancer{Active: true, MainSkills: "go"},
		Skills: []skill.NewSkill{
			{Skill: "backend", SkillName: "Go"},
			{Skill: "backend", SkillName: "Postgres"},
		},
	})
	s.Require().NoError(err)

	s.Require().NotNil(p.FreelanceID)
	s.Equal(uint64(0), *p.FreelanceID)
	s.True(p.Eligible())
	s.Equal([]uint64{0, 1}, p.SkillIDs)
	s.Equal([]uint64{0, 1}, p.Freelancer.SkillIDs)
	s.Equal(uint64(2), s.ledger.GetSkillCount())
	s.Equal(uint64(1), s.ledger.GetFreelancerCount())

	skills, err := s.ledger.SkillsByOwner(bob)
	s.Require().NoError(err)
	s.Len(skills, 2)
	s.Equal("Postgres", skills[1].SkillName)
	s.Equal(bob, skills[1].Owner)
}

func (s *LedgerTestSuite) TestCreateUserRejectsInvalidProfile() {
	_, err := s.ledger.CreateUser(s.ctx, alice, profile.NewProfile{Email: "not-an-email"})
	s.ErrorIs(err, apperror.ErrInvalidInput)
	s.Equal(uint64(0), s.ledger.GetUserCount())
}

func (s *LedgerTestSuite) TestUnregisteredAddressIsNotFound() {
	_, err := s.ledger.GetProfile(alice)
	s.ErrorIs(err, apperror.ErrNotFound)

	_, err = s.ledger.CreateSkill(s.ctx, alice, skill.NewSkill{Skill: "x", SkillName: "y"})
	s.ErrorIs(err, apperror.ErrNotFound)

	_, err = s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "t"})
	s.ErrorIs(err, apperror.ErrNotFound)
	s.Equal(uint64(0), s.ledger.GetJobCount())
}

func (s *LedgerTestSuite) TestCreateJobDefaultsTokenAndCountsTags() {
	s.requester(alice)

	j, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "a", Tags: []string{"Go", "go", " api "}})
	s.Require().NoError(err)
	s.Equal(usdt, j.Token)
	s.Equal([]string{"go", "api"}, j.Tags)
	s.Equal(job.StatusCreated, j.Status)
	s.False(j.Publish)
	s.Equal(s.clock.Now(), j.Date)

	_, err = s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "b", Tags: []string{"api", "rust"}})
	s.Require().NoError(err)
	s.Equal(uint64(3), s.ledger.GetTagCount())

	p, err := s.ledger.GetProfile(alice)
	s.Require().NoError(err)
	s.Equal([]uint64{0, 1}, p.JobIDs)
}

func (s *LedgerTestSuite) TestPublishIsRequesterOnly() {
	s.requester(alice)
	s.requester(carol)
	j, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "a"})
	s.Require().NoError(err)

	_, err = s.ledger.PublishJob(s.ctx, carol, j.ID)
	s.ErrorIs(err, apperror.ErrPermission)

	j, err = s.ledger.PublishJob(s.ctx, alice, j.ID)
	s.Require().NoError(err)
	s.True(j.Publish)
	s.NotNil(j.DatePublished)

	_, err = s.ledger.PublishJob(s.ctx, alice, j.ID)
	s.ErrorIs(err, apperror.ErrInvalidState)
}

func (s *LedgerTestSuite) TestAssignWithoutFreelancerRecordIsNotEligible() {
	s.requester(alice)
	s.requester(carol)
	j, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "a"})
	s.Require().NoError(err)
	_, err = s.ledger.PublishJob(s.ctx, alice, j.ID)
	s.Require().NoError(err)

	_, err = s.ledger.AssignJob(s.ctx, alice, carol, j.ID)
	s.ErrorIs(err, apperror.ErrNotEligible)

	_, err = s.ledger.AssignJob(s.ctx, alice, bob, j.ID)
	s.ErrorIs(err, apperror.ErrNotEligible, "no profile at all")

	got, err := s.ledger.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusPublished, got.Status)
	s.False(got.Assigned)
}

func (s *LedgerTestSuite) TestAssignInactiveFreelancerIsNotEligible() {
	s.requester(alice)
	_, err := s.ledger.CreateUser(s.ctx, bob, profile.NewProfile{Name: "b", Freelance: &profile.NewFreelancer{Active: false}})
	s.Require().NoError(err)
	j, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "a"})
	s.Require().NoError(err)
	_, err = s.ledger.PublishJob(s.ctx, alice, j.ID)
	s.Require().NoError(err)

	_, err = s.ledger.AssignJob(s.ctx, alice, bob, j.ID)
	s.ErrorIs(err, apperror.ErrNotEligible)

	_, err = s.ledger.UpdateFreelancer(s.ctx, bob, profile.NewFreelancer{Active: true})
	s.Require().NoError(err)
	_, err = s.ledger.AssignJob(s.ctx, alice, bob, j.ID)
	s.NoError(err)
}

func (s *LedgerTestSuite) TestAssignStateRules() {
	s.requester(alice)
	s.freelancer(bob)
	s.freelancer(carol)
	j, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "a"})
	s.Require().NoError(err)

	_, err = s.ledger.AssignJob(s.ctx, alice, bob, j.ID)
	s.ErrorIs(err, apperror.ErrInvalidState, "unpublished")

	_, err = s.ledger.PublishJob(s.ctx, alice, j.ID)
	s.Require().NoError(err)
	_, err = s.ledger.AssignJob(s.ctx, carol, bob, j.ID)
	s.ErrorIs(err, apperror.ErrPermission)

	_, err = s.ledger.AssignJob(s.ctx, alice, bob, j.ID)
	s.Require().NoError(err)
	_, err = s.ledger.AssignJob(s.ctx, alice, carol, j.ID)
	s.ErrorIs(err, apperror.ErrAlreadyAssigned)

	got, err := s.ledger.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(bob, got.Freelancer)
}

func (s *LedgerTestSuite) TestCompleteWithWrongFundsKeepsAssigned() {
	s.requester(alice)
	s.freelancer(bob)
	j, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "a", RequestedPaymentAmount: amount("0.002")})
	s.Require().NoError(err)
	_, err = s.ledger.PublishJob(s.ctx, alice, j.ID)
	s.Require().NoError(err)
	_, err = s.ledger.AssignJob(s.ctx, alice, bob, j.ID)
	s.Require().NoError(err)
	seq := s.ledger.Seq()

	_, err = s.ledger.CompleteJob(s.ctx, alice, j.ID, amount("0.001"))
	s.ErrorIs(err, apperror.ErrFundsMismatch)

	got, err := s.ledger.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusAssigned, got.Status)
	s.False(got.Completed)
	s.False(got.HasFunds)
	s.Equal(seq, s.ledger.Seq())
	s.True(s.ledger.GetBalance(escrow.Account, usdt).IsZero())
}

func (s *LedgerTestSuite) TestCompleteTwiceIsInvalidState() {
	j := s.completedJob("1.5")
	before, err := s.ledger.GetJobByID(j.ID)
	s.Require().NoError(err)
	seq := s.ledger.Seq()

	s.clock.Advance(time.Hour)
	_, err = s.ledger.CompleteJob(s.ctx, alice, j.ID, amount("1.5"))
	s.ErrorIs(err, apperror.ErrInvalidState)

	after, err := s.ledger.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(before, after)
	s.Equal(seq, s.ledger.Seq())
	s.True(s.ledger.GetBalance(escrow.Account, usdt).Equal(amount("1.5")))
}

func (s *LedgerTestSuite) TestCompleteHoldsFundsInEscrow() {
	j := s.completedJob("0.002")

	s.True(j.HasFunds)
	s.True(j.Completed)
	s.False(j.Paid)
	s.Equal(s.clock.Now(), *j.DateCompleted)

	s.True(s.ledger.GetBalance(escrow.Account, usdt).Equal(amount("0.002")))
	s.True(s.ledger.GetBalance(alice, usdt).Equal(amount("-0.002")))

	moves, err := s.ledger.GetEscrowMovements(j.ID)
	s.Require().NoError(err)
	s.Require().Len(moves, 1)
	s.Equal(escrow.Hold, moves[0].Kind)
	s.Equal(alice, moves[0].From)
}

func (s *LedgerTestSuite) TestWindowElapsesIntoSettlement() {
	j := s.completedJob("0.002")
	deadline := j.DateCompleted.Add(job.TimeForConfirmation)

	s.clock.Advance(job.TimeForConfirmation - time.Second)
	got, err := s.ledger.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusCompleted, got.Status)
	s.False(got.Paid)
	s.True(s.ledger.GetBalance(bob, usdt).IsZero())

	_, err = s.ledger.SettleJob(s.ctx, carol, j.ID)
	s.ErrorIs(err, apperror.ErrInvalidState)

	s.clock.Advance(time.Second)
	got, err = s.ledger.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusSettled, got.Status)
	s.True(got.Paid)
	s.Equal(deadline, *got.DatePaid)
	s.True(s.ledger.GetBalance(bob, usdt).Equal(amount("0.002")), "derived before materialisation")

	moves, err := s.ledger.GetEscrowMovements(j.ID)
	s.Require().NoError(err)
	s.Len(moves, 1, "nothing recorded until a write touches the job")

	settled, err := s.ledger.SettleJob(s.ctx, carol, j.ID)
	s.Require().NoError(err)
	s.Equal(got, settled)

	moves, err = s.ledger.GetEscrowMovements(j.ID)
	s.Require().NoError(err)
	s.Require().Len(moves, 2)
	s.Equal(escrow.Release, moves[1].Kind)
	s.Equal(bob, moves[1].To)
	s.Equal(deadline, moves[1].At)
	s.True(s.ledger.GetBalance(bob, usdt).Equal(amount("0.002")))
	s.True(s.ledger.GetBalance(escrow.Account, usdt).IsZero())

	_, err = s.ledger.SettleJob(s.ctx, carol, j.ID)
	s.ErrorIs(err, apperror.ErrInvalidState)
}

func (s *LedgerTestSuite) TestZeroAmountJobSettlesUnpaid() {
	j := s.completedJob("0")
	s.False(j.HasFunds)

	s.clock.Advance(job.TimeForConfirmation)
	got, err := s.ledger.SettleJob(s.ctx, alice, j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusSettled, got.Status)
	s.False(got.Paid)

	moves, err := s.ledger.GetEscrowMovements(j.ID)
	s.Require().NoError(err)
	s.Empty(moves)
}

func (s *LedgerTestSuite) TestFeedbackRules() {
	j := s.completedJob("1")

	_, err := s.ledger.GiveFeedback(s.ctx, alice, bob, rating.NewRating{JobID: j.ID, Rating: 9})
	s.ErrorIs(err, apperror.ErrInvalidInput)
	_, err = s.ledger.GiveFeedback(s.ctx, bob, bob, rating.NewRating{JobID: j.ID, Rating: 4})
	s.ErrorIs(err, apperror.ErrPermission)
	_, err = s.ledger.GiveFeedback(s.ctx, alice, carol, rating.NewRating{JobID: j.ID, Rating: 4})
	s.ErrorIs(err, apperror.ErrInvalidInput)
	_, err = s.ledger.GiveFeedback(s.ctx, alice, bob, rating.NewRating{JobID: 42, Rating: 4})
	s.ErrorIs(err, apperror.ErrOutOfRange)

	r, err := s.ledger.GiveFeedback(s.ctx, alice, bob, rating.NewRating{JobID: j.ID, Rating: 4, Review: "ok"})
	s.Require().NoError(err)
	s.Equal(uint64(0), r.ID)

	seq := s.ledger.Seq()
	_, err = s.ledger.GiveFeedback(s.ctx, alice, bob, rating.NewRating{JobID: j.ID, Rating: 1})
	s.ErrorIs(err, apperror.ErrAlreadyRated)
	s.Equal(seq, s.ledger.Seq())
	s.Len(s.ledger.GetRatingsArray(bob), 1)
	s.Equal(uint64(1), s.ledger.GetReputation(bob).Count)

	p, err := s.ledger.GetProfile(bob)
	s.Require().NoError(err)
	s.Equal([]uint64{0}, p.RatingIDs)
}

func (s *LedgerTestSuite) TestFeedbackBeforeCompletionIsInvalidState() {
	s.requester(alice)
	s.freelancer(bob)
	j, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "a"})
	s.Require().NoError(err)
	_, err = s.ledger.PublishJob(s.ctx, alice, j.ID)
	s.Require().NoError(err)
	_, err = s.ledger.AssignJob(s.ctx, alice, bob, j.ID)
	s.Require().NoError(err)

	_, err = s.ledger.GiveFeedback(s.ctx, alice, bob, rating.NewRating{JobID: j.ID, Rating: 5})
	s.ErrorIs(err, apperror.ErrInvalidState)
	s.Empty(s.ledger.GetRatingsArray(bob))
}

func (s *LedgerTestSuite) TestSettledFeedbackPolicy() {
	cfg := s.config()
	cfg.FeedbackPolicy = FeedbackOnSettled
	s.ledger = New(cfg, nil, nil, nil)

	j := s.completedJob("2")
	_, err := s.ledger.GiveFeedback(s.ctx, alice, bob, rating.NewRating{JobID: j.ID, Rating: 5})
	s.ErrorIs(err, apperror.ErrInvalidState)

	s.clock.Advance(job.TimeForConfirmation)
	_, err = s.ledger.GiveFeedback(s.ctx, alice, bob, rating.NewRating{JobID: j.ID, Rating: 5})
	s.Require().NoError(err)

	moves, err := s.ledger.GetEscrowMovements(j.ID)
	s.Require().NoError(err)
	s.Len(moves, 2, "the feedback write materialised the settlement")
}

func (s *LedgerTestSuite) TestDisputeFreezesWindowAndSplits() {
	j := s.completedJob("10")

	d, err := s.ledger.RaiseDispute(s.ctx, alice, j.ID, "work incomplete")
	s.Require().NoError(err)
	s.Equal(dispute.StatusOpen, d.Status)

	_, err = s.ledger.RaiseDispute(s.ctx, bob, j.ID, "again")
	s.ErrorIs(err, apperror.ErrInvalidState, "one open dispute at a time")

	s.clock.Advance(2 * job.TimeForConfirmation)
	got, err := s.ledger.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusDisputed, got.Status)
	s.False(got.Paid)

	_, err = s.ledger.ResolveDispute(s.ctx, alice, j.ID, dispute.Outcome{Kind: dispute.ReleaseToFreelancer})
	s.ErrorIs(err, apperror.ErrPermission)

	resolved, err := s.ledger.ResolveDispute(s.ctx, arbiter, j.ID, dispute.Outcome{Kind: dispute.Split, Ratio: amount("0.25")})
	s.Require().NoError(err)
	s.Equal(dispute.StatusResolved, resolved.Status)
	s.True(resolved.FreelancerAmount.Equal(amount("2.5")))
	s.True(resolved.RequesterAmount.Equal(amount("7.5")))

	got, err = s.ledger.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusSettled, got.Status)
	s.True(got.Paid)
	s.Nil(got.OpenDisputeID)
	s.True(s.ledger.GetBalance(bob, usdt).Equal(amount("2.5")))
	s.True(s.ledger.GetBalance(alice, usdt).Equal(amount("-2.5")))
	s.True(s.ledger.GetBalance(escrow.Account, usdt).IsZero())

	disputes, err := s.ledger.GetDisputes(j.ID)
	s.Require().NoError(err)
	s.Len(disputes, 1)

	_, err = s.ledger.ResolveDispute(s.ctx, arbiter, j.ID, dispute.Outcome{Kind: dispute.RefundRequester})
	s.ErrorIs(err, apperror.ErrInvalidState)
}

func (s *LedgerTestSuite) TestRefundLeavesJobUnpaid() {
	j := s.completedJob("3")
	_, err := s.ledger.RaiseDispute(s.ctx, bob, j.ID, "requester unresponsive")
	s.Require().NoError(err)

	_, err = s.ledger.ResolveDispute(s.ctx, arbiter, j.ID, dispute.Outcome{Kind: dispute.RefundRequester})
	s.Require().NoError(err)

	got, err := s.ledger.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusSettled, got.Status)
	s.False(got.Paid)
	s.Nil(got.DatePaid)
	s.True(s.ledger.GetBalance(alice, usdt).IsZero())
}

func (s *LedgerTestSuite) TestDisputeAfterWindowIsInvalidState() {
	j := s.completedJob("1")
	s.clock.Advance(job.TimeForConfirmation)

	_, err := s.ledger.RaiseDispute(s.ctx, alice, j.ID, "too late")
	s.ErrorIs(err, apperror.ErrInvalidState)

	got, err := s.ledger.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusSettled, got.Status)
	s.Empty(got.Disputes)
}

func (s *LedgerTestSuite) TestDisputeRaiserPolicy() {
	cfg := s.config()
	cfg.DisputeRaisers = dispute.RaisersRequester
	s.ledger = New(cfg, nil, nil, nil)
	j := s.completedJob("1")

	_, err := s.ledger.RaiseDispute(s.ctx, bob, j.ID, "pay me")
	s.ErrorIs(err, apperror.ErrPermission)
	_, err = s.ledger.RaiseDispute(s.ctx, carol, j.ID, "stranger")
	s.ErrorIs(err, apperror.ErrPermission)
	_, err = s.ledger.RaiseDispute(s.ctx, alice, j.ID, "bad work")
	s.NoError(err)
}

func (s *LedgerTestSuite) TestDeleteRules() {
	s.requester(alice)
	s.freelancer(bob)
	a, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "a", Tags: []string{"go"}})
	s.Require().NoError(err)
	b, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "b"})
	s.Require().NoError(err)

	s.ErrorIs(s.ledger.DeleteJob(s.ctx, bob, a.ID), apperror.ErrPermission)
	s.Require().NoError(s.ledger.DeleteJob(s.ctx, alice, a.ID))

	_, err = s.ledger.GetJobByID(a.ID)
	s.ErrorIs(err, apperror.ErrNotFound)
	_, err = s.ledger.PublishJob(s.ctx, alice, a.ID)
	s.ErrorIs(err, apperror.ErrInvalidState)
	s.ErrorIs(s.ledger.DeleteJob(s.ctx, alice, a.ID), apperror.ErrInvalidState)
	s.Equal(uint64(2), s.ledger.GetJobCount())

	_, err = s.ledger.PublishJob(s.ctx, alice, b.ID)
	s.Require().NoError(err)
	_, err = s.ledger.AssignJob(s.ctx, alice, bob, b.ID)
	s.Require().NoError(err)
	s.ErrorIs(s.ledger.DeleteJob(s.ctx, alice, b.ID), apperror.ErrInvalidState)
}

func (s *LedgerTestSuite) TestListJobsFilters() {
	s.requester(alice)
	s.requester(carol)
	for i, title := range []string{"a", "b", "c"} {
		j, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: title, Tags: []string{"go"}})
		s.Require().NoError(err)
		if i > 0 {
			_, err = s.ledger.PublishJob(s.ctx, alice, j.ID)
			s.Require().NoError(err)
		}
	}
	c, err := s.ledger.CreateJob(s.ctx, carol, job.Draft{Title: "d", Tags: []string{"rust"}})
	s.Require().NoError(err)
	s.Require().NoError(s.ledger.DeleteJob(s.ctx, alice, 0))

	all, total := s.ledger.ListJobs(JobFilter{}, Page{})
	s.Equal(3, total)
	s.Len(all, 3)

	published := true
	pub, total := s.ledger.ListJobs(JobFilter{Published: &published}, Page{})
	s.Equal(2, total)
	s.Equal(uint64(1), pub[0].ID)

	owned, total := s.ledger.ListJobs(JobFilter{Owner: &carol}, Page{})
	s.Equal(1, total)
	s.Equal(c.ID, owned[0].ID)

	tagged, total := s.ledger.ListJobs(JobFilter{Tag: "GO"}, Page{})
	s.Equal(2, total)
	s.Len(tagged, 2)

	page2, total := s.ledger.ListJobs(JobFilter{}, Page{Page: 2, Limit: 2})
	s.Equal(3, total)
	s.Require().Len(page2, 1)
	s.Equal(c.ID, page2[0].ID)

	none, total := s.ledger.ListJobs(JobFilter{Owner: &bob}, Page{})
	s.Zero(total)
	s.Empty(none)
}

func (s *LedgerTestSuite) TestJournalFailureLeavesLedgerUnchanged() {
	s.requester(alice)
	seq := s.ledger.Seq()
	s.journal.failure = errors.New("disk full")

	_, err := s.ledger.CreateJob(s.ctx, alice, job.Draft{Title: "a"})
	s.ErrorIs(err, apperror.ErrInternal)
	s.Equal(seq, s.ledger.Seq())
	s.Equal(uint64(0), s.ledger.GetJobCount())
}

func (s *LedgerTestSuite) TestReplayRebuildsState() {
	j := s.completedJob("0.002")
	_, err := s.ledger.GiveFeedback(s.ctx, alice, bob, rating.NewRating{JobID: j.ID, Rating: 5})
	s.Require().NoError(err)
	s.clock.Advance(job.TimeForConfirmation)
	_, err = s.ledger.SettleJob(s.ctx, carol, j.ID)
	s.Require().NoError(err)

	// Replay runs against recorded timestamps, not the clock.
	s.clock.Advance(24 * time.Hour)
	replayed := New(s.config(), s.journal, nil, nil)
	n, err := replayed.Replay(s.ctx)
	s.Require().NoError(err)
	s.Equal(len(s.journal.entries), n)

	s.Equal(s.ledger.Seq(), replayed.Seq())
	s.Equal(s.ledger.GetUserCount(), replayed.GetUserCount())
	s.Equal(s.ledger.GetRatingsArray(bob), replayed.GetRatingsArray(bob))

	want, err := s.ledger.GetJobByID(j.ID)
	s.Require().NoError(err)
	got, err := replayed.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(want, got)

	wantMoves, _ := s.ledger.GetEscrowMovements(j.ID)
	gotMoves, _ := replayed.GetEscrowMovements(j.ID)
	s.Equal(wantMoves, gotMoves)
	s.NoError(replayed.Verify())
}

func (s *LedgerTestSuite) TestReplayAfterArbiterRotation() {
	j := s.completedJob("10")
	_, err := s.ledger.RaiseDispute(s.ctx, alice, j.ID, "late delivery")
	s.Require().NoError(err)
	_, err = s.ledger.ResolveDispute(s.ctx, arbiter, j.ID, dispute.Outcome{Kind: dispute.RefundRequester})
	s.Require().NoError(err)

	cfg := s.config()
	cfg.Arbiter = carol
	replayed := New(cfg, s.journal, nil, nil)
	_, err = replayed.Replay(s.ctx)
	s.Require().NoError(err)
	s.NoError(replayed.Verify())

	want, _ := s.ledger.GetDisputes(j.ID)
	got, err := replayed.GetDisputes(j.ID)
	s.Require().NoError(err)
	s.Equal(want, got)
	s.Equal(carol, replayed.GetOwner())
	s.Equal(s.ledger.GetBalance(alice, usdt), replayed.GetBalance(alice, usdt))
}

func (s *LedgerTestSuite) TestReplayAfterPolicySwitch() {
	j := s.completedJob("1")
	_, err := s.ledger.GiveFeedback(s.ctx, alice, bob, rating.NewRating{JobID: j.ID, Rating: 5})
	s.Require().NoError(err)

	cfg := s.config()
	cfg.FeedbackPolicy = FeedbackOnSettled
	cfg.DisputeRaisers = dispute.RaisersFreelancer
	cfg.MinRating, cfg.MaxRating = 1, 3
	replayed := New(cfg, s.journal, nil, nil)
	_, err = replayed.Replay(s.ctx)
	s.Require().NoError(err)
	s.Equal(s.ledger.GetRatingsArray(bob), replayed.GetRatingsArray(bob))

	// New commands follow the new policy.
	_, err = replayed.RaiseDispute(s.ctx, alice, j.ID, "too late")
	s.ErrorIs(err, apperror.ErrPermission)
}

func (s *LedgerTestSuite) TestWindowIsFixedAtCompletion() {
	short := s.config()
	short.Window = time.Hour
	s.ledger = New(short, s.journal, nil, nil)
	j := s.completedJob("1")
	s.Equal(j.DateCompleted.Add(time.Hour), j.WindowDeadline())

	replayed := New(s.config(), s.journal, nil, nil)
	_, err := replayed.Replay(s.ctx)
	s.Require().NoError(err)
	got, err := replayed.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(j.WindowDeadline(), got.WindowDeadline())

	s.clock.Advance(time.Hour)
	got, err = replayed.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusSettled, got.Status)
	s.Equal(job.TimeForConfirmation, replayed.TimeForConfirmation())
	s.Equal(time.Hour, s.ledger.ConfirmationWindow())
}

func TestLedger_PublishesEventsAfterCommit(t *testing.T) {
	pub := &recordingPublisher{}
	l := New(DefaultConfig(), nil, pub, nil)
	ctx := context.Background()

	_, err := l.CreateUser(ctx, alice, profile.NewProfile{
		Name:   "A",
		Skills: []skill.NewSkill{{Skill: "ops", SkillName: "Kubernetes"}},
	})
	require.NoError(t, err)
	_, err = l.CreateJob(ctx, alice, job.Draft{Title: "a"})
	require.NoError(t, err)

	_, err = l.CreateUser(ctx, alice, profile.NewProfile{Name: "dup"})
	require.Error(t, err)

	require.NoError(t, l.Close(ctx))
	assert.ElementsMatch(t, []string{EventProfileCreated, EventSkillCreated, EventJobCreated}, pub.types())
}

type gatedPublisher struct {
	mu   sync.Mutex
	seqs []uint64
	gate chan struct{}
}

// Publish stalls the first batch until gate closes.
func (p *gatedPublisher) Publish(_ context.Context, events []Event) error {
	if events[0].Seq == 1 {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seqs = append(p.seqs, events[0].Seq)
	return nil
}

func TestLedger_PublishesInCommitOrder(t *testing.T) {
	pub := &gatedPublisher{gate: make(chan struct{})}
	l := New(DefaultConfig(), nil, pub, nil)
	ctx := context.Background()

	_, err := l.CreateUser(ctx, alice, profile.NewProfile{Name: "A"})
	require.NoError(t, err)
	_, err = l.CreateUser(ctx, bob, profile.NewProfile{Name: "B"})
	require.NoError(t, err)
	close(pub.gate)

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, l.Close(closeCtx))
	assert.Equal(t, []uint64{1, 2}, pub.seqs)

	_, err = l.CreateUser(ctx, carol, profile.NewProfile{Name: "C"})
	require.NoError(t, err, "writes still commit after Close")
	assert.Equal(t, uint64(3), l.Seq())
	assert.Equal(t, []uint64{1, 2}, pub.seqs)
	assert.NoError(t, l.Close(closeCtx))
}

func TestLedger_CloseGivesUpWhenPublisherIsStuck(t *testing.T) {
	pub := &gatedPublisher{gate: make(chan struct{})}
	defer close(pub.gate)
	l := New(DefaultConfig(), nil, pub, nil)

	_, err := l.CreateUser(context.Background(), alice, profile.NewProfile{Name: "A"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Close(ctx), context.DeadlineExceeded)
}

func TestLedger_ConcurrentWritesAreSerialized(t *testing.T) {
	l := New(DefaultConfig(), &memJournal{}, nil, nil)
	ctx := context.Background()
	_, err := l.CreateUser(ctx, alice, profile.NewProfile{Name: "A"})
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := l.CreateJob(ctx, alice, job.Draft{Title: "job", Tags: []string{"load"}})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, _ = l.ListJobs(JobFilter{Owner: &alice}, Page{Limit: maxPageLimit})
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(n), l.GetJobCount())
	_, total := l.ListJobs(JobFilter{Tag: "load"}, Page{})
	assert.Equal(t, n, total)

	p, err := l.GetProfile(alice)
	require.NoError(t, err)
	assert.Len(t, p.JobIDs, n)
	assert.NoError(t, l.Verify())
}

func TestLedger_SnapshotsAreIsolatedFromCallers(t *testing.T) {
	l := New(DefaultConfig(), nil, nil, nil)
	ctx := context.Background()
	_, err := l.CreateUser(ctx, alice, profile.NewProfile{Name: "A"})
	require.NoError(t, err)

	p, err := l.GetProfile(alice)
	require.NoError(t, err)
	p.Name = "mutated"
	p.JobIDs = append(p.JobIDs, 99)

	again, err := l.GetProfile(alice)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
	assert.Empty(t, again.JobIDs)
}
