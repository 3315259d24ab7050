package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/khoahotran/detasker/internal/domain/job"
	"github.com/khoahotran/detasker/internal/domain/profile"
	"github.com/khoahotran/detasker/internal/ledger"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

var (
	requester  = address.MustParse("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	freelancer = address.MustParse("0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359")
)

type JournalRepoIntegrationTestSuite struct {
	suite.Suite
	dbPool      *pgxpool.Pool
	pgContainer *postgres.PostgresContainer
	testLogger  logger.Logger
	journal     *PostgresJournalRepo
}

func (s *JournalRepoIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()
	s.testLogger = logger.NewNopLogger()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(1*time.Minute),
		),
	)
	if err != nil {
		s.T().Fatalf("Failed to start postgres container: %s", err)
	}
	s.pgContainer = pgContainer

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		s.T().Fatalf("Failed to get connection string: %s", err)
	}

	if err := RunMigrations("file://../../migrations", dsn, s.testLogger); err != nil {
		s.T().Fatalf("Failed to run migrations: %s", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		s.T().Fatalf("Failed to create pgxpool: %s", err)
	}
	s.dbPool = pool
	s.journal = NewPostgresJournalRepo(s.dbPool, s.testLogger)
}

func (s *JournalRepoIntegrationTestSuite) SetupTest() {
	_, err := s.dbPool.Exec(context.Background(), "TRUNCATE ledger_journal")
	s.Require().NoError(err)
}

func (s *JournalRepoIntegrationTestSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(context.Background()); err != nil {
			s.T().Fatalf("Failed to terminate postgres container: %s", err)
		}
	}
}

func TestJournalRepoIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}
	suite.Run(t, new(JournalRepoIntegrationTestSuite))
}

func (s *JournalRepoIntegrationTestSuite) newLedger(clock func() time.Time) *ledger.Ledger {
	cfg := ledger.DefaultConfig()
	cfg.Clock = clock
	return ledger.New(cfg, s.journal, nil, s.testLogger)
}

func (s *JournalRepoIntegrationTestSuite) Test_Append_And_Load() {
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

	for seq := uint64(1); seq <= 3; seq++ {
		err := s.journal.Append(ctx, ledger.Entry{
			ID:      uuid.New(),
			Seq:     seq,
			Command: "create_skill",
			Payload: json.RawMessage(`{"caller":"x"}`),
			At:      at,
		})
		s.Require().NoError(err)
	}

	entries, err := s.journal.Load(ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(uint64(2), entries[0].Seq)
	s.Equal(uint64(3), entries[1].Seq)
	s.True(at.Equal(entries[0].At))
	s.JSONEq(`{"caller":"x"}`, string(entries[0].Payload))

	latest, err := s.journal.LatestSeq(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(3), latest)
}

func (s *JournalRepoIntegrationTestSuite) Test_Append_DuplicateSeqIsRejected() {
	ctx := context.Background()
	e := ledger.Entry{ID: uuid.New(), Seq: 1, Command: "create_user", Payload: json.RawMessage(`{}`), At: time.Now().UTC()}
	s.Require().NoError(s.journal.Append(ctx, e))

	e.ID = uuid.New()
	err := s.journal.Append(ctx, e)
	s.ErrorIs(err, apperror.ErrInvalidState)
}

func (s *JournalRepoIntegrationTestSuite) Test_LedgerReplayRebuildsState() {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	original := s.newLedger(clock)
	_, err := original.CreateUser(ctx, requester, profile.NewProfile{Name: "Alice"})
	s.Require().NoError(err)
	_, err = original.CreateUser(ctx, freelancer, profile.NewProfile{Name: "Bob", Freelance: &profile.NewFreelancer{Active: true}})
	s.Require().NoError(err)
	j, err := original.CreateJob(ctx, requester, job.Draft{Title: "Index events", RequestedPaymentAmount: decimal.RequireFromString("0.002")})
	s.Require().NoError(err)
	_, err = original.PublishJob(ctx, requester, j.ID)
	s.Require().NoError(err)
	_, err = original.AssignJob(ctx, requester, freelancer, j.ID)
	s.Require().NoError(err)
	_, err = original.CompleteJob(ctx, requester, j.ID, decimal.RequireFromString("0.002"))
	s.Require().NoError(err)

	replica := s.newLedger(clock)
	n, err := replica.Replay(ctx)
	s.Require().NoError(err)
	s.Equal(6, n)
	s.Equal(original.Seq(), replica.Seq())
	s.Require().NoError(replica.Verify())

	want, err := original.GetJobByID(j.ID)
	s.Require().NoError(err)
	got, err := replica.GetJobByID(j.ID)
	s.Require().NoError(err)
	s.Equal(want, got)

	latest, err := s.journal.LatestSeq(ctx)
	s.Require().NoError(err)
	s.Equal(original.Seq(), latest)
}

func (s *JournalRepoIntegrationTestSuite) Test_PolicyRoundTrips() {
	ctx := context.Background()
	policy := ledger.DefaultConfig().Policy()
	policy.Arbiter = requester
	policy.FeedbackPolicy = ledger.FeedbackOnSettled

	s.Require().NoError(s.journal.Append(ctx, ledger.Entry{
		ID: uuid.New(), Seq: 1, Command: "create_user", Payload: json.RawMessage(`{}`), Policy: &policy, At: time.Now().UTC(),
	}))
	s.Require().NoError(s.journal.Append(ctx, ledger.Entry{
		ID: uuid.New(), Seq: 2, Command: "create_user", Payload: json.RawMessage(`{}`), At: time.Now().UTC(),
	}))

	entries, err := s.journal.Load(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Require().NotNil(entries[0].Policy)
	s.Equal(policy, *entries[0].Policy)
	s.Nil(entries[1].Policy)
}
