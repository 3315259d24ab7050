package persistence

import (
	"context"
	"encoding/json"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/internal/ledger"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

const uniqueViolation = "23505"

var psqlJournal = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var journalColumns = []string{"seq", "entry_id", "command", "payload", "policy", "occurred_at"}

type PostgresJournalRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresJournalRepo(db *pgxpool.Pool, logger logger.Logger) *PostgresJournalRepo {
	return &PostgresJournalRepo{db: db, logger: logger}
}

var _ ledger.Journal = (*PostgresJournalRepo)(nil)

func (r *PostgresJournalRepo) Append(ctx context.Context, e ledger.Entry) error {
	var policy []byte
	if e.Policy != nil {
		raw, err := json.Marshal(e.Policy)
		if err != nil {
			return apperror.NewInternal("failed to encode journal policy", err)
		}
		policy = raw
	}

	query, args, err := psqlJournal.Insert("ledger_journal").
		Columns(journalColumns...).
		Values(e.Seq, e.ID, e.Command, []byte(e.Payload), policy, e.At).
		ToSql()
	if err != nil {
		return apperror.NewInternal("failed to build journal insert", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.logger.Error("Journal sequence already taken", err, zap.Uint64("seq", e.Seq), zap.String("command", e.Command))
			return apperror.NewInvalidState("journal sequence already taken; another writer is active")
		}
		return apperror.NewInternal("failed to append journal entry", err)
	}
	return nil
}

func (r *PostgresJournalRepo) Load(ctx context.Context, afterSeq uint64) ([]ledger.Entry, error) {
	query, args, err := psqlJournal.Select(journalColumns...).
		From("ledger_journal").
		Where(sq.Gt{"seq": afterSeq}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build journal query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.NewInternal("failed to load journal", err)
	}
	return scanEntries(rows)
}

// LatestSeq is the highest committed seq, 0 for an empty journal.
func (r *PostgresJournalRepo) LatestSeq(ctx context.Context) (uint64, error) {
	query, args, err := psqlJournal.Select("COALESCE(MAX(seq), 0)").From("ledger_journal").ToSql()
	if err != nil {
		return 0, apperror.NewInternal("failed to build journal query", err)
	}
	var seq int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&seq); err != nil {
		return 0, apperror.NewInternal("failed to read latest journal seq", err)
	}
	return uint64(seq), nil
}

func scanEntries(rows pgx.Rows) ([]ledger.Entry, error) {
	defer rows.Close()
	entries := make([]ledger.Entry, 0)
	for rows.Next() {
		var (
			e      ledger.Entry
			seq    int64
			policy []byte
		)
		if err := rows.Scan(&seq, &e.ID, &e.Command, &e.Payload, &policy, &e.At); err != nil {
			return nil, apperror.NewInternal("failed to scan journal entry", err)
		}
		if policy != nil {
			e.Policy = &ledger.Policy{}
			if err := json.Unmarshal(policy, e.Policy); err != nil {
				return nil, apperror.NewInternal("failed to decode journal policy", err)
			}
		}
		e.Seq = uint64(seq)
		e.At = e.At.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal("error iterating journal rows", err)
	}
	return entries, nil
}
